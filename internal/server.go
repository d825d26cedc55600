package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/taskpin/taskpin/internal/config"
	"github.com/taskpin/taskpin/internal/httpapi"
	"github.com/taskpin/taskpin/pkg/cerr"
	"github.com/taskpin/taskpin/pkg/clog"
)

type Server struct {
	server         *http.Server
	env            *config.Env
	taskHandler    *httpapi.TaskHandler
	paymentHandler *httpapi.PaymentHandler
	pushHandler    *httpapi.PushHandler
	webhookHandler *httpapi.WebhookHandler
}

func NewServer(
	env *config.Env,
	taskHandler *httpapi.TaskHandler,
	paymentHandler *httpapi.PaymentHandler,
	pushHandler *httpapi.PushHandler,
	webhookHandler *httpapi.WebhookHandler,
) *Server {
	return &Server{
		env:            env,
		taskHandler:    taskHandler,
		paymentHandler: paymentHandler,
		pushHandler:    pushHandler,
		webhookHandler: webhookHandler,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext, so
// cancelling it (e.g. on shutdown signal) also cancels in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
			httpapi.RequirePrincipal,
		)
		r.Route("/tasks", s.taskHandler.Routes)
		r.Route("/payments", s.paymentHandler.Routes)
		r.Route("/push", s.pushHandler.Routes)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()

	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	// Webhook deliveries authenticate by signature, not API key or identity.
	mux.Handle("/webhooks/stripe", s.webhookHandler)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health and webhook endpoints carry their own authentication.
		if r.URL.Path == "/health" || r.URL.Path == "/webhooks/stripe" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
