package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/taskpin/taskpin/internal"
	"github.com/taskpin/taskpin/internal/config"
	"github.com/taskpin/taskpin/internal/eventbus"
	"github.com/taskpin/taskpin/internal/httpapi"
	"github.com/taskpin/taskpin/internal/notification"
	"github.com/taskpin/taskpin/internal/payment"
	paymentrepo "github.com/taskpin/taskpin/internal/payment/repositoryimpl"
	"github.com/taskpin/taskpin/internal/payment/stripegateway"
	"github.com/taskpin/taskpin/internal/pushnotification"
	pushsubrepo "github.com/taskpin/taskpin/internal/pushsubscription/repositoryimpl"
	"github.com/taskpin/taskpin/internal/task"
	taskrepo "github.com/taskpin/taskpin/internal/task/repositoryimpl"
	"github.com/taskpin/taskpin/pkg/blob"
	"github.com/taskpin/taskpin/pkg/clog"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store blob.Store
	switch env.StorageEnv.Type {
	case "s3":
		store, err = blob.NewS3(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = blob.NewLocal(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()
	notifier := notification.NewBusNotifier(bus)

	// Setup repositories
	taskRepo := taskrepo.NewYAMLRepository(store)
	txRepo := paymentrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Setup services
	taskService := task.NewService(taskRepo, notifier)
	paymentEnv := config.PaymentEnvFromEnv(env)
	gateway := stripegateway.New(paymentEnv.StripeSecretKey, paymentEnv.StripeWebhookSecret)
	paymentService := payment.NewService(taskRepo, txRepo, gateway, notifier, paymentEnv.Currency)

	// Setup push notification
	pushEnv := config.PushEnvFromEnv(env)
	pushSender := pushnotification.NewSender(pushEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(bus, taskRepo, pushSender)

	srv := server.NewServer(
		env,
		httpapi.NewTaskHandler(taskService),
		httpapi.NewPaymentHandler(paymentService),
		httpapi.NewPushHandler(pushSubRepo),
		httpapi.NewWebhookHandler(gateway, paymentService),
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go pushDispatcher.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
