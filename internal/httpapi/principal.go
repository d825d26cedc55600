package httpapi

import (
	"context"
	"net/http"

	"github.com/taskpin/taskpin/internal/identity"
	"github.com/taskpin/taskpin/pkg/cerr"
	"github.com/taskpin/taskpin/pkg/clog"
)

// Credential verification is not this service's job: the edge proxy
// terminates bearer tokens and forwards the verified identity in these
// headers, behind the shared API key.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

type principalKey struct{}

func contextWithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(identity.Principal)
	return p, ok
}

// RequirePrincipal rejects requests without a forwarded identity.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerUserID)
		if id == "" {
			cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "missing identity", nil)
			return
		}
		role := identity.Role(r.Header.Get(headerUserRole))
		switch role {
		case identity.RoleRequester, identity.RoleWorker, identity.RoleAdmin:
		default:
			cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "unknown role", nil)
			return
		}

		p := identity.Principal{ID: id, Role: role}
		clog.AddAttribute(r.Context(), "user_id", p.ID)
		next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), p)))
	})
}

type okResponse struct {
	OK bool `json:"ok"`
}
