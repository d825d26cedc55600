package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin/internal/identity"
	"github.com/taskpin/taskpin/internal/notification"
	"github.com/taskpin/taskpin/internal/payment"
	paymentrepo "github.com/taskpin/taskpin/internal/payment/repositoryimpl"
	taskrepo "github.com/taskpin/taskpin/internal/task/repositoryimpl"
	"github.com/taskpin/taskpin/pkg/blob"
)

// staticParser returns a fixed event, or an error standing in for a bad
// signature.
type staticParser struct {
	event *payment.Event
	err   error
}

func (p *staticParser) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	return p.event, p.err
}

func newPaymentService(t *testing.T) *payment.Service {
	t.Helper()
	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)
	return payment.NewService(
		taskrepo.NewYAMLRepository(store),
		paymentrepo.NewYAMLRepository(store),
		nil,
		notification.Nop{},
		"usd",
	)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler(&staticParser{err: errors.New("bad signature")}, newPaymentService(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAcknowledgesIgnoredEventTypes(t *testing.T) {
	h := NewWebhookHandler(&staticParser{}, newPaymentService(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}")))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookAcknowledgesOrphanEvent(t *testing.T) {
	parser := &staticParser{event: &payment.Event{
		Type:     payment.EventPaymentSucceeded,
		IntentID: "pi_unknown",
	}}
	h := NewWebhookHandler(parser, newPaymentService(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}")))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePrincipal(t *testing.T) {
	var got identity.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromContext(r.Context())
		require.True(t, ok)
		got = p
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/mine", nil)
	req.Header.Set("X-User-Id", "wrk-1")
	req.Header.Set("X-User-Role", "worker")
	RequirePrincipal(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "wrk-1", got.ID)
	assert.Equal(t, identity.RoleWorker, got.Role)
	assert.True(t, got.IsWorker())
}

func TestRequirePrincipalRejectsUnknownRole(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/mine", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-User-Role", "superuser")
	RequirePrincipal(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, called)
}
