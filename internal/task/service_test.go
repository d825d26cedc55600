package task_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin/internal/eventbus"
	"github.com/taskpin/taskpin/internal/identity"
	"github.com/taskpin/taskpin/internal/task"
	"github.com/taskpin/taskpin/internal/task/repositoryimpl"
	"github.com/taskpin/taskpin/pkg/blob"
	"github.com/taskpin/taskpin/pkg/cerr"
)

var (
	requester = identity.Principal{ID: "req-1", Role: identity.RoleRequester}
	worker    = identity.Principal{ID: "wrk-1", Role: identity.RoleWorker}
	admin     = identity.Principal{ID: "adm-1", Role: identity.RoleAdmin}
)

// recordingNotifier captures emitted event types in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []eventbus.Type
}

func (n *recordingNotifier) Emit(eventType eventbus.Type, taskID string, payload map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) types() []eventbus.Type {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]eventbus.Type(nil), n.events...)
}

func newTestService(t *testing.T) (*task.Service, *recordingNotifier) {
	t.Helper()
	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	return task.NewService(repositoryimpl.NewYAMLRepository(store), notifier), notifier
}

func createTask(t *testing.T, svc *task.Service) *task.Task {
	t.Helper()
	created, err := svc.Create(context.Background(), requester, task.CreateInput{
		Title:      "Fix kitchen sink",
		Category:   "plumbing",
		PriceCents: 5000,
	})
	require.NoError(t, err)
	return created
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, requester, task.CreateInput{PriceCents: 100})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = svc.Create(ctx, requester, task.CreateInput{Title: "x", PriceCents: -1})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	created := createTask(t, svc)
	assert.Equal(t, task.StatusRequested, created.Status)
	assert.Empty(t, created.WorkerID)

	claimed, err := svc.Claim(ctx, created.ID, worker)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, claimed.Status)
	assert.Equal(t, worker.ID, claimed.WorkerID)

	started, err := svc.Start(ctx, created.ID, worker)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, started.Status)

	completed, err := svc.Complete(ctx, created.ID, worker)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, completed.Status)

	assert.Equal(t, []eventbus.Type{
		eventbus.TypeTaskCreated,
		eventbus.TypeTaskClaimed,
		eventbus.TypeTaskStarted,
		eventbus.TypeTaskCompleted,
	}, notifier.types())
}

func TestClaimOnlyOneWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := createTask(t, svc)

	const claimants = 16
	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := identity.Principal{ID: fmt.Sprintf("wrk-%d", i), Role: identity.RoleWorker}
			_, errs[i] = svc.Claim(ctx, created.ID, w)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.True(t, cerr.IsCode(err, cerr.Aborted), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, got.Status)
	assert.NotEmpty(t, got.WorkerID)
}

func TestClaimRequiresWorkerRole(t *testing.T) {
	svc, _ := newTestService(t)
	created := createTask(t, svc)

	_, err := svc.Claim(context.Background(), created.ID, requester)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))
}

func TestClaimTakenTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := createTask(t, svc)

	_, err := svc.Claim(ctx, created.ID, worker)
	require.NoError(t, err)

	other := identity.Principal{ID: "wrk-2", Role: identity.RoleWorker}
	_, err = svc.Claim(ctx, created.ID, other)
	assert.True(t, cerr.IsCode(err, cerr.Aborted))
}

func TestStartGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := createTask(t, svc)

	// Not yet claimed.
	_, err := svc.Start(ctx, created.ID, worker)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	_, err = svc.Claim(ctx, created.ID, worker)
	require.NoError(t, err)

	// Someone else's task.
	other := identity.Principal{ID: "wrk-2", Role: identity.RoleWorker}
	_, err = svc.Start(ctx, created.ID, other)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	_, err = svc.Start(ctx, created.ID, worker)
	require.NoError(t, err)

	// Starting twice fails the state guard.
	_, err = svc.Start(ctx, created.ID, worker)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestCompleteFromAssignedSkipsStart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := createTask(t, svc)

	_, err := svc.Claim(ctx, created.ID, worker)
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, created.ID, worker)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, completed.Status)
}

func TestCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("requester cancels requested task", func(t *testing.T) {
		created := createTask(t, svc)
		cancelled, err := svc.Cancel(ctx, created.ID, requester)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCancelled, cancelled.Status)
	})

	t.Run("worker id survives cancellation", func(t *testing.T) {
		created := createTask(t, svc)
		_, err := svc.Claim(ctx, created.ID, worker)
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, created.ID, requester)
		require.NoError(t, err)
		assert.Equal(t, worker.ID, cancelled.WorkerID)
	})

	t.Run("admin may cancel anyone's task", func(t *testing.T) {
		created := createTask(t, svc)
		_, err := svc.Cancel(ctx, created.ID, admin)
		require.NoError(t, err)
	})

	t.Run("stranger may not cancel", func(t *testing.T) {
		created := createTask(t, svc)
		stranger := identity.Principal{ID: "req-2", Role: identity.RoleRequester}
		_, err := svc.Cancel(ctx, created.ID, stranger)
		assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))
	})

	t.Run("completed task cannot be cancelled", func(t *testing.T) {
		created := createTask(t, svc)
		_, err := svc.Claim(ctx, created.ID, worker)
		require.NoError(t, err)
		_, err = svc.Complete(ctx, created.ID, worker)
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, created.ID, requester)
		assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
	})

	t.Run("cancel is not idempotent", func(t *testing.T) {
		created := createTask(t, svc)
		_, err := svc.Cancel(ctx, created.ID, requester)
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, created.ID, requester)
		assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
	})
}

func TestWithdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("unclaimed task is deleted", func(t *testing.T) {
		created := createTask(t, svc)
		require.NoError(t, svc.Withdraw(ctx, created.ID, requester))

		_, err := svc.Get(ctx, created.ID)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))
	})

	t.Run("claimed task stays", func(t *testing.T) {
		created := createTask(t, svc)
		_, err := svc.Claim(ctx, created.ID, worker)
		require.NoError(t, err)

		err = svc.Withdraw(ctx, created.ID, requester)
		assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

		_, err = svc.Get(ctx, created.ID)
		assert.NoError(t, err)
	})

	t.Run("only the owner withdraws", func(t *testing.T) {
		created := createTask(t, svc)
		stranger := identity.Principal{ID: "req-2", Role: identity.RoleRequester}
		err := svc.Withdraw(ctx, created.ID, stranger)
		assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))
	})
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := createTask(t, svc)
	b := createTask(t, svc)
	_ = createTask(t, svc)

	_, err := svc.Claim(ctx, a.ID, worker)
	require.NoError(t, err)
	_, err = svc.Claim(ctx, b.ID, worker)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, b.ID, worker)
	require.NoError(t, err)

	open, err := svc.Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, task.StatusRequested, open[0].Status)

	mine, err := svc.ListByRequester(ctx, requester)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	active, err := svc.ActiveByWorker(ctx, worker)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	history, err := svc.HistoryByWorker(ctx, worker)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, b.ID, history[0].ID)
}
