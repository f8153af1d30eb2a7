package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/taskhub/internal/domain"
)

type fakeTaskRepo struct {
	mu         sync.Mutex
	candidates []domain.Task
	listErr    error
	markFalse  map[uuid.UUID]bool
	marked     []uuid.UUID
	markGate   chan struct{} // when set, MarkOverdue blocks until closed
}

func (f *fakeTaskRepo) ListOverdueCandidates(_ context.Context, _ time.Time) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Task(nil), f.candidates...), nil
}

func (f *fakeTaskRepo) MarkOverdue(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	if f.markGate != nil {
		<-f.markGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markFalse[id] {
		return false, nil
	}
	f.marked = append(f.marked, id)
	return true, nil
}

func (f *fakeTaskRepo) Create(context.Context, *domain.Task) error { return nil }
func (f *fakeTaskRepo) GetByID(context.Context, uuid.UUID) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}
func (f *fakeTaskRepo) Update(context.Context, *domain.Task) error     { return nil }
func (f *fakeTaskRepo) SoftDelete(context.Context, uuid.UUID) error    { return nil }
func (f *fakeTaskRepo) List(context.Context, domain.TaskFilter) (*domain.TaskPage, error) {
	return &domain.TaskPage{}, nil
}
func (f *fakeTaskRepo) Summary(context.Context) (*domain.TaskSummary, error) {
	return &domain.TaskSummary{}, nil
}

type fakeSink struct {
	events chan *domain.Event
}

func newFakeSink() *fakeSink {
	return &fakeSink{events: make(chan *domain.Event, 16)}
}

func (f *fakeSink) Dispatch(_ context.Context, ev *domain.Event) {
	f.events <- ev
}

func overdueCandidate(creator uuid.UUID, due time.Time) domain.Task {
	return domain.Task{
		ID:              uuid.New(),
		Title:           "late task",
		Status:          domain.StatusTodo,
		Priority:        domain.PriorityMedium,
		DueDate:         &due,
		NotifyOnOverdue: true,
		CreatedBy:       creator,
	}
}

func TestSweeper_RunOnceMarksAndDispatches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	candidate := overdueCandidate(uuid.New(), due)
	repo := &fakeTaskRepo{candidates: []domain.Task{candidate}}
	sink := newFakeSink()

	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)
	s.RunOnce(context.Background())

	require.Len(t, repo.marked, 1)
	assert.Equal(t, candidate.ID, repo.marked[0])

	select {
	case ev := <-sink.events:
		assert.Equal(t, domain.EventTaskUpdated, ev.Type)
		assert.Equal(t, candidate.ID, ev.TaskID)
		assert.Equal(t, uuid.Nil, ev.ActorID)
		assert.Equal(t, domain.StatusTodo, ev.PrevStatus)
		require.NotNil(t, ev.Task)
		assert.Equal(t, domain.StatusOverdue, ev.Task.Status)
		assert.True(t, ev.BecameOverdue())
	default:
		t.Fatal("expected a dispatched event")
	}
}

func TestSweeper_SkipsTasksThatNoLongerQualify(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	stale := overdueCandidate(uuid.New(), due)
	fresh := overdueCandidate(uuid.New(), due)
	repo := &fakeTaskRepo{
		candidates: []domain.Task{stale, fresh},
		markFalse:  map[uuid.UUID]bool{stale.ID: true},
	}
	sink := newFakeSink()

	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)
	s.RunOnce(context.Background())

	require.Len(t, repo.marked, 1)
	assert.Equal(t, fresh.ID, repo.marked[0])
	assert.Len(t, sink.events, 1, "no event for the skipped task")
}

func TestSweeper_ListFailureDispatchesNothing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeTaskRepo{listErr: errors.New("db down")}
	sink := newFakeSink()

	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)
	s.RunOnce(context.Background())

	assert.Empty(t, repo.marked)
	assert.Empty(t, sink.events)
}

func TestSweeper_OverlappingTickIsSkipped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	gate := make(chan struct{})
	repo := &fakeTaskRepo{
		candidates: []domain.Task{overdueCandidate(uuid.New(), due)},
		markGate:   gate,
	}
	sink := newFakeSink()
	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()

	// wait until the first pass is inside MarkOverdue
	require.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)

	// a second tick while the first is in flight must not run the sweep again
	s.RunOnce(context.Background())
	assert.Empty(t, repo.marked)

	close(gate)
	<-done
	assert.Len(t, repo.marked, 1)
}

func TestSweeper_DeadlineStopsMidSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	repo := &fakeTaskRepo{candidates: []domain.Task{
		overdueCandidate(uuid.New(), due),
		overdueCandidate(uuid.New(), due),
	}}
	sink := newFakeSink()
	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunOnce(ctx)

	assert.Empty(t, repo.marked, "expired deadline stops before marking")
}

func TestSweeper_TimerLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	repo := &fakeTaskRepo{candidates: []domain.Task{overdueCandidate(uuid.New(), due)}}
	sink := newFakeSink()
	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)

	go s.Start(context.Background())
	defer s.Stop()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)

	select {
	case ev := <-sink.events:
		assert.Equal(t, domain.StatusOverdue, ev.Task.Status)
	case <-time.After(time.Second):
		t.Fatal("expected the timer to trigger a sweep")
	}
}

type fakeGate struct {
	held bool
	err  error
}

func (f *fakeGate) Acquire(context.Context) (bool, error) {
	return f.held, f.err
}

func TestSweeper_StandbyInstanceDoesNotSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	repo := &fakeTaskRepo{candidates: []domain.Task{overdueCandidate(uuid.New(), due)}}
	sink := newFakeSink()

	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)
	s.UseLeaderGate(&fakeGate{held: false})
	s.RunOnce(context.Background())

	assert.Empty(t, repo.marked)
}

func TestSweeper_LeaderSweeps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	repo := &fakeTaskRepo{candidates: []domain.Task{overdueCandidate(uuid.New(), due)}}
	sink := newFakeSink()

	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)
	s.UseLeaderGate(&fakeGate{held: true})
	s.RunOnce(context.Background())

	assert.Len(t, repo.marked, 1)
}

func TestSweeper_GateFailureSweepsAnyway(t *testing.T) {
	clock := clockwork.NewFakeClock()
	due := clock.Now().Add(-time.Hour)
	repo := &fakeTaskRepo{candidates: []domain.Task{overdueCandidate(uuid.New(), due)}}
	sink := newFakeSink()

	s := New(repo, sink, clock, 5*time.Minute, 2*time.Minute)
	s.UseLeaderGate(&fakeGate{err: errors.New("redis down")})
	s.RunOnce(context.Background())

	assert.Len(t, repo.marked, 1)
}
