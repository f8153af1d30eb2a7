package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/taskhub/internal/cache"
	"github.com/pscheid92/taskhub/internal/domain"
)

type memTaskRepo struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]domain.Task
	createErr error
	getCalls  int
	listCalls int
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[uuid.UUID]domain.Task)}
}

func (r *memTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	task.ID = uuid.New()
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = *task
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	task, ok := r.tasks[id]
	if !ok || task.Deleted {
		return nil, domain.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (r *memTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	r.tasks[task.ID] = *task
	return nil
}

func (r *memTaskRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.Deleted {
		return domain.ErrTaskNotFound
	}
	task.Deleted = true
	r.tasks[id] = task
	return nil
}

func (r *memTaskRepo) List(_ context.Context, filter domain.TaskFilter) (*domain.TaskPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []domain.Task
	for _, task := range r.tasks {
		if task.Deleted {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		out = append(out, task)
	}
	return &domain.TaskPage{
		Tasks:    out,
		Total:    len(out),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (r *memTaskRepo) Summary(context.Context) (*domain.TaskSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &domain.TaskSummary{
		ByStatus:   make(map[domain.TaskStatus]int),
		ByPriority: make(map[domain.TaskPriority]int),
	}
	for _, task := range r.tasks {
		if task.Deleted {
			continue
		}
		summary.Total++
		summary.ByStatus[task.Status]++
		summary.ByPriority[task.Priority]++
	}
	return summary, nil
}

func (r *memTaskRepo) ListOverdueCandidates(context.Context, time.Time) ([]domain.Task, error) {
	return nil, nil
}

func (r *memTaskRepo) MarkOverdue(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

type memCommentRepo struct {
	mu       sync.Mutex
	comments map[uuid.UUID]domain.Comment
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{comments: make(map[uuid.UUID]domain.Comment)}
}

func (r *memCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.New()
	comment.CreatedAt = time.Now().UTC()
	comment.UpdatedAt = comment.CreatedAt
	r.comments[comment.ID] = *comment
	return nil
}

func (r *memCommentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment, ok := r.comments[id]
	if !ok || comment.Deleted {
		return nil, domain.ErrCommentNotFound
	}
	copied := comment
	return &copied, nil
}

func (r *memCommentRepo) Update(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[comment.ID]; !ok {
		return domain.ErrCommentNotFound
	}
	r.comments[comment.ID] = *comment
	return nil
}

func (r *memCommentRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment, ok := r.comments[id]
	if !ok {
		return domain.ErrCommentNotFound
	}
	comment.Deleted = true
	r.comments[id] = comment
	return nil
}

func (r *memCommentRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.comments {
		if comment.TaskID == taskID && !comment.Deleted {
			out = append(out, comment)
		}
	}
	return out, nil
}

type memNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{notifications: make(map[uuid.UUID]domain.Notification)}
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification, _ string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[n.ID] = *n
	return true, nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotificationNotFound
	}
	n.Read = true
	r.notifications[id] = n
	return &n, nil
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int
	for id, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.notifications[id] = n
			count++
		}
	}
	return count, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
	reads  []*domain.Notification
}

func (p *recordingPublisher) Dispatch(_ context.Context, ev *domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) NotificationRead(n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads = append(p.reads, n)
}

func (p *recordingPublisher) last() *domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type serviceFixture struct {
	service       *Service
	tasks         *memTaskRepo
	comments      *memCommentRepo
	notifications *memNotificationRepo
	publisher     *recordingPublisher
	clock         *clockwork.FakeClock
	cache         *cache.Memory
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	tasks := newMemTaskRepo()
	comments := newMemCommentRepo()
	notifications := newMemNotificationRepo()
	publisher := &recordingPublisher{}
	mem := cache.NewMemory(clock)

	service := NewService(tasks, comments, notifications, mem, publisher, clock, CacheTTLs{
		TaskList:   time.Minute,
		TaskDetail: 5 * time.Minute,
		Analytics:  5 * time.Minute,
	})

	return &serviceFixture{
		service:       service,
		tasks:         tasks,
		comments:      comments,
		notifications: notifications,
		publisher:     publisher,
		clock:         clock,
		cache:         mem,
	}
}
