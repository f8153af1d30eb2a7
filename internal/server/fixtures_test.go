package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/taskhub/internal/app"
	"github.com/pscheid92/taskhub/internal/auth"
	"github.com/pscheid92/taskhub/internal/cache"
	"github.com/pscheid92/taskhub/internal/config"
	"github.com/pscheid92/taskhub/internal/domain"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

// --- In-memory repositories ---

type stubTaskRepo struct {
	tasks map[uuid.UUID]*domain.Task
}

func newStubTaskRepo() *stubTaskRepo {
	return &stubTaskRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *stubTaskRepo) Create(_ context.Context, task *domain.Task) error {
	task.ID = uuid.New()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *stubTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok || task.Deleted {
		return nil, domain.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *stubTaskRepo) Update(_ context.Context, task *domain.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *stubTaskRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	task, ok := r.tasks[id]
	if !ok || task.Deleted {
		return domain.ErrTaskNotFound
	}
	task.Deleted = true
	return nil
}

func (r *stubTaskRepo) List(_ context.Context, filter domain.TaskFilter) (*domain.TaskPage, error) {
	var tasks []domain.Task
	for _, task := range r.tasks {
		if task.Deleted {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		tasks = append(tasks, *task)
	}
	return &domain.TaskPage{
		Tasks:      tasks,
		Total:      len(tasks),
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: 1,
	}, nil
}

func (r *stubTaskRepo) Summary(_ context.Context) (*domain.TaskSummary, error) {
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

func (r *stubTaskRepo) ListOverdueCandidates(_ context.Context, _ time.Time) ([]domain.Task, error) {
	return nil, nil
}

func (r *stubTaskRepo) MarkOverdue(_ context.Context, _ uuid.UUID, _ time.Time) (bool, error) {
	return false, nil
}

type stubCommentRepo struct {
	comments map[uuid.UUID]*domain.Comment
}

func newStubCommentRepo() *stubCommentRepo {
	return &stubCommentRepo{comments: make(map[uuid.UUID]*domain.Comment)}
}

func (r *stubCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	comment.ID = uuid.New()
	comment.CreatedAt = time.Now()
	comment.UpdatedAt = comment.CreatedAt
	clone := *comment
	r.comments[comment.ID] = &clone
	return nil
}

func (r *stubCommentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Comment, error) {
	comment, ok := r.comments[id]
	if !ok || comment.Deleted {
		return nil, domain.ErrCommentNotFound
	}
	clone := *comment
	return &clone, nil
}

func (r *stubCommentRepo) Update(_ context.Context, comment *domain.Comment) error {
	if _, ok := r.comments[comment.ID]; !ok {
		return domain.ErrCommentNotFound
	}
	comment.UpdatedAt = time.Now()
	clone := *comment
	r.comments[comment.ID] = &clone
	return nil
}

func (r *stubCommentRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	comment, ok := r.comments[id]
	if !ok || comment.Deleted {
		return domain.ErrCommentNotFound
	}
	comment.Deleted = true
	return nil
}

func (r *stubCommentRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	var comments []domain.Comment
	for _, comment := range r.comments {
		if comment.TaskID == taskID && !comment.Deleted {
			comments = append(comments, *comment)
		}
	}
	return comments, nil
}

type stubNotificationRepo struct {
	notifications map[uuid.UUID]*domain.Notification
}

func newStubNotificationRepo() *stubNotificationRepo {
	return &stubNotificationRepo{notifications: make(map[uuid.UUID]*domain.Notification)}
}

func (r *stubNotificationRepo) Create(_ context.Context, n *domain.Notification, _ string) (bool, error) {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	clone := *n
	r.notifications[n.ID] = &clone
	return true, nil
}

func (r *stubNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			notifications = append(notifications, *n)
		}
	}
	return notifications, nil
}

func (r *stubNotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *stubNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotificationNotFound
	}
	n.Read = true
	clone := *n
	return &clone, nil
}

func (r *stubNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	updated := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

// --- Event publisher spy ---

type stubPublisher struct {
	events []*domain.Event
	reads  []*domain.Notification
}

func (p *stubPublisher) Dispatch(_ context.Context, ev *domain.Event) {
	p.events = append(p.events, ev)
}

func (p *stubPublisher) NotificationRead(n *domain.Notification) {
	p.reads = append(p.reads, n)
}

// --- Health check stubs ---

type stubRedisPinger struct {
	pingErr error
}

func (m *stubRedisPinger) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	if m.pingErr != nil {
		cmd.SetErr(m.pingErr)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

type stubPostgresPinger struct {
	pingErr error
}

func (m *stubPostgresPinger) Ping(_ context.Context) error {
	return m.pingErr
}

// --- Test server ---

type testEnv struct {
	srv           *Server
	tasks         *stubTaskRepo
	comments      *stubCommentRepo
	notifications *stubNotificationRepo
	publisher     *stubPublisher
	validator     *auth.Validator
	userID        uuid.UUID
	token         string
}

func newTestServer(t *testing.T, opts ...func(*Server)) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClock()
	tasks := newStubTaskRepo()
	comments := newStubCommentRepo()
	notifications := newStubNotificationRepo()
	publisher := &stubPublisher{}

	svc := app.NewService(tasks, comments, notifications, cache.NewMemory(clock), publisher, clock, app.CacheTTLs{
		TaskList:   time.Minute,
		TaskDetail: 5 * time.Minute,
		Analytics:  5 * time.Minute,
	})

	validator, err := auth.NewValidator("test-secret-key-32-bytes-long!!!", 24*time.Hour, clock)
	require.NoError(t, err)

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    &config.Config{Port: "0"},
		app:       svc,
		auth:      validator,
		db:        &stubPostgresPinger{},
		redis:     &stubRedisPinger{},
		guard:     NewConnectionGuard(100, 100, 100),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	userID := uuid.New()
	token, err := validator.GenerateToken(userID)
	require.NoError(t, err)

	return &testEnv{
		srv:           srv,
		tasks:         tasks,
		comments:      comments,
		notifications: notifications,
		publisher:     publisher,
		validator:     validator,
		userID:        userID,
		token:         token,
	}
}

func withPostgresCheck(db postgresHealthChecker) func(*Server) {
	return func(s *Server) { s.db = db }
}

func withRedisCheck(redis redisHealthChecker) func(*Server) {
	return func(s *Server) { s.redis = redis }
}

// doJSON performs an authenticated request against the test server and
// returns the recorded response.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, bearerPrefix+env.token)

	rec := httptest.NewRecorder()
	env.srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
