package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/taskhub/internal/domain"
)

const taskColumns = `id, title, description, status, priority, start_date, due_date,
	notify_on_overdue, deleted, created_by, assigned_to, tags, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	if task.Tags == nil {
		task.Tags = []string{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, start_date, due_date,
			notify_on_overdue, created_by, assigned_to, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, task.Title, task.Description, task.Status, task.Priority, task.StartDate, task.DueDate,
		task.NotifyOnOverdue, task.CreatedBy, task.AssignedTo, task.Tags,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND deleted = FALSE
	`, id)

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *TaskRepo) Update(ctx context.Context, task *domain.Task) error {
	if task.Tags == nil {
		task.Tags = []string{}
	}

	err := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, start_date = $5,
			due_date = $6, notify_on_overdue = $7, assigned_to = $8, tags = $9, updated_at = NOW()
		WHERE id = $10 AND deleted = FALSE
		RETURNING updated_at
	`, task.Title, task.Description, task.Status, task.Priority, task.StartDate,
		task.DueDate, task.NotifyOnOverdue, task.AssignedTo, task.Tags, task.ID,
	).Scan(&task.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (r *TaskRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// sortColumns whitelists the expressions a listing may order by. Priority
// sorts by severity, not alphabetically.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"title":      "title",
	"priority": "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3" +
		" WHEN 'medium' THEN 2 ELSE 1 END",
}

func (r *TaskRepo) List(ctx context.Context, filter domain.TaskFilter) (*domain.TaskPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	where := []string{"deleted = FALSE"}
	args := []any{}

	addArg := func(condition string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(condition, len(args)))
	}

	if filter.Status != "" {
		addArg("status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		addArg("priority = $%d", filter.Priority)
	}
	if filter.AssignedTo != nil {
		addArg("assigned_to = $%d", *filter.AssignedTo)
	}
	if filter.Tag != "" {
		addArg("$%d = ANY(tags)", filter.Tag)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY %s %s NULLS LAST, id
		LIMIT $%d OFFSET $%d
	`, taskColumns, whereClause, orderBy, direction, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &domain.TaskPage{
		Tasks:      tasks,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *TaskRepo) Summary(ctx context.Context) (*domain.TaskSummary, error) {
	summary := &domain.TaskSummary{
		ByStatus:   make(map[domain.TaskStatus]int),
		ByPriority: make(map[domain.TaskPriority]int),
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, priority, COUNT(*)
		FROM tasks
		WHERE deleted = FALSE
		GROUP BY status, priority
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.TaskStatus
		var priority domain.TaskPriority
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task aggregate: %w", err)
		}
		summary.Total += count
		summary.ByStatus[status] += count
		summary.ByPriority[priority] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tasks
		WHERE deleted = FALSE
			AND status NOT IN ('completed', 'overdue')
			AND due_date IS NOT NULL
			AND due_date BETWEEN NOW() AND NOW() + INTERVAL '24 hours'
	`).Scan(&summary.DueSoon)
	if err != nil {
		return nil, fmt.Errorf("failed to count due-soon tasks: %w", err)
	}

	return summary, nil
}

func (r *TaskRepo) ListOverdueCandidates(ctx context.Context, now time.Time) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE deleted = FALSE
			AND status IN ('todo', 'in_progress')
			AND due_date IS NOT NULL
			AND due_date < $1
		ORDER BY due_date
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue candidates: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (r *TaskRepo) MarkOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = 'overdue', updated_at = NOW()
		WHERE id = $1
			AND deleted = FALSE
			AND status IN ('todo', 'in_progress')
			AND due_date IS NOT NULL
			AND due_date < $2
	`, id, now)

	if err != nil {
		return false, fmt.Errorf("failed to mark task overdue: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&task.StartDate, &task.DueDate, &task.NotifyOnOverdue, &task.Deleted,
		&task.CreatedBy, &task.AssignedTo, &task.Tags, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}
