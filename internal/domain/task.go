package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusOverdue    TaskStatus = "overdue"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// CanTransitionTo reports whether a user-driven edit may move a task from s
// to next. Forward moves (todo -> in_progress -> completed, skips allowed)
// and resuming/finishing a late task (overdue -> in_progress/completed) are
// permitted. Reopening a completed task re-enters todo or in_progress.
// The overdue status itself is only ever entered by the sweep.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusTodo:
		return next == StatusInProgress || next == StatusCompleted
	case StatusInProgress:
		return next == StatusCompleted || next == StatusTodo
	case StatusOverdue:
		return next == StatusInProgress || next == StatusCompleted
	case StatusCompleted:
		return next == StatusTodo || next == StatusInProgress
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Status          TaskStatus
	Priority        TaskPriority
	StartDate       *time.Time
	DueDate         *time.Time
	NotifyOnOverdue bool
	Deleted         bool
	CreatedBy       uuid.UUID
	AssignedTo      *uuid.UUID
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TaskFilter describes a listing query. The zero value lists the first page
// of all live tasks ordered by creation time descending.
type TaskFilter struct {
	Status     TaskStatus
	Priority   TaskPriority
	AssignedTo *uuid.UUID
	Search     string
	Tag        string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// TaskPage is one page of a filtered listing plus pagination totals.
type TaskPage struct {
	Tasks      []Task
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// TaskSummary aggregates live task counts by status and priority.
type TaskSummary struct {
	Total      int
	ByStatus   map[TaskStatus]int
	ByPriority map[TaskPriority]int
	DueSoon    int
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, task *Task) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TaskFilter) (*TaskPage, error)
	Summary(ctx context.Context) (*TaskSummary, error)

	// ListOverdueCandidates returns live tasks whose due date has elapsed
	// and whose status is neither completed nor overdue.
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]Task, error)

	// MarkOverdue transitions a single task to overdue, guarded by the same
	// predicate as ListOverdueCandidates. Returns false when the task no
	// longer qualifies (completed, deleted or already overdue in the
	// meantime), which callers treat as a skip rather than an error.
	MarkOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}
