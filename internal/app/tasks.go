package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/taskhub/internal/cache"
	"github.com/pscheid92/taskhub/internal/domain"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

const maxPageSize = 100

type CreateTaskInput struct {
	Title           string
	Description     string
	Status          domain.TaskStatus
	Priority        domain.TaskPriority
	StartDate       *time.Time
	DueDate         *time.Time
	AssignedTo      *uuid.UUID
	Tags            []string
	NotifyOnOverdue bool
}

// UpdateTaskInput carries a partial update; nil fields stay untouched.
type UpdateTaskInput struct {
	Title           *string
	Description     *string
	Status          *domain.TaskStatus
	Priority        *domain.TaskPriority
	StartDate       *time.Time
	DueDate         *time.Time
	AssignedTo      *uuid.UUID
	Tags            []string
	NotifyOnOverdue *bool
}

func (s *Service) CreateTask(ctx context.Context, actorID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.ValidationError("title is required")
	}

	status := input.Status
	if status == "" {
		status = domain.StatusTodo
	}
	if !status.Valid() {
		return nil, apperrors.ValidationError("invalid status: " + string(input.Status))
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.ValidationError("invalid priority: " + string(input.Priority))
	}

	// A due date settles the initial status: an already-late task starts
	// overdue, a dated task someone is expected to work on starts in
	// progress.
	if input.DueDate != nil {
		now := s.clock.Now().UTC()
		switch {
		case input.DueDate.Before(now) && status != domain.StatusCompleted && status != domain.StatusOverdue:
			status = domain.StatusOverdue
		case !input.DueDate.Before(now) && status == domain.StatusTodo:
			status = domain.StatusInProgress
		}
	}

	task := &domain.Task{
		Title:           title,
		Description:     input.Description,
		Status:          status,
		Priority:        priority,
		StartDate:       input.StartDate,
		DueDate:         input.DueDate,
		NotifyOnOverdue: input.NotifyOnOverdue,
		CreatedBy:       actorID,
		AssignedTo:      input.AssignedTo,
		Tags:            input.Tags,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.PersistenceError("failed to create task", err)
	}

	s.events.Dispatch(ctx, &domain.Event{
		Type:       domain.EventTaskCreated,
		TaskID:     task.ID,
		ActorID:    actorID,
		OccurredAt: s.clock.Now().UTC(),
		Task:       task,
	})

	return task, nil
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	key := cache.TaskDetailKey(id)

	var cached domain.Task
	if s.cachedJSON(ctx, key, &cached) {
		return &cached, nil
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.fillCache(ctx, key, task, s.ttls.TaskDetail)
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) (*domain.TaskPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.ValidationError("invalid status: " + string(filter.Status))
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, apperrors.ValidationError("invalid priority: " + string(filter.Priority))
	}

	key := cache.TaskListKey(userID, filter)

	var cached domain.TaskPage
	if s.cachedJSON(ctx, key, &cached) {
		return &cached, nil
	}

	page, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, apperrors.PersistenceError("failed to list tasks", err)
	}

	s.fillCache(ctx, key, page, s.ttls.TaskList)
	return page, nil
}

func (s *Service) TaskSummary(ctx context.Context) (*domain.TaskSummary, error) {
	var cached domain.TaskSummary
	if s.cachedJSON(ctx, cache.AnalyticsSummaryKey, &cached) {
		return &cached, nil
	}

	summary, err := s.tasks.Summary(ctx)
	if err != nil {
		return nil, apperrors.PersistenceError("failed to build task summary", err)
	}

	s.fillCache(ctx, cache.AnalyticsSummaryKey, summary, s.ttls.Analytics)
	return summary, nil
}

func (s *Service) UpdateTask(ctx context.Context, actorID, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prevStatus := task.Status
	prevAssignee := task.AssignedTo

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.ValidationError("title cannot be empty")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		next := *input.Status
		if !next.Valid() {
			return nil, apperrors.ValidationError("invalid status: " + string(next))
		}
		if !task.Status.CanTransitionTo(next) {
			return nil, domain.ErrInvalidTransition
		}
		task.Status = next
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.ValidationError("invalid priority: " + string(*input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.StartDate != nil {
		task.StartDate = input.StartDate
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if input.Tags != nil {
		task.Tags = input.Tags
	}
	if input.NotifyOnOverdue != nil {
		task.NotifyOnOverdue = *input.NotifyOnOverdue
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		return nil, apperrors.PersistenceError("failed to update task", err)
	}

	s.events.Dispatch(ctx, &domain.Event{
		Type:         domain.EventTaskUpdated,
		TaskID:       task.ID,
		ActorID:      actorID,
		OccurredAt:   s.clock.Now().UTC(),
		Task:         task,
		PrevStatus:   prevStatus,
		PrevAssignee: prevAssignee,
	})

	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, actorID, id uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		return apperrors.PersistenceError("failed to delete task", err)
	}

	s.events.Dispatch(ctx, &domain.Event{
		Type:       domain.EventTaskDeleted,
		TaskID:     id,
		ActorID:    actorID,
		OccurredAt: s.clock.Now().UTC(),
		Task:       task,
	})

	return nil
}
