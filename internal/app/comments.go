package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pscheid92/taskhub/internal/domain"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

func (s *Service) CreateComment(ctx context.Context, actorID, taskID uuid.UUID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ValidationError("content is required")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TaskID:   taskID,
		AuthorID: actorID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.PersistenceError("failed to create comment", err)
	}

	s.events.Dispatch(ctx, &domain.Event{
		Type:       domain.EventCommentCreated,
		TaskID:     taskID,
		ActorID:    actorID,
		OccurredAt: s.clock.Now().UTC(),
		Task:       task,
		Comment:    comment,
	})

	return comment, nil
}

func (s *Service) UpdateComment(ctx context.Context, actorID, commentID uuid.UUID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ValidationError("content is required")
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, domain.ErrNotCommentAuthor
	}

	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, apperrors.PersistenceError("failed to update comment", err)
	}

	s.dispatchCommentEvent(ctx, domain.EventCommentUpdated, actorID, comment)
	return comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, actorID, commentID uuid.UUID) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		return domain.ErrNotCommentAuthor
	}

	if err := s.comments.SoftDelete(ctx, commentID); err != nil {
		return apperrors.PersistenceError("failed to delete comment", err)
	}

	s.dispatchCommentEvent(ctx, domain.EventCommentDeleted, actorID, comment)
	return nil
}

func (s *Service) ListComments(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.PersistenceError("failed to list comments", err)
	}
	return comments, nil
}

// dispatchCommentEvent publishes a comment mutation. The task snapshot is
// best-effort: a lookup failure degrades the payload, it does not block the
// already-committed mutation.
func (s *Service) dispatchCommentEvent(ctx context.Context, eventType domain.EventType, actorID uuid.UUID, comment *domain.Comment) {
	task, err := s.tasks.GetByID(ctx, comment.TaskID)
	if err != nil {
		task = nil
	}

	s.events.Dispatch(ctx, &domain.Event{
		Type:       eventType,
		TaskID:     comment.TaskID,
		ActorID:    actorID,
		OccurredAt: s.clock.Now().UTC(),
		Task:       task,
		Comment:    comment,
	})
}
