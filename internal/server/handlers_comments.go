package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/taskhub/internal/domain"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

type commentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCommentResponse(comment *domain.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func (s *Server) handleCreateComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	taskID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	comment, err := s.app.CreateComment(c.Request().Context(), userID, taskID, req.Content)
	if err != nil {
		return err
	}

	return c.JSON(201, toCommentResponse(comment))
}

func (s *Server) handleListComments(c echo.Context) error {
	taskID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	comments, err := s.app.ListComments(c.Request().Context(), taskID)
	if err != nil {
		return err
	}

	responses := make([]commentResponse, 0, len(comments))
	for i := range comments {
		responses = append(responses, toCommentResponse(&comments[i]))
	}

	return c.JSON(200, map[string]any{"comments": responses})
}

func (s *Server) handleUpdateComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	commentID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	comment, err := s.app.UpdateComment(c.Request().Context(), userID, commentID, req.Content)
	if err != nil {
		return err
	}

	return c.JSON(200, toCommentResponse(comment))
}

func (s *Server) handleDeleteComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	commentID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.app.DeleteComment(c.Request().Context(), userID, commentID); err != nil {
		return err
	}

	return c.NoContent(204)
}
