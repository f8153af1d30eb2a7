package server

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/taskhub/internal/app"
	"github.com/pscheid92/taskhub/internal/domain"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

type createTaskRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
	AssignedTo      *uuid.UUID `json:"assigned_to"`
	Tags            []string   `json:"tags"`
	NotifyOnOverdue bool       `json:"notify_on_overdue"`
}

type updateTaskRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Status          *string    `json:"status"`
	Priority        *string    `json:"priority"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
	AssignedTo      *uuid.UUID `json:"assigned_to"`
	Tags            []string   `json:"tags"`
	NotifyOnOverdue *bool      `json:"notify_on_overdue"`
}

type taskResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
	NotifyOnOverdue bool       `json:"notify_on_overdue"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	AssignedTo      *uuid.UUID `json:"assigned_to"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type taskPageResponse struct {
	Tasks      []taskResponse `json:"tasks"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

func toTaskResponse(task *domain.Task) taskResponse {
	return taskResponse{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Status:          string(task.Status),
		Priority:        string(task.Priority),
		StartDate:       task.StartDate,
		DueDate:         task.DueDate,
		NotifyOnOverdue: task.NotifyOnOverdue,
		CreatedBy:       task.CreatedBy,
		AssignedTo:      task.AssignedTo,
		Tags:            task.Tags,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}
}

func (s *Server) handleCreateTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	task, err := s.app.CreateTask(c.Request().Context(), userID, app.CreateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		Status:          domain.TaskStatus(req.Status),
		Priority:        domain.TaskPriority(req.Priority),
		StartDate:       req.StartDate,
		DueDate:         req.DueDate,
		AssignedTo:      req.AssignedTo,
		Tags:            req.Tags,
		NotifyOnOverdue: req.NotifyOnOverdue,
	})
	if err != nil {
		return err
	}

	return c.JSON(201, toTaskResponse(task))
}

func (s *Server) handleGetTask(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	task, err := s.app.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(200, toTaskResponse(task))
}

func (s *Server) handleListTasks(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	filter, err := taskFilterFromQuery(c)
	if err != nil {
		return err
	}

	page, err := s.app.ListTasks(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}

	tasks := make([]taskResponse, 0, len(page.Tasks))
	for i := range page.Tasks {
		tasks = append(tasks, toTaskResponse(&page.Tasks[i]))
	}

	return c.JSON(200, taskPageResponse{
		Tasks:      tasks,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func taskFilterFromQuery(c echo.Context) (domain.TaskFilter, error) {
	filter := domain.TaskFilter{
		Status:    domain.TaskStatus(c.QueryParam("status")),
		Priority:  domain.TaskPriority(c.QueryParam("priority")),
		Search:    c.QueryParam("search"),
		Tag:       c.QueryParam("tag"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}

	if raw := c.QueryParam("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.TaskFilter{}, apperrors.ValidationError("invalid UUID format").WithContext("assigned_to", raw)
		}
		filter.AssignedTo = &id
	}

	var err error
	if filter.Page, err = intQueryParam(c, "page"); err != nil {
		return domain.TaskFilter{}, err
	}
	if filter.PageSize, err = intQueryParam(c, "page_size"); err != nil {
		return domain.TaskFilter{}, err
	}

	return filter, nil
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationError("invalid integer parameter").WithContext(name, raw)
	}
	return value, nil
}

func (s *Server) handleTaskSummary(c echo.Context) error {
	summary, err := s.app.TaskSummary(c.Request().Context())
	if err != nil {
		return err
	}

	byStatus := make(map[string]int, len(summary.ByStatus))
	for status, count := range summary.ByStatus {
		byStatus[string(status)] = count
	}
	byPriority := make(map[string]int, len(summary.ByPriority))
	for priority, count := range summary.ByPriority {
		byPriority[string(priority)] = count
	}

	return c.JSON(200, map[string]any{
		"total":       summary.Total,
		"by_status":   byStatus,
		"by_priority": byPriority,
		"due_soon":    summary.DueSoon,
	})
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	input := app.UpdateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		StartDate:       req.StartDate,
		DueDate:         req.DueDate,
		AssignedTo:      req.AssignedTo,
		Tags:            req.Tags,
		NotifyOnOverdue: req.NotifyOnOverdue,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		input.Priority = &priority
	}

	task, err := s.app.UpdateTask(c.Request().Context(), userID, id, input)
	if err != nil {
		return err
	}

	return c.JSON(200, toTaskResponse(task))
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.app.DeleteTask(c.Request().Context(), userID, id); err != nil {
		return err
	}

	return c.NoContent(204)
}
