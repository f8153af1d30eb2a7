package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTaskCreated    EventType = "task_created"
	EventTaskUpdated    EventType = "task_updated"
	EventTaskDeleted    EventType = "task_deleted"
	EventCommentCreated EventType = "comment_created"
	EventCommentUpdated EventType = "comment_updated"
	EventCommentDeleted EventType = "comment_deleted"
)

// Event is the transient description of a committed mutation. It is
// constructed once the durable write has succeeded, consumed exactly once by
// the dispatcher and then discarded. It carries the snapshot taken at commit
// time plus the previous status/assignee so the dispatcher can detect
// notification-worthy transitions without re-reading the store.
type Event struct {
	Type       EventType
	TaskID     uuid.UUID
	ActorID    uuid.UUID
	OccurredAt time.Time

	Task    *Task    // snapshot at commit time; nil only for comment deletes
	Comment *Comment // set for comment events

	PrevStatus   TaskStatus // task updates only
	PrevAssignee *uuid.UUID // task updates only
}

// DedupKey identifies this event instance stably across redelivery. Combined
// with the recipient it keys notification creation, so an upstream retry of
// the same event cannot create duplicate notification rows.
func (e *Event) DedupKey() string {
	return fmt.Sprintf("%s:%s:%d", e.Type, e.TaskID, e.OccurredAt.UnixNano())
}

// AssigneeChanged reports whether this event assigned the task to someone
// who was not the assignee before (including first assignment on create).
func (e *Event) AssigneeChanged() bool {
	if e.Task == nil || e.Task.AssignedTo == nil {
		return false
	}
	if e.Type == EventTaskCreated {
		return true
	}
	if e.Type != EventTaskUpdated {
		return false
	}
	return e.PrevAssignee == nil || *e.PrevAssignee != *e.Task.AssignedTo
}

// BecameOverdue reports whether this event carried a transition into the
// overdue status, manual or sweep-driven.
func (e *Event) BecameOverdue() bool {
	return e.Type == EventTaskUpdated &&
		e.Task != nil &&
		e.Task.Status == StatusOverdue &&
		e.PrevStatus != StatusOverdue
}

// Payload builds the minimal message pushed to live subscribers: enough for
// a client to update its view, resolved against the durable store on its
// next explicit read.
func (e *Event) Payload() map[string]any {
	data := map[string]any{"task_id": e.TaskID.String()}
	if e.Task != nil {
		data["title"] = e.Task.Title
		data["status"] = string(e.Task.Status)
	}
	if e.Comment != nil {
		data["comment_id"] = e.Comment.ID.String()
		data["author_id"] = e.Comment.AuthorID.String()
	}
	return map[string]any{
		"type":      string(e.Type),
		"taskId":    e.TaskID.String(),
		"data":      data,
		"timestamp": e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
