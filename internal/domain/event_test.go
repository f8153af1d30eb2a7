package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_DedupKey_StableAcrossRedelivery(t *testing.T) {
	ev := &Event{
		Type:       EventTaskUpdated,
		TaskID:     uuid.New(),
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, ev.DedupKey(), ev.DedupKey())

	other := &Event{Type: ev.Type, TaskID: ev.TaskID, OccurredAt: ev.OccurredAt.Add(time.Nanosecond)}
	assert.NotEqual(t, ev.DedupKey(), other.DedupKey())
}

func TestEvent_AssigneeChanged(t *testing.T) {
	assignee := uuid.New()
	other := uuid.New()

	created := &Event{Type: EventTaskCreated, Task: &Task{AssignedTo: &assignee}}
	assert.True(t, created.AssigneeChanged())

	unassigned := &Event{Type: EventTaskCreated, Task: &Task{}}
	assert.False(t, unassigned.AssigneeChanged())

	reassigned := &Event{Type: EventTaskUpdated, Task: &Task{AssignedTo: &assignee}, PrevAssignee: &other}
	assert.True(t, reassigned.AssigneeChanged())

	unchanged := &Event{Type: EventTaskUpdated, Task: &Task{AssignedTo: &assignee}, PrevAssignee: &assignee}
	assert.False(t, unchanged.AssigneeChanged())

	deleted := &Event{Type: EventTaskDeleted, Task: &Task{AssignedTo: &assignee}}
	assert.False(t, deleted.AssigneeChanged())
}

func TestEvent_BecameOverdue(t *testing.T) {
	overdue := &Event{
		Type:       EventTaskUpdated,
		Task:       &Task{Status: StatusOverdue},
		PrevStatus: StatusTodo,
	}
	assert.True(t, overdue.BecameOverdue())

	stillOverdue := &Event{
		Type:       EventTaskUpdated,
		Task:       &Task{Status: StatusOverdue},
		PrevStatus: StatusOverdue,
	}
	assert.False(t, stillOverdue.BecameOverdue())

	completed := &Event{
		Type:       EventTaskUpdated,
		Task:       &Task{Status: StatusCompleted},
		PrevStatus: StatusInProgress,
	}
	assert.False(t, completed.BecameOverdue())
}

func TestEvent_Payload(t *testing.T) {
	taskID := uuid.New()
	ev := &Event{
		Type:       EventTaskUpdated,
		TaskID:     taskID,
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Task:       &Task{ID: taskID, Title: "ship release", Status: StatusOverdue},
	}

	payload := ev.Payload()
	assert.Equal(t, "task_updated", payload["type"])
	assert.Equal(t, taskID.String(), payload["taskId"])
	assert.Equal(t, "2025-03-01T12:00:00Z", payload["timestamp"])

	data, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ship release", data["title"])
	assert.Equal(t, "overdue", data["status"])
}
