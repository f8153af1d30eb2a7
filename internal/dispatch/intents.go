package dispatch

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pscheid92/taskhub/internal/domain"
)

// notificationIntent is one notification the event warrants: who gets it,
// what kind, and whether an email rides along.
type notificationIntent struct {
	recipient uuid.UUID
	kind      domain.NotificationKind
	title     string
	message   string
	email     bool
}

// notificationIntents derives the recipients of an event. Three transitions
// are notification-worthy: a task assigned to someone who is not the actor,
// a task turning overdue, and a comment on a task whose watchers did not
// write it.
func notificationIntents(ev *domain.Event) []notificationIntent {
	var intents []notificationIntent

	switch ev.Type {
	case domain.EventTaskCreated, domain.EventTaskUpdated:
		if ev.Task == nil {
			return nil
		}

		if ev.AssigneeChanged() && *ev.Task.AssignedTo != ev.ActorID {
			intents = append(intents, notificationIntent{
				recipient: *ev.Task.AssignedTo,
				kind:      domain.NotificationTaskAssigned,
				title:     fmt.Sprintf("Task Assigned: %s", ev.Task.Title),
				message:   fmt.Sprintf("You have been assigned the task '%s'.", ev.Task.Title),
			})
		}

		if ev.BecameOverdue() && ev.Task.NotifyOnOverdue {
			for _, recipient := range overdueRecipients(ev.Task) {
				intents = append(intents, notificationIntent{
					recipient: recipient,
					kind:      domain.NotificationTaskOverdue,
					title:     fmt.Sprintf("Task Overdue: %s", ev.Task.Title),
					message:   fmt.Sprintf("Task '%s' is past its due date. Please take action.", ev.Task.Title),
					email:     true,
				})
			}
		}

	case domain.EventCommentCreated:
		if ev.Task == nil || ev.Comment == nil {
			return nil
		}
		for _, recipient := range commentRecipients(ev.Task, ev.Comment) {
			intents = append(intents, notificationIntent{
				recipient: recipient,
				kind:      domain.NotificationCommentAdded,
				title:     fmt.Sprintf("New Comment: %s", ev.Task.Title),
				message:   fmt.Sprintf("A new comment was added to task '%s'.", ev.Task.Title),
			})
		}
	}

	return intents
}

// overdueRecipients returns the assignee and, when distinct, the creator.
func overdueRecipients(task *domain.Task) []uuid.UUID {
	if task.AssignedTo == nil {
		return []uuid.UUID{task.CreatedBy}
	}
	if *task.AssignedTo == task.CreatedBy {
		return []uuid.UUID{task.CreatedBy}
	}
	return []uuid.UUID{*task.AssignedTo, task.CreatedBy}
}

// commentRecipients returns the task's creator and assignee, excluding the
// comment author.
func commentRecipients(task *domain.Task, comment *domain.Comment) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{comment.AuthorID: {}}

	var recipients []uuid.UUID
	for _, candidate := range []*uuid.UUID{&task.CreatedBy, task.AssignedTo} {
		if candidate == nil {
			continue
		}
		if _, dup := seen[*candidate]; dup {
			continue
		}
		seen[*candidate] = struct{}{}
		recipients = append(recipients, *candidate)
	}
	return recipients
}
