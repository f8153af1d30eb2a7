// Package dispatch turns committed mutations into their downstream effects.
//
// The pipeline order is a contract, not an accident of call order:
// commit happens before Dispatch is invoked, then cache invalidation, then
// notification creation, then broadcast. Violating it risks a subscriber
// reading a stale cached view after receiving a fresh event. The three steps
// are individually fault-isolated: the durable write already succeeded, so a
// degraded cache or registry is logged and counted but never fails the
// mutation, and a failed invalidation never suppresses notifications or the
// broadcast.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pscheid92/taskhub/internal/cache"
	"github.com/pscheid92/taskhub/internal/domain"
	"github.com/pscheid92/taskhub/internal/metrics"
)

// Dispatcher executes the invalidate -> notify -> broadcast pipeline for
// every committed mutation, manual or sweep-driven.
type Dispatcher struct {
	cache         domain.Cache
	notifications domain.NotificationRepository
	users         domain.UserRepository
	registry      domain.Broadcaster
	mailer        domain.Mailer
}

var _ domain.EventSink = (*Dispatcher)(nil)

// New creates a dispatcher. All collaborators are injected; the dispatcher
// never reaches into their backing structures.
func New(
	cacheStore domain.Cache,
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	registry domain.Broadcaster,
	mailer domain.Mailer,
) *Dispatcher {
	return &Dispatcher{
		cache:         cacheStore,
		notifications: notifications,
		users:         users,
		registry:      registry,
		mailer:        mailer,
	}
}

// Dispatch runs the pipeline for one event. It must only be called after the
// originating mutation has been durably committed. The incoming context is
// detached from request cancellation: a caller timing out does not stop the
// continuation, the mutation is already durable.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *domain.Event) {
	ctx = context.WithoutCancel(ctx)
	metrics.EventsDispatched.WithLabelValues(string(ev.Type)).Inc()

	d.invalidate(ctx, ev)
	d.notify(ctx, ev)
	d.broadcast(ev)
}

// invalidate clears every cache entry the event may have made stale: the
// task's detail snapshot, the whole listing family (any page of any filter
// could contain the task) and the analytics aggregates.
func (d *Dispatcher) invalidate(ctx context.Context, ev *domain.Event) {
	d.cache.Delete(ctx, cache.TaskDetailKey(ev.TaskID))
	d.cache.DeleteMatching(ctx, cache.TaskListPattern)
	d.cache.DeleteMatching(ctx, cache.AnalyticsPattern)
}

// notify persists one notification per affected recipient, deduplicated on
// the event's dedup key, then pushes a targeted payload to each recipient's
// live connections. Failures are absorbed per recipient.
func (d *Dispatcher) notify(ctx context.Context, ev *domain.Event) {
	for _, intent := range notificationIntents(ev) {
		n := &domain.Notification{
			ID:      uuid.New(),
			UserID:  intent.recipient,
			TaskID:  &ev.TaskID,
			Kind:    intent.kind,
			Title:   intent.title,
			Message: intent.message,
		}

		created, err := d.notifications.Create(ctx, n, ev.DedupKey())
		if err != nil {
			slog.Error("Notification creation failed",
				"kind", intent.kind, "user_id", intent.recipient, "task_id", ev.TaskID, "error", err)
			metrics.DispatchStepFailures.WithLabelValues("notify").Inc()
			continue
		}
		if !created {
			metrics.NotificationsDeduplicated.Inc()
			continue
		}
		metrics.NotificationsCreated.WithLabelValues(string(intent.kind)).Inc()

		d.pushNotification(n)

		if intent.email {
			go d.emailNotification(ctx, n)
		}
	}
}

// broadcast pushes the event payload to every live connection. Task and
// comment events go system-wide: the workspace is shared.
func (d *Dispatcher) broadcast(ev *domain.Event) {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		slog.Error("Failed to marshal event payload", "type", ev.Type, "task_id", ev.TaskID, "error", err)
		metrics.DispatchStepFailures.WithLabelValues("broadcast").Inc()
		return
	}
	d.registry.Broadcast(data)
}

// pushNotification sends a user-targeted payload for a freshly created
// notification.
func (d *Dispatcher) pushNotification(n *domain.Notification) {
	payload := map[string]any{
		"type":           "notification",
		"notificationId": n.ID.String(),
		"kind":           string(n.Kind),
		"title":          n.Title,
		"read":           n.Read,
	}
	if n.TaskID != nil {
		payload["taskId"] = n.TaskID.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal notification payload", "notification_id", n.ID, "error", err)
		metrics.DispatchStepFailures.WithLabelValues("broadcast").Inc()
		return
	}
	d.registry.SendToUser(n.UserID, data)
}

// NotificationRead publishes the read-state change of a notification to its
// owner's live connections. Unlike task and comment events this is
// user-targeted, read state is nobody else's business.
func (d *Dispatcher) NotificationRead(n *domain.Notification) {
	payload := map[string]any{
		"type":           "notification",
		"notificationId": n.ID.String(),
		"read":           n.Read,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal notification payload", "notification_id", n.ID, "error", err)
		return
	}
	d.registry.SendToUser(n.UserID, data)
}

// emailNotification sends the overdue email for a notification,
// fire-and-forget. Runs on its own goroutine; the pipeline never waits on
// SMTP.
func (d *Dispatcher) emailNotification(ctx context.Context, n *domain.Notification) {
	user, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		slog.Warn("Skipping notification email, recipient lookup failed",
			"user_id", n.UserID, "error", err)
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return
	}

	body := fmt.Sprintf("<p>%s</p>", n.Message)
	if err := d.mailer.Send(ctx, user.Email, n.Title, body); err != nil {
		slog.Warn("Notification email failed", "user_id", n.UserID, "error", err)
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
}
