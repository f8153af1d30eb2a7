// Package sweep runs the periodic overdue detection job. On every tick it
// finds live tasks whose due date has elapsed, transitions them to overdue
// and feeds the resulting events through the regular dispatch pipeline, so
// sweep-driven changes reach caches, notifications and live connections the
// same way user edits do.
package sweep

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/taskhub/internal/domain"
	"github.com/pscheid92/taskhub/internal/metrics"
	"github.com/pscheid92/taskhub/internal/platform/correlation"
)

// LeaderGate decides whether this instance may sweep. Backed by a Redis
// lease in multi-instance deployments; nil means always sweep.
type LeaderGate interface {
	Acquire(ctx context.Context) (bool, error)
}

type Sweeper struct {
	tasks       domain.TaskRepository
	events      domain.EventSink
	clock       clockwork.Clock
	interval    time.Duration
	tickTimeout time.Duration
	gate        LeaderGate
	running     atomic.Bool
	stopCh      chan struct{}
}

func New(
	tasks domain.TaskRepository,
	events domain.EventSink,
	clock clockwork.Clock,
	interval time.Duration,
	tickTimeout time.Duration,
) *Sweeper {
	return &Sweeper{
		tasks:       tasks,
		events:      events,
		clock:       clock,
		interval:    interval,
		tickTimeout: tickTimeout,
		stopCh:      make(chan struct{}),
	}
}

// UseLeaderGate restricts sweeping to the instance holding the gate. Must be
// called before Start.
func (s *Sweeper) UseLeaderGate(gate LeaderGate) {
	s.gate = gate
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.tick(ctx)
		case <-s.stopCh:
			slog.Info("Overdue sweep stopped")
			return
		case <-ctx.Done():
			slog.Info("Overdue sweep context cancelled")
			return
		}
	}
}

// Stop gracefully stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// RunOnce performs a single sweep outside the timer, used at startup to
// catch up on tasks that went overdue while the service was down.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.tick(ctx)
}

// tick runs one sweep pass. A pass still in flight when the next tick fires
// is not stacked: the new tick is skipped instead.
func (s *Sweeper) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("Overdue sweep still running, skipping tick")
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return
	}
	defer s.running.Store(false)

	if s.gate != nil {
		held, err := s.gate.Acquire(ctx)
		if err != nil {
			// Sweep anyway: duplicate sweeps are harmless because marking
			// is guarded, whereas standing down on a flaky gate could
			// leave overdue tasks unmarked on every instance.
			slog.Warn("Sweep leadership check failed, sweeping anyway", "error", err)
		} else if !held {
			metrics.SweepRuns.WithLabelValues("standby").Inc()
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()
	ctx = correlation.WithID(ctx, correlation.NewID())

	start := s.clock.Now()
	outcome := s.sweep(ctx)
	metrics.SweepRuns.WithLabelValues(outcome).Inc()
	metrics.SweepDuration.Observe(s.clock.Since(start).Seconds())
}

func (s *Sweeper) sweep(ctx context.Context) (outcome string) {
	now := s.clock.Now().UTC()

	candidates, err := s.tasks.ListOverdueCandidates(ctx, now)
	if err != nil {
		slog.Error("Overdue sweep failed to list candidates", "error", err)
		return "failed"
	}
	if len(candidates) == 0 {
		return "completed"
	}

	slog.Info("Overdue sweep found candidates", "count", len(candidates))

	var marked int
	for i := range candidates {
		if ctx.Err() != nil {
			slog.Warn("Overdue sweep deadline reached",
				"marked", marked, "remaining", len(candidates)-i)
			return "deadline"
		}

		task := candidates[i]
		ok, err := s.tasks.MarkOverdue(ctx, task.ID, now)
		if err != nil {
			slog.Warn("Overdue sweep failed to mark task",
				"task_id", task.ID, "error", err)
			continue
		}
		if !ok {
			// completed or deleted since listing; nothing to announce
			metrics.SweepTasksSkipped.Inc()
			continue
		}

		marked++
		metrics.SweepTasksMarked.Inc()
		s.events.Dispatch(ctx, overdueEvent(&task, now))
	}

	slog.Info("Overdue sweep completed", "marked", marked, "candidates", len(candidates))
	return "completed"
}

// overdueEvent synthesizes the task_updated event for a sweep transition.
// The actor is the zero UUID: no user drove this change.
func overdueEvent(task *domain.Task, now time.Time) *domain.Event {
	snapshot := *task
	prev := snapshot.Status
	snapshot.Status = domain.StatusOverdue
	snapshot.UpdatedAt = now

	return &domain.Event{
		Type:         domain.EventTaskUpdated,
		TaskID:       snapshot.ID,
		OccurredAt:   now,
		Task:         &snapshot,
		PrevStatus:   prev,
		PrevAssignee: snapshot.AssignedTo,
	}
}
