// Package sweeper warns assignees about tasks whose deadline is a day away.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"taskflow/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Lead is how far ahead of a deadline the warning goes out.
	Lead = 24 * time.Hour
	// Band is the width of one sweep window.
	Band = time.Hour
)

type TaskFinder interface {
	FindDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
}

type Notifier interface {
	PublishUserNotification(email string, n model.Notification)
}

// Report summarizes one sweep.
type Report struct {
	Start    time.Time
	End      time.Time
	Scanned  int
	Notified int
	Skipped  int
	Failed   int
}

type Sweeper struct {
	tasks    TaskFinder
	users    UserFinder
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	running atomic.Bool
}

type Option func(*Sweeper)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func New(tasks TaskFinder, users UserFinder, notifier Notifier, interval time.Duration, log logrus.FieldLogger, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	s := &Sweeper{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		log:      log.WithField("component", "deadline_sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start triggers a sweep every interval until ctx is done. A trigger that
// fires while the previous sweep is still running is skipped.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Infof("deadline sweeper started, interval: %v", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("deadline sweeper stopped")
			return
		case <-ticker.C:
			go s.TryRun(ctx)
		}
	}
}

// TryRun sweeps unless another sweep is in progress. It reports whether it ran.
func (s *Sweeper) TryRun(ctx context.Context) (report Report, ran bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous sweep still running, skipping trigger")
		return Report{}, false
	}
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("deadline sweep panicked: %v", r)
		}
	}()

	ran = true
	report, err := s.Sweep(ctx)
	if err != nil {
		s.log.WithError(err).Error("deadline sweep failed")
	}
	return report, ran
}

// Sweep notifies the assignee of every open task due in [now+Lead, now+Lead+Band).
// Tasks without an assignee are skipped; a failing task does not stop the rest.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	start := s.now().Add(Lead)
	report := Report{Start: start, End: start.Add(Band)}

	tasks, err := s.tasks.FindDueBetween(ctx, report.Start, report.End)
	if err != nil {
		return report, fmt.Errorf("find due tasks: %w", err)
	}
	report.Scanned = len(tasks)

	emails := s.emails(ctx, tasks)

	for i := range tasks {
		switch err := s.warn(&tasks[i], emails); {
		case errors.Is(err, errUnassigned):
			report.Skipped++
		case err != nil:
			report.Failed++
			s.log.WithError(err).WithField("task_id", tasks[i].ID).Error("deadline warning failed")
		default:
			report.Notified++
		}
	}

	s.log.WithFields(logrus.Fields{
		"window_start": report.Start,
		"window_end":   report.End,
		"scanned":      report.Scanned,
		"notified":     report.Notified,
		"skipped":      report.Skipped,
		"failed":       report.Failed,
	}).Info("deadline sweep finished")
	return report, nil
}

var errUnassigned = errors.New("task has no assignee")

func (s *Sweeper) warn(task *model.Task, emails map[uuid.UUID]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if task.AssigneeID == nil {
		return errUnassigned
	}
	email, ok := emails[*task.AssigneeID]
	if !ok || email == "" {
		return fmt.Errorf("assignee %s has no email", *task.AssigneeID)
	}

	s.log.WithFields(logrus.Fields{"task_id": task.ID, "email": email}).Info("sending deadline warning")
	s.notifier.PublishUserNotification(email, model.Notification{
		Message: "Warning! The deadline for the task: " + task.Title + " expires in 24 hours.",
		TaskID:  task.ID.String(),
		BoardID: task.BoardID.String(),
		Kind:    model.NotificationDeadlineWarning,
	})
	return nil
}

// emails resolves assignee addresses with one batched lookup. If the batch
// fails it falls back to one lookup per assignee; an assignee that still
// cannot be resolved fails only its own tasks.
func (s *Sweeper) emails(ctx context.Context, tasks []model.Task) map[uuid.UUID]string {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, t := range tasks {
		if t.AssigneeID != nil && !seen[*t.AssigneeID] {
			seen[*t.AssigneeID] = true
			ids = append(ids, *t.AssigneeID)
		}
	}
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err == nil {
		for _, u := range users {
			out[u.ID] = u.Email
		}
		return out
	}

	s.log.WithError(err).Warn("batched assignee lookup failed, resolving one by one")
	for _, id := range ids {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("user_id", id).Error("assignee lookup failed")
			continue
		}
		out[u.ID] = u.Email
	}
	return out
}
