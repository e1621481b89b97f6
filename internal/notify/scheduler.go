package notify

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"biblify/internal/verse"
)

// DefaultRecheck is how often the scheduler re-reads the preferences.
const DefaultRecheck = time.Minute

// Source provides the scheduler with settings and verses.
type Source interface {
	NotificationSettings() (Settings, error)
	RandomVerse() (verse.Verse, bool)
}

// Scheduler fires one notification per day while notifications are enabled.
type Scheduler struct {
	source   Source
	notifier Notifier
	exact    bool
	recheck  time.Duration

	rng   *rand.Rand
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduler creates a Scheduler. exact=false delivers inside a 15 minute
// window instead of on the minute.
func NewScheduler(source Source, notifier Notifier, exact bool, recheck time.Duration) *Scheduler {
	if recheck <= 0 {
		recheck = DefaultRecheck
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		exact:    exact,
		recheck:  recheck,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
		after:    time.After,
	}
}

// Run blocks until ctx is done. Preferences are re-read every cycle, so
// enabling, disabling or moving the time takes effect without a restart.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Notification scheduler started", "exact", s.exact, "recheck", s.recheck)

	var (
		pending time.Time
		planned Settings
	)
	for {
		wait := s.recheck

		settings, err := s.source.NotificationSettings()
		switch {
		case err != nil:
			slog.Error("Failed to read notification settings", "error", err)
			pending = time.Time{}
		case !settings.Enabled:
			pending = time.Time{}
		default:
			now := s.now()
			if pending.IsZero() || settings != planned {
				plan := Plan(now, settings, s.exact)
				pending = plan.Pick(s.rng)
				planned = settings
				slog.Info("Daily verse scheduled", "at", pending.Format(time.RFC3339), "exact", plan.Exact)
			}
			d := pending.Sub(now)
			if d <= 0 {
				s.Fire(ctx)
				pending = time.Time{}
				continue
			}
			if d < wait {
				wait = d
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("Notification scheduler stopped")
			return
		case <-s.after(wait):
		}
	}
}

// Fire picks a random visible verse and delivers it. Failures are logged.
func (s *Scheduler) Fire(ctx context.Context) (Notification, bool) {
	v, ok := s.source.RandomVerse()
	if !ok {
		slog.Warn("No verse available for notification")
		return Notification{}, false
	}
	n := NewNotification(v)
	if err := s.notifier.Notify(ctx, n); err != nil {
		slog.Error("Failed to deliver notification", "reference", v.Reference, "error", err)
		return n, false
	}
	slog.Info("Notification delivered", "reference", v.Reference)
	return n, true
}
