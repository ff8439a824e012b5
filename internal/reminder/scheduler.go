// Package reminder polls the store for due reminders and delivers them.
//
// Delivery is at-least-once: a reminder is marked sent only after the
// notifier succeeds, so a failed send or a failed mark leaves it due for the
// next cycle.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"schedule-bot/internal/storage"
	"schedule-bot/pkg/logx"
	"schedule-bot/pkg/util"
)

// Store is the part of the record store the scheduler needs.
type Store interface {
	ListDueReminders(ctx context.Context, now time.Time) ([]storage.DueReminder, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)
}

// Stats summarises one polling cycle.
type Stats struct {
	Cycle      string
	Due        int
	Sent       int
	Failed     int
	MarkFailed int
	Err        error
}

type Scheduler struct {
	store    Store
	notifier Notifier
	log      logx.Logger

	interval        time.Duration
	workers         int
	dispatchTimeout time.Duration
	storeTimeout    time.Duration
	now             func() time.Time

	running atomic.Bool

	mu       sync.Mutex
	lastRun  time.Time
	lastStat Stats
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(store Store, notifier Notifier, log logx.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:           store,
		notifier:        notifier,
		log:             log.With(logx.String("component", "reminder")),
		interval:        time.Minute,
		workers:         4,
		dispatchTimeout: 10 * time.Second,
		storeTimeout:    5 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick runs one polling cycle. It returns false without doing anything when
// another cycle is still in flight.
func (s *Scheduler) Tick(ctx context.Context) (Stats, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("previous cycle still running, skipping")
		return Stats{}, false
	}
	defer s.running.Store(false)

	now := s.now()
	stats := Stats{Cycle: uuid.NewString()}
	log := s.log.With(logx.String("cycle", stats.Cycle))

	listCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	due, err := s.store.ListDueReminders(listCtx, now)
	cancel()
	if err != nil {
		log.Error("list due reminders failed", logx.Err(err))
		stats.Err = err
		s.record(now, stats)
		return stats, true
	}
	stats.Due = len(due)
	if len(due) == 0 {
		s.record(now, stats)
		return stats, true
	}

	var sent, failed, markFailed atomic.Int64
	util.Each(ctx, due, s.workers, func(ctx context.Context, r storage.DueReminder) error {
		rlog := log.With(logx.Int64("reminder_id", r.ID), logx.Int64("schedule_id", r.ScheduleID))

		dctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
		err := s.notifier.Notify(dctx, NotificationFor(r))
		cancel()
		if err != nil {
			failed.Add(1)
			rlog.Warn("dispatch failed, will retry next cycle", logx.Err(err))
			return err
		}

		mctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		ok, err := s.store.MarkReminderSent(mctx, r.ID)
		cancel()
		if err != nil {
			markFailed.Add(1)
			rlog.Error("mark sent failed, reminder will be delivered again", logx.Err(err))
			return err
		}
		if !ok {
			rlog.Debug("reminder was already marked sent")
		}
		sent.Add(1)
		rlog.Info("reminder sent", logx.String("title", r.ScheduleTitle))
		return nil
	})

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())
	stats.MarkFailed = int(markFailed.Load())
	log.Info("cycle done",
		logx.Int("due", stats.Due),
		logx.Int("sent", stats.Sent),
		logx.Int("failed", stats.Failed),
		logx.Int("mark_failed", stats.MarkFailed),
	)
	s.record(now, stats)
	return stats, true
}

func (s *Scheduler) record(at time.Time, st Stats) {
	s.mu.Lock()
	s.lastRun, s.lastStat = at, st
	s.mu.Unlock()
}

// Last returns the time and result of the most recent completed cycle.
func (s *Scheduler) Last() (time.Time, Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastStat
}

// Interval is the configured polling period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run waits for ready, runs one cycle immediately and then polls every
// interval until ctx is cancelled. On return no cycle is in flight.
func (s *Scheduler) Run(ctx context.Context, ready <-chan struct{}) error {
	if ready != nil {
		select {
		case <-ctx.Done():
			return nil
		case <-ready:
		}
	}

	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(s.log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	s.log.Info("scheduler started", logx.Duration("interval", s.interval), logx.Int("workers", s.workers))
	s.Tick(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}
