package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/pkg/models"
	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"
)

// Default notification window, in subscribers' local hours
const (
	DefaultNotificationStartHour = 4
	DefaultNotificationEndHour   = 18

	defaultConcurrency = 8
)

// SubscriberLister returns subscribers with reminders turned on
type SubscriberLister interface {
	ListNotifiable(ctx context.Context) ([]models.Subscriber, error)
}

// ContentSource returns a subject's content for the day
type ContentSource interface {
	Today(ctx context.Context, subjectID, track string, now time.Time) (daily.Entry, error)
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, sub models.Subscriber, entry daily.Entry) error
}

// Options configure the reminder job
type Options struct {
	StartHour int
	EndHour   int
	// Location is used for subscribers without a valid time zone
	Location    *time.Location
	Concurrency int
}

// Scheduler sends daily reminders once an hour
type Scheduler struct {
	cron     *gocron.Scheduler
	subs     SubscriberLister
	content  ContentSource
	notifier Notifier
	opts     Options
	log      *logger.Logger
	now      func() time.Time

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a new scheduler instance
func New(subs SubscriberLister, content ContentSource, notifier Notifier, opts Options, log *logger.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.StartHour == 0 && opts.EndHour == 0 {
		opts.StartHour, opts.EndHour = DefaultNotificationStartHour, DefaultNotificationEndHour
	}
	if log == nil {
		log = logger.NewNop()
	}
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:     cron,
		subs:     subs,
		content:  content,
		notifier: notifier,
		opts:     opts,
		log:      log.With("component", "scheduler"),
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs the reminder job at the top of every hour until Stop or ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	next := s.now().UTC().Truncate(time.Hour).Add(time.Hour)
	_, err := s.cron.Every(1).Hour().StartAt(next).Do(func() {
		sent, err := s.RunOnce(ctx, s.now())
		if err != nil {
			s.log.Error("reminder run failed", "error", err)
			return
		}
		s.log.Info("reminders sent", "count", sent)
	})
	if err != nil {
		return err
	}
	s.cron.StartAsync()
	s.log.Info("scheduler started", "first_run", next)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	return nil
}

// Stop terminates all scheduled tasks. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cron.Stop()
		close(s.done)
		s.log.Info("scheduler stopped")
	})
}

// RunOnce sends reminders to every subscriber whose local reminder hour is now's hour, who
// is inside the notification window and has not completed today's item. It returns the number
// of reminders sent. Failures for single subscribers are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	subs, err := s.subs.ListNotifiable(ctx)
	if err != nil {
		return 0, err
	}

	var sent atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, sub := range subs {
		local := now.In(sub.Location(s.opts.Location))
		if !s.due(sub, local) {
			continue
		}
		sub := sub
		g.Go(func() error {
			ok, err := s.remind(gctx, sub, local)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				s.log.Warn("reminder failed", "chat_id", sub.ChatID, "subject_id", sub.SubjectID, "error", err)
				return nil
			}
			if ok {
				sent.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(sent.Load()), err
}

func (s *Scheduler) due(sub models.Subscriber, local time.Time) bool {
	hour := local.Hour()
	if hour < s.opts.StartHour || hour > s.opts.EndHour {
		return false
	}
	return hour == sub.NotificationHour
}

func (s *Scheduler) remind(ctx context.Context, sub models.Subscriber, local time.Time) (bool, error) {
	entry, err := s.content.Today(ctx, sub.SubjectID, sub.Track, local)
	if err != nil {
		return false, err
	}
	if entry.Completed {
		return false, nil
	}
	if err := s.notifier.SendReminder(ctx, sub, entry); err != nil {
		return false, err
	}
	return true, nil
}
