package statistic

import (
	"context"
	"rad/internal/event"
	"rad/internal/milestone"
	"rad/internal/providers"
	"rad/internal/statistic/interfaces"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/writequeue"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

const expirySweepInterval = time.Minute

// Scheduler owns the recurring jobs: write-queue flush, milestone expiry
// sweep and the daily archive. Restore rehydrates the state machines from
// the store; Persist runs the final flush on shutdown.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	queue    *writequeue.Queue
	event    *event.Manager
	tracker  *milestone.Tracker
	archiver *Archiver
	store    storage.Gateway
	cron     *gron.Cron
	opsMu    sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Queue.FlushInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.queue.Flush(context.Background()); err != nil {
			s.logger.Errorf(providers.TypeQueue, "Error while flushing write queue: %s", err)
		}
	})

	s.cron.AddFunc(gron.Every(expirySweepInterval), func() {
		if s.tracker.CheckExpiry(time.Now()) {
			s.logger.Infof(providers.TypeReward, "milestone bonus window expired")
		}
	})

	s.cron.AddFunc(gron.Every(s.config.Archive.Interval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		date := storage.DateKey(time.Now())
		if err := s.archiver.WriteDaily(context.Background(), date); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while archiving day %s: %s", date, err)
			return
		}
		s.logger.Infof(providers.TypeApp, "Archived leaderboard for %s", date)
		s.archiver.Cleanup(time.Now())
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore rehydrates the interval machine and the milestone tracker from
// the store. Called once at startup, before the scheduler runs.
func (s *Scheduler) Restore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.event.Reload(ctx); err != nil {
		return err
	}

	conf, err := s.store.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if conf != nil {
		s.tracker.Reload(conf.Milestones)
	}
	return nil
}

// Persist attempts one final flush so buffered tallies survive a normal
// shutdown.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeQueue, "Flushing write queue before shutdown...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.queue.Flush(ctx); err != nil {
		s.logger.Errorf(providers.TypeQueue, "Error while flushing write queue: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, queue *writequeue.Queue, ev *event.Manager, tracker *milestone.Tracker, archiver *Archiver, store storage.Gateway) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		queue:    queue,
		event:    ev,
		tracker:  tracker,
		archiver: archiver,
		store:    store,
	}
}
