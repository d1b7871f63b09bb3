package statistic

import (
	"rad/internal/event"
	"rad/internal/milestone"
	"rad/internal/models"
	"rad/internal/statistic/interfaces"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/testutil"
	"rad/internal/writequeue"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedulerFixture(t *testing.T, store *testutil.MockStore) (interfaces.SchedulerInterface, *event.Manager, *milestone.Tracker, *writequeue.Queue) {
	t.Helper()
	conf := &structures.Config{
		Event:   structures.EventConfig{MinTarget: 100, MaxTarget: 250, Loop: true, SaveEvery: 10},
		Queue:   structures.QueueConfig{FlushInterval: time.Second},
		Archive: structures.ArchiveConfig{Dir: t.TempDir(), Interval: time.Hour, TopLimit: 25},
	}
	logger := &testutil.MockLogger{}
	gw := storage.NewCachedStore(store, testutil.NewMockCache(), testutil.NewMockMetrics(), logger, conf)

	ev := event.NewManager(conf, gw, logger)
	tracker := milestone.NewTracker(models.MilestoneConfig{}, func(models.MilestoneConfig) error { return nil }, logger)
	queue := writequeue.NewQueue(store, logger, testutil.NewMockMetrics())

	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(comp.Close)

	return NewScheduler(conf, logger, queue, ev, tracker, NewArchiver(conf, gw, comp, logger), gw), ev, tracker, queue
}

func TestScheduler_RestoreRehydratesState(t *testing.T) {
	store := testutil.NewMockStore()
	store.EventSettings = &models.EventSettings{Mode: event.ModeFixed, Min: 100, Max: 250, Loop: true, Active: true}
	store.EventState = &models.EventState{CurrentCount: 9, TargetCount: 77}
	store.Config = &models.BotConfig{
		ID: "bot_config",
		Milestones: models.MilestoneConfig{
			Enabled:       true,
			Events:        map[int64]models.MilestoneReward{100: {DurationHours: 24, Multiplier: 2.0}},
			LastTriggered: 100,
		},
	}

	s, ev, tracker, _ := schedulerFixture(t, store)
	require.NoError(t, s.Restore())

	snap := ev.Snapshot()
	assert.Equal(t, 9, snap.Current)
	assert.Equal(t, 77, snap.Target)

	// The watermark came back, so the crossed threshold cannot replay.
	triggered, _ := tracker.CheckMilestone(150)
	assert.False(t, triggered)
	assert.True(t, tracker.Snapshot().Enabled)
}

func TestScheduler_PersistFlushesQueue(t *testing.T) {
	store := testutil.NewMockStore()
	s, _, _, queue := schedulerFixture(t, store)

	queue.Increment("users", map[string]any{"_id": "u1"}, "stats.total_msgs", 5)
	require.NoError(t, s.Persist())

	assert.Equal(t, 0, queue.Len())
	require.Len(t, store.Increments, 1)
	assert.Equal(t, int64(5), store.Increments[0].Delta)
}

func TestScheduler_InitAndStop(t *testing.T) {
	store := testutil.NewMockStore()
	s, _, _, queue := schedulerFixture(t, store)

	queue.Increment("users", map[string]any{"_id": "u1"}, "stats.total_msgs", 1)

	s.Init()
	defer s.Stop()

	// The recurring job flushes within one interval.
	assert.Eventually(t, func() bool { return queue.Len() == 0 }, 3*time.Second, 50*time.Millisecond)
}
