package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"rad/internal/event"
	"rad/internal/milestone"
	"rad/internal/models"
	"rad/internal/spam"
	"rad/internal/statistic"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/testutil"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	api      *ApiController
	store    *testutil.MockStore
	gw       storage.Gateway
	detector *spam.Detector
	event    *event.Manager
	tracker  *milestone.Tracker
	archiver *statistic.Archiver
}

func newApiFixture(t *testing.T) *apiFixture {
	t.Helper()
	conf := &structures.Config{
		Spam: structures.SpamConfig{
			Enabled:        true,
			IgnoreDuration: 30 * time.Minute,
			BurstLimit:     2,
			BurstWindow:    10 * time.Second,
			Checks:         structures.SpamChecks{Burst: true},
		},
		Event:   structures.EventConfig{MinTarget: 100, MaxTarget: 250, Loop: true, SaveEvery: 10},
		Archive: structures.ArchiveConfig{Dir: t.TempDir(), Interval: time.Hour, TopLimit: 25},
		Reward: structures.RewardConfig{
			TiersEnabled: true,
			Tiers: []structures.RewardTier{
				{Name: "Bronze", Min: 0, Max: 49, Multiplier: 1.0},
				{Name: "Silver", Min: 50, Max: 99, Multiplier: 1.5},
			},
		},
	}
	logger := &testutil.MockLogger{}
	store := testutil.NewMockStore()
	gw := storage.NewCachedStore(store, testutil.NewMockCache(), testutil.NewMockMetrics(), logger, conf)

	detector := spam.NewDetector(conf, logger)
	ev := event.NewManager(conf, gw, logger)
	tracker := milestone.NewTracker(models.MilestoneConfig{
		Enabled: true,
		Events:  map[int64]models.MilestoneReward{100: {DurationHours: 24, Multiplier: 2.0, JackpotChance: 10}},
	}, func(models.MilestoneConfig) error { return nil }, logger)

	comp, err := statistic.NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(comp.Close)
	archiver := statistic.NewArchiver(conf, gw, comp, logger)

	api := NewApiController(logger, detector, ev, tracker, gw, archiver, conf)
	return &apiFixture{api: api, store: store, gw: gw, detector: detector, event: ev, tracker: tracker, archiver: archiver}
}

func TestGetStatus_ReportsEventAndBonus(t *testing.T) {
	f := newApiFixture(t)
	f.event.SetFixed(context.Background(), 50, true)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	f.api.GetStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Event.Active)
	assert.Equal(t, 50, resp.Event.Target)
	assert.False(t, resp.Bonus.Active)
}

func TestGetProgress_NextAndSentinel(t *testing.T) {
	f := newApiFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/progress?count=40", nil)
	rr := httptest.NewRecorder()
	f.api.GetProgress(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var progress models.MilestoneProgress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &progress))
	assert.Equal(t, int64(100), progress.NextTarget)
	assert.Equal(t, int64(60), progress.Remaining)

	// Past every threshold: the sentinel shape.
	req = httptest.NewRequest(http.MethodGet, "/progress?count=5000", nil)
	rr = httptest.NewRecorder()
	f.api.GetProgress(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var sentinel map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sentinel))
	assert.Equal(t, true, sentinel["completed"])
}

func TestGetProgress_BadCount(t *testing.T) {
	f := newApiFixture(t)

	for _, q := range []string{"", "?count=abc", "?count=-5"} {
		req := httptest.NewRequest(http.MethodGet, "/progress"+q, nil)
		rr := httptest.NewRecorder()
		f.api.GetProgress(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "query %q", q)
	}
}

func TestGetIgnored_ListsActiveIgnores(t *testing.T) {
	f := newApiFixture(t)
	now := time.Now()
	f.detector.Classify("u1", "one", false, false, now)
	f.detector.Classify("u1", "two", false, false, now.Add(time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/ignored", nil)
	rr := httptest.NewRecorder()
	f.api.GetIgnored(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var ignored []spam.IgnoredUser
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ignored))
	require.Len(t, ignored, 1)
	assert.Equal(t, "u1", ignored[0].UserID)
}

func TestGetTop_TodayFromStore(t *testing.T) {
	f := newApiFixture(t)
	today := storage.DateKey(time.Now())
	f.store.SetDaily(today, "u1", models.DailyUserStats{Messages: 12})

	req := httptest.NewRequest(http.MethodGet, "/top", nil)
	rr := httptest.NewRecorder()
	f.api.GetTop(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var entries []models.TopEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(12), entries[0].Messages)
}

func TestGetTop_SeesRewardCreditImmediately(t *testing.T) {
	f := newApiFixture(t)
	now := time.Now()
	today := storage.DateKey(now)
	f.store.Users["u1"] = &models.User{ID: "u1"}
	f.store.SetDaily(today, "u1", models.DailyUserStats{Messages: 20})

	serve := func() []models.TopEntry {
		req := httptest.NewRequest(http.MethodGet, "/top?limit=10", nil)
		rr := httptest.NewRecorder()
		f.api.GetTop(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var entries []models.TopEntry
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
		return entries
	}

	before := serve()
	require.Len(t, before, 1)
	require.Equal(t, int64(0), before[0].Stocks)

	require.NoError(t, f.gw.CreditReward(context.Background(), "u1", "g1", "Alice", 4, now))

	after := serve()
	require.Len(t, after, 1)
	assert.Equal(t, int64(4), after[0].Stocks, "leaderboard read after a credit must not be stale")
}

func TestGetStats_GradesTierFromDailyMessages(t *testing.T) {
	f := newApiFixture(t)
	today := storage.DateKey(time.Now())
	f.store.SetDaily(today, "u1", models.DailyUserStats{Messages: 60, StocksWon: 8})

	req := httptest.NewRequest(http.MethodGet, "/stats?user=u1", nil)
	rr := httptest.NewRecorder()
	f.api.GetStats(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp dailyStatsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, today, resp.Date)
	assert.Equal(t, int64(60), resp.Stats.Messages)
	assert.Equal(t, "Silver", resp.Tier.Name)
	assert.Equal(t, "Silver", resp.Stats.Tier)
}

func TestGetStats_UnknownUserGradesBottomTier(t *testing.T) {
	f := newApiFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/stats?user=ghost", nil)
	rr := httptest.NewRecorder()
	f.api.GetStats(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp dailyStatsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Bronze", resp.Tier.Name)
	assert.Equal(t, int64(0), resp.Stats.Messages)
}

func TestGetStats_BadInputs(t *testing.T) {
	f := newApiFixture(t)

	for _, q := range []string{"", "?user=u1&date=notadate"} {
		req := httptest.NewRequest(http.MethodGet, "/stats"+q, nil)
		rr := httptest.NewRecorder()
		f.api.GetStats(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "query %q", q)
	}
}

func TestGetTop_PastDayFromArchive(t *testing.T) {
	f := newApiFixture(t)
	past := "2026-08-01"
	f.store.SetDaily(past, "u1", models.DailyUserStats{Messages: 7})
	require.NoError(t, f.archiver.WriteDaily(context.Background(), past))

	req := httptest.NewRequest(http.MethodGet, "/top?date="+past, nil)
	rr := httptest.NewRecorder()
	f.api.GetTop(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var snapshot statistic.DailySnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.Equal(t, past, snapshot.Date)
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, int64(7), snapshot.Entries[0].Messages)
}

func TestGetTop_BadInputs(t *testing.T) {
	f := newApiFixture(t)

	for _, q := range []string{"?date=yesterday", "?limit=0", "?limit=9999", "?limit=x"} {
		req := httptest.NewRequest(http.MethodGet, "/top"+q, nil)
		rr := httptest.NewRecorder()
		f.api.GetTop(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "query %q", q)
	}
}
