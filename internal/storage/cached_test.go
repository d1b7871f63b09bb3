package storage

import (
	"context"
	"rad/internal/models"
	"rad/internal/structures"
	"rad/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (Gateway, *testutil.MockStore, *testutil.MockCache, *testutil.MockMetrics) {
	t.Helper()
	store := testutil.NewMockStore()
	cache := testutil.NewMockCache()
	metrics := testutil.NewMockMetrics()
	gw := NewCachedStore(store, cache, metrics, &testutil.MockLogger{}, &structures.Config{})
	return gw, store, cache, metrics
}

func TestGetUserCached_CacheAside(t *testing.T) {
	gw, store, _, metrics := newTestGateway(t)
	ctx := context.Background()
	store.Users["u1"] = &models.User{ID: "u1", Stats: models.UserStats{TotalMsgs: 7}}

	first, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(7), first.Stats.TotalMsgs)
	assert.Equal(t, 1, metrics.Count("miss:user"))

	// Second read is served from cache, even if the store changes behind it.
	store.Users["u1"].Stats.TotalMsgs = 99
	second, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), second.Stats.TotalMsgs)
	assert.Equal(t, 1, metrics.Count("hit:user"))
}

func TestGetUserCached_MissingUserNotCached(t *testing.T) {
	gw, store, _, _ := newTestGateway(t)
	ctx := context.Background()

	got, err := gw.GetUserCached(ctx, "ghost", "g1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The user appears later; the earlier miss must not shadow it.
	store.Users["ghost"] = &models.User{ID: "ghost"}
	got, err = gw.GetUserCached(ctx, "ghost", "g1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSetBan_WriteThenReadNeverStale(t *testing.T) {
	gw, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	store.Users["u1"] = &models.User{ID: "u1"}

	before, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	require.False(t, before.Status.IsBanned)

	require.NoError(t, gw.SetBan(ctx, "u1", "g1", true, "spam"))

	after, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.True(t, after.Status.IsBanned, "read after write must see the ban")
}

func TestPenalizeAndClear_EvictUserKeys(t *testing.T) {
	gw, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	store.Users["u1"] = &models.User{ID: "u1"}

	_, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)

	require.NoError(t, gw.PenalizeUser(ctx, "u1", "g1", 30*time.Minute, "burst"))
	penalized, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.True(t, penalized.Status.IsPenalized)

	require.NoError(t, gw.ClearUserPenalty(ctx, "u1", "g1"))
	cleared, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.False(t, cleared.Status.IsPenalized)
}

func TestLoadConfigCached_SaveEvicts(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)
	ctx := context.Background()

	first, err := gw.LoadConfigCached(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.False(t, first.Milestones.Enabled)

	updated := *first
	updated.Milestones.Enabled = true
	require.NoError(t, gw.SaveBotConfig(ctx, &updated))

	second, err := gw.LoadConfigCached(ctx)
	require.NoError(t, err)
	assert.True(t, second.Milestones.Enabled)
}

func TestCreditReward_AppliesEffectsAndEvictsStats(t *testing.T) {
	gw, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	now := time.Now()
	date := DateKey(now)
	store.Users["u1"] = &models.User{ID: "u1"}
	store.SetDaily(date, "u1", models.DailyUserStats{Messages: 10})

	// Warm both caches.
	_, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	_, err = gw.GetDailyStatsCached(ctx, "u1", "g1", date)
	require.NoError(t, err)

	require.NoError(t, gw.CreditReward(ctx, "u1", "g1", "Alice", 3, now))

	assert.Equal(t, int64(1), store.Selections)
	require.Len(t, store.Winners, 1)
	assert.Equal(t, int64(3), store.Winners[0].Stocks)

	fresh, err := gw.GetUserCached(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), fresh.Stats.TotalStocks, "user cache must be evicted by the credit")
}

func TestGetTopDailyCached_CachesList(t *testing.T) {
	gw, store, _, metrics := newTestGateway(t)
	ctx := context.Background()
	date := DateKey(time.Now())
	store.SetDaily(date, "u1", models.DailyUserStats{Messages: 5})

	first, err := gw.GetTopDailyCached(ctx, date, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, metrics.Count("miss:top"))

	_, err = gw.GetTopDailyCached(ctx, date, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Count("hit:top"))
}

func TestGetTopDailyCached_SharedEntryAcrossLimits(t *testing.T) {
	gw, store, _, metrics := newTestGateway(t)
	ctx := context.Background()
	date := DateKey(time.Now())
	store.SetDaily(date, "u1", models.DailyUserStats{Messages: 9})
	store.SetDaily(date, "u2", models.DailyUserStats{Messages: 4})

	full, err := gw.GetTopDailyCached(ctx, date, 10)
	require.NoError(t, err)
	require.Len(t, full, 2)

	// A smaller limit slices the one cached entry instead of refetching.
	one, err := gw.GetTopDailyCached(ctx, date, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
	assert.Equal(t, 1, metrics.Count("miss:top"))
	assert.Equal(t, 1, metrics.Count("hit:top"))
}

func TestCreditReward_NextLeaderboardReadSeesStocks(t *testing.T) {
	gw, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	now := time.Now()
	date := DateKey(now)
	store.Users["u1"] = &models.User{ID: "u1"}
	store.SetDaily(date, "u1", models.DailyUserStats{Messages: 12})

	// Warm the leaderboard cache before the win lands.
	before, err := gw.GetTopDailyCached(ctx, date, 10)
	require.NoError(t, err)
	require.Len(t, before, 1)
	require.Equal(t, int64(0), before[0].Stocks)

	require.NoError(t, gw.CreditReward(ctx, "u1", "g1", "Alice", 5, now))

	after, err := gw.GetTopDailyCached(ctx, date, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(5), after[0].Stocks, "credit must evict the cached leaderboard")
}
