package services

import (
	"context"
	"rad/internal/models"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEligibilityFixture(t *testing.T) (*StockEligibility, *testutil.MockStore, *testutil.MockCache) {
	t.Helper()
	store := testutil.NewMockStore()
	cache := testutil.NewMockCache()
	gw := storage.NewCachedStore(store, cache, testutil.NewMockMetrics(), &testutil.MockLogger{}, &structures.Config{})
	return NewStockEligibility(gw, cache), store, cache
}

func TestEligible_FreshUserAllowed(t *testing.T) {
	e, _, _ := newEligibilityFixture(t)

	ok, _, err := e.Eligible(context.Background(), nil, msg("newcomer", "hi"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligible_BannedAndPenalizedDenied(t *testing.T) {
	e, store, _ := newEligibilityFixture(t)
	store.Users["banned"] = &models.User{ID: "banned", Status: models.UserStatus{IsBanned: true}}
	store.Users["penalized"] = &models.User{ID: "penalized", Status: models.UserStatus{IsPenalized: true}}

	ok, reason, err := e.Eligible(context.Background(), nil, msg("banned", ""))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "banned", reason)

	ok, reason, err = e.Eligible(context.Background(), nil, msg("penalized", ""))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "penalized", reason)
}

func TestEligible_OneWinPerDay(t *testing.T) {
	e, store, _ := newEligibilityFixture(t)
	store.Users["lucky"] = &models.User{ID: "lucky", Stats: models.UserStats{LastWin: time.Now().Unix()}}
	store.Users["patient"] = &models.User{ID: "patient", Stats: models.UserStats{
		LastWin: time.Now().Add(-48 * time.Hour).Unix(),
	}}

	ok, reason, err := e.Eligible(context.Background(), nil, msg("lucky", ""))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "already won today", reason)

	ok, _, err = e.Eligible(context.Background(), nil, msg("patient", ""))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligible_VerdictIsCached(t *testing.T) {
	e, store, _ := newEligibilityFixture(t)
	store.Users["u1"] = &models.User{ID: "u1", Status: models.UserStatus{IsBanned: true}}

	ok, _, err := e.Eligible(context.Background(), nil, msg("u1", ""))
	require.NoError(t, err)
	require.False(t, ok)

	// The cached verdict survives even a dead store.
	store.Err = assert.AnError
	ok, reason, err := e.Eligible(context.Background(), nil, msg("u1", ""))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "banned", reason)
}

func TestEligible_StoreErrorSurfaces(t *testing.T) {
	e, store, _ := newEligibilityFixture(t)
	store.Err = assert.AnError

	_, _, err := e.Eligible(context.Background(), nil, msg("u1", ""))
	assert.Error(t, err)
}

func rewardConf(base structures.RewardBase) *structures.Config {
	return &structures.Config{Reward: structures.RewardConfig{Base: base}}
}

func ladder() []structures.RewardTier {
	return []structures.RewardTier{
		{Name: "Bronze", Min: 0, Max: 49, Multiplier: 1.0},
		{Name: "Silver", Min: 50, Max: 99, Multiplier: 1.5},
		{Name: "Gold", Min: 100, Max: 199, Multiplier: 2.0},
	}
}

func TestCalculate_RandomBaseRange(t *testing.T) {
	conf := rewardConf(structures.RewardBase{Mode: "random", Min: 5, Max: 10})
	r := NewStockRewarder(conf, &testutil.MockLogger{})
	neutral := models.BonusState{Active: false, Multiplier: 1.0}

	for i := 0; i < 200; i++ {
		p := r.Calculate(0, neutral)
		assert.False(t, p.Jackpot)
		assert.GreaterOrEqual(t, p.Amount, int64(5))
		assert.LessOrEqual(t, p.Amount, int64(10))
	}
}

func TestCalculate_FixedBaseAndMilestoneMultiplier(t *testing.T) {
	conf := rewardConf(structures.RewardBase{Mode: "fixed", Amount: 5})
	r := NewStockRewarder(conf, &testutil.MockLogger{})

	neutral := r.Calculate(0, models.BonusState{})
	assert.Equal(t, int64(5), neutral.Amount)
	assert.Equal(t, "Bronze", neutral.Tier)

	boosted := r.Calculate(0, models.BonusState{Active: true, Multiplier: 2.0})
	assert.Equal(t, int64(10), boosted.Amount)
}

func TestCalculate_TierMultiplierApplies(t *testing.T) {
	conf := rewardConf(structures.RewardBase{Mode: "fixed", Amount: 10})
	conf.Reward.TiersEnabled = true
	conf.Reward.Tiers = ladder()
	r := NewStockRewarder(conf, &testutil.MockLogger{})

	silver := r.Calculate(60, models.BonusState{})
	assert.Equal(t, "Silver", silver.Tier)
	assert.Equal(t, int64(15), silver.Amount)

	// Past the top of the ladder the highest tier keeps applying.
	above := r.Calculate(5000, models.BonusState{})
	assert.Equal(t, "Gold", above.Tier)
	assert.Equal(t, int64(20), above.Amount)
}

func TestCalculate_GuaranteedJackpotPaysFixedAmount(t *testing.T) {
	conf := rewardConf(structures.RewardBase{Mode: "fixed", Amount: 5})
	conf.Reward.Jackpot = structures.JackpotConfig{Enabled: true, Chance: 100, Amount: 500}
	r := NewStockRewarder(conf, &testutil.MockLogger{})

	p := r.Calculate(0, models.BonusState{})
	assert.True(t, p.Jackpot)
	assert.Equal(t, int64(500), p.Amount)
}

func TestCalculate_MilestoneOverridesJackpotChance(t *testing.T) {
	conf := rewardConf(structures.RewardBase{Mode: "fixed", Amount: 5})
	conf.Reward.Jackpot = structures.JackpotConfig{Enabled: true, Chance: 100, Amount: 500}
	r := NewStockRewarder(conf, &testutil.MockLogger{})

	// The active window's chance wins, even when it turns the jackpot off.
	p := r.Calculate(0, models.BonusState{Active: true, Multiplier: 1.0, JackpotChance: 0})
	assert.False(t, p.Jackpot)
	assert.Equal(t, int64(5), p.Amount)
}

func TestGradeTier_NextTierProgress(t *testing.T) {
	conf := structures.RewardConfig{TiersEnabled: true, Tiers: ladder()}

	info := GradeTier(conf, 40, &testutil.MockLogger{})
	assert.Equal(t, "Bronze", info.Name)
	assert.Equal(t, "Silver", info.NextTier)
	assert.Equal(t, int64(10), info.NeedMore)

	top := GradeTier(conf, 150, &testutil.MockLogger{})
	assert.Equal(t, "Gold", top.Name)
	assert.Empty(t, top.NextTier)
}

func TestGradeTier_Disabled(t *testing.T) {
	info := GradeTier(structures.RewardConfig{}, 500, &testutil.MockLogger{})
	assert.Equal(t, "Bronze", info.Name)
	assert.Equal(t, 1.0, info.Multiplier)
}

func TestGradeTier_MalformedTierFallsBackNeutral(t *testing.T) {
	logger := &testutil.MockLogger{}
	conf := structures.RewardConfig{
		TiersEnabled: true,
		Tiers: []structures.RewardTier{
			{Name: "Broken", Min: 100, Max: 10, Multiplier: 3.0},
		},
	}

	info := GradeTier(conf, 500, logger)
	assert.Equal(t, "Bronze", info.Name)
	assert.Equal(t, 1.0, info.Multiplier)
	assert.True(t, logger.HasLog("warn", "malformed reward tier"))
}
