package services

import (
	"context"
	"math"
	"math/rand/v2"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/storage"
	"rad/internal/structures"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

const defaultTierName = "Bronze"

// StockEligibility is the default winner gate: banned, penalized and
// already-rewarded-today users are skipped. The verdict is cached briefly so
// a burst of triggers for the same user does not hammer the store.
type StockEligibility struct {
	store storage.Gateway
	cache providers.CacheProviderInterface
}

func NewStockEligibility(store storage.Gateway, cache providers.CacheProviderInterface) *StockEligibility {
	return &StockEligibility{store: store, cache: cache}
}

type eligibilityVerdict struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func (e *StockEligibility) Eligible(ctx context.Context, user *models.User, msg Inbound) (bool, string, error) {
	key := storage.EligibilityKey(msg.UserID, msg.GroupID)
	if data, ok := e.cache.Get(providers.NsEligibility, key); ok {
		var v eligibilityVerdict
		if err := json.Unmarshal(data, &v); err == nil {
			return v.OK, v.Reason, nil
		}
	}

	// The pipeline hands over its possibly cached view; re-read fresh so a
	// ban applied seconds ago is honored.
	fresh, err := e.store.GetUser(ctx, msg.UserID)
	if err != nil {
		return false, "", err
	}
	if fresh == nil {
		fresh = user
	}

	v := e.judge(fresh, msg.At)
	if data, err := json.Marshal(v); err == nil {
		e.cache.Set(providers.NsEligibility, key, data)
	}
	return v.OK, v.Reason, nil
}

func (e *StockEligibility) judge(user *models.User, now time.Time) eligibilityVerdict {
	if user == nil {
		// First-ever message from this user triggered the reward. Allowed.
		return eligibilityVerdict{OK: true}
	}
	if user.Status.IsBanned {
		return eligibilityVerdict{Reason: "banned"}
	}
	if user.Status.IsPenalized {
		return eligibilityVerdict{Reason: "penalized"}
	}
	if now.IsZero() {
		now = time.Now()
	}
	if user.Stats.LastWin > 0 &&
		storage.DateKey(time.Unix(user.Stats.LastWin, 0)) == storage.DateKey(now) {
		return eligibilityVerdict{Reason: "already won today"}
	}
	return eligibilityVerdict{OK: true}
}

// TierInfo is the grading result for one user's daily message count.
type TierInfo struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	NextTier   string  `json:"next_tier,omitempty"`
	NeedMore   int64   `json:"need_more,omitempty"`
}

// GradeTier maps a daily message count onto the configured tier ladder.
// A malformed tier entry (inverted range, non-positive multiplier) is
// skipped with a warning: the decision falls back to the neutral
// multiplier, the pipeline never aborts on bad config.
func GradeTier(conf structures.RewardConfig, dailyMsgs int64, logger providers.Logger) TierInfo {
	info := TierInfo{Name: defaultTierName, Multiplier: 1.0}
	if !conf.TiersEnabled {
		return info
	}

	tiers := make([]structures.RewardTier, 0, len(conf.Tiers))
	for _, t := range conf.Tiers {
		if t.Min < 0 || t.Max < t.Min || t.Multiplier <= 0 {
			logger.Warnf(providers.TypeReward, "malformed reward tier %q [%d,%d]x%v, treating as absent",
				t.Name, t.Min, t.Max, t.Multiplier)
			continue
		}
		tiers = append(tiers, t)
	}
	if len(tiers) == 0 {
		return info
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Min < tiers[j].Min })

	for i, t := range tiers {
		if dailyMsgs >= t.Min && dailyMsgs <= t.Max {
			info.Name = t.Name
			info.Multiplier = t.Multiplier
			if i+1 < len(tiers) {
				next := tiers[i+1]
				info.NextTier = next.Name
				info.NeedMore = max(0, next.Min-dailyMsgs)
			}
			return info
		}
	}
	// Past the top of the ladder: stay in the highest tier.
	if last := tiers[len(tiers)-1]; dailyMsgs > last.Max {
		info.Name = last.Name
		info.Multiplier = last.Multiplier
	}
	return info
}

// Payout is one computed reward: either a jackpot hit paying the fixed
// jackpot amount, or a base draw scaled by the tier and milestone
// multipliers.
type Payout struct {
	Amount  int64
	Jackpot bool
	Tier    string
}

// StockRewarder grades the winner's tier, rolls the jackpot, then draws
// the base amount and applies the multipliers.
type StockRewarder struct {
	conf   *structures.Config
	logger providers.Logger
}

func NewStockRewarder(conf *structures.Config, logger providers.Logger) *StockRewarder {
	return &StockRewarder{conf: conf, logger: logger}
}

func (r *StockRewarder) Calculate(dailyMsgs int64, bonus models.BonusState) Payout {
	rc := r.conf.Reward
	tier := GradeTier(rc, dailyMsgs, r.logger)

	// An active milestone window overrides the configured jackpot chance.
	if rc.Jackpot.Enabled {
		chance := rc.Jackpot.Chance
		if bonus.Active {
			chance = bonus.JackpotChance
		}
		if chance > 0 && rand.Float64()*100 < chance {
			return Payout{Amount: rc.Jackpot.Amount, Jackpot: true, Tier: tier.Name}
		}
	}

	base := rc.Base.Amount
	if rc.Base.Mode == "random" {
		base = rc.Base.Min + rand.Int64N(rc.Base.Max-rc.Base.Min+1)
	}

	mult := bonus.Multiplier
	if !bonus.Active || mult <= 0 {
		mult = 1.0
	}
	amount := int64(math.Round(float64(base) * tier.Multiplier * mult))
	if amount < 1 {
		amount = 1
	}
	return Payout{Amount: amount, Tier: tier.Name}
}
