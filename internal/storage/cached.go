package storage

import (
	"context"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/structures"
	"time"

	json "github.com/goccy/go-json"
)

// Gateway is the consistency layer the pipeline talks to: cache-aside reads
// over the authoritative store plus mutate-then-evict writes. Direct Store
// methods stay available for the documents that must never be cached.
type Gateway interface {
	Store

	GetUserCached(ctx context.Context, userID, groupID string) (*models.User, error)
	LoadConfigCached(ctx context.Context) (*models.BotConfig, error)
	GetDailyStatsCached(ctx context.Context, userID, groupID, date string) (*models.DailyUserStats, error)
	GetTopDailyCached(ctx context.Context, date string, limit int) ([]models.TopEntry, error)

	SetBan(ctx context.Context, userID, groupID string, banned bool, reason string) error
	SetWhitelist(ctx context.Context, userID, groupID string, whitelisted bool) error
	PenalizeUser(ctx context.Context, userID, groupID string, duration time.Duration, reason string) error
	ClearUserPenalty(ctx context.Context, userID, groupID string) error
	SaveBotConfig(ctx context.Context, conf *models.BotConfig) error
	CreditReward(ctx context.Context, userID, groupID, name string, amount int64, now time.Time) error

	InvalidateUser(userID, groupID string)
	InvalidateStats(userID, groupID, date string)
	InvalidateConfig(key string)
}

// MaxTopLimit caps leaderboard reads. The cached entry always holds the
// full MaxTopLimit slice so one date maps to exactly one cache key,
// whatever limit each caller asks for.
const MaxTopLimit = 100

// --- cache key builders ---

func userKey(userID, groupID string) string { return "u:" + userID + ":" + groupID }

// EligibilityKey is shared with the eligibility checker so InvalidateUser
// evicts exactly the key the checker writes.
func EligibilityKey(userID, groupID string) string { return userID + ":" + groupID }
func statsKey(userID, groupID, date string) string {
	return "s:" + userID + ":" + groupID + ":" + date
}

// The store has no group dimension on daily aggregates, so the leaderboard
// key is derived from the date alone. InvalidateStats must evict exactly
// this key.
func topKey(date string) string   { return "t:" + date }
func configKey(key string) string { return "cfg:" + key }

// CachedStore implements Gateway over any Store. Reads are cache-aside with
// last-write-wins population; every mutation evicts (never patches) the
// cache keys derived from the mutated entity before the next read can
// observe stale state.
type CachedStore struct {
	Store
	cache   providers.CacheProviderInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
}

func NewCachedStore(store Store, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface, logger providers.Logger, _ *structures.Config) Gateway {
	return &CachedStore{Store: store, cache: cache, metrics: metrics, logger: logger}
}

func cacheAside[T any](c *CachedStore, ctx context.Context, ns providers.Namespace, key string, load func(context.Context) (*T, error)) (*T, error) {
	if data, ok := c.cache.Get(ns, key); ok {
		var val T
		if err := json.Unmarshal(data, &val); err == nil {
			c.metrics.IncCacheHits(ns.String())
			return &val, nil
		}
		// Unreadable entry: drop it and fall through to the store.
		c.cache.Del(ns, key)
	}
	c.metrics.IncCacheMisses(ns.String())

	val, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if val != nil {
		if data, err := json.Marshal(val); err == nil {
			c.cache.Set(ns, key, data)
		}
	}
	return val, nil
}

func (c *CachedStore) GetUserCached(ctx context.Context, userID, groupID string) (*models.User, error) {
	return cacheAside(c, ctx, providers.NsUser, userKey(userID, groupID), func(ctx context.Context) (*models.User, error) {
		return c.Store.GetUser(ctx, userID)
	})
}

func (c *CachedStore) LoadConfigCached(ctx context.Context) (*models.BotConfig, error) {
	return cacheAside(c, ctx, providers.NsConfig, configKey(configDocID), func(ctx context.Context) (*models.BotConfig, error) {
		return c.Store.LoadConfig(ctx)
	})
}

func (c *CachedStore) GetDailyStatsCached(ctx context.Context, userID, groupID, date string) (*models.DailyUserStats, error) {
	return cacheAside(c, ctx, providers.NsStats, statsKey(userID, groupID, date), func(ctx context.Context) (*models.DailyUserStats, error) {
		return c.Store.GetDailyStats(ctx, userID, date)
	})
}

func (c *CachedStore) GetTopDailyCached(ctx context.Context, date string, limit int) ([]models.TopEntry, error) {
	if limit < 1 || limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	key := topKey(date)
	if data, ok := c.cache.Get(providers.NsTop, key); ok {
		var entries []models.TopEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			c.metrics.IncCacheHits(providers.NsTop.String())
			return clampTop(entries, limit), nil
		}
		c.cache.Del(providers.NsTop, key)
	}
	c.metrics.IncCacheMisses(providers.NsTop.String())

	entries, err := c.Store.GetTopDaily(ctx, date, MaxTopLimit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entries); err == nil {
		c.cache.Set(providers.NsTop, key, data)
	}
	return clampTop(entries, limit), nil
}

func clampTop(entries []models.TopEntry, limit int) []models.TopEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// --- mutate-then-evict ---

func (c *CachedStore) SetBan(ctx context.Context, userID, groupID string, banned bool, reason string) error {
	var err error
	if banned {
		err = c.Store.BanUser(ctx, userID, reason)
	} else {
		err = c.Store.UnbanUser(ctx, userID)
	}
	if err != nil {
		return err
	}
	c.InvalidateUser(userID, groupID)
	return nil
}

func (c *CachedStore) SetWhitelist(ctx context.Context, userID, groupID string, whitelisted bool) error {
	var err error
	if whitelisted {
		err = c.Store.WhitelistUser(ctx, userID)
	} else {
		err = c.Store.UnwhitelistUser(ctx, userID)
	}
	if err != nil {
		return err
	}
	c.InvalidateUser(userID, groupID)
	return nil
}

func (c *CachedStore) PenalizeUser(ctx context.Context, userID, groupID string, duration time.Duration, reason string) error {
	if err := c.Store.AddPenalty(ctx, userID, duration, reason); err != nil {
		return err
	}
	c.InvalidateUser(userID, groupID)
	return nil
}

func (c *CachedStore) ClearUserPenalty(ctx context.Context, userID, groupID string) error {
	if err := c.Store.ClearPenalty(ctx, userID); err != nil {
		return err
	}
	c.InvalidateUser(userID, groupID)
	return nil
}

func (c *CachedStore) SaveBotConfig(ctx context.Context, conf *models.BotConfig) error {
	if err := c.Store.SaveConfig(ctx, conf); err != nil {
		return err
	}
	c.InvalidateConfig(configDocID)
	return nil
}

// CreditReward applies all store-side effects of a win, then evicts every
// cache key the win touched.
func (c *CachedStore) CreditReward(ctx context.Context, userID, groupID, name string, amount int64, now time.Time) error {
	if err := c.Store.AddUserStock(ctx, userID, amount); err != nil {
		return err
	}
	if err := c.Store.IncrementTotalSelections(ctx, 1); err != nil {
		c.logger.Warnf(providers.TypeStore, "total selections increment failed: %s", err)
	}
	if err := c.Store.AddRecentWinner(ctx, models.Winner{
		UserID: userID, Name: name, Stocks: amount, At: now.Unix(),
	}); err != nil {
		c.logger.Warnf(providers.TypeStore, "recent winner record failed: %s", err)
	}

	c.InvalidateUser(userID, groupID)
	c.InvalidateStats(userID, groupID, DateKey(now))
	return nil
}

// --- invalidation hooks (also for external mutators) ---

func (c *CachedStore) InvalidateUser(userID, groupID string) {
	c.cache.Del(providers.NsUser, userKey(userID, groupID))
	c.cache.Del(providers.NsEligibility, EligibilityKey(userID, groupID))
}

func (c *CachedStore) InvalidateStats(userID, groupID, date string) {
	c.cache.Del(providers.NsStats, statsKey(userID, groupID, date))
	c.cache.Del(providers.NsTop, topKey(date))
}

func (c *CachedStore) InvalidateConfig(key string) {
	c.cache.Del(providers.NsConfig, configKey(key))
}
