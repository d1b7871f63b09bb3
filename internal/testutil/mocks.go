package testutil

import (
	"context"
	"fmt"
	"rad/internal/models"
	"rad/internal/providers"
	"strings"
	"sync"
	"time"
)

var istLocation = time.FixedZone("IST", 5*3600+30*60)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// HasLog reports whether any recorded entry at level contains substr.
func (m *MockLogger) HasLog(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(fmt.Sprintf(e.Format, e.Args...), substr) {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface over a plain map.
// No TTL: entries live until deleted, which makes staleness assertions
// deterministic.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) key(ns providers.Namespace, key string) string {
	return ns.String() + ":" + key
}

func (m *MockCache) Get(ns providers.Namespace, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[m.key(ns, key)]
	return data, ok
}

func (m *MockCache) Set(ns providers.Namespace, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[m.key(ns, key)] = value
}

func (m *MockCache) Del(ns providers.Namespace, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, m.key(ns, key))
}

func (m *MockCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// MockMetrics implements providers.MetricsProviderInterface and counts
// calls by name.
type MockMetrics struct {
	mu     sync.Mutex
	Counts map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Counts: make(map[string]int)}
}

func (m *MockMetrics) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counts[name]++
}

func (m *MockMetrics) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counts[name]
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.inc("requests:" + endpoint)
}
func (m *MockMetrics) ObserveRequestDuration(string, time.Duration) {}
func (m *MockMetrics) IncSpamDecision(kind string)                  { m.inc("spam:" + kind) }
func (m *MockMetrics) IncRewardTriggered()                          { m.inc("reward_triggered") }
func (m *MockMetrics) IncRewardRerolled()                           { m.inc("reward_rerolled") }
func (m *MockMetrics) IncMilestoneActivated()                       { m.inc("milestone_activated") }
func (m *MockMetrics) IncCacheHits(ns string)                       { m.inc("hit:" + ns) }
func (m *MockMetrics) IncCacheMisses(ns string)                     { m.inc("miss:" + ns) }
func (m *MockMetrics) ObserveFlushDuration(time.Duration)           { m.inc("flush_observed") }
func (m *MockMetrics) AddFlushedOps(collection string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counts["flushed:"+collection] += count
}
func (m *MockMetrics) IncFlushErrors(collection string) { m.inc("flush_err:" + collection) }
func (m *MockMetrics) RegisterQueueDepth(func() float64) {}

// SinkCall records one BulkIncrement batch.
type SinkCall struct {
	Collection string
	Ops        []models.Increment
}

// MockSink implements writequeue.Sink. FailFor makes batches for the named
// collections fail.
type MockSink struct {
	mu      sync.Mutex
	Calls   []SinkCall
	FailFor map[string]error
}

func (m *MockSink) BulkIncrement(_ context.Context, collection string, ops []models.Increment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[collection]; ok {
		return err
	}
	m.Calls = append(m.Calls, SinkCall{Collection: collection, Ops: ops})
	return nil
}

func (m *MockSink) CallsFor(collection string) []SinkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SinkCall
	for _, c := range m.Calls {
		if c.Collection == collection {
			out = append(out, c)
		}
	}
	return out
}

// MockStore is an in-memory storage.Store. Err, when set, is returned from
// every call; Latency simulates a slow store for deadline tests.
type MockStore struct {
	mu sync.Mutex

	Users         map[string]*models.User
	Config        *models.BotConfig
	EventSettings *models.EventSettings
	EventState    *models.EventState
	Daily         map[string]map[string]*models.DailyUserStats // date -> user -> stats
	Winners       []models.Winner
	Selections    int64
	Increments    []models.Increment

	SettingsSaves int
	StateSaves    int

	Err     error
	Latency time.Duration
}

func NewMockStore() *MockStore {
	return &MockStore{
		Users: make(map[string]*models.User),
		Daily: make(map[string]map[string]*models.DailyUserStats),
	}
}

func (m *MockStore) gate(ctx context.Context) error {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Err
}

func (m *MockStore) user(userID string) *models.User {
	u, ok := m.Users[userID]
	if !ok {
		u = &models.User{ID: userID}
		m.Users[userID] = u
	}
	return u
}

func (m *MockStore) LoadConfig(ctx context.Context) (*models.BotConfig, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Config == nil {
		return &models.BotConfig{ID: "bot_config"}, nil
	}
	clone := *m.Config
	return &clone, nil
}

func (m *MockStore) SaveConfig(ctx context.Context, conf *models.BotConfig) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *conf
	m.Config = &clone
	return nil
}

func (m *MockStore) GetEventSettings(ctx context.Context) (*models.EventSettings, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EventSettings == nil {
		return nil, nil
	}
	clone := *m.EventSettings
	return &clone, nil
}

func (m *MockStore) SaveEventSettings(ctx context.Context, s *models.EventSettings) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.EventSettings = &clone
	m.SettingsSaves++
	return nil
}

func (m *MockStore) GetEventState(ctx context.Context) (*models.EventState, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EventState == nil {
		return nil, nil
	}
	clone := *m.EventState
	return &clone, nil
}

func (m *MockStore) SaveEventState(ctx context.Context, s *models.EventState) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.EventState = &clone
	m.StateSaves++
	return nil
}

func (m *MockStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (m *MockStore) MutateUserField(ctx context.Context, userID string, set map[string]any, unset []string) error {
	return m.gate(ctx)
}

func (m *MockStore) AtomicIncrement(ctx context.Context, collection string, filter map[string]any, field string, delta int64) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Increments = append(m.Increments, models.Increment{Filter: filter, Field: field, Delta: delta})
	return nil
}

func (m *MockStore) BulkIncrement(ctx context.Context, collection string, ops []models.Increment) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Increments = append(m.Increments, ops...)
	return nil
}

func (m *MockStore) BanUser(ctx context.Context, userID, reason string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).Status.IsBanned = true
	return nil
}

func (m *MockStore) UnbanUser(ctx context.Context, userID string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).Status.IsBanned = false
	return nil
}

func (m *MockStore) WhitelistUser(ctx context.Context, userID string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).Status.IsWhitelisted = true
	return nil
}

func (m *MockStore) UnwhitelistUser(ctx context.Context, userID string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).Status.IsWhitelisted = false
	return nil
}

func (m *MockStore) AddViolation(ctx context.Context, userID, reason string) (int, error) {
	if err := m.gate(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.Violations.Count++
	u.Violations.History = append(u.Violations.History, models.ViolationEntry{
		At: time.Now().Unix(), Reason: reason,
	})
	return u.Violations.Count, nil
}

func (m *MockStore) ResetViolations(ctx context.Context, userID string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).Violations = models.Violations{}
	return nil
}

func (m *MockStore) AddPenalty(ctx context.Context, userID string, duration time.Duration, reason string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.Status.IsPenalized = true
	u.Status.PenaltyExpires = time.Now().Add(duration).Unix()
	u.Status.PenaltyLevel++
	u.Status.PenaltyReason = reason
	return nil
}

func (m *MockStore) ClearPenalty(ctx context.Context, userID string) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.Status.IsPenalized = false
	u.Status.PenaltyExpires = 0
	u.Status.PenaltyReason = ""
	return nil
}

func (m *MockStore) AddUserStock(ctx context.Context, userID string, amount int64) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	u := m.user(userID)
	u.Stats.TotalStocks += amount
	u.Stats.LastWin = now.Unix()

	// Mirror the production store: a win also lands on the day's stats.
	date := now.In(istLocation).Format("2006-01-02")
	if m.Daily[date] == nil {
		m.Daily[date] = make(map[string]*models.DailyUserStats)
	}
	if m.Daily[date][userID] == nil {
		m.Daily[date][userID] = &models.DailyUserStats{}
	}
	m.Daily[date][userID].StocksWon += amount
	m.Daily[date][userID].WinsCount++
	return nil
}

func (m *MockStore) IncrementTotalSelections(ctx context.Context, amount int64) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Selections += amount
	return nil
}

func (m *MockStore) AddRecentWinner(ctx context.Context, winner models.Winner) error {
	if err := m.gate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Winners = append(m.Winners, winner)
	return nil
}

func (m *MockStore) GetDailyStats(ctx context.Context, userID, date string) (*models.DailyUserStats, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	day, ok := m.Daily[date]
	if !ok {
		return nil, nil
	}
	stats, ok := day[userID]
	if !ok {
		return nil, nil
	}
	clone := *stats
	return &clone, nil
}

func (m *MockStore) GetTopDaily(ctx context.Context, date string, limit int) ([]models.TopEntry, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TopEntry
	for uid, stats := range m.Daily[date] {
		out = append(out, models.TopEntry{UserID: uid, Messages: stats.Messages, Stocks: stats.StocksWon})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) Close(ctx context.Context) error { return nil }

// SetDaily seeds one user's stats for a date.
func (m *MockStore) SetDaily(date, userID string, stats models.DailyUserStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Daily[date] == nil {
		m.Daily[date] = make(map[string]*models.DailyUserStats)
	}
	m.Daily[date][userID] = &stats
}
