package storage

import (
	"context"
	"rad/internal/models"
	"time"
)

// istOffset pins the daily rollover to IST, matching the community the
// engine serves.
var istLocation = time.FixedZone("IST", 5*3600+30*60)

// DateKey formats the daily_stats document id for the IST day containing t.
func DateKey(t time.Time) string {
	return t.In(istLocation).Format("2006-01-02")
}

// Store is the authoritative-store contract the engine consumes. The mongo
// implementation is the only production one; tests substitute mocks.
type Store interface {
	// Settings blob: whole-document replace semantics.
	LoadConfig(ctx context.Context) (*models.BotConfig, error)
	SaveConfig(ctx context.Context, conf *models.BotConfig) error

	// Reward-interval documents: small, read/written directly, never cached.
	GetEventSettings(ctx context.Context) (*models.EventSettings, error)
	SaveEventSettings(ctx context.Context, s *models.EventSettings) error
	GetEventState(ctx context.Context) (*models.EventState, error)
	SaveEventState(ctx context.Context, s *models.EventState) error

	// Entity operations. GetUser reads a minimal projection (stats, status).
	GetUser(ctx context.Context, userID string) (*models.User, error)
	MutateUserField(ctx context.Context, userID string, set map[string]any, unset []string) error

	// Counter increments, upsert-on-missing.
	AtomicIncrement(ctx context.Context, collection string, filter map[string]any, field string, delta int64) error
	BulkIncrement(ctx context.Context, collection string, ops []models.Increment) error

	// Moderation.
	BanUser(ctx context.Context, userID, reason string) error
	UnbanUser(ctx context.Context, userID string) error
	WhitelistUser(ctx context.Context, userID string) error
	UnwhitelistUser(ctx context.Context, userID string) error
	AddViolation(ctx context.Context, userID, reason string) (int, error)
	ResetViolations(ctx context.Context, userID string) error
	AddPenalty(ctx context.Context, userID string, duration time.Duration, reason string) error
	ClearPenalty(ctx context.Context, userID string) error

	// Rewards.
	AddUserStock(ctx context.Context, userID string, amount int64) error
	IncrementTotalSelections(ctx context.Context, amount int64) error
	AddRecentWinner(ctx context.Context, winner models.Winner) error

	// Aggregates.
	GetDailyStats(ctx context.Context, userID, date string) (*models.DailyUserStats, error)
	GetTopDaily(ctx context.Context, date string, limit int) ([]models.TopEntry, error)

	Close(ctx context.Context) error
}
