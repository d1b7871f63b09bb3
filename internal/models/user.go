package models

// UserStatus carries the moderation flags checked on every message.
type UserStatus struct {
	IsBanned       bool   `bson:"is_banned" json:"is_banned"`
	IsWhitelisted  bool   `bson:"is_whitelisted" json:"is_whitelisted"`
	IsPenalized    bool   `bson:"is_penalized" json:"is_penalized"`
	PenaltyExpires int64  `bson:"penalty_expires,omitempty" json:"penalty_expires,omitempty"`
	PenaltyLevel   int    `bson:"penalty_level,omitempty" json:"penalty_level,omitempty"`
	PenaltyReason  string `bson:"penalty_reason,omitempty" json:"penalty_reason,omitempty"`
}

type UserStats struct {
	TotalMsgs   int64 `bson:"total_msgs" json:"total_msgs"`
	TotalStocks int64 `bson:"total_stocks" json:"total_stocks"`
	LastWin     int64 `bson:"last_win" json:"last_win"`
}

type ViolationEntry struct {
	At     int64  `bson:"at" json:"at"`
	Reason string `bson:"reason" json:"reason"`
}

type Violations struct {
	Count         int              `bson:"count" json:"count"`
	LastViolation int64            `bson:"last_violation,omitempty" json:"last_violation,omitempty"`
	History       []ViolationEntry `bson:"history,omitempty" json:"history,omitempty"`
}

// User is the authoritative per-user document. Hot-path reads project only
// Stats and Status.
type User struct {
	ID         string     `bson:"_id" json:"id"`
	FirstName  string     `bson:"first_name,omitempty" json:"first_name,omitempty"`
	Username   string     `bson:"username,omitempty" json:"username,omitempty"`
	Stats      UserStats  `bson:"stats" json:"stats"`
	Status     UserStatus `bson:"status" json:"status"`
	Violations Violations `bson:"violations" json:"violations"`
	CreatedAt  int64      `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt  int64      `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DailyUserStats is one user's slice of a daily_stats document.
type DailyUserStats struct {
	Messages  int64  `bson:"messages" json:"messages"`
	StocksWon int64  `bson:"stocks_won" json:"stocks_won"`
	WinsCount int64  `bson:"wins_count" json:"wins_count"`
	Tier      string `bson:"tier,omitempty" json:"tier,omitempty"`
}

type TopEntry struct {
	UserID   string `json:"user_id"`
	Messages int64  `json:"messages"`
	Stocks   int64  `json:"stocks"`
}

type Winner struct {
	UserID string `bson:"user_id" json:"user_id"`
	Name   string `bson:"name" json:"name"`
	Stocks int64  `bson:"stocks" json:"stocks"`
	At     int64  `bson:"at" json:"at"`
}

// Increment is one accumulated write-behind delta targeting a single field.
type Increment struct {
	Filter map[string]any `json:"filter"`
	Field  string         `json:"field"`
	Delta  int64          `json:"delta"`
}
