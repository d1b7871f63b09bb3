package models

// MilestoneReward describes the bonus window attached to one threshold.
type MilestoneReward struct {
	DurationHours float64 `bson:"duration_hours" json:"duration_hours"`
	Multiplier    float64 `bson:"multiplier" json:"multiplier"`
	JackpotChance float64 `bson:"jackpot_chance" json:"jackpot_chance"`
}

// ActiveEvent is the single bonus-window slot. Multiplier and JackpotChance
// are snapshotted at activation and stay decoupled from later config edits.
type ActiveEvent struct {
	Active        bool    `bson:"active" json:"active"`
	EndTime       int64   `bson:"end_time" json:"end_time"`
	Milestone     int64   `bson:"milestone" json:"milestone"`
	Multiplier    float64 `bson:"multiplier" json:"multiplier"`
	JackpotChance float64 `bson:"jackpot_chance" json:"jackpot_chance"`
}

type MilestoneConfig struct {
	Enabled       bool                      `bson:"enabled" json:"enabled"`
	Events        map[int64]MilestoneReward `bson:"events" json:"events"`
	ActiveEvent   ActiveEvent               `bson:"active_event" json:"active_event"`
	LastTriggered int64                     `bson:"last_triggered" json:"last_triggered"`
}

// BonusState is the read-only view consumed by reward calculation.
type BonusState struct {
	Active        bool    `json:"active"`
	Multiplier    float64 `json:"multiplier"`
	JackpotChance float64 `json:"jackpot_chance"`
}

// MilestoneProgress reports distance to the next unreached threshold.
// A nil *MilestoneProgress is the "no more milestones" sentinel.
type MilestoneProgress struct {
	Current        int64   `json:"current"`
	NextTarget     int64   `json:"next_target"`
	Percent        int     `json:"percent"`
	Remaining      int64   `json:"remaining"`
	NextDuration   float64 `json:"next_duration"`
	NextMultiplier float64 `json:"next_multiplier"`
}

// BotConfig is the whole-document settings blob. Save always replaces the
// full document.
type BotConfig struct {
	ID         string          `bson:"_id" json:"id"`
	Milestones MilestoneConfig `bson:"milestones" json:"milestones"`
	UpdatedAt  int64           `bson:"updated_at" json:"updated_at"`
}
