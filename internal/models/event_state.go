package models

// EventSettings is the persisted reward-interval configuration. It lives in
// the rewards collection and changes only via admin operations.
type EventSettings struct {
	Mode   string `bson:"mode" json:"mode"` // "random" or "fixed"
	Min    int    `bson:"min" json:"min"`
	Max    int    `bson:"max" json:"max"`
	Loop   bool   `bson:"loop" json:"loop"`
	Active bool   `bson:"active" json:"active"`
}

// EventState is the persisted runtime progress of the interval machine. It
// is always read and written directly, never cached.
type EventState struct {
	CurrentCount int `bson:"current_count" json:"current_count"`
	TargetCount  int `bson:"target_count" json:"target_count"`
}

// EventSnapshot is the read-only view exposed on the status surface.
type EventSnapshot struct {
	Mode        string `json:"mode"`
	Active      bool   `json:"active"`
	Loop        bool   `json:"loop"`
	Current     int    `json:"current"`
	Target      int    `json:"target"`
	Remaining   int    `json:"remaining"`
	PausedUntil int64  `json:"paused_until,omitempty"`
}
