package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type MongoConfig struct {
	Uri         string        `yaml:"uri" validate:"required"`
	Database    string        `yaml:"database" validate:"required"`
	MaxPoolSize int           `yaml:"maxPoolSize"`
	MaxRetry    int           `yaml:"maxRetry"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SpamChecks toggles each detection type independently.
type SpamChecks struct {
	Burst      bool `yaml:"burst"`
	Flood      bool `yaml:"flood"`
	Duplicate  bool `yaml:"duplicate"`
	LowQuality bool `yaml:"lowquality"`
	Stickers   bool `yaml:"stickers"`
}

type SpamConfig struct {
	Enabled            bool          `yaml:"enabled"`
	IgnoreDuration     time.Duration `yaml:"ignoreDuration"`
	BurstLimit         int           `yaml:"burstLimit"`
	BurstWindow        time.Duration `yaml:"burstWindow"`
	GlobalFloodLimit   int           `yaml:"globalFloodLimit"`
	GlobalFloodWindow  time.Duration `yaml:"globalFloodWindow"`
	GlobalFloodPause   time.Duration `yaml:"globalFloodPause"`
	DuplicateThreshold float64       `yaml:"duplicateThreshold"`
	MediaLimit         int           `yaml:"mediaLimit"`
	MediaWindow        time.Duration `yaml:"mediaWindow"`
	CommandCooldown    time.Duration `yaml:"commandCooldown"`
	Checks             SpamChecks    `yaml:"checks"`
}

type EventConfig struct {
	MinTarget int  `yaml:"minTarget"`
	MaxTarget int  `yaml:"maxTarget"`
	Loop      bool `yaml:"loop"`
	SaveEvery int  `yaml:"saveEvery"`
}

// RewardTier grades users by their daily message count. Ranges are
// validated lazily at grading time: a malformed entry falls back to the
// neutral multiplier instead of failing config load.
type RewardTier struct {
	Name       string  `yaml:"name"`
	Min        int64   `yaml:"min"`
	Max        int64   `yaml:"max"`
	Multiplier float64 `yaml:"multiplier"`
}

type RewardBase struct {
	Mode   string `yaml:"mode" validate:"in:random,fixed"` // random draws [min,max]; fixed always pays amount
	Min    int64  `yaml:"min"`
	Max    int64  `yaml:"max"`
	Amount int64  `yaml:"amount"`
}

type JackpotConfig struct {
	Enabled bool    `yaml:"enabled"`
	Chance  float64 `yaml:"chance"` // percent; overridden by an active milestone window
	Amount  int64   `yaml:"amount"`
}

type RewardConfig struct {
	Base         RewardBase    `yaml:"base"`
	Jackpot      JackpotConfig `yaml:"jackpot"`
	TiersEnabled bool          `yaml:"tiersEnabled"`
	Tiers        []RewardTier  `yaml:"tiers"`
}

type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Size           int           `yaml:"size"` // MB
	UserTTL        time.Duration `yaml:"userTTL"`
	ConfigTTL      time.Duration `yaml:"configTTL"`
	StatsTTL       time.Duration `yaml:"statsTTL"`
	EligibilityTTL time.Duration `yaml:"eligibilityTTL"`
	TopTTL         time.Duration `yaml:"topTTL"`
}

type QueueConfig struct {
	FlushInterval time.Duration `yaml:"flushInterval"`
}

type ArchiveConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	TTL      time.Duration `yaml:"ttl"`
	TopLimit int           `yaml:"topLimit"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server        `yaml:"webServer"`
	Logger    LoggerConfig  `yaml:"logger"`
	Mongo     MongoConfig   `yaml:"mongo"`
	Spam      SpamConfig    `yaml:"spam"`
	Event     EventConfig   `yaml:"event"`
	Reward    RewardConfig  `yaml:"reward"`
	Cache     CacheConfig   `yaml:"cache"`
	Queue     QueueConfig   `yaml:"queue"`
	Archive   ArchiveConfig `yaml:"archive"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// ApplyDefaults fills unset tunables once at load time, so use sites never
// carry their own fallbacks.
func (c *Config) ApplyDefaults() {
	if c.Spam.IgnoreDuration == 0 {
		c.Spam.IgnoreDuration = 30 * time.Minute
	}
	if c.Spam.BurstLimit == 0 {
		c.Spam.BurstLimit = 5
	}
	if c.Spam.BurstWindow == 0 {
		c.Spam.BurstWindow = 10 * time.Second
	}
	if c.Spam.GlobalFloodLimit == 0 {
		c.Spam.GlobalFloodLimit = 20
	}
	if c.Spam.GlobalFloodWindow == 0 {
		c.Spam.GlobalFloodWindow = 3 * time.Second
	}
	if c.Spam.GlobalFloodPause == 0 {
		c.Spam.GlobalFloodPause = 60 * time.Second
	}
	if c.Spam.DuplicateThreshold == 0 {
		c.Spam.DuplicateThreshold = 0.85
	}
	if c.Spam.MediaLimit == 0 {
		c.Spam.MediaLimit = 3
	}
	if c.Spam.MediaWindow == 0 {
		c.Spam.MediaWindow = 5 * time.Second
	}
	if c.Spam.CommandCooldown == 0 {
		c.Spam.CommandCooldown = 2 * time.Second
	}
	if c.Event.MinTarget == 0 {
		c.Event.MinTarget = 100
	}
	if c.Event.MaxTarget == 0 {
		c.Event.MaxTarget = 250
	}
	if c.Event.SaveEvery == 0 {
		c.Event.SaveEvery = 10
	}
	if c.Reward.Base.Mode == "" {
		c.Reward.Base.Mode = "random"
	}
	if c.Reward.Base.Min == 0 {
		c.Reward.Base.Min = 5
	}
	if c.Reward.Base.Max == 0 {
		c.Reward.Base.Max = 10
	}
	if c.Reward.Base.Amount == 0 {
		c.Reward.Base.Amount = 5
	}
	if c.Cache.UserTTL == 0 {
		c.Cache.UserTTL = 2 * time.Minute
	}
	if c.Cache.ConfigTTL == 0 {
		c.Cache.ConfigTTL = 5 * time.Minute
	}
	if c.Cache.StatsTTL == 0 {
		c.Cache.StatsTTL = 30 * time.Second
	}
	if c.Cache.EligibilityTTL == 0 {
		c.Cache.EligibilityTTL = 10 * time.Second
	}
	if c.Cache.TopTTL == 0 {
		c.Cache.TopTTL = time.Minute
	}
	if c.Queue.FlushInterval == 0 {
		c.Queue.FlushInterval = 5 * time.Second
	}
	if c.Archive.Interval == 0 {
		c.Archive.Interval = time.Hour
	}
	if c.Archive.TopLimit == 0 {
		c.Archive.TopLimit = 25
	}
	if c.Mongo.MaxPoolSize == 0 {
		c.Mongo.MaxPoolSize = 20
	}
	if c.Mongo.MaxRetry == 0 {
		c.Mongo.MaxRetry = 3
	}
	if c.Mongo.Timeout == 0 {
		c.Mongo.Timeout = 2 * time.Second
	}
}
