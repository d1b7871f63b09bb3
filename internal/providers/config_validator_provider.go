package providers

import (
	"fmt"
	"rad/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate runs tag validation plus the cross-field rules the tags cannot
// express. Config is validated once here; use sites assume a sane config.
func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}

	s := cv.conf.Spam
	if s.DuplicateThreshold < 0 || s.DuplicateThreshold > 1 {
		return fmt.Errorf("spam.duplicateThreshold must be in [0,1], got %v", s.DuplicateThreshold)
	}
	if s.BurstLimit < 1 || s.GlobalFloodLimit < 1 || s.MediaLimit < 1 {
		return fmt.Errorf("spam limits must be >= 1")
	}

	e := cv.conf.Event
	if e.MinTarget < 1 || e.MaxTarget < e.MinTarget {
		return fmt.Errorf("event target range invalid: min=%d max=%d", e.MinTarget, e.MaxTarget)
	}
	if e.SaveEvery < 1 {
		return fmt.Errorf("event.saveEvery must be >= 1")
	}

	r := cv.conf.Reward
	if r.Base.Mode == "random" && (r.Base.Min < 1 || r.Base.Max < r.Base.Min) {
		return fmt.Errorf("reward.base range invalid: min=%d max=%d", r.Base.Min, r.Base.Max)
	}
	if r.Base.Mode == "fixed" && r.Base.Amount < 1 {
		return fmt.Errorf("reward.base.amount must be >= 1 in fixed mode")
	}
	if r.Jackpot.Enabled {
		if r.Jackpot.Amount < 1 {
			return fmt.Errorf("reward.jackpot.amount must be >= 1 when enabled")
		}
		if r.Jackpot.Chance < 0 || r.Jackpot.Chance > 100 {
			return fmt.Errorf("reward.jackpot.chance must be in [0,100], got %v", r.Jackpot.Chance)
		}
	}

	if cv.conf.Queue.FlushInterval <= 0 {
		return fmt.Errorf("queue.flushInterval must be positive")
	}

	return nil
}
