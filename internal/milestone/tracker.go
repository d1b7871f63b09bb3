package milestone

import (
	"rad/internal/models"
	"rad/internal/providers"
	"sort"
	"sync"
	"time"
)

// SaveFunc persists the milestone section back into the settings document.
// The callback owner is responsible for invalidating the config cache.
type SaveFunc func(conf models.MilestoneConfig) error

// Tracker watches an externally observed counter (group member count)
// against configured thresholds and manages the single time-bounded bonus
// window. last_triggered is a monotonic watermark: thresholds at or below
// it never re-fire, so a restart cannot replay history.
type Tracker struct {
	mu     sync.Mutex
	conf   models.MilestoneConfig
	save   SaveFunc
	logger providers.Logger
}

func NewTracker(conf models.MilestoneConfig, save SaveFunc, logger providers.Logger) *Tracker {
	if conf.Events == nil {
		conf.Events = make(map[int64]models.MilestoneReward)
	}
	return &Tracker{conf: conf, save: save, logger: logger}
}

// Reload replaces the threshold configuration. The active window keeps its
// snapshotted values.
func (t *Tracker) Reload(conf models.MilestoneConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if conf.Events == nil {
		conf.Events = make(map[int64]models.MilestoneReward)
	}
	active := t.conf.ActiveEvent
	t.conf = conf
	if active.Active {
		t.conf.ActiveEvent = active
	}
}

// CheckMilestone reports whether count crosses a not-yet-fired threshold.
// While a window is active nothing triggers; windows never stack.
func (t *Tracker) CheckMilestone(count int64) (bool, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conf.ActiveEvent.Active {
		return false, 0
	}

	for _, th := range t.sortedThresholds() {
		if count >= th && th > t.conf.LastTriggered {
			return true, th
		}
	}
	return false, 0
}

// Activate opens the bonus window for threshold, snapshotting multiplier
// and jackpot chance from the current config so later edits cannot change a
// running window. A threshold without config data activates nothing and
// falls back to "no bonus".
func (t *Tracker) Activate(threshold int64, now time.Time) (models.MilestoneReward, bool) {
	t.mu.Lock()

	details, ok := t.conf.Events[threshold]
	if !ok {
		t.mu.Unlock()
		t.logger.Errorf(providers.TypeReward, "milestone %d has no reward config, skipping activation", threshold)
		return models.MilestoneReward{}, false
	}

	t.conf.ActiveEvent = models.ActiveEvent{
		Active:        true,
		EndTime:       now.Unix() + int64(details.DurationHours*3600),
		Milestone:     threshold,
		Multiplier:    details.Multiplier,
		JackpotChance: details.JackpotChance,
	}
	t.conf.LastTriggered = threshold
	t.mu.Unlock()

	t.persist()
	return details, true
}

// CheckExpiry closes the window once its end time has passed and reports
// whether it expired on this call.
func (t *Tracker) CheckExpiry(now time.Time) bool {
	t.mu.Lock()

	active := t.conf.ActiveEvent
	if !active.Active || now.Unix() <= active.EndTime {
		t.mu.Unlock()
		return false
	}

	t.conf.ActiveEvent = models.ActiveEvent{
		Active:        false,
		Multiplier:    1.0,
		JackpotChance: 5,
	}
	t.mu.Unlock()

	t.persist()
	return true
}

// ActiveBonus returns the snapshot reward calculation reads, or the neutral
// default when no window is open.
func (t *Tracker) ActiveBonus() models.BonusState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conf.ActiveEvent.Active {
		return models.BonusState{
			Active:        true,
			Multiplier:    t.conf.ActiveEvent.Multiplier,
			JackpotChance: t.conf.ActiveEvent.JackpotChance,
		}
	}
	return models.BonusState{Active: false, Multiplier: 1.0, JackpotChance: 0}
}

// Progress reports the next unreached threshold. Nil means count has passed
// every configured milestone.
func (t *Tracker) Progress(count int64) *models.MilestoneProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, th := range t.sortedThresholds() {
		if th <= count {
			continue
		}
		details := t.conf.Events[th]
		return &models.MilestoneProgress{
			Current:        count,
			NextTarget:     th,
			Percent:        int(float64(count) / float64(th) * 100),
			Remaining:      th - count,
			NextDuration:   details.DurationHours,
			NextMultiplier: details.Multiplier,
		}
	}
	return nil
}

func (t *Tracker) Snapshot() models.MilestoneConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conf
}

// sortedThresholds must be called under t.mu.
func (t *Tracker) sortedThresholds() []int64 {
	out := make([]int64, 0, len(t.conf.Events))
	for th := range t.conf.Events {
		out = append(out, th)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Tracker) persist() {
	t.mu.Lock()
	conf := t.conf
	t.mu.Unlock()

	if t.save == nil {
		return
	}
	if err := t.save(conf); err != nil {
		t.logger.Errorf(providers.TypeStore, "milestone config save failed: %s", err)
	}
}
