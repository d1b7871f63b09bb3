package spam

import (
	"fmt"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/structures"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const charRunLimit = 10

type entry struct {
	at   time.Time
	text string
}

// IgnoredUser reports one currently ignored sender and the time left on the
// ignore.
type IgnoredUser struct {
	UserID    string        `json:"user_id"`
	Remaining time.Duration `json:"remaining"`
}

// Detector is the stateful spam classifier. All state is in-memory and
// intentionally not persisted: a restart clears spam history. Memory is
// bounded by time-based pruning of the sliding windows, never by a hard cap.
//
// One mutex guards every append-then-check-then-mark sequence, so
// interleaved classifications for the same user stay atomic.
type Detector struct {
	mu      sync.Mutex
	enabled atomic.Bool
	cfg     structures.SpamConfig

	userHistory   map[string][]entry
	mediaHistory  map[string][]time.Time
	globalHistory []time.Time
	ignored       map[string]time.Time

	logger providers.Logger
}

func NewDetector(conf *structures.Config, logger providers.Logger) *Detector {
	d := &Detector{
		cfg:          conf.Spam,
		userHistory:  make(map[string][]entry),
		mediaHistory: make(map[string][]time.Time),
		ignored:      make(map[string]time.Time),
		logger:       logger,
	}
	d.enabled.Store(conf.Spam.Enabled)
	return d
}

// Toggle flips the whole classifier on or off.
func (d *Detector) Toggle(enabled bool) {
	d.enabled.Store(enabled)
}

// SetCheckState toggles a single check type. Returns false for an unknown
// kind.
func (d *Detector) SetCheckState(kind models.SpamKind, state bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch kind {
	case models.SpamBurst:
		d.cfg.Checks.Burst = state
	case models.SpamGlobalFlood:
		d.cfg.Checks.Flood = state
	case models.SpamDuplicate:
		d.cfg.Checks.Duplicate = state
	case models.SpamLowQuality:
		d.cfg.Checks.LowQuality = state
	case models.SpamStickers:
		d.cfg.Checks.Stickers = state
	default:
		return false
	}
	return true
}

// UpdateConfig hot-swaps every threshold. Existing windows are kept; the
// next classification prunes them against the new limits.
func (d *Detector) UpdateConfig(cfg structures.SpamConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.enabled.Store(cfg.Enabled)
}

// Classify runs the fixed, short-circuiting check order and returns the
// decision for one inbound message. A global_flood decision sets no
// per-user ignore; the caller imposes the system-wide pause.
func (d *Detector) Classify(userID, text string, isMedia, isWhitelisted bool, now time.Time) models.Decision {
	if !d.enabled.Load() || isWhitelisted {
		return models.Allow()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if until, ok := d.ignored[userID]; ok {
		if now.Before(until) {
			return models.Ignored()
		}
		delete(d.ignored, userID)
	}

	if d.cfg.Checks.Flood {
		d.globalHistory = append(d.globalHistory, now)
		d.globalHistory = pruneTimes(d.globalHistory, now.Add(-d.cfg.GlobalFloodWindow))
		if len(d.globalHistory) > d.cfg.GlobalFloodLimit {
			return models.Spam(models.SpamGlobalFlood,
				fmt.Sprintf("%d msgs in %ds", len(d.globalHistory), int(d.cfg.GlobalFloodWindow.Seconds())))
		}
	}

	if isMedia && d.cfg.Checks.Stickers {
		hist := append(d.mediaHistory[userID], now)
		hist = pruneTimes(hist, now.Add(-d.cfg.MediaWindow))
		d.mediaHistory[userID] = hist
		if len(hist) > d.cfg.MediaLimit {
			d.ignored[userID] = now.Add(d.cfg.IgnoreDuration)
			return models.Spam(models.SpamStickers,
				fmt.Sprintf("%d stickers in %ds", len(hist), int(d.cfg.MediaWindow.Seconds())))
		}
	}

	// History is pruned before every evaluation regardless of which checks
	// are enabled, so a disabled burst check cannot leak memory.
	history := pruneEntries(d.userHistory[userID], now.Add(-d.cfg.BurstWindow))
	d.userHistory[userID] = history

	// The current message counts toward the burst: the burstLimit-th
	// message inside the window is the one classified.
	if d.cfg.Checks.Burst && len(history)+1 >= d.cfg.BurstLimit {
		d.ignored[userID] = now.Add(d.cfg.IgnoreDuration)
		span := 0
		if len(history) > 0 {
			span = int(now.Sub(history[0].at).Seconds())
		}
		return models.Spam(models.SpamBurst, fmt.Sprintf("%d msgs in %ds", len(history)+1, span))
	}

	if !isMedia && text != "" {
		if d.cfg.Checks.Duplicate {
			duplicates := 0
			for _, old := range history {
				if old.text == text || Ratio(text, old.text) >= d.cfg.DuplicateThreshold {
					duplicates++
				}
			}
			// 2 previous similar messages + current = 3 total.
			if duplicates >= 2 {
				d.ignored[userID] = now.Add(d.cfg.IgnoreDuration)
				return models.Spam(models.SpamDuplicate, fmt.Sprintf("%d similar messages", duplicates+1))
			}
		}

		if d.cfg.Checks.LowQuality {
			if hasCharRun(text, charRunLimit) {
				d.ignored[userID] = now.Add(d.cfg.IgnoreDuration)
				return models.Spam(models.SpamLowQuality, "repeated characters")
			}
			if len([]rune(text)) > 5 && countWordChars(text) < 2 {
				d.ignored[userID] = now.Add(d.cfg.IgnoreDuration)
				return models.Spam(models.SpamLowQuality, "symbol/emoji spam")
			}
		}
	}

	d.userHistory[userID] = append(history, entry{at: now, text: text})
	return models.Allow()
}

// IsIgnored lazily evicts an expired ignore entry on access; there is no
// background sweep.
func (d *Detector) IsIgnored(userID string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.ignored[userID]
	if !ok {
		return false
	}
	if now.Before(until) {
		return true
	}
	delete(d.ignored, userID)
	return false
}

// IgnoredUsers lists senders still under an active ignore.
func (d *Detector) IgnoredUsers(now time.Time) []IgnoredUser {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]IgnoredUser, 0, len(d.ignored))
	for uid, until := range d.ignored {
		if until.After(now) {
			out = append(out, IgnoredUser{UserID: uid, Remaining: until.Sub(now)})
		}
	}
	return out
}

// ResetUser drops all per-user state: history, media window and ignore.
func (d *Detector) ResetUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.userHistory, userID)
	delete(d.mediaHistory, userID)
	delete(d.ignored, userID)
}

// ResetGlobal clears only the global flood window.
func (d *Detector) ResetGlobal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globalHistory = nil
}

func pruneTimes(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0], times[i:]...)
}

func pruneEntries(entries []entry, cutoff time.Time) []entry {
	i := 0
	for i < len(entries) && entries[i].at.Before(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append(entries[:0], entries[i:]...)
}
