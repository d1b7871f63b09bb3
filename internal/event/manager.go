package event

import (
	"context"
	"math/rand/v2"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/structures"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const (
	ModeRandom = "random"
	ModeFixed  = "fixed"
)

// Store is the slice of the authoritative store the interval machine needs.
// Both documents are small and always read/written directly, never cached.
type Store interface {
	GetEventSettings(ctx context.Context) (*models.EventSettings, error)
	SaveEventSettings(ctx context.Context, s *models.EventSettings) error
	GetEventState(ctx context.Context) (*models.EventState, error)
	SaveEventState(ctx context.Context, s *models.EventState) error
}

// Manager is the reward-interval state machine: it counts qualifying
// messages against a random or fixed target and reports when the target is
// crossed. Progress is persisted every saveEvery-th message and always on a
// trigger; persistence failures are logged, never raised.
type Manager struct {
	mu     sync.Mutex
	store  Store
	logger providers.Logger

	mode      string
	minTarget int
	maxTarget int
	target    int
	current   int
	active    bool
	loop      bool
	saveEvery int

	pausedUntil atomic.Int64 // unix seconds, 0 when not paused
}

func NewManager(conf *structures.Config, store Store, logger providers.Logger) *Manager {
	return &Manager{
		store:     store,
		logger:    logger,
		mode:      ModeRandom,
		minTarget: conf.Event.MinTarget,
		maxTarget: conf.Event.MaxTarget,
		active:    true,
		loop:      conf.Event.Loop,
		saveEvery: conf.Event.SaveEvery,
	}
}

// Reload restores settings and runtime state from the store. A missing
// target is regenerated so the machine is always armed after a restart.
func (m *Manager) Reload(ctx context.Context) error {
	settings, err := m.store.GetEventSettings(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if settings != nil {
		m.mode = settings.Mode
		m.minTarget = settings.Min
		m.maxTarget = settings.Max
		m.loop = settings.Loop
		m.active = settings.Active
	}

	state, err := m.store.GetEventState(ctx)
	if err != nil {
		return err
	}
	if state != nil {
		m.current = state.CurrentCount
		m.target = state.TargetCount
	}

	if m.target == 0 {
		if m.mode == ModeRandom {
			m.target = m.randomTarget()
		} else {
			m.target = m.minTarget
		}
	}
	return nil
}

// Start arms the machine in random mode with a fresh target drawn from
// [min, max].
func (m *Manager) Start(ctx context.Context, min, max int, loop bool) {
	m.mu.Lock()
	m.active = true
	m.mode = ModeRandom
	m.loop = loop
	m.minTarget = min
	m.maxTarget = max
	m.target = m.randomTarget()
	m.current = 0
	m.mu.Unlock()

	m.saveSettings(ctx)
	m.saveState(ctx)
}

// SetFixed arms the machine with a deterministic target for
// admin-controlled cadence.
func (m *Manager) SetFixed(ctx context.Context, count int, loop bool) {
	m.mu.Lock()
	m.active = true
	m.mode = ModeFixed
	m.loop = loop
	m.target = count
	m.current = 0
	m.mu.Unlock()

	m.saveSettings(ctx)
	m.saveState(ctx)
}

func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	m.active = false
	m.loop = false
	m.mu.Unlock()

	m.saveSettings(ctx)
}

// Pause suspends message processing without touching the active flag. Used
// for the system-wide pause after a global flood.
func (m *Manager) Pause(d time.Duration) {
	m.pausedUntil.Store(time.Now().Add(d).Unix())
}

func (m *Manager) Unpause() {
	m.pausedUntil.Store(0)
}

func (m *Manager) IsPaused(now time.Time) bool {
	return now.Unix() < m.pausedUntil.Load()
}

// OnMessage advances the counter by one qualifying message and reports
// whether the target was crossed. When not active or paused, nothing is
// mutated. On a trigger the counter resets to zero; a non-looping machine
// deactivates, a looping random machine draws a new target so the cadence
// stays unpredictable.
func (m *Manager) OnMessage(ctx context.Context, now time.Time) bool {
	if m.IsPaused(now) {
		return false
	}

	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return false
	}

	m.current++
	periodic := m.current%m.saveEvery == 0
	triggered := m.current >= m.target
	var deactivated bool
	if triggered {
		m.current = 0
		if !m.loop {
			m.active = false
			deactivated = true
		} else if m.mode == ModeRandom {
			m.target = m.randomTarget()
		}
	}
	m.mu.Unlock()

	if triggered {
		if deactivated {
			m.saveSettings(ctx)
		}
		m.saveState(ctx)
	} else if periodic {
		m.saveState(ctx)
	}
	return triggered
}

// Rewind sets the counter to target-1 so the next qualifying message
// re-fires immediately. Invoked by the caller when a triggered winner turns
// out ineligible. If the same sender keeps winning and keeps being
// ineligible this can starve the reward; that is the documented behavior.
func (m *Manager) Rewind() {
	m.mu.Lock()
	m.current = m.target - 1
	m.mu.Unlock()
}

// Remaining returns messages left until the next trigger, or -1 when
// inactive.
func (m *Manager) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return -1
	}
	return max(0, m.target-m.current)
}

func (m *Manager) Snapshot() models.EventSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.EventSnapshot{
		Mode:        m.mode,
		Active:      m.active,
		Loop:        m.loop,
		Current:     m.current,
		Target:      m.target,
		Remaining:   max(0, m.target-m.current),
		PausedUntil: m.pausedUntil.Load(),
	}
}

func (m *Manager) randomTarget() int {
	if m.maxTarget <= m.minTarget {
		return m.minTarget
	}
	return m.minTarget + rand.IntN(m.maxTarget-m.minTarget+1)
}

func (m *Manager) saveSettings(ctx context.Context) {
	m.mu.Lock()
	settings := &models.EventSettings{
		Mode:   m.mode,
		Min:    m.minTarget,
		Max:    m.maxTarget,
		Loop:   m.loop,
		Active: m.active,
	}
	m.mu.Unlock()

	if err := m.store.SaveEventSettings(ctx, settings); err != nil {
		m.logger.Errorf(providers.TypeStore, "event settings save failed: %s", err)
	}
}

func (m *Manager) saveState(ctx context.Context) {
	m.mu.Lock()
	state := &models.EventState{CurrentCount: m.current, TargetCount: m.target}
	m.mu.Unlock()

	if err := m.store.SaveEventState(ctx, state); err != nil {
		m.logger.Errorf(providers.TypeStore, "event state save failed: %s", err)
	}
}
