// Package lifecycle guarantees the session-summary side effect fires exactly
// once per conversation, whichever of three racing triggers lands first:
// idle timeout, process teardown, or controller teardown.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"guardian/internal/domain"
)

const (
	// DefaultIdleWindow is how long a session may sit without a completed
	// turn before the idle trigger fires.
	DefaultIdleWindow = 10 * time.Minute

	// minTurns is the smallest session worth summarizing.
	minTurns = 2

	summarizeTimeout = 30 * time.Second
)

// Trigger names the path that claimed the summary side effect.
type Trigger string

const (
	TriggerIdle     Trigger = "idle"
	TriggerTeardown Trigger = "teardown"
	TriggerClose    Trigger = "close"
)

// Manager owns the shared summaryFired flag, the idle timer handle, and the
// three trigger paths. All paths check-and-set the one flag under the same
// mutex; none of them holds a stale private copy.
type Manager struct {
	mu      sync.Mutex
	fired   bool
	stopped bool
	timer   *time.Timer

	idleWindow     time.Duration
	conversationID func() string
	turnCount      func() int
	summarizer     domain.Summarizer
	beacon         domain.BeaconSender
	logger         *slog.Logger

	// OnTrigger, when set, observes every claimed trigger. Informational
	// only; it runs after the flag is set, outside the Manager's lock, so
	// handlers may call back into the Manager.
	OnTrigger func(Trigger)
}

type Config struct {
	IdleWindow     time.Duration
	ConversationID func() string
	TurnCount      func() int
	Summarizer     domain.Summarizer
	Beacon         domain.BeaconSender
	Logger         *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = DefaultIdleWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		idleWindow:     cfg.IdleWindow,
		conversationID: cfg.ConversationID,
		turnCount:      cfg.TurnCount,
		summarizer:     cfg.Summarizer,
		beacon:         cfg.Beacon,
		logger:         cfg.Logger,
	}
}

// Activity resets the single-shot idle timer. Called after every completed
// exchange, not per keystroke.
func (m *Manager) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.idleWindow, m.idleExpired)
}

// claim atomically checks the preconditions and sets the fired flag. Exactly
// one trigger path can win.
func (m *Manager) claim(tr Trigger) (string, bool) {
	m.mu.Lock()

	if m.fired {
		m.mu.Unlock()
		return "", false
	}
	conv := m.conversationID()
	if conv == "" || m.turnCount() < minTurns {
		m.mu.Unlock()
		return "", false
	}
	m.fired = true
	cb := m.OnTrigger
	m.mu.Unlock()

	// The callback runs after the flag is visible and outside the mutex, so
	// a handler is free to call back into the Manager.
	m.logger.Info("session summary claimed", "trigger", tr, "conversation", conv)
	if cb != nil {
		cb(tr)
	}
	return conv, true
}

// release reopens the flag after an observable delivery failure so a later
// trigger gets another chance. Only the idle path, which awaits its call,
// ever releases.
func (m *Manager) release() {
	m.mu.Lock()
	m.fired = false
	m.mu.Unlock()
}

// idleExpired is the idle-timeout trigger. It awaits the summary call and is
// the only path that can observe failure, so it retries by releasing the
// flag.
func (m *Manager) idleExpired() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	conv, ok := m.claim(TriggerIdle)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
	defer cancel()
	if err := m.summarizer.Summarize(ctx, conv); err != nil {
		m.logger.Warn("summary trigger failed, will allow retry", "error", err)
		m.release()
		return
	}
	m.logger.Info("session summary triggered", "trigger", TriggerIdle, "conversation", conv)
}

// Teardown is the process-teardown trigger. The side effect is dispatched
// fire-and-forget through the beacon sender, which guarantees delivery is
// attempted even while the process exits. Failure is unobservable: no retry,
// no release.
func (m *Manager) Teardown() {
	conv, ok := m.claim(TriggerTeardown)
	if !ok {
		return
	}
	m.beacon.SendBeacon(conv)
}

// Close is the controller-teardown trigger: the session is being discarded
// for an in-app reason while the process lives on. Best effort in the
// background; teardown is never blocked and the outcome is ignored.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	conv, ok := m.claim(TriggerClose)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
		defer cancel()
		if err := m.summarizer.Summarize(ctx, conv); err != nil {
			m.logger.Warn("close-path summary not delivered", "error", err)
		}
	}()
}

// SummaryFired reports whether the side effect has been claimed.
func (m *Manager) SummaryFired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}
