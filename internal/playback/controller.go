// Package playback guarantees at most one sound source plays at a time.
// Switching targets silences the previous source before the next one starts;
// re-invoking playback for the active message is a stop request.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"guardian/internal/domain"
	"guardian/internal/metrics"
)

// Phase is the controller's playback state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhasePlaying Phase = "playing"
)

// Controller fetches synthesized speech for a finalized assistant message
// and plays it. It never touches the transcript.
type Controller struct {
	mu          sync.Mutex
	phase       Phase
	activeID    string
	generation  uint64
	cancelFetch context.CancelFunc
	current     domain.Playback

	synth  domain.Synthesizer
	output domain.AudioOutput
	logger *slog.Logger
}

type Config struct {
	Synthesizer domain.Synthesizer
	Output      domain.AudioOutput
	Logger      *slog.Logger
}

func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		phase:  PhaseIdle,
		synth:  cfg.Synthesizer,
		output: cfg.Output,
		logger: cfg.Logger,
	}
}

// Toggle starts playback for the message, or stops it when the message is
// already loading or playing. Starting a new message first fully tears down
// the previous source: no overlapping audible frames.
func (c *Controller) Toggle(ctx context.Context, messageID, text, voiceProfile string) error {
	c.mu.Lock()

	if c.activeID == messageID && c.phase != PhaseIdle {
		c.teardownLocked()
		c.mu.Unlock()
		return nil
	}

	// Preempt whatever was loading or playing before fetching fresh.
	c.teardownLocked()
	c.generation++
	gen := c.generation
	c.phase = PhaseLoading
	c.activeID = messageID

	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancelFetch = cancel
	c.mu.Unlock()

	clip, err := c.synth.Synthesize(fetchCtx, text, voiceProfile)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		// Preempted while fetching; the newer invocation owns the state.
		return nil
	}
	c.cancelFetch = nil

	if err != nil {
		c.phase = PhaseIdle
		c.activeID = ""
		return fmt.Errorf("fetch speech for %s: %w", messageID, err)
	}

	pb, err := c.output.Play(clip, func() { c.playbackEnded(gen) })
	if err != nil {
		c.phase = PhaseIdle
		c.activeID = ""
		return fmt.Errorf("%w: %v", domain.ErrPlaybackUnavailable, err)
	}

	c.current = pb
	c.phase = PhasePlaying
	metrics.PlaybacksTotal.Inc()
	c.logger.Debug("playback started", "message", messageID)
	return nil
}

// Stop silences any active source and returns to idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// playbackEnded handles natural end-of-audio for the given generation.
func (c *Controller) playbackEnded(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return
	}
	c.current = nil
	c.phase = PhaseIdle
	c.activeID = ""
}

// teardownLocked cancels an in-flight fetch and synchronously stops the
// active source, releasing its transient resources. Caller holds the mutex.
// The generation bump invalidates a fetch whose response still lands after
// the cancellation; without it a slow synthesis could restart playback the
// user already stopped.
func (c *Controller) teardownLocked() {
	c.generation++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
	c.phase = PhaseIdle
	c.activeID = ""
}

// Phase returns the current playback phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ActiveMessageID returns the message being loaded or played, empty when
// idle.
func (c *Controller) ActiveMessageID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}
