// Package session coordinates one live dialogue session: optimistic turn
// submission, incremental response delivery, closure detection, idle-driven
// summarization, and teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"guardian/internal/bus"
	"guardian/internal/closure"
	"guardian/internal/domain"
	"guardian/internal/lifecycle"
	"guardian/internal/metrics"
	"guardian/internal/transcript"
)

// Archiver saves a finished session locally. Best effort; archiving never
// blocks or fails teardown.
type Archiver interface {
	Archive(ctx context.Context, conversationID, title string, msgs []domain.Message, summaryFired bool) error
}

// Controller owns the shared per-session state: the conversation handle, the
// open stream session, and (through the lifecycle manager) the summary flag
// and idle timer. All of it is mutated only by the controller's own calls.
type Controller struct {
	mu        sync.Mutex
	conv      domain.ConversationHandle
	streaming bool
	title     string
	closed    sync.Once

	transcript *transcript.Accumulator
	gate       *closure.Gate
	life       *lifecycle.Manager

	streamer      domain.Streamer
	conversations domain.ConversationCreator
	archiver      Archiver
	events        *bus.EventBus
	logger        *slog.Logger
}

type Config struct {
	Streamer      domain.Streamer
	Conversations domain.ConversationCreator
	Summarizer    domain.Summarizer
	Beacon        domain.BeaconSender
	Archiver      Archiver // optional
	Events        *bus.EventBus
	IdleWindow    time.Duration
	Logger        *slog.Logger
}

func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Events == nil {
		cfg.Events = bus.NewEventBus(cfg.Logger)
	}

	c := &Controller{
		transcript:    transcript.NewAccumulator(),
		gate:          closure.NewGate(),
		streamer:      cfg.Streamer,
		conversations: cfg.Conversations,
		archiver:      cfg.Archiver,
		events:        cfg.Events,
		logger:        cfg.Logger,
	}
	c.life = lifecycle.NewManager(lifecycle.Config{
		IdleWindow:     cfg.IdleWindow,
		ConversationID: c.ConversationID,
		TurnCount:      c.transcript.Len,
		Summarizer:     cfg.Summarizer,
		Beacon:         cfg.Beacon,
		Logger:         cfg.Logger,
	})
	c.life.OnTrigger = func(tr lifecycle.Trigger) {
		metrics.SummariesFired.Inc()
		c.events.Emit(bus.Event{
			Type:    bus.EventSummaryFired,
			Source:  "lifecycle",
			Payload: map[string]any{"trigger": string(tr)},
		})
	}
	return c
}

// Send submits one user turn and applies the streamed response. It blocks
// until the stream session is destroyed. A submission while a previous
// stream is still open is rejected with ErrStreamBusy: partial assistant
// output is user-visible state and is never silently discarded.
func (c *Controller) Send(ctx context.Context, text string, voiceOrigin bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty message")
	}

	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		metrics.TurnsRejected.Inc()
		return domain.ErrStreamBusy
	}
	c.streaming = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.streaming = false
		c.mu.Unlock()
	}()

	userID := c.transcript.AppendUserTurn(text, voiceOrigin)
	c.events.Emit(bus.Event{
		Type:    bus.EventTurnSubmitted,
		Source:  "session",
		Payload: map[string]any{"message_id": userID, "voice": voiceOrigin},
	})

	conv, err := c.ensureConversation(ctx, text)
	if err != nil {
		c.transcript.RollbackTurn(userID)
		return fmt.Errorf("create conversation: %w", err)
	}

	assistantID := c.transcript.BeginAssistantTurn()
	metrics.TurnsTotal.Inc()
	start := time.Now()

	out := make(chan domain.StreamEvent, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.streamer.StreamTurn(ctx, domain.TurnRequest{
			ConversationID: conv,
			Message:        text,
			VoiceOrigin:    voiceOrigin,
		}, out)
	}()

	var sawEvent, terminal bool
	var streamErr error
	for evt := range out {
		sawEvent = true
		switch evt.Type {
		case domain.StreamChunk:
			if err := c.transcript.ApplyChunk(assistantID, evt.Content); err != nil {
				c.logger.Warn("chunk not applied", "error", err)
				continue
			}
			c.events.Emit(bus.Event{
				Type:    bus.EventStreamChunk,
				Source:  "session",
				Payload: map[string]any{"message_id": assistantID, "content": evt.Content},
			})

		case domain.StreamDone:
			terminal = true
			final := evt.Content
			if final == "" {
				// Servers may omit the echo; fall back to the concatenation.
				final = c.transcript.Text(assistantID)
			}
			cleaned, notice := c.gate.Inspect(final)
			c.transcript.Finalize(assistantID, cleaned)
			c.events.Emit(bus.Event{
				Type:    bus.EventStreamDone,
				Source:  "session",
				Payload: map[string]any{"message_id": assistantID, "text": cleaned},
			})
			if notice {
				c.events.Emit(bus.Event{
					Type:   bus.EventClosureNotice,
					Source: "session",
				})
			}

		case domain.StreamError:
			terminal = true
			streamErr = domain.ErrStreamFailed
			c.settleInterrupted(assistantID)
		}
	}
	err = <-errCh

	if !terminal {
		if !sawEvent && err != nil {
			// The request failed outright: no stream was ever opened, so
			// neither optimistic turn survives.
			c.transcript.RollbackTurn(assistantID)
			c.transcript.RollbackTurn(userID)
			return fmt.Errorf("send turn: %w", err)
		}
		// Stream opened but ended without a terminal event.
		if err == nil {
			err = domain.ErrNoTerminalEvent
		}
		streamErr = err
		c.settleInterrupted(assistantID)
	}

	metrics.StreamLatency.Observe(time.Since(start).Seconds())
	c.life.Activity()
	return streamErr
}

// settleInterrupted keeps whatever partial text the interrupted assistant
// turn accumulated; an empty placeholder is removed instead of left dangling.
func (c *Controller) settleInterrupted(assistantID string) {
	metrics.StreamFailures.Inc()
	partial := c.transcript.Text(assistantID)
	if partial != "" {
		c.transcript.Finalize(assistantID, partial)
	} else {
		c.transcript.RollbackTurn(assistantID)
	}
	c.events.Emit(bus.Event{
		Type:    bus.EventStreamFailed,
		Source:  "session",
		Payload: map[string]any{"message_id": assistantID, "partial": partial != ""},
	})
}

// ensureConversation lazily creates the server-side conversation on the
// first turn and caches the immutable handle.
func (c *Controller) ensureConversation(ctx context.Context, firstMessage string) (string, error) {
	c.mu.Lock()
	if c.conv.Assigned() {
		id := c.conv.ID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	title := deriveTitle(firstMessage)
	id, err := c.conversations.CreateConversation(ctx, title)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.conv.Assigned() {
		c.conv = domain.ConversationHandle{ID: id}
		c.title = title
	}
	return c.conv.ID, nil
}

// ConversationID returns the assigned conversation, empty before the first
// completed submission.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.ID
}

// Messages returns the transcript in order.
func (c *Controller) Messages() []domain.Message {
	return c.transcript.Messages()
}

// MessageText returns the current text of one message.
func (c *Controller) MessageText(id string) string {
	return c.transcript.Text(id)
}

// ClosureShown reports whether the closure notice fired this session.
func (c *Controller) ClosureShown() bool {
	return c.gate.Shown()
}

// SummaryFired reports whether the summary side effect has been claimed.
func (c *Controller) SummaryFired() bool {
	return c.life.SummaryFired()
}

// Teardown is the process-teardown path: dispatch the summary beacon and
// archive, without waiting on anything that can stall exit.
func (c *Controller) Teardown() {
	c.life.Teardown()
	c.archive()
}

// Close is the in-app teardown path (e.g. switching conversations): stop
// the idle timer, trigger the best-effort summary, archive the session.
func (c *Controller) Close() {
	c.life.Close()
	c.archive()
}

func (c *Controller) archive() {
	c.closed.Do(func() {
		if c.archiver == nil {
			return
		}
		msgs := c.transcript.Messages()
		if len(msgs) == 0 {
			return
		}
		c.mu.Lock()
		conv, title := c.conv.ID, c.title
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.archiver.Archive(ctx, conv, title, msgs, c.life.SummaryFired()); err != nil {
			c.logger.Warn("session archive failed", "error", err)
		}
	})
}

// IsStreamBusy reports whether ErrStreamBusy caused the failure.
func IsStreamBusy(err error) bool {
	return errors.Is(err, domain.ErrStreamBusy)
}
