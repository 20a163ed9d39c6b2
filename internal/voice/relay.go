// Package voice records audio, hands the finished clip to the transcription
// endpoint, and feeds the recovered text into the same input path as a typed
// message.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"guardian/internal/domain"
	"guardian/internal/metrics"
)

// maxClipBytes is the transcription service's payload limit. Oversized clips
// are rejected locally before upload.
const maxClipBytes = 25 << 20

// Phase is the relay's recording state. The lifecycle is linear:
// idle → recording → transcribing → idle, branching only on failure.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseRecording    Phase = "recording"
	PhaseTranscribing Phase = "transcribing"
)

// SubmitFunc is the typed-message input path. The relay calls it with the
// recovered text; the controller tags the turn as voice-origin.
type SubmitFunc func(ctx context.Context, text string) error

// Relay is the voice capture state machine.
type Relay struct {
	mu    sync.Mutex
	phase Phase

	device      domain.CaptureDevice
	transcriber domain.Transcriber
	submit      SubmitFunc
	logger      *slog.Logger
}

type Config struct {
	Device      domain.CaptureDevice
	Transcriber domain.Transcriber
	Submit      SubmitFunc
	Logger      *slog.Logger
}

func NewRelay(cfg Config) *Relay {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Relay{
		phase:       PhaseIdle,
		device:      cfg.Device,
		transcriber: cfg.Transcriber,
		submit:      cfg.Submit,
		logger:      cfg.Logger,
	}
}

// StartRecording acquires the capture device and begins recording.
func (r *Relay) StartRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseIdle {
		return fmt.Errorf("cannot start recording while %s", r.phase)
	}
	if err := r.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
	r.phase = PhaseRecording
	metrics.RecordingActive.Set(1)
	r.logger.Info("recording started")
	return nil
}

// StopAndSubmit finalizes the captured clip, transcribes it, and submits the
// recovered text through the typed-message path. On any failure the relay
// returns to idle and nothing is injected into the transcript.
func (r *Relay) StopAndSubmit(ctx context.Context) error {
	r.mu.Lock()
	if r.phase != PhaseRecording {
		r.mu.Unlock()
		return fmt.Errorf("not recording")
	}

	clip, err := r.device.Stop()
	metrics.RecordingActive.Set(0)
	if err != nil {
		r.phase = PhaseIdle
		r.mu.Unlock()
		return fmt.Errorf("finalize recording: %w", err)
	}
	r.phase = PhaseTranscribing
	r.mu.Unlock()

	if len(clip) > maxClipBytes {
		r.setIdle()
		return fmt.Errorf("%w: %d bytes", domain.ErrClipTooLarge, len(clip))
	}

	text, err := r.transcriber.Transcribe(ctx, bytes.NewReader(clip), "clip.wav")
	// Transcription is the relay's last step; the streamed exchange that
	// submit starts is not relay state.
	r.setIdle()
	if err != nil {
		return err
	}
	metrics.TranscriptionsTotal.Inc()
	if text == "" {
		// Nothing recoverable; not an error, but nothing to submit either.
		r.logger.Info("transcription returned no text, nothing submitted")
		return nil
	}

	return r.submit(ctx, text)
}

func (r *Relay) setIdle() {
	r.mu.Lock()
	r.phase = PhaseIdle
	r.mu.Unlock()
}

// Phase returns the relay's current state.
func (r *Relay) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}
