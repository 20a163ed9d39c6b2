package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guardian/internal/domain"
)

type fakeSynth struct {
	mu           sync.Mutex
	calls        int
	fail         bool
	block        chan struct{} // when set, Synthesize waits until closed
	ignoreCancel bool          // when set, a blocked call completes despite cancellation
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voiceProfile string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	fail := f.fail
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()

	if block != nil {
		if ignoreCancel {
			<-block
		} else {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if fail {
		return nil, domain.ErrPlaybackUnavailable
	}
	return []byte("RIFF" + text), nil
}

type fakeSource struct {
	stopped bool
	onEnd   func()
}

func (s *fakeSource) Stop() { s.stopped = true }

type fakeOutput struct {
	mu      sync.Mutex
	sources []*fakeSource
	fail    bool
}

func (f *fakeOutput) Play(clip []byte, onEnd func()) (domain.Playback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("no output device")
	}
	s := &fakeSource{onEnd: onEnd}
	f.sources = append(f.sources, s)
	return s, nil
}

func (f *fakeOutput) last() *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sources) == 0 {
		return nil
	}
	return f.sources[len(f.sources)-1]
}

func newTestController(synth *fakeSynth, output *fakeOutput) *Controller {
	return NewController(Config{Synthesizer: synth, Output: output})
}

func TestController_PlayThenNaturalEnd(t *testing.T) {
	synth := &fakeSynth{}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	if err := c.Toggle(context.Background(), "m1", "hello", "axel"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if c.Phase() != PhasePlaying || c.ActiveMessageID() != "m1" {
		t.Fatalf("phase=%s active=%s", c.Phase(), c.ActiveMessageID())
	}

	output.last().onEnd()
	if c.Phase() != PhaseIdle || c.ActiveMessageID() != "" {
		t.Fatal("natural end must return to idle and release the source")
	}
}

func TestController_SameMessageToggleStops(t *testing.T) {
	synth := &fakeSynth{}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	c.Toggle(context.Background(), "m1", "hello", "axel")
	src := output.last()

	if err := c.Toggle(context.Background(), "m1", "hello", "axel"); err != nil {
		t.Fatalf("stop toggle: %v", err)
	}
	if !src.stopped {
		t.Fatal("active source must be stopped")
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("phase = %s, want idle", c.Phase())
	}
	if synth.calls != 1 {
		t.Fatalf("stop toggle must not refetch, calls = %d", synth.calls)
	}
}

func TestController_SwitchingMessagesSilencesPrevious(t *testing.T) {
	synth := &fakeSynth{}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	c.Toggle(context.Background(), "a", "first", "axel")
	srcA := output.last()

	if err := c.Toggle(context.Background(), "b", "second", "axel"); err != nil {
		t.Fatalf("Toggle b: %v", err)
	}
	if !srcA.stopped {
		t.Fatal("A must be silenced before B starts")
	}
	if c.ActiveMessageID() != "b" || c.Phase() != PhasePlaying {
		t.Fatalf("active=%s phase=%s", c.ActiveMessageID(), c.Phase())
	}
	if len(output.sources) != 2 {
		t.Fatalf("expected fresh fetch for B, sources = %d", len(output.sources))
	}
}

func TestController_PreemptWhileLoading(t *testing.T) {
	block := make(chan struct{})
	synth := &fakeSynth{block: block}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	done := make(chan error, 1)
	go func() {
		done <- c.Toggle(context.Background(), "a", "first", "axel")
	}()

	// Wait until A is loading, then preempt with B.
	for c.Phase() != PhaseLoading {
		time.Sleep(time.Millisecond)
	}
	synth.mu.Lock()
	synth.block = nil
	synth.mu.Unlock()

	if err := c.Toggle(context.Background(), "b", "second", "axel"); err != nil {
		t.Fatalf("Toggle b: %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("preempted toggle should not report an error, got %v", err)
	}

	if c.ActiveMessageID() != "b" {
		t.Fatalf("B owns playback, got %s", c.ActiveMessageID())
	}
	if len(output.sources) != 1 {
		t.Fatalf("A's stale clip must be discarded, sources = %d", len(output.sources))
	}
}

func TestController_StopToggleWhileLoadingDiscardsLateFetch(t *testing.T) {
	block := make(chan struct{})
	synth := &fakeSynth{block: block, ignoreCancel: true}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	done := make(chan error, 1)
	go func() {
		done <- c.Toggle(context.Background(), "m1", "hello", "axel")
	}()

	for c.Phase() != PhaseLoading {
		time.Sleep(time.Millisecond)
	}

	// Same-message toggle while loading is a stop request.
	if err := c.Toggle(context.Background(), "m1", "hello", "axel"); err != nil {
		t.Fatalf("stop toggle: %v", err)
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("phase = %s, want idle", c.Phase())
	}

	// The response lands despite the cancellation; its clip must be dropped.
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("stopped toggle should not report an error, got %v", err)
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("late fetch restarted playback, phase = %s", c.Phase())
	}
	if len(output.sources) != 0 {
		t.Fatalf("late clip must never reach the output, sources = %d", len(output.sources))
	}
}

func TestController_StopWhileLoadingDiscardsLateFetch(t *testing.T) {
	block := make(chan struct{})
	synth := &fakeSynth{block: block, ignoreCancel: true}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	done := make(chan error, 1)
	go func() {
		done <- c.Toggle(context.Background(), "m1", "hello", "axel")
	}()

	for c.Phase() != PhaseLoading {
		time.Sleep(time.Millisecond)
	}

	c.Stop()
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("stopped toggle should not report an error, got %v", err)
	}
	if c.Phase() != PhaseIdle || len(output.sources) != 0 {
		t.Fatalf("late fetch survived Stop: phase=%s sources=%d", c.Phase(), len(output.sources))
	}
}

func TestController_FetchFailure(t *testing.T) {
	synth := &fakeSynth{fail: true}
	c := newTestController(synth, &fakeOutput{})

	err := c.Toggle(context.Background(), "m1", "hello", "axel")
	if !errors.Is(err, domain.ErrPlaybackUnavailable) {
		t.Fatalf("expected ErrPlaybackUnavailable, got %v", err)
	}
	if c.Phase() != PhaseIdle {
		t.Fatal("fetch failure transitions directly to idle")
	}
}

func TestController_OutputFailure(t *testing.T) {
	c := newTestController(&fakeSynth{}, &fakeOutput{fail: true})

	err := c.Toggle(context.Background(), "m1", "hello", "axel")
	if !errors.Is(err, domain.ErrPlaybackUnavailable) {
		t.Fatalf("expected ErrPlaybackUnavailable, got %v", err)
	}
	if c.Phase() != PhaseIdle {
		t.Fatal("output failure transitions directly to idle")
	}
}

func TestController_StaleEndCallbackIgnored(t *testing.T) {
	synth := &fakeSynth{}
	output := &fakeOutput{}
	c := newTestController(synth, output)

	c.Toggle(context.Background(), "a", "first", "axel")
	srcA := output.last()
	c.Toggle(context.Background(), "b", "second", "axel")

	// A's late end callback must not disturb B.
	srcA.onEnd()
	if c.ActiveMessageID() != "b" || c.Phase() != PhasePlaying {
		t.Fatalf("stale callback corrupted state: active=%s phase=%s", c.ActiveMessageID(), c.Phase())
	}
}
