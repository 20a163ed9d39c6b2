package playback

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/youpy/go-wav"

	"guardian/internal/domain"
)

const framesPerBuffer = 1024

// PortAudioOutput plays WAV clips through the default output device.
type PortAudioOutput struct {
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
}

func NewPortAudioOutput(logger *slog.Logger) *PortAudioOutput {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioOutput{logger: logger}
}

// Play decodes the WAV clip and starts streaming it to the device. onEnd is
// invoked once when the clip finishes; Stop suppresses it.
func (o *PortAudioOutput) Play(clip []byte, onEnd func()) (domain.Playback, error) {
	o.initOnce.Do(func() {
		o.initErr = portaudio.Initialize()
	})
	if o.initErr != nil {
		return nil, fmt.Errorf("initialize audio: %w", o.initErr)
	}

	reader := wav.NewReader(bytes.NewReader(clip))
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("decode wav header: %w", err)
	}

	src := &paSource{logger: o.logger, onEnd: onEnd}

	stream, err := portaudio.OpenDefaultStream(
		0,
		int(format.NumChannels),
		float64(format.SampleRate),
		framesPerBuffer,
		func(out []int16) {
			src.fill(reader, int(format.NumChannels), out)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	src.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	return src, nil
}

// Close releases the audio subsystem.
func (o *PortAudioOutput) Close() error {
	var err error
	o.initOnce.Do(func() { o.initErr = fmt.Errorf("never initialized") })
	if o.initErr == nil {
		err = portaudio.Terminate()
	}
	return err
}

// paSource is one live clip on the output device.
type paSource struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	stopped bool
	ended   bool
	logger  *slog.Logger
	onEnd   func()
}

// fill is the portaudio callback: copy decoded samples into the device
// buffer, pad the tail with silence, and finish once the clip is exhausted.
func (s *paSource) fill(reader *wav.Reader, channels int, out []int16) {
	samples, err := reader.ReadSamples(uint32(len(out) / channels))
	if err != nil && err != io.EOF {
		s.logger.Error("wav read failed during playback", "error", err)
	}

	i := 0
	for _, sample := range samples {
		for ch := 0; ch < channels && i < len(out); ch++ {
			out[i] = int16(reader.IntValue(sample, uint(ch)))
			i++
		}
	}
	for ; i < len(out); i++ {
		out[i] = 0
	}

	if err == io.EOF || len(samples) == 0 {
		s.finish()
	}
}

// finish handles natural end-of-clip. The stream cannot be stopped from its
// own callback, so teardown happens in a goroutine.
func (s *paSource) finish() {
	s.mu.Lock()
	if s.stopped || s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()

	go func() {
		s.stream.Stop()
		s.stream.Close()
		if s.onEnd != nil {
			s.onEnd()
		}
	}()
}

// Stop silences the source immediately. onEnd is not invoked.
func (s *paSource) Stop() {
	s.mu.Lock()
	if s.stopped || s.ended {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	// Abort drops queued buffers instead of draining them, so no audio is
	// audible after return.
	s.stream.Abort()
	s.stream.Close()
}
