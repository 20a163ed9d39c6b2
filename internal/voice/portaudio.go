package voice

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const captureFramesPerBuffer = 512

// PortAudioDevice records mono 16 kHz PCM from the default input device and
// returns the finished clip as WAV.
type PortAudioDevice struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	samples []int16
	logger  *slog.Logger

	initOnce sync.Once
	initErr  error
}

func NewPortAudioDevice(logger *slog.Logger) *PortAudioDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioDevice{logger: logger}
}

// Start acquires the default input device and begins accumulating samples.
func (d *PortAudioDevice) Start() error {
	d.initOnce.Do(func() {
		d.initErr = portaudio.Initialize()
	})
	if d.initErr != nil {
		return fmt.Errorf("initialize audio: %w", d.initErr)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return fmt.Errorf("capture already running")
	}
	d.samples = d.samples[:0]

	stream, err := portaudio.OpenDefaultStream(
		captureChannels,
		0,
		float64(captureSampleRate),
		captureFramesPerBuffer,
		func(in []int16) {
			d.mu.Lock()
			d.samples = append(d.samples, in...)
			d.mu.Unlock()
		},
	)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}
	d.stream = stream
	return nil
}

// Stop finalizes the capture and returns the encoded WAV clip.
func (d *PortAudioDevice) Stop() ([]byte, error) {
	d.mu.Lock()
	stream := d.stream
	d.stream = nil
	d.mu.Unlock()

	if stream == nil {
		return nil, fmt.Errorf("capture not running")
	}
	if err := stream.Stop(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("stop input stream: %w", err)
	}
	stream.Close()

	d.mu.Lock()
	clip := encodeWAV(d.samples, captureSampleRate)
	d.samples = nil
	d.mu.Unlock()

	d.logger.Debug("capture finished", "bytes", len(clip))
	return clip, nil
}

// Close releases the audio subsystem.
func (d *PortAudioDevice) Close() error {
	d.initOnce.Do(func() { d.initErr = fmt.Errorf("never initialized") })
	if d.initErr == nil {
		return portaudio.Terminate()
	}
	return nil
}
