package domain

// CaptureDevice records one audio clip at a time. Start acquires the device;
// Stop finalizes the capture and returns the encoded clip.
type CaptureDevice interface {
	Start() error
	Stop() ([]byte, error)
}

// AudioOutput plays one decoded clip. onEnd is invoked once when playback
// reaches the natural end of the clip; it is not invoked after Stop.
type AudioOutput interface {
	Play(clip []byte, onEnd func()) (Playback, error)
}

// Playback is a live sound source. Stop silences it synchronously: no
// audible frames are produced after Stop returns.
type Playback interface {
	Stop()
}
