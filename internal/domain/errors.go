package domain

import "errors"

var (
	// ErrStreamBusy is returned when a new turn is submitted while a
	// previous stream session is still open. The submission is rejected
	// rather than canceling the in-flight stream.
	ErrStreamBusy = errors.New("a response is still streaming")

	// ErrNoTerminalEvent means the stream ended without a done or error
	// event. Whatever partial text was accumulated is kept.
	ErrNoTerminalEvent = errors.New("stream ended without a terminal event")

	// ErrStreamFailed means the service reported an error event mid-stream.
	ErrStreamFailed = errors.New("the service failed to generate a response")

	// ErrDeviceUnavailable means the capture device could not be acquired
	// (permissions denied, no hardware).
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrTranscriptionFailed means the transcription call failed; nothing
	// is submitted to the transcript.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrClipTooLarge means the recorded clip exceeds the transcription
	// service's payload limit.
	ErrClipTooLarge = errors.New("audio clip exceeds size limit")

	// ErrPlaybackUnavailable means synthesized speech could not be fetched
	// or decoded.
	ErrPlaybackUnavailable = errors.New("voice playback unavailable")
)
