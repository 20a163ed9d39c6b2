package domain

import (
	"context"
	"io"
)

// Streamer opens one streamed assistant turn. Implementations deliver decoded
// events on out in delivery order and close it before returning. A non-nil
// error with no events delivered means the request failed outright.
type Streamer interface {
	StreamTurn(ctx context.Context, req TurnRequest, out chan<- StreamEvent) error
}

// ConversationCreator lazily creates the server-side conversation on the
// first submitted turn.
type ConversationCreator interface {
	CreateConversation(ctx context.Context, title string) (string, error)
}

// Summarizer triggers session summary generation for a conversation. The
// summary itself is owned by the remote service; only triggering is local.
type Summarizer interface {
	Summarize(ctx context.Context, conversationID string) error
}

// BeaconSender dispatches a summary trigger that must still be sent while the
// process is tearing down. Fire-and-forget: failures are not observable and
// not retried.
type BeaconSender interface {
	SendBeacon(conversationID string)
}

// Transcriber converts a finished audio clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Synthesizer fetches synthesized speech for a finalized assistant message.
// The returned payload is a complete WAV clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceProfile string) ([]byte, error)
}
