package domain

// StreamEventType classifies a decoded event from the streamed turn endpoint.
type StreamEventType string

const (
	StreamChunk StreamEventType = "chunk"
	StreamDone  StreamEventType = "done"
	StreamError StreamEventType = "error"
)

// StreamEvent is one decoded protocol event. Content carries the delta text
// for a chunk and the authoritative final text for done; it is empty for
// error events.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
}

// Terminal reports whether this event closes the stream session.
func (e StreamEvent) Terminal() bool {
	return e.Type == StreamDone || e.Type == StreamError
}

// TurnRequest is the payload of one outbound user turn.
type TurnRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	VoiceOrigin    bool   `json:"isVoiceInput"`
}
