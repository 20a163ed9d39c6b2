package domain

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the active session. The transcript accumulator owns
// every Message for the lifetime of the session; Text is mutable only while
// the message is the in-flight assistant turn.
type Message struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Text        string `json:"text"`
	VoiceOrigin bool   `json:"voice_origin,omitempty"`
}

// ConversationHandle identifies the server-side conversation. It starts
// unassigned; the first submitted turn creates it remotely and the handle is
// then immutable for the rest of the session.
type ConversationHandle struct {
	ID string
}

// Assigned reports whether the conversation has been created remotely.
func (h ConversationHandle) Assigned() bool { return h.ID != "" }
