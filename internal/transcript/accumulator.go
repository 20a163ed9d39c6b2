// Package transcript owns the ordered list of messages for the active
// session. Turns are appended, never reordered; only the most recent
// assistant turn may be mutated in place.
package transcript

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"guardian/internal/domain"
)

// Accumulator holds the session's messages and applies streamed deltas to
// the in-progress assistant turn.
type Accumulator struct {
	mu       sync.RWMutex
	messages []domain.Message

	// streamingID is the ID of the in-flight assistant turn, empty when no
	// turn is mutable.
	streamingID string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AppendUserTurn appends a user message optimistically. Always succeeds
// locally; RollbackTurn undoes it when the request fails outright.
func (a *Accumulator) AppendUserTurn(text string, voiceOrigin bool) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	a.messages = append(a.messages, domain.Message{
		ID:          id,
		Role:        domain.RoleUser,
		Text:        text,
		VoiceOrigin: voiceOrigin,
	})
	return id
}

// BeginAssistantTurn appends an empty assistant placeholder and marks it as
// the mutable in-flight turn.
func (a *Accumulator) BeginAssistantTurn() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	a.messages = append(a.messages, domain.Message{
		ID:   id,
		Role: domain.RoleAssistant,
	})
	a.streamingID = id
	return id
}

// ApplyChunk appends delta text to the in-flight assistant turn. Deltas are
// applied in delivery order; they never replace earlier text.
func (a *Accumulator) ApplyChunk(messageID, delta string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if messageID != a.streamingID {
		return fmt.Errorf("message %s is not the in-flight assistant turn", messageID)
	}
	for i := range a.messages {
		if a.messages[i].ID == messageID {
			a.messages[i].Text += delta
			return nil
		}
	}
	return fmt.Errorf("message %s not found", messageID)
}

// Finalize replaces the accumulated text with the authoritative server
// text and seals the turn. The final text is not guaranteed to equal the
// chunk concatenation.
func (a *Accumulator) Finalize(messageID, finalText string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.messages {
		if a.messages[i].ID == messageID {
			a.messages[i].Text = finalText
			if a.streamingID == messageID {
				a.streamingID = ""
			}
			return nil
		}
	}
	return fmt.Errorf("message %s not found", messageID)
}

// RollbackTurn removes a turn entirely, so a failed request leaves no
// dangling optimistic user turn or empty placeholder.
func (a *Accumulator) RollbackTurn(messageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.messages {
		if a.messages[i].ID == messageID {
			a.messages = append(a.messages[:i], a.messages[i+1:]...)
			if a.streamingID == messageID {
				a.streamingID = ""
			}
			return
		}
	}
}

// Text returns the current text of a message, or empty if unknown.
func (a *Accumulator) Text(messageID string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := range a.messages {
		if a.messages[i].ID == messageID {
			return a.messages[i].Text
		}
	}
	return ""
}

// Messages returns a copy of all turns in order.
func (a *Accumulator) Messages() []domain.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Len returns the number of turns in the session.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.messages)
}
