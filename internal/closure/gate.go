// Package closure detects the in-band marker the assistant emits when it
// judges the conversation has reached a natural pause.
package closure

import (
	"strings"
	"sync"
)

// Marker is the reserved token, case-sensitive. It may appear anywhere in
// assistant text, any number of times.
const Marker = "[PHASE_CLOSURE]"

// Gate strips the marker from finalized assistant text and signals a
// one-time-per-session notice. Once shown, the notice never repeats for the
// session even if the marker reappears in a later turn.
type Gate struct {
	mu    sync.Mutex
	shown bool
}

func NewGate() *Gate {
	return &Gate{}
}

// Inspect returns the display text with every marker occurrence removed and
// whether the closure notice should be shown now.
func (g *Gate) Inspect(finalText string) (cleaned string, showNotice bool) {
	found := strings.Contains(finalText, Marker)
	cleaned = strings.TrimSpace(strings.ReplaceAll(finalText, Marker, ""))
	if !found {
		return cleaned, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shown {
		return cleaned, false
	}
	g.shown = true
	return cleaned, true
}

// Shown reports whether the notice has already been displayed this session.
func (g *Gate) Shown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shown
}
