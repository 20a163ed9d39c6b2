// Package stream decodes the newline-delimited event protocol used by the
// streamed turn endpoint. Raw bytes arrive in fragments at arbitrary
// boundaries; the decoder buffers across fragments and emits typed events.
package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"guardian/internal/domain"
)

const eventPrefix = "data: "

// Decoder turns raw byte fragments into an ordered sequence of stream events.
// Lines without the event prefix are protocol noise and skipped; malformed
// JSON on an otherwise valid line is skipped as well. A single corrupt line
// never aborts the stream.
type Decoder struct {
	buf      bytes.Buffer
	terminal bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write ingests one raw fragment and returns the events completed by it.
// A fragment may split a protocol line; the undecoded tail is buffered until
// the next fragment.
func (d *Decoder) Write(fragment []byte) []domain.StreamEvent {
	d.buf.Write(fragment)

	var events []domain.StreamEvent
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := string(raw[:idx])
		d.buf.Next(idx + 1)

		if evt, ok := d.decodeLine(line); ok {
			events = append(events, evt)
			if evt.Terminal() {
				d.terminal = true
			}
		}
	}
	return events
}

// Close signals end-of-stream. Any buffered final line (streams are not
// required to end with a newline) is decoded. If no terminal event was seen,
// the caller must treat the stream as implicitly failed.
func (d *Decoder) Close() ([]domain.StreamEvent, error) {
	var events []domain.StreamEvent
	if d.buf.Len() > 0 {
		line := d.buf.String()
		d.buf.Reset()
		if evt, ok := d.decodeLine(line); ok {
			events = append(events, evt)
			if evt.Terminal() {
				d.terminal = true
			}
		}
	}
	if !d.terminal {
		return events, domain.ErrNoTerminalEvent
	}
	return events, nil
}

// SawTerminal reports whether a done or error event has been decoded.
func (d *Decoder) SawTerminal() bool { return d.terminal }

func (d *Decoder) decodeLine(line string) (domain.StreamEvent, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !strings.HasPrefix(trimmed, eventPrefix) {
		return domain.StreamEvent{}, false
	}

	var evt domain.StreamEvent
	if err := json.Unmarshal([]byte(trimmed[len(eventPrefix):]), &evt); err != nil {
		return domain.StreamEvent{}, false
	}

	switch evt.Type {
	case domain.StreamChunk, domain.StreamDone, domain.StreamError:
		return evt, true
	default:
		return domain.StreamEvent{}, false
	}
}
