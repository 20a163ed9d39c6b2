package stream

import (
	"testing"

	"guardian/internal/domain"
)

func collect(d *Decoder, fragments ...string) []domain.StreamEvent {
	var all []domain.StreamEvent
	for _, f := range fragments {
		all = append(all, d.Write([]byte(f))...)
	}
	return all
}

func TestDecoder_SingleChunk(t *testing.T) {
	d := NewDecoder()
	events := collect(d, "data: {\"type\":\"chunk\",\"content\":\"Hi\"}\n")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != domain.StreamChunk || events[0].Content != "Hi" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestDecoder_FragmentSplitsLine(t *testing.T) {
	d := NewDecoder()
	events := collect(d,
		"data: {\"type\":\"ch",
		"unk\",\"content\":\"He",
		"llo\"}\ndata: {\"type\":\"done\",\"content\":\"Hello!\"}\n",
	)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Content != "Hello" {
		t.Fatalf("chunk content = %q", events[0].Content)
	}
	if events[1].Type != domain.StreamDone || events[1].Content != "Hello!" {
		t.Fatalf("unexpected done event: %+v", events[1])
	}
}

func TestDecoder_SkipsNoiseLines(t *testing.T) {
	d := NewDecoder()
	events := collect(d,
		": keep-alive\n",
		"\n",
		"event: something\n",
		"data: {\"type\":\"chunk\",\"content\":\"a\"}\n",
	)
	if len(events) != 1 || events[0].Content != "a" {
		t.Fatalf("expected only the chunk event, got %+v", events)
	}
}

func TestDecoder_SkipsMalformedJSON(t *testing.T) {
	d := NewDecoder()
	events := collect(d,
		"data: {not json}\n",
		"data: {\"type\":\"chunk\",\"content\":\"ok\"}\n",
		"data: {\"type\":\"mystery\"}\n",
	)
	if len(events) != 1 || events[0].Content != "ok" {
		t.Fatalf("corrupt lines must not abort the stream, got %+v", events)
	}
}

func TestDecoder_ManyChunksThenDone(t *testing.T) {
	d := NewDecoder()
	events := collect(d,
		"data: {\"type\":\"chunk\",\"content\":\"Hi\"}\n",
		"data: {\"type\":\"chunk\",\"content\":\",\"}\n",
		"data: {\"type\":\"chunk\",\"content\":\" there\"}\n",
		"data: {\"type\":\"done\",\"content\":\"Hi there!\"}\n",
	)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if !d.SawTerminal() {
		t.Fatal("terminal event not registered")
	}
	if _, err := d.Close(); err != nil {
		t.Fatalf("Close after done: %v", err)
	}
}

func TestDecoder_CloseWithoutTerminal(t *testing.T) {
	d := NewDecoder()
	collect(d, "data: {\"type\":\"chunk\",\"content\":\"partial\"}\n")
	if _, err := d.Close(); err != domain.ErrNoTerminalEvent {
		t.Fatalf("expected ErrNoTerminalEvent, got %v", err)
	}
}

func TestDecoder_CloseDecodesUnterminatedFinalLine(t *testing.T) {
	d := NewDecoder()
	collect(d, "data: {\"type\":\"done\",\"content\":\"bye\"}")
	events, err := d.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.StreamDone {
		t.Fatalf("expected trailing done event, got %+v", events)
	}
}

func TestDecoder_ErrorEventIsTerminal(t *testing.T) {
	d := NewDecoder()
	events := collect(d, "data: {\"type\":\"error\"}\n")
	if len(events) != 1 || events[0].Type != domain.StreamError {
		t.Fatalf("expected error event, got %+v", events)
	}
	if _, err := d.Close(); err != nil {
		t.Fatalf("error event is terminal, Close should succeed: %v", err)
	}
}

func TestDecoder_CRLFLines(t *testing.T) {
	d := NewDecoder()
	events := collect(d, "data: {\"type\":\"chunk\",\"content\":\"x\"}\r\n")
	if len(events) != 1 || events[0].Content != "x" {
		t.Fatalf("CRLF line not decoded: %+v", events)
	}
}
