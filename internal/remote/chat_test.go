package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"guardian/internal/domain"
)

func runStream(t *testing.T, handler http.HandlerFunc) ([]domain.StreamEvent, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewChatClient(ChatConfig{APIBase: srv.URL, APIKey: "test-key"})
	out := make(chan domain.StreamEvent, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.StreamTurn(context.Background(), domain.TurnRequest{
			ConversationID: "c1", Message: "hello",
		}, out)
	}()

	var events []domain.StreamEvent
	for evt := range out {
		events = append(events, evt)
	}
	return events, <-errCh
}

func TestChatClient_StreamTurn(t *testing.T) {
	events, err := runStream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Hi", ",", " there"} {
			fmt.Fprintf(w, "data: {\"type\":\"chunk\",\"content\":\"%s\"}\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"type\":\"done\",\"content\":\"Hi there!\"}\n")
	})
	if err != nil {
		t.Fatalf("StreamTurn: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Type != domain.StreamDone || last.Content != "Hi there!" {
		t.Fatalf("unexpected terminal event: %+v", last)
	}
}

func TestChatClient_NoTerminalEvent(t *testing.T) {
	events, err := runStream(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"chunk\",\"content\":\"partial\"}\n")
	})
	if !errors.Is(err, domain.ErrNoTerminalEvent) {
		t.Fatalf("expected ErrNoTerminalEvent, got %v", err)
	}
	if len(events) != 1 || events[0].Content != "partial" {
		t.Fatalf("partial chunks must still be delivered, got %+v", events)
	}
}

func TestChatClient_TransportFailure(t *testing.T) {
	events, err := runStream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if len(events) != 0 {
		t.Fatalf("no events expected before the stream opens, got %+v", events)
	}
}

func TestChatClient_ErrorEvent(t *testing.T) {
	events, err := runStream(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"error\"}\n")
	})
	if err != nil {
		t.Fatalf("error event is a clean terminal, got %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.StreamError {
		t.Fatalf("expected error event, got %+v", events)
	}
}
