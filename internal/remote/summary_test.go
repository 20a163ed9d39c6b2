package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSummaryClient_Summarize(t *testing.T) {
	var got summaryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/session-summary") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewSummaryClient(SummaryConfig{APIBase: srv.URL})
	if err := c.Summarize(context.Background(), "conv-9"); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.ConversationID != "conv-9" {
		t.Fatalf("conversationId = %q", got.ConversationID)
	}
}

func TestSummaryClient_SummarizeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSummaryClient(SummaryConfig{APIBase: srv.URL})
	if err := c.Summarize(context.Background(), "conv-9"); err == nil {
		t.Fatal("expected failure to be observable on the awaiting path")
	}
}

func TestSummaryClient_SendBeacon(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewSummaryClient(SummaryConfig{APIBase: srv.URL})
	c.SendBeacon("conv-9")
	if hits.Load() != 1 {
		t.Fatalf("expected 1 beacon delivery, got %d", hits.Load())
	}
}

func TestSummaryClient_SendBeaconSwallowsFailure(t *testing.T) {
	c := NewSummaryClient(SummaryConfig{APIBase: "http://127.0.0.1:1"})
	// Must not panic or block past the beacon deadline.
	c.SendBeacon("conv-9")
}
