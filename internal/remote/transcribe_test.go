package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guardian/internal/domain"
)

func TestTranscribeClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart body: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "clip.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		fmt.Fprint(w, `{"text":"hello from voice","language":"en"}`)
	}))
	defer srv.Close()

	c := NewTranscribeClient(TranscribeConfig{APIBase: srv.URL})
	text, err := c.Transcribe(context.Background(), strings.NewReader("RIFFfake"), "clip.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello from voice" {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewTranscribeClient(TranscribeConfig{APIBase: srv.URL})
	_, err := c.Transcribe(context.Background(), strings.NewReader("x"), "clip.wav")
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestSpeechClient_Synthesize(t *testing.T) {
	wav := []byte("RIFF....WAVEfmt ")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer srv.Close()

	c := NewSpeechClient(SpeechConfig{APIBase: srv.URL})
	clip, err := c.Synthesize(context.Background(), "hello", "axel")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(clip) != string(wav) {
		t.Fatal("clip bytes mangled")
	}
}

func TestSpeechClient_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no voice", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewSpeechClient(SpeechConfig{APIBase: srv.URL})
	if _, err := c.Synthesize(context.Background(), "hello", "axel"); !errors.Is(err, domain.ErrPlaybackUnavailable) {
		t.Fatalf("expected ErrPlaybackUnavailable, got %v", err)
	}
}

func TestSpeechClient_EmptyClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewSpeechClient(SpeechConfig{APIBase: srv.URL})
	if _, err := c.Synthesize(context.Background(), "hello", "axel"); !errors.Is(err, domain.ErrPlaybackUnavailable) {
		t.Fatalf("expected ErrPlaybackUnavailable for empty clip, got %v", err)
	}
}
