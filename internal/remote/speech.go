package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"guardian/internal/domain"
)

// maxClipBytes caps a synthesized clip; anything larger is treated as a
// service fault rather than buffered unbounded.
const maxClipBytes = 32 << 20

// SpeechClient fetches synthesized speech for a finalized assistant message.
type SpeechClient struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type SpeechConfig struct {
	APIBase string
	APIKey  string
	Logger  *slog.Logger
}

func NewSpeechClient(cfg SpeechConfig) *SpeechClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SpeechClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  cfg.Logger,
	}
}

type speechRequest struct {
	Text         string `json:"text"`
	VoiceProfile string `json:"voiceProfile"`
	Format       string `json:"format"`
}

// Synthesize requests a WAV clip for the given text and voice profile. Any
// failure maps to domain.ErrPlaybackUnavailable.
func (c *SpeechClient) Synthesize(ctx context.Context, text, voiceProfile string) ([]byte, error) {
	payload, err := json.Marshal(speechRequest{Text: text, VoiceProfile: voiceProfile, Format: "wav"})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlaybackUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrPlaybackUnavailable, resp.StatusCode, string(respBody))
	}

	clip, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read clip: %v", domain.ErrPlaybackUnavailable, err)
	}
	if len(clip) == 0 || len(clip) > maxClipBytes {
		return nil, fmt.Errorf("%w: clip size %d", domain.ErrPlaybackUnavailable, len(clip))
	}

	c.logger.Debug("speech synthesized", "bytes", len(clip), "voice", voiceProfile)
	return clip, nil
}
