package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"guardian/internal/domain"
)

// TranscribeClient converts a finished audio clip to text through the
// transcription endpoint (single request/response, no streaming).
type TranscribeClient struct {
	apiBase  string
	apiKey   string
	language string
	client   *http.Client
	logger   *slog.Logger
}

type TranscribeConfig struct {
	APIBase  string
	APIKey   string
	Language string // optional ISO-639-1 language code
	Logger   *slog.Logger
}

func NewTranscribeClient(cfg TranscribeConfig) *TranscribeClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TranscribeClient{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   cfg.Logger,
	}
}

type transcriptionResult struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Transcribe sends the clip and returns the recovered text. Any failure maps
// to domain.ErrTranscriptionFailed so the relay returns to idle without
// injecting partial text.
func (c *TranscribeClient) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("response_format", "json")
	if c.language != "" {
		writer.WriteField("language", c.language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrTranscriptionFailed, resp.StatusCode, string(respBody))
	}

	var result transcriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrTranscriptionFailed, err)
	}

	c.logger.Info("transcription complete",
		"text_len", len(result.Text),
		"language", result.Language,
	)
	return result.Text, nil
}
