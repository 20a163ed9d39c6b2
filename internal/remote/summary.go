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
)

// beaconTimeout bounds the teardown-path summary request. Long enough to be
// delivered, short enough not to stall process exit.
const beaconTimeout = 3 * time.Second

// SummaryClient triggers session summary generation. Summarize awaits the
// outcome; SendBeacon is the teardown-safe fire-and-forget variant.
type SummaryClient struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type SummaryConfig struct {
	APIBase string
	APIKey  string
	Logger  *slog.Logger
}

func NewSummaryClient(cfg SummaryConfig) *SummaryClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SummaryClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		client:  SharedHTTPClient(30 * time.Second),
		logger:  cfg.Logger,
	}
}

type summaryRequest struct {
	ConversationID string `json:"conversationId"`
}

// Summarize requests summary generation and waits for success or failure.
// No response body is interpreted beyond the status.
func (c *SummaryClient) Summarize(ctx context.Context, conversationID string) error {
	req, err := c.buildRequest(ctx, conversationID)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("summary request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("summary request: status %d", resp.StatusCode)
	}
	return nil
}

// SendBeacon dispatches the summary trigger synchronously with a short
// deadline so it survives process teardown. The outcome is ignored: this
// path cannot retry.
func (c *SummaryClient) SendBeacon(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
	defer cancel()

	req, err := c.buildRequest(ctx, conversationID)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("summary beacon not delivered", "error", err)
		return
	}
	resp.Body.Close()
	c.logger.Info("summary beacon sent", "conversation", conversationID, "status", resp.StatusCode)
}

func (c *SummaryClient) buildRequest(ctx context.Context, conversationID string) (*http.Request, error) {
	payload, err := json.Marshal(summaryRequest{ConversationID: conversationID})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/session-summary", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}
