package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// ConversationClient creates the server-side conversation the first time a
// turn is submitted.
type ConversationClient struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type ConversationConfig struct {
	APIBase string
	APIKey  string
	Logger  *slog.Logger
}

func NewConversationClient(cfg ConversationConfig) *ConversationClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ConversationClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		client:  SharedHTTPClient(0),
		logger:  cfg.Logger,
	}
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type createConversationResponse struct {
	ID string `json:"id"`
}

// CreateConversation registers a new conversation and returns its ID.
func (c *ConversationClient) CreateConversation(ctx context.Context, title string) (string, error) {
	payload, err := json.Marshal(createConversationRequest{Title: title})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/conversations", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	}, c.logger)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create conversation: status %d", resp.StatusCode)
	}

	var out createConversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode conversation response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create conversation: empty id in response")
	}

	c.logger.Info("conversation created", "id", out.ID)
	return out.ID, nil
}
