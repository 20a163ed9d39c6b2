// Package remote implements HTTP clients for the session's external
// collaborators: the streamed turn endpoint, conversation creation, session
// summary, transcription, and speech synthesis.
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
	"guardian/internal/stream"
)

// ChatClient talks to the streamed turn endpoint. One request per user turn;
// the response body is a sequence of newline-delimited event records.
type ChatClient struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type ChatConfig struct {
	APIBase string
	APIKey  string
	Logger  *slog.Logger
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ChatClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		// No whole-request timeout: the body streams for as long as the
		// model generates. Cancellation comes from the context.
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
		},
		logger: cfg.Logger,
	}
}

// StreamTurn issues one turn and delivers decoded events on out in delivery
// order. out is closed before returning. If the stream ends without a
// terminal event the return is domain.ErrNoTerminalEvent; a failure before
// any event means the request never produced a stream.
func (c *ChatClient) StreamTurn(ctx context.Context, req domain.TurnRequest, out chan<- domain.StreamEvent) error {
	defer close(out)

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/chat/stream", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stream request failed: %d: %s", resp.StatusCode, string(body))
	}

	decoder := stream.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, evt := range decoder.Write(buf[:n]) {
				select {
				case out <- evt:
				case <-ctx.Done():
					return ctx.Err()
				}
				if evt.Terminal() {
					// Drain nothing further; the stream session is over.
					return nil
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("stream read interrupted", "error", readErr)
			break
		}
	}

	tail, err := decoder.Close()
	for _, evt := range tail {
		select {
		case out <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
		if evt.Terminal() {
			return nil
		}
	}
	return err
}
