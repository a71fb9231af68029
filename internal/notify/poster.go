// Package notify posts triage outcomes to chat channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Poster delivers a plain-text message to a chat channel.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// ChatClient posts messages through a Slack-compatible chat.postMessage endpoint.
type ChatClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewChatClient constructs a chat client authenticated with a bearer token.
func NewChatClient(baseURL, token string, timeout time.Duration) *ChatClient {
	return &ChatClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PostMessage sends text to channel.
func (c *ChatClient) PostMessage(ctx context.Context, channel, text string) error {
	if c.baseURL == "" {
		return fmt.Errorf("chat base URL not configured")
	}
	if channel == "" {
		return fmt.Errorf("chat channel is required")
	}
	body, err := json.Marshal(map[string]string{"channel": channel, "text": text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat API returned %s", resp.Status)
	}
	var reply struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode chat response: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("chat API error: %s", reply.Error)
	}
	return nil
}

// DryRun logs messages instead of sending them.
type DryRun struct {
	Logger *slog.Logger
}

// PostMessage logs the message that would have been sent.
func (d DryRun) PostMessage(ctx context.Context, channel, text string) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "would post chat message",
		slog.String("channel", channel),
		slog.String("text", text))
	return nil
}
