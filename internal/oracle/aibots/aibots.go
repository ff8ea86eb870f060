// Package aibots is an oracle client for a hosted chat service that keeps
// conversations server-side. Sessions map to chats; messages are posted as
// JSON, falling back to a multipart form if the JSON request is rejected.
package aibots

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/oracle"
)

const (
	DefaultBaseURL = "https://api.uat.aibots.gov.sg"
	DefaultVersion = "v1.0"
	DefaultSource  = "survey-response-coder"

	apiKeyHeader = "X-ATLAS-Key"
)

// Config holds connection settings.
type Config struct {
	BaseURL string
	Version string
	APIKey  string
	// Verify enables TLS certificate verification.
	Verify bool
	// Source is sent as properties.source with every message.
	Source         string
	SessionTimeout time.Duration
	MessageTimeout time.Duration
	Logger         *slog.Logger
}

// Client talks to the chat service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client. Zero config fields take package defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "aibots"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.Verify},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createChatRequest struct {
	Name       string         `json:"name"`
	Agents     []string       `json:"agents"`
	Params     map[string]any `json:"params"`
	Properties map[string]any `json:"properties"`
	Model      string         `json:"model"`
	Pinned     bool           `json:"pinned"`
}

// OpenSession creates a chat and returns its id.
func (c *Client) OpenSession(ctx context.Context, model, label string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SessionTimeout)
	defer cancel()

	body, err := json.Marshal(createChatRequest{
		Name:       label,
		Agents:     []string{},
		Params:     map[string]any{},
		Properties: map[string]any{},
		Model:      model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatsURL(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	if !ok(status) {
		return "", oracle.NewAPIError("create chat", status, respBody)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil || created.ID == "" {
		return "", fmt.Errorf("create chat: %w: %s", oracle.ErrNoSession, truncate(respBody))
	}

	c.logger.Debug("chat created", "chat_id", created.ID, "model", model, "name", label)
	return created.ID, nil
}

// Send posts payload to the chat and returns the reply content. The JSON
// request and the multipart fallback each get their own MessageTimeout.
func (c *Client) Send(ctx context.Context, sessionID, payload string) (string, error) {
	params := map[string]any{"temperature": 0}
	properties := map[string]any{"source": c.cfg.Source}

	body, err := json.Marshal(map[string]any{
		"content":    payload,
		"params":     params,
		"properties": properties,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	status, respBody, err := c.sendJSON(ctx, sessionID, body)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	if !ok(status) {
		c.logger.Debug("json message rejected, retrying as multipart", "status", status)
		status, respBody, err = c.sendMultipart(ctx, sessionID, payload, params, properties)
		if err != nil {
			return "", fmt.Errorf("send message: %w", err)
		}
		if !ok(status) {
			return "", oracle.NewAPIError("send message", status, respBody)
		}
	}

	var reply struct {
		Response struct {
			Content string `json:"content"`
		} `json:"response"`
	}
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return "", fmt.Errorf("send message: invalid reply: %w", err)
	}
	return reply.Response.Content, nil
}

func (c *Client) sendJSON(ctx context.Context, sessionID string, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MessageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(sessionID), bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) sendMultipart(ctx context.Context, sessionID, payload string, params, properties map[string]any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MessageTimeout)
	defer cancel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name  string
		value any
	}{
		{"params", params},
		{"properties", properties},
	}
	if err := w.WriteField("content", payload); err != nil {
		return 0, nil, err
	}
	for _, f := range fields {
		encoded, err := json.Marshal(f.value)
		if err != nil {
			return 0, nil, err
		}
		if err := w.WriteField(f.name, string(encoded)); err != nil {
			return 0, nil, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(sessionID), &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) chatsURL() string {
	return fmt.Sprintf("%s/%s/api/chats", c.cfg.BaseURL, c.cfg.Version)
}

func (c *Client) messagesURL(chatID string) string {
	q := url.Values{}
	q.Set("streaming", "false")
	q.Set("cloak", "true")
	return fmt.Sprintf("%s/%s/messages?%s", c.chatsURL(), url.PathEscape(chatID), q.Encode())
}

func ok(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

func truncate(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}
