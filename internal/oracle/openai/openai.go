// Package openai is an oracle client for OpenAI-compatible chat completion
// endpoints. The service is stateless, so sessions are kept locally as
// message histories keyed by a generated id.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/oracle"
)

// DefaultSystemPrompt primes every session.
const DefaultSystemPrompt = "You label free-text survey answers with short category names. " +
	"Follow the instructions in each message and reply with the requested format only."

// DefaultMaxHistory bounds how many prior exchanges are replayed per request.
const DefaultMaxHistory = 20

// Config holds connection settings.
type Config struct {
	APIKey string
	// BaseURL overrides the API root, e.g. for a local gateway.
	BaseURL      string
	SystemPrompt string
	// MaxHistory is the number of prior request/reply pairs kept per session.
	// Zero means DefaultMaxHistory; negative keeps none.
	MaxHistory int
	Logger     *slog.Logger
}

// Client wraps go-openai with per-session message histories.
type Client struct {
	api    *goopenai.Client
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	model    string
	label    string
	messages []goopenai.ChatCompletionMessage
}

// New creates a Client.
func New(cfg Config) *Client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(apiCfg),
		cfg:      cfg,
		logger:   logger.With("component", "openai"),
		sessions: make(map[string]*session),
	}
}

// OpenSession allocates a local conversation. It makes no network call.
func (c *Client) OpenSession(_ context.Context, model, label string) (string, error) {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[id] = &session{model: model, label: label}
	c.logger.Debug("session opened", "session_id", id, "model", model, "name", label)
	return id, nil
}

// Send replays the session history plus payload and records the exchange.
func (c *Client) Send(ctx context.Context, sessionID, payload string) (string, error) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", oracle.ErrUnknownSession, sessionID)
	}
	model := s.model
	history := append([]goopenai.ChatCompletionMessage(nil), s.messages...)
	c.mu.Unlock()

	user := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: payload}
	messages := make([]goopenai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: c.cfg.SystemPrompt,
	})
	messages = append(messages, history...)
	messages = append(messages, user)

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", oracle.NewAPIError("chat completion", apiErr.HTTPStatusCode, []byte(apiErr.Message))
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) {
			return "", oracle.NewAPIError("chat completion", reqErr.HTTPStatusCode, reqErr.Body)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	reply := resp.Choices[0].Message.Content

	c.logger.Debug("completion received",
		"session_id", sessionID,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens)

	c.mu.Lock()
	if s, ok := c.sessions[sessionID]; ok {
		s.messages = append(s.messages, user, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleAssistant,
			Content: reply,
		})
		s.messages = trimHistory(s.messages, c.cfg.MaxHistory)
	}
	c.mu.Unlock()

	return reply, nil
}

// trimHistory keeps the most recent max request/reply pairs.
func trimHistory(msgs []goopenai.ChatCompletionMessage, max int) []goopenai.ChatCompletionMessage {
	if max < 0 {
		return nil
	}
	keep := 2 * max
	if len(msgs) <= keep {
		return msgs
	}
	return append([]goopenai.ChatCompletionMessage(nil), msgs[len(msgs)-keep:]...)
}
