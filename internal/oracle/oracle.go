// Package oracle defines the two-call contract the labeling engine uses to
// talk to a chat-style language model.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSession is returned when the service accepts a session request but
// returns no identifier.
var ErrNoSession = errors.New("no session id returned")

// ErrUnknownSession is returned by Send for a session that was never opened.
var ErrUnknownSession = errors.New("unknown session")

// Client is the labeling oracle. Both calls block; any error aborts the
// caller's current pass. Implementations do not retry internally beyond their
// own transport fallback.
type Client interface {
	// OpenSession starts a conversation for model and returns its id.
	OpenSession(ctx context.Context, model, label string) (string, error)
	// Send posts one message in a session and returns the reply text.
	Send(ctx context.Context, sessionID, payload string) (string, error)
}

// Funcs adapts a pair of functions to Client.
type Funcs struct {
	Open func(ctx context.Context, model, label string) (string, error)
	Post func(ctx context.Context, sessionID, payload string) (string, error)
}

func (f Funcs) OpenSession(ctx context.Context, model, label string) (string, error) {
	return f.Open(ctx, model, label)
}

func (f Funcs) Send(ctx context.Context, sessionID, payload string) (string, error) {
	return f.Post(ctx, sessionID, payload)
}

// maxErrorBody caps how much of a response body APIError keeps.
const maxErrorBody = 512

// APIError is a non-success HTTP response from the oracle service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

// NewAPIError builds an APIError, truncating body.
func NewAPIError(op string, status int, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{Op: op, StatusCode: status, Body: string(body)}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}
