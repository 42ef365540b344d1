// Package llms defines the inference contract used by the orchestrator and
// the helpers shared by its implementations.
package llms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTimeout bounds a single inference call.
const DefaultTimeout = 120 * time.Second

var (
	ErrTimeout       = errors.New("inference timed out")
	ErrNotConfigured = errors.New("inference client not configured")
)

// InferenceClient sends a fully constructed prompt and returns the reply
// text. Implementations never retry.
type InferenceClient interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts an ordinary function to InferenceClient.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

func (f ClientFunc) Ask(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type deadlineClient struct {
	client  InferenceClient
	timeout time.Duration
}

// WithDeadline bounds every call of client by timeout. A call that does not
// settle in time resolves with an error wrapping ErrTimeout, even if the
// underlying client ignores context cancellation.
func WithDeadline(client InferenceClient, timeout time.Duration) InferenceClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &deadlineClient{client: client, timeout: timeout}
}

type askResult struct {
	reply string
	err   error
}

func (c *deadlineClient) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "ask with deadline")
	defer span.End()
	span.SetAttributes(attribute.Int64("llm.timeout_ms", c.timeout.Milliseconds()))

	if c.client == nil {
		span.RecordError(ErrNotConfigured)
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		return "", ErrNotConfigured
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan askResult, 1)
	go func() {
		reply, err := c.client.Ask(callCtx, prompt)
		results <- askResult{reply: reply, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case result := <-results:
		if result.err != nil {
			span.RecordError(result.err)
			span.SetStatus(codes.Error, "inference failed")
		}
		return result.reply, result.err
	case <-timer.C:
		err := fmt.Errorf("%w (%s)", ErrTimeout, c.timeout)
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference timed out")
		logger.Warn("inference call timed out", "timeout", c.timeout)
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
