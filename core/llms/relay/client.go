// Package relay implements the inference client against the relay backend,
// which forwards prompts to the assistant CLI.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-pet/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	AskPath       = "/ask"
	MonologuePath = "/monologue"

	maxResponseBytes = 1 << 20
)

var ErrNoReply = errors.New("relay reply carried no response")

type Client struct {
	baseURL       string
	path          string
	httpClient    *http.Client
	strictReplies bool
}

type ClientOption func(*Client)

// WithPath selects the relay endpoint, AskPath by default.
func WithPath(path string) ClientOption {
	return func(c *Client) {
		c.path = path
	}
}

// WithStrictReplies makes a reply without a response field an error
// wrapping ErrNoReply instead of displayable text.
func WithStrictReplies() ClientOption {
	return func(c *Client) {
		c.strictReplies = true
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       AskPath,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask posts the prompt and returns the displayable message of the reply.
// A reply carrying only an error field is returned as text, not as an error;
// transport failures and non-JSON replies are errors.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "relay ask")
	defer span.End()
	span.SetAttributes(
		attribute.String("relay.path", c.path),
		attribute.Int("relay.prompt_length", len(prompt)),
	)

	fail := func(err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	body, err := json.Marshal(llms.Request{Prompt: prompt})
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(fmt.Errorf("error reading response body: %w", err))
	}

	var response llms.Response
	if err := json.Unmarshal(raw, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
		}
		return fail(fmt.Errorf("error unmarshalling response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn("relay returned non-OK status", "status", resp.Status, "path", c.path)
	}

	if c.strictReplies && response.Response == "" {
		return fail(fmt.Errorf("%w: %s", ErrNoReply, response.Error))
	}

	return response.Text(), nil
}
