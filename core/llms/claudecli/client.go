// Package claudecli implements the inference client by running the claude
// command line tool once per prompt.
package claudecli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scopeName = "github.com/koscakluka/ema-pet/core/llms/claudecli"

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

const (
	EmptyResponse = "(empty response)"

	defaultBinary = "claude"
	defaultModel  = "haiku"
	defaultEffort = "low"

	// nestedSessionEnv marks a process running inside an assistant session,
	// the CLI refuses to start when it is set.
	nestedSessionEnv = "CLAUDECODE"
)

var defaultAllowedTools = []string{"WebSearch", "WebFetch", "Bash"}

type Client struct {
	binary       string
	systemPrompt string
	model        string
	effort       string
	allowedTools []string
}

type ClientOption func(*Client)

func WithBinary(path string) ClientOption {
	return func(c *Client) {
		if path != "" {
			c.binary = path
		}
	}
}

func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithEffort(effort string) ClientOption {
	return func(c *Client) {
		if effort != "" {
			c.effort = effort
		}
	}
}

// WithAllowedTools replaces the default tool allow list. A nil slice keeps
// the defaults, an empty one allows no tools.
func WithAllowedTools(tools []string) ClientOption {
	return func(c *Client) {
		if tools != nil {
			c.allowedTools = tools
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		binary:       defaultBinary,
		model:        defaultModel,
		effort:       defaultEffort,
		allowedTools: defaultAllowedTools,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) args(prompt string) []string {
	args := []string{"-p", prompt}
	if c.systemPrompt != "" {
		args = append(args, "--system-prompt", c.systemPrompt)
	}
	args = append(args, "--model", c.model, "--effort", c.effort)
	for _, tool := range c.allowedTools {
		args = append(args, "--allowedTools", tool)
	}
	return args
}

func environ() []string {
	env := []string{}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, nestedSessionEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// Ask runs the CLI and returns its trimmed standard output, falling back to
// standard error and then to EmptyResponse. A non-zero exit with output is
// not an error, the output is the message to show.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "claude cli ask")
	defer span.End()
	span.SetAttributes(
		attribute.String("claude.model", c.model),
		attribute.Int("claude.prompt_length", len(prompt)),
	)

	cmd := exec.CommandContext(ctx, c.binary, c.args(prompt)...)
	cmd.Env = environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.RecordError(ctxErr)
		span.SetStatus(codes.Error, "claude cli cancelled")
		return "", ctxErr
	}

	response := strings.TrimSpace(stdout.String())
	if response == "" {
		response = strings.TrimSpace(stderr.String())
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		err := fmt.Errorf("run %s: %w", c.binary, runErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if runErr != nil {
		logger.Warn("claude cli exited with error", "exit_code", exitErr.ExitCode())
	}

	if response == "" {
		return EmptyResponse, nil
	}
	return response, nil
}
