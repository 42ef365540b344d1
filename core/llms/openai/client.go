// Package openai implements the inference client on the OpenAI responses
// API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/ema-pet/core/llms"
	"github.com/koscakluka/ema-pet/internal/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultURL   = "https://api.openai.com/v1/responses"
	defaultModel = "gpt-4.1-mini"
)

type Client struct {
	apiKey       string
	model        string
	systemPrompt string
	effort       string
	url          string
	httpClient   *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithReasoningEffort sets the reasoning effort for reasoning models.
func WithReasoningEffort(effort string) ClientOption {
	return func(c *Client) { c.effort = effort }
}

func WithURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		url:        defaultURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	fail := func(err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if c.apiKey == "" {
		return fail(fmt.Errorf("openai: %w", llms.ErrNotConfigured))
	}

	messages := []openAIMessage{}
	if c.systemPrompt != "" {
		messages = append(messages, openAIMessage{Type: messageTypeMessage, Role: messageRoleDeveloper, Content: c.systemPrompt})
	}
	messages = append(messages, openAIMessage{Type: messageTypeMessage, Role: messageRoleUser, Content: prompt})

	reqBody := requestBody{Model: c.model, Input: messages}
	if c.effort != "" {
		reqBody.Reasoning = &requestBodyReasoning{Effort: utils.Ptr(c.effort)}
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("error reading response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn("openai returned non-OK status", "status", resp.Status, "body", string(bodyBytes))
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	text, err := parseOutputText(bodyBytes)
	if err != nil {
		return fail(err)
	}
	if text == "" {
		return llms.EmptyReply, nil
	}
	return text, nil
}

// parseOutputText returns the text of the last assistant message in the
// response output. Refusals count as text, other output items are skipped.
func parseOutputText(body []byte) (string, error) {
	var responseBody generalResponseBody
	if err := json.Unmarshal(body, &responseBody); err != nil {
		return "", fmt.Errorf("error unmarshalling response body: %w", err)
	}

	text := ""
	for _, output := range responseBody.Output {
		var outputType generalResponseBodyOutputType
		if err := json.Unmarshal(output, &outputType); err != nil {
			return "", fmt.Errorf("error unmarshalling output type: %w", err)
		}
		if outputType.Type != generalResponseBodyOutputTypeMessage {
			continue
		}

		var outputMessage generalResponseBodyOutputMessage
		if err := json.Unmarshal(output, &outputMessage); err != nil {
			return "", fmt.Errorf("error unmarshalling output message: %w", err)
		}
		for _, content := range outputMessage.Content {
			var contentItem generalResponseBodyOutputMessageContent
			if err := json.Unmarshal(content, &contentItem); err != nil {
				return "", fmt.Errorf("error unmarshalling output message content: %w", err)
			}
			switch contentItem.Type {
			case "output_text":
				text = contentItem.Text
			case "refusal":
				text = contentItem.Refusal
			}
		}
	}
	return text, nil
}

type messageRole string

const (
	messageRoleDeveloper messageRole = "developer"
	messageRoleUser      messageRole = "user"
)

type messageType string

const messageTypeMessage messageType = "message"

type openAIMessage struct {
	Type    messageType `json:"type"`
	Role    messageRole `json:"role,omitempty"`
	Content string      `json:"content,omitempty"`
}

type requestBody struct {
	Model     string                `json:"model"`
	Input     []openAIMessage       `json:"input"`
	Stream    bool                  `json:"stream"`
	Reasoning *requestBodyReasoning `json:"reasoning,omitempty"`
}

type requestBodyReasoning struct {
	Effort  *string `json:"effort,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

type generalResponseBody struct {
	Output []json.RawMessage `json:"output"`
}

type generalResponseBodyOutputType struct {
	// Type is the type of the output item.
	Type generalResponseBodyOutputTypeType `json:"type"`
}

type generalResponseBodyOutputMessage struct {
	ID      string            `json:"id"`
	Content []json.RawMessage `json:"content,omitempty"`
}

// generalResponseBodyOutputMessageContent is either text output from the
// model or a refusal explanation.
type generalResponseBodyOutputMessageContent struct {
	// Type is 'output_text' or 'refusal'.
	Type    string `json:"type"`
	Text    string `json:"text"`
	Refusal string `json:"refusal"`
}

type generalResponseBodyOutputTypeType string

const (
	generalResponseBodyOutputTypeMessage      generalResponseBodyOutputTypeType = "message"
	generalResponseBodyOutputTypeFunctionCall generalResponseBodyOutputTypeType = "function_call"
	generalResponseBodyOutputTypeReasoning    generalResponseBodyOutputTypeType = "reasoning"
)
