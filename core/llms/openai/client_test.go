package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseOutputText(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "text message",
			body:     `{"output":[{"type":"message","id":"m1","content":[{"type":"output_text","text":"hi"}]}]}`,
			expected: "hi",
		},
		{
			name:     "reasoning is skipped",
			body:     `{"output":[{"type":"reasoning","id":"r1","summary":[]},{"type":"message","id":"m1","content":[{"type":"output_text","text":"answer"}]}]}`,
			expected: "answer",
		},
		{
			name:     "refusal",
			body:     `{"output":[{"type":"message","id":"m1","content":[{"type":"refusal","refusal":"no"}]}]}`,
			expected: "no",
		},
		{
			name:     "no output",
			body:     `{"output":[]}`,
			expected: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := parseOutputText([]byte(testCase.body))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestAskSendsReasoningEffort(t *testing.T) {
	var received requestBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"output":[{"type":"message","id":"m1","content":[{"type":"output_text","text":"ok"}]}]}`))
	}))
	defer server.Close()

	client := NewClient("key", WithURL(server.URL), WithReasoningEffort("low"), WithSystemPrompt("persona"))
	reply, err := client.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "ok" {
		t.Fatalf("expected reply %q, got %q", "ok", reply)
	}
	if received.Reasoning == nil || received.Reasoning.Effort == nil || *received.Reasoning.Effort != "low" {
		t.Fatalf("expected reasoning effort to be sent, got %+v", received.Reasoning)
	}
	if len(received.Input) != 2 || received.Input[0].Role != messageRoleDeveloper {
		t.Fatalf("unexpected input %+v", received.Input)
	}
}
