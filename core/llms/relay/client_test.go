package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-pet/core/llms"
)

func TestAskPostsPromptAndReturnsReply(t *testing.T) {
	var received llms.Request
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(llms.Response{Response: "hi"})
	}))
	defer server.Close()

	reply, err := NewClient(server.URL).Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "hi" {
		t.Fatalf("expected reply %q, got %q", "hi", reply)
	}
	if received.Prompt != "hello" {
		t.Fatalf("expected prompt %q, got %q", "hello", received.Prompt)
	}
	if path != AskPath {
		t.Fatalf("expected path %q, got %q", AskPath, path)
	}
}

func TestAskUsesConfiguredPath(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"response":"hm"}`))
	}))
	defer server.Close()

	if _, err := NewClient(server.URL+"/", WithPath(MonologuePath)).Ask(context.Background(), "p"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != MonologuePath {
		t.Fatalf("expected path %q, got %q", MonologuePath, path)
	}
}

func TestAskReturnsErrorFieldAsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Error: Claude timed out (120s)"}`))
	}))
	defer server.Close()

	reply, err := NewClient(server.URL).Ask(context.Background(), "p")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "Error: Claude timed out (120s)" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestAskEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	reply, err := NewClient(server.URL).Ask(context.Background(), "p")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != llms.EmptyReply {
		t.Fatalf("expected %q, got %q", llms.EmptyReply, reply)
	}
}

func TestAskTransportFailures(t *testing.T) {
	t.Run("non json error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer server.Close()

		if _, err := NewClient(server.URL).Ask(context.Background(), "p"); err == nil {
			t.Fatalf("expected error for non-JSON failure")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		if _, err := NewClient(url).Ask(context.Background(), "p"); err == nil {
			t.Fatalf("expected error for unreachable relay")
		}
	})
}

func TestAskStrictRepliesRejectsErrorOnlyReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(llms.Response{Error: "busy"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, WithPath(MonologuePath), WithStrictReplies()).Ask(context.Background(), "topic")
	if !errors.Is(err, ErrNoReply) {
		t.Fatalf("expected ErrNoReply, got %v", err)
	}
}
