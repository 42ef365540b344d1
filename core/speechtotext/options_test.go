package speechtotext

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		kind      ErrorKind
		transient bool
	}{
		{kind: ErrorNoSpeech, transient: true},
		{kind: ErrorAborted, transient: true},
		{kind: ErrorAudioCapture, transient: false},
		{kind: ErrorNetwork, transient: false},
		{kind: ErrorNotAllowed, transient: false},
		{kind: ErrorUnavailable, transient: false},
	}

	for _, testCase := range testCases {
		t.Run(string(testCase.kind), func(t *testing.T) {
			if got := testCase.kind.IsTransient(); got != testCase.transient {
				t.Fatalf("expected transient=%v, got %v", testCase.transient, got)
			}
		})
	}
}

func TestNewCaptureOptionsDefaultsToNoopCallbacks(t *testing.T) {
	options := NewCaptureOptions(WithEndCallback(nil))

	options.OnStart()
	options.OnPartial("partial")
	options.OnEnd("final")
	options.OnError(ErrorNoSpeech)

	if options.NoSpeechTimeout != DefaultNoSpeechTimeout {
		t.Fatalf("expected default no-speech timeout, got %s", options.NoSpeechTimeout)
	}
	if options.EncodingInfo.IsZero() {
		t.Fatalf("expected default encoding")
	}
}

func TestNewCaptureOptionsKeepsConfiguredValues(t *testing.T) {
	var ended string
	options := NewCaptureOptions(
		WithEndCallback(func(transcript string) { ended = transcript }),
		WithNoSpeechTimeout(time.Second),
		WithNoSpeechTimeout(0),
		WithLanguage("ja-JP"),
	)

	options.OnEnd("hello")

	if ended != "hello" {
		t.Fatalf("expected end callback to be kept, got %q", ended)
	}
	if options.NoSpeechTimeout != time.Second {
		t.Fatalf("expected timeout 1s, got %s", options.NoSpeechTimeout)
	}
	if options.Language != "ja-JP" {
		t.Fatalf("expected language ja-JP, got %q", options.Language)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", &CaptureError{Kind: ErrorNotAllowed, Err: errors.New("denied")})
	if got := KindOf(wrapped); got != ErrorNotAllowed {
		t.Fatalf("expected %q, got %q", ErrorNotAllowed, got)
	}
	if got := KindOf(errors.New("boom")); got != ErrorUnavailable {
		t.Fatalf("expected %q, got %q", ErrorUnavailable, got)
	}
}
