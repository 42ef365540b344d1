package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-pet/core/events"
	"github.com/koscakluka/ema-pet/core/texttospeech"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// speechOutput sanitizes replies before they are spoken and guarantees one
// PlaybackCompleted event per utterance, however it ends.
type speechOutput struct {
	client TextToSpeech
	post   func(events.Event)
}

func (s *speechOutput) available() bool {
	return s.client != nil
}

func (s *speechOutput) speak(ctx context.Context, epoch events.Epoch, text string) {
	var once sync.Once
	complete := func() {
		once.Do(func() { s.post(events.NewPlaybackCompleted(epoch)) })
	}

	if s.client == nil {
		complete()
		return
	}

	s.cancel(ctx)
	if err := s.client.Speak(ctx, texttospeech.Sanitize(text), complete); err != nil {
		recordedErr := fmt.Errorf("failed to speak: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		complete()
	}
}

// cancel stops the current utterance. It is safe to call when nothing is
// playing.
func (s *speechOutput) cancel(ctx context.Context) {
	if s.client == nil {
		return
	}

	if err := s.client.Cancel(); err != nil {
		recordedErr := fmt.Errorf("failed to cancel speech: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
	}
}
