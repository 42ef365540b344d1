package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/koscakluka/ema-pet/core/events"
	"github.com/koscakluka/ema-pet/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// speechInput turns the callbacks of a SpeechToText client into capture
// events stamped with the epoch of the session that produced them.
type speechInput struct {
	client  SpeechToText
	options []speechtotext.CaptureOption
	post    func(events.Event)
}

func (s *speechInput) available() bool {
	return s.client != nil
}

// start begins a capture session for epoch. A failure to start is reported
// as the session's terminal CaptureFailed event.
func (s *speechInput) start(ctx context.Context, epoch events.Epoch) {
	if s.client == nil {
		s.post(events.NewCaptureFailed(epoch, string(speechtotext.ErrorUnavailable), false))
		return
	}

	opts := append(slices.Clone(s.options),
		speechtotext.WithStartCallback(func() {
			s.post(events.NewCaptureStarted(epoch))
		}),
		speechtotext.WithPartialCallback(func(transcript string) {
			s.post(events.NewCapturePartial(epoch, transcript))
		}),
		speechtotext.WithEndCallback(func(transcript string) {
			s.post(events.NewCaptureEnded(epoch, transcript))
		}),
		speechtotext.WithErrorCallback(func(kind speechtotext.ErrorKind) {
			s.post(events.NewCaptureFailed(epoch, string(kind), kind.IsTransient()))
		}),
	)
	err := s.client.StartCapture(ctx, opts...)
	if err == nil || errors.Is(err, speechtotext.ErrAlreadyActive) {
		return
	}

	kind := speechtotext.KindOf(err)
	recordedErr := fmt.Errorf("failed to start capture: %w", err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(recordedErr)
	span.SetStatus(codes.Error, recordedErr.Error())
	s.post(events.NewCaptureFailed(epoch, string(kind), kind.IsTransient()))
}

// stop aborts the running session, if any.
func (s *speechInput) stop(ctx context.Context) {
	if s.client == nil {
		return
	}

	if err := s.client.StopCapture(); err != nil {
		recordedErr := fmt.Errorf("failed to stop capture: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
	}
}
