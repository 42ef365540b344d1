package deepgram

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-pet/core/audio"
	"github.com/koscakluka/ema-pet/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// session is one utterance. It terminates exactly once, through end, fail
// or abort; only end and fail report to the caller. conn, noSpeechTimer and
// cancelDial are set while connecting, under connMu.
type session struct {
	conn       *websocket.Conn
	connMu     sync.Mutex
	cancelDial context.CancelFunc
	capture    audio.Capture
	options    speechtotext.CaptureOptions

	mu            sync.Mutex
	accumulated   strings.Builder
	noSpeechTimer *time.Timer

	terminated atomic.Bool
	terminate  sync.Once
}

func newSession(capture audio.Capture, options speechtotext.CaptureOptions) *session {
	return &session{capture: capture, options: options, cancelDial: func() {}}
}

// connectAndRun opens the websocket, starts the capture device and reads
// transcripts until the utterance ends. An abort while connecting
// terminates the session silently.
func (s *session) connectAndRun(ctx context.Context, dial func(context.Context) (*websocket.Conn, error), startDevice func() error) {
	ctx, span := tracer.Start(ctx, "transcribe utterance")
	defer span.End()

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.connMu.Lock()
	if s.isTerminated() {
		s.connMu.Unlock()
		return
	}
	s.cancelDial = cancel
	s.connMu.Unlock()

	conn, err := dial(dialCtx)
	if err != nil {
		if !s.isTerminated() {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listen websocket dial failed")
			logger.Warn("failed to open deepgram websocket", "error", err)
		}
		s.fail(speechtotext.ErrorNetwork)
		return
	}

	s.connMu.Lock()
	if s.isTerminated() {
		s.connMu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.connMu.Unlock()

	if err := startDevice(); err != nil {
		if !s.isTerminated() {
			span.RecordError(err)
			span.SetStatus(codes.Error, "capture device failed to start")
		}
		s.fail(speechtotext.ErrorAudioCapture)
		return
	}

	s.connMu.Lock()
	if s.isTerminated() {
		s.connMu.Unlock()
		return
	}
	s.noSpeechTimer = time.AfterFunc(s.options.NoSpeechTimeout, s.onNoSpeechTimeout)
	s.connMu.Unlock()

	s.options.OnStart()
	s.run(span)
}

func (s *session) isTerminated() bool {
	return s.terminated.Load()
}

func (s *session) sendAudio(audio []byte) {
	if s.isTerminated() {
		return
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		logger.Debug("failed to write audio to deepgram", "error", err)
	}
}

func (s *session) run(span trace.Span) {
	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isTerminated() {
				span.RecordError(err)
				span.SetStatus(codes.Error, "listen websocket read failed")
				logger.Warn("failed to read deepgram websocket message", "error", err)
				s.fail(speechtotext.ErrorNetwork)
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		if done := s.processMessage(msg); done {
			span.SetAttributes(attribute.Int("transcription.length", s.transcriptLength()))
			return
		}
	}
}

// processMessage handles one listen response and reports whether the
// utterance is complete.
func (s *session) processMessage(msg []byte) bool {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Debug("failed to unmarshal deepgram message", "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Debug("failed to unmarshal deepgram message", "error", err)
			return false
		}
		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}
		if transcript != "" {
			s.noSpeechTimer.Reset(s.options.NoSpeechTimeout)
		}

		if msgResp.IsFinal {
			if transcript != "" {
				if s.accumulated.Len() > 0 {
					s.accumulated.WriteString(" ")
				}
				s.accumulated.WriteString(transcript)
				s.partial(s.accumulated.String())
			}
			if msgResp.SpeechFinal && s.accumulated.Len() > 0 {
				s.end(s.accumulated.String())
				return true
			}
		} else if transcript != "" {
			s.partial(strings.TrimSpace(s.accumulated.String() + " " + transcript))
		}

	case api.TypeUtteranceEndResponse:
		if s.accumulated.Len() > 0 {
			s.end(s.accumulated.String())
			return true
		}

	case api.TypeSpeechStartedResponse:
		s.noSpeechTimer.Reset(s.options.NoSpeechTimeout)
	}
	return false
}

func (s *session) transcriptLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.Len()
}

// onNoSpeechTimeout ends the session with whatever was heard, or with
// ErrorNoSpeech if nothing was.
func (s *session) onNoSpeechTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accumulated.Len() > 0 {
		s.end(s.accumulated.String())
		return
	}
	s.fail(speechtotext.ErrorNoSpeech)
}

func (s *session) partial(transcript string) {
	if s.isTerminated() {
		return
	}
	s.options.OnPartial(transcript)
}

func (s *session) end(transcript string) {
	s.finish(func() { s.options.OnEnd(transcript) })
}

func (s *session) fail(kind speechtotext.ErrorKind) {
	s.finish(func() { s.options.OnError(kind) })
}

func (s *session) abort() {
	s.finish(nil)
}

func (s *session) finish(report func()) {
	s.terminate.Do(func() {
		s.terminated.Store(true)
		if err := s.capture.StopCapture(); err != nil {
			logger.Debug("failed to stop capture device", "error", err)
		}

		s.connMu.Lock()
		s.cancelDial()
		if s.noSpeechTimer != nil {
			s.noSpeechTimer.Stop()
		}
		if s.conn != nil {
			_ = s.conn.WriteJSON(struct {
				Type string `json:"type"`
			}{Type: string(api.TypeCloseStreamResponse)})
			_ = s.conn.Close()
		}
		s.connMu.Unlock()

		if report != nil {
			report()
		}
	})
}
