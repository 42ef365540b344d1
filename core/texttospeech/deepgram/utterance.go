package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-pet/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func sendTextMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

var errNotConnected = errors.New("speak websocket not connected")

// utterance is a single Speak call: one websocket, one text, one completion.
// ws stays nil until the dial succeeds and is only written under wsMu.
type utterance struct {
	ws       *websocket.Conn
	wsMu     sync.Mutex
	playback audio.Playback

	cancelled  chan struct{}
	cancelDial context.CancelFunc
	cancelMu   sync.Once
	doneOnce   sync.Once
	onDone     func()
}

func newUtterance(playback audio.Playback, onDone func()) *utterance {
	if onDone == nil {
		onDone = func() {}
	}
	return &utterance{
		playback:   playback,
		cancelled:  make(chan struct{}),
		cancelDial: func() {},
		onDone:     onDone,
	}
}

// connectAndRun dials, sends the text and plays the reply. A cancel that
// arrives while dialing closes the connection as soon as it is open.
func (u *utterance) connectAndRun(ctx context.Context, text string, dial func(context.Context) (*websocket.Conn, error)) {
	ctx, span := tracer.Start(ctx, "speak utterance")
	defer span.End()

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	u.wsMu.Lock()
	if u.isCancelled() {
		u.wsMu.Unlock()
		u.finish()
		return
	}
	u.cancelDial = cancel
	u.wsMu.Unlock()

	conn, err := dial(dialCtx)
	if err != nil {
		if !u.isCancelled() {
			span.RecordError(err)
			span.SetStatus(codes.Error, "speak websocket dial failed")
			logger.Warn("failed to open speak websocket", "error", err)
		}
		u.finish()
		return
	}

	u.wsMu.Lock()
	if u.isCancelled() {
		u.wsMu.Unlock()
		_ = conn.Close()
		u.finish()
		return
	}
	u.ws = conn
	u.wsMu.Unlock()

	if err := u.start(text); err != nil {
		span.RecordError(err)
		logger.Warn("failed to start utterance", "error", err)
		u.finish()
		return
	}
	u.run(ctx)
}

func (u *utterance) start(text string) error {
	if err := u.send(sendTextMsg(text)); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	if err := u.send(flushMsg); err != nil {
		return fmt.Errorf("failed to flush text: %w", err)
	}
	return nil
}

func (u *utterance) send(msg websocketMessage) error {
	u.wsMu.Lock()
	defer u.wsMu.Unlock()
	if u.ws == nil {
		return errNotConnected
	}
	if err := u.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

func (u *utterance) isCancelled() bool {
	select {
	case <-u.cancelled:
		return true
	default:
		return false
	}
}

// run forwards synthesized audio to the playback device until Deepgram
// confirms the flush, then waits for the device to drain.
func (u *utterance) run(ctx context.Context) {
	span := trace.SpanFromContext(ctx)
	defer u.finish()

	audioBytes := 0
	for {
		msgType, msg, err := u.ws.ReadMessage()
		if err != nil {
			if !u.isCancelled() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "speak websocket read failed")
				logger.Warn("speak websocket read error", "error", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if u.isCancelled() || len(msg) == 0 {
				continue
			}
			audioBytes += len(msg)
			if err := u.playback.SendAudio(msg); err != nil {
				span.RecordError(err)
				logger.Warn("failed to queue speech audio", "error", err)
			}
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}
			switch parsedMsg.Type {
			case "Flushed":
				span.SetAttributes(
					attribute.Int("speech.audio_bytes", audioBytes),
					attribute.String("speech.audio_duration", u.playback.EncodingInfo().Duration(audioBytes).String()),
				)
				u.drain(ctx)
				return
			case "Warning", "Error":
				logger.Warn("deepgram speak message", "type", parsedMsg.Type, "message", string(msg))
			}
		}
	}
}

func (u *utterance) drain(ctx context.Context) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-u.cancelled:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := u.playback.AwaitMark(waitCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("failed waiting for playback to drain", "error", err)
	}
}

func (u *utterance) cancel() {
	u.cancelMu.Do(func() {
		u.wsMu.Lock()
		close(u.cancelled)
		u.cancelDial()
		u.wsMu.Unlock()

		u.playback.ClearBuffer()
		_ = u.send(clearMsg)
		u.closeConn()
	})
}

func (u *utterance) finish() {
	u.doneOnce.Do(func() {
		_ = u.send(closeMsg)
		u.closeConn()
		u.onDone()
	})
}

func (u *utterance) closeConn() {
	u.wsMu.Lock()
	defer u.wsMu.Unlock()
	if u.ws != nil {
		_ = u.ws.Close()
	}
}
