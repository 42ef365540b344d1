// Package deepgram transcribes single utterances through the Deepgram listen
// websocket, reading audio from a capture device.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-pet/core/audio"
	"github.com/koscakluka/ema-pet/core/speechtotext"
)

var ErrMissingAPIKey = errors.New("deepgram api key not found")

var errSessionStopped = errors.New("session stopped while connecting")

var defaultDialer = &websocket.Dialer{
	Proxy:            http.ProxyFromEnvironment,
	HandshakeTimeout: 10 * time.Second,
}

type TranscriptionClient struct {
	apiKey   string
	capture  audio.Capture
	dialer   *websocket.Dialer
	endpoint url.URL
	model    string

	mu      sync.Mutex
	session *session
}

type ClientOption func(*TranscriptionClient)

// WithEndpoint overrides the listen websocket URL.
func WithEndpoint(endpoint url.URL) ClientOption {
	return func(c *TranscriptionClient) { c.endpoint = endpoint }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TranscriptionClient) { c.dialer = dialer }
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

func NewTranscriptionClient(apiKey string, capture audio.Capture, opts ...ClientOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if capture == nil {
		return nil, fmt.Errorf("capture device is required")
	}

	c := &TranscriptionClient{
		apiKey:   apiKey,
		capture:  capture,
		dialer:   defaultDialer,
		endpoint: url.URL{Scheme: "wss", Host: "api.deepgram.com", Path: "/v1/listen"},
		model:    "nova-3",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartCapture registers one transcription session and returns without
// waiting for the network. It fails with speechtotext.ErrAlreadyActive while
// a previous session is still running. Failures to connect or to open the
// capture device are reported through the session's error callback.
func (c *TranscriptionClient) StartCapture(ctx context.Context, opts ...speechtotext.CaptureOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && !c.session.isTerminated() {
		return speechtotext.ErrAlreadyActive
	}

	options := speechtotext.NewCaptureOptions(append(
		[]speechtotext.CaptureOption{speechtotext.WithEncodingInfo(c.capture.EncodingInfo())},
		opts...,
	)...)

	params, err := audioParams(options.EncodingInfo)
	if err != nil {
		return &speechtotext.CaptureError{Kind: speechtotext.ErrorAudioCapture, Err: err}
	}

	s := newSession(c.capture, options)
	c.session = s
	go s.connectAndRun(ctx,
		func(ctx context.Context) (*websocket.Conn, error) {
			return c.connectWebsocket(ctx, params, options.Language)
		},
		func() error { return c.startDevice(ctx, s) },
	)
	return nil
}

// startDevice starts the capture device for s unless s was replaced or
// stopped while it was connecting.
func (c *TranscriptionClient) startDevice(ctx context.Context, s *session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s || s.isTerminated() {
		return errSessionStopped
	}
	return c.capture.StartCapture(ctx, s.sendAudio)
}

// StopCapture aborts the running session. No callback of that session fires
// afterwards. It is safe to call when no session is running.
func (c *TranscriptionClient) StopCapture() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	s.abort()
	return nil
}

func (c *TranscriptionClient) connectWebsocket(ctx context.Context, queryParams url.Values, language string) (*websocket.Conn, error) {
	queryParams.Set("model", c.model)
	queryParams.Set("language", language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")

	listenURL := c.endpoint
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
