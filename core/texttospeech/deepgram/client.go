// Package deepgram speaks text through the Deepgram speak websocket and plays
// the synthesized audio on a playback device.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-pet/core/audio"
	"github.com/koscakluka/ema-pet/core/texttospeech"
)

const defaultHost = "api.deepgram.com"

var ErrMissingAPIKey = errors.New("deepgram api key not found")

var defaultDialer = &websocket.Dialer{
	Proxy:            http.ProxyFromEnvironment,
	HandshakeTimeout: 10 * time.Second,
}

type TextToSpeechClient struct {
	apiKey   string
	voice    deepgramVoice
	playback audio.Playback
	dialer   *websocket.Dialer
	endpoint url.URL

	mu      sync.Mutex
	current *utterance
}

type ClientOption func(*TextToSpeechClient)

// WithEndpoint overrides the speak websocket URL.
func WithEndpoint(endpoint url.URL) ClientOption {
	return func(c *TextToSpeechClient) { c.endpoint = endpoint }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TextToSpeechClient) { c.dialer = dialer }
}

func NewTextToSpeechClient(apiKey string, voice deepgramVoice, playback audio.Playback, opts ...ClientOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}
	if playback == nil {
		return nil, fmt.Errorf("playback device is required")
	}

	client := &TextToSpeechClient{
		apiKey:   apiKey,
		voice:    voice,
		playback: playback,
		dialer:   defaultDialer,
		endpoint: url.URL{Scheme: "wss", Host: defaultHost, Path: "/v1/speak"},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = voice
}

// Speak cancels any current utterance and starts speaking text. It returns
// once the utterance is registered; the websocket is opened in the
// background. onDone is called exactly once when the audio has finished
// playing, the connection failed or the utterance was cancelled.
func (c *TextToSpeechClient) Speak(ctx context.Context, text string, onDone func(), opts ...texttospeech.SpeakOption) error {
	_ = c.Cancel()

	options := texttospeech.SpeakOptions{EncodingInfo: c.playback.EncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	c.mu.Lock()
	voice := c.voice
	if options.Voice != "" {
		voice = deepgramVoice(options.Voice)
	}
	u := newUtterance(c.playback, onDone)
	c.current = u
	c.mu.Unlock()

	go u.connectAndRun(ctx, text, func(ctx context.Context) (*websocket.Conn, error) {
		return c.connectWebsocket(ctx, voice, options.EncodingInfo)
	})
	return nil
}

// Cancel stops the current utterance, if any. It is safe to call when
// nothing is playing.
func (c *TextToSpeechClient) Cancel() error {
	c.mu.Lock()
	u := c.current
	c.current = nil
	c.mu.Unlock()

	if u == nil {
		return nil
	}
	u.cancel()
	return nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	endpoint := c.endpoint
	endpoint.RawQuery = urlValues.Encode()

	conn, _, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
