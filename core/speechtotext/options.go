package speechtotext

import (
	"errors"
	"time"

	"github.com/koscakluka/ema-pet/core/audio"
)

var ErrAlreadyActive = errors.New("capture already active")

// ErrorKind classifies why a capture session ended without a transcript.
type ErrorKind string

const (
	ErrorNoSpeech     ErrorKind = "no-speech"
	ErrorAborted      ErrorKind = "aborted"
	ErrorAudioCapture ErrorKind = "audio-capture"
	ErrorNetwork      ErrorKind = "network"
	ErrorNotAllowed   ErrorKind = "not-allowed"
	ErrorUnavailable  ErrorKind = "unavailable"
)

// IsTransient reports whether the error is an expected end of a session
// that should not be shown to the user.
func (k ErrorKind) IsTransient() bool {
	return k == ErrorNoSpeech || k == ErrorAborted
}

// CaptureOptions configures a single capture session. A session reports
// OnStart, then any number of OnPartial, then exactly one of OnEnd or
// OnError.
type CaptureOptions struct {
	OnStart   func()
	OnPartial func(transcript string)
	OnEnd     func(transcript string)
	OnError   func(kind ErrorKind)

	// NoSpeechTimeout ends the session with ErrorNoSpeech when nothing has
	// been transcribed for this long.
	NoSpeechTimeout time.Duration
	Language        string
	EncodingInfo    audio.EncodingInfo
}

type CaptureOption func(*CaptureOptions)

func WithStartCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) { o.OnStart = callback }
}

func WithPartialCallback(callback func(transcript string)) CaptureOption {
	return func(o *CaptureOptions) { o.OnPartial = callback }
}

func WithEndCallback(callback func(transcript string)) CaptureOption {
	return func(o *CaptureOptions) { o.OnEnd = callback }
}

func WithErrorCallback(callback func(kind ErrorKind)) CaptureOption {
	return func(o *CaptureOptions) { o.OnError = callback }
}

func WithNoSpeechTimeout(timeout time.Duration) CaptureOption {
	return func(o *CaptureOptions) {
		if timeout > 0 {
			o.NoSpeechTimeout = timeout
		}
	}
}

func WithLanguage(language string) CaptureOption {
	return func(o *CaptureOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) CaptureOption {
	return func(o *CaptureOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}

const (
	DefaultNoSpeechTimeout = 8 * time.Second
	DefaultLanguage        = "en-US"
)

// NewCaptureOptions applies opts over defaults where every callback is a
// no-op.
func NewCaptureOptions(opts ...CaptureOption) CaptureOptions {
	options := CaptureOptions{
		OnStart:         func() {},
		OnPartial:       func(string) {},
		OnEnd:           func(string) {},
		OnError:         func(ErrorKind) {},
		NoSpeechTimeout: DefaultNoSpeechTimeout,
		Language:        DefaultLanguage,
		EncodingInfo:    audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.OnStart == nil {
		options.OnStart = func() {}
	}
	if options.OnPartial == nil {
		options.OnPartial = func(string) {}
	}
	if options.OnEnd == nil {
		options.OnEnd = func(string) {}
	}
	if options.OnError == nil {
		options.OnError = func(ErrorKind) {}
	}
	return options
}
