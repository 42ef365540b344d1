package texttospeech

import (
	"errors"

	"github.com/koscakluka/ema-pet/core/audio"
)

var ErrCancelled = errors.New("speech cancelled")

type SpeakOptions struct {
	// EncodingInfo is the encoding the synthesized audio is requested in.
	EncodingInfo audio.EncodingInfo
	// Voice overrides the client's default voice for one utterance.
	Voice string
}

type SpeakOption func(*SpeakOptions)

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeakOption {
	return func(o *SpeakOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func WithVoice(voice string) SpeakOption {
	return func(o *SpeakOptions) { o.Voice = voice }
}
