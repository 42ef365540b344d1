package deepgram

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/koscakluka/ema-pet/core/audio"
)

var supportedSampleRates = []int{8000, 16000, 24000, 32000, 48000}

// audioParams returns the query parameters describing the streamed audio.
// Companded formats are only accepted at 8kHz.
func audioParams(encoding audio.EncodingInfo) (url.Values, error) {
	if !slices.Contains(supportedSampleRates, encoding.SampleRate) {
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if encoding.SampleRate != 8000 {
			return nil, fmt.Errorf("%s audio must be sampled at 8000Hz, got %d", encoding.Format.Name(), encoding.SampleRate)
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return url.Values{
		"encoding":    {encoding.Format.Name()},
		"sample_rate": {strconv.Itoa(encoding.SampleRate)},
		"channels":    {"1"},
	}, nil
}
