package audio

import "time"

const DefaultSampleRate = 16000

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

// EncodingInfo describes mono audio as it travels between devices and the
// speech services.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

// GetDefaultEncodingInfo is 16kHz linear16, what both audio backends
// produce unless configured otherwise.
func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format == ""
}

// BytesPerSecond is zero for unknown formats.
func (e EncodingInfo) BytesPerSecond() int {
	return e.SampleRate * e.Format.sampleSize()
}

// Duration returns how long n bytes play for.
func (e EncodingInfo) Duration(n int) time.Duration {
	rate := e.BytesPerSecond()
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) sampleSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	default:
		return 0
	}
}
