// Package audio describes the audio devices speech adapters read from and
// write to.
package audio

import "context"

// Capture is a microphone. onAudio receives raw frames in the device's
// encoding until StopCapture is called.
type Capture interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}

// Playback is a speaker with a queue of pending audio.
type Playback interface {
	SendAudio(audio []byte) error
	// ClearBuffer drops all queued audio and releases every AwaitMark
	// waiter.
	ClearBuffer()
	// AwaitMark blocks until the audio queued before the call has played,
	// the buffer was cleared or ctx is done.
	AwaitMark(ctx context.Context) error
	EncodingInfo() EncodingInfo
}
