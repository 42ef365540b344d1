// Package portaudio provides a duplex capture and playback device backed by
// PortAudio.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-pet/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-pet/core/audio/portaudio")

// Client runs one duplex stream. A single loop reads a microphone buffer and
// writes a speaker buffer per iteration, which paces both directions.
type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in  []int16
	out []int16

	mu      sync.Mutex
	queue   []byte
	marks   []playbackMark
	onAudio func(audio []byte)

	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

type playbackMark struct {
	position int
	done     chan struct{}
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	c := &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
		closeCh:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *Client) run() {
	defer close(c.done)

	frame := make([]byte, c.bufferSize*2)
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			logger.Debug("failed to read from PortAudio stream", "error", err)
		}

		c.mu.Lock()
		onAudio := c.onAudio
		n := copy(frame, c.queue)
		c.queue = c.queue[n:]
		c.releaseMarksLocked(n)
		c.mu.Unlock()

		if onAudio != nil {
			captured := bytes.Buffer{}
			_ = binary.Write(&captured, binary.LittleEndian, c.in)
			onAudio(captured.Bytes())
		}

		clear(frame[n:])
		_ = binary.Read(bytes.NewReader(frame), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			logger.Debug("failed to write to PortAudio stream", "error", err)
		}
	}
}

func (c *Client) releaseMarksLocked(played int) {
	passed := 0
	for i := range c.marks {
		c.marks[i].position -= played
		if c.marks[i].position <= 0 {
			close(c.marks[i].done)
			passed++
		}
	}
	c.marks = c.marks[passed:]
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = onAudio
	return nil
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = nil
	return nil
}

func (c *Client) SendAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, audio...)
	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue = nil
	for _, mark := range c.marks {
		close(mark.done)
	}
	c.marks = nil
}

func (c *Client) AwaitMark(ctx context.Context) error {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	mark := playbackMark{position: len(c.queue), done: make(chan struct{})}
	c.marks = append(c.marks, mark)
	c.mu.Unlock()

	select {
	case <-mark.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		<-c.done
		c.ClearBuffer()
		_ = c.stream.Stop()
		_ = c.stream.Close()
		_ = portaudio.Terminate()
	})
}

var (
	_ audio.Capture  = (*Client)(nil)
	_ audio.Playback = (*Client)(nil)
)
