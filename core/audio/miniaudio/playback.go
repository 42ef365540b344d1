package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// playbackClient keeps the speaker running for the client's lifetime and
// feeds it from an in-memory queue. Silence is played while the queue is
// empty.
type playbackClient struct {
	device *malgo.Device

	// queue holds audio not yet handed to the device, marks are positions
	// in it. Both are guarded by queueMu.
	queue   []byte
	marks   []playbackMark
	queueMu sync.Mutex

	mu sync.Mutex
}

type playbackMark struct {
	position int
	done     chan struct{}
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, sampleRate uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	config := deviceConfig(malgo.Playback, sampleRate)
	config.PeriodSizeInFrames = sampleRate / 10 // 100ms
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{Data: c.processAudio})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	c.device = device
	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return fmt.Errorf("device not started")
	}

	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	c.queue = append(c.queue, audio...)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	c.queue = nil
	for _, mark := range c.marks {
		close(mark.done)
	}
	c.marks = nil
}

func (c *playbackClient) AwaitMark(ctx context.Context) error {
	c.queueMu.Lock()
	if len(c.queue) == 0 {
		c.queueMu.Unlock()
		return nil
	}
	mark := playbackMark{position: len(c.queue), done: make(chan struct{})}
	c.marks = append(c.marks, mark)
	c.queueMu.Unlock()

	select {
	case <-mark.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil
	c.ClearBuffer()

	return nil
}

func (c *playbackClient) processAudio(output, _ []byte, frameCount uint32) {
	need := min(int(frameCount)*bytesPerFrame, len(output))

	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	played := copy(output[:need], c.queue)
	clear(output[played:need])
	c.queue = c.queue[played:]

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
