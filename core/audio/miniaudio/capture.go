package miniaudio

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// captureClient runs the microphone only while a capture session is open.
// Frames are copied out of the device buffer since miniaudio reuses it.
type captureClient struct {
	device *malgo.Device

	listenerMu sync.RWMutex
	onAudio    func(audio []byte)

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, sampleRate uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	config := deviceConfig(malgo.Capture, sampleRate)
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = sampleRate / 50 // 20ms
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(input) < n {
				return
			}

			c.listenerMu.RLock()
			onAudio := c.onAudio
			c.listenerMu.RUnlock()
			if onAudio != nil {
				onAudio(bytes.Clone(input[:n]))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	c.device = device
	return nil
}

func (c *captureClient) setListener(onAudio func(audio []byte)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.onAudio = onAudio
}

// Start replaces the listener and starts the device if it is not running.
func (c *captureClient) Start(onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("capture device not initialized")
	}

	c.setListener(onAudio)
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.setListener(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setListener(nil)
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setListener(nil)
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	return nil
}
