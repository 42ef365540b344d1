package mqtt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/koscakluka/ema-pet/internal/config"
)

type recordingBroker struct {
	mu        sync.Mutex
	published map[string]string
}

func (b *recordingBroker) Publish(_ context.Context, p *paho.Publish) (*paho.PublishResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string]string{}
	}
	b.published[p.Topic] = string(p.Payload)
	return &paho.PublishResponse{}, nil
}

func (b *recordingBroker) get(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.published[topic]
	return value, ok
}

func newTestPublisher() *Publisher {
	return New(config.MQTTConfig{DeviceName: "desk", DiscoveryPrefix: "homeassistant"}, "instance-1", nil)
}

func TestLoadOrCreateInstanceIDIsStable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrCreateInstanceID(dir)
	if err != nil {
		t.Fatalf("LoadOrCreateInstanceID() error: %v", err)
	}
	second, err := LoadOrCreateInstanceID(dir)
	if err != nil {
		t.Fatalf("LoadOrCreateInstanceID() error: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("expected a stable id, got %q then %q", first, second)
	}

	data, err := os.ReadFile(filepath.Join(dir, "instance_id"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if strings.TrimSpace(string(data)) != first {
		t.Fatalf("persisted id %q does not match %q", data, first)
	}
}

func TestTopics(t *testing.T) {
	p := newTestPublisher()

	if got := p.stateTopic(entityMode); got != "emapet/desk/mode/state" {
		t.Fatalf("unexpected state topic %q", got)
	}
	if got := p.availabilityTopic(); got != "emapet/desk/availability" {
		t.Fatalf("unexpected availability topic %q", got)
	}
	if got := p.discoveryTopic(entityDecorations); got != "homeassistant/sensor/desk/decorations/config" {
		t.Fatalf("unexpected discovery topic %q", got)
	}
}

func TestDiscoveryPublishesEverySensor(t *testing.T) {
	p := newTestPublisher()
	b := &recordingBroker{}

	p.publishDiscovery(context.Background(), b)

	payload, ok := b.get("homeassistant/sensor/desk/mode/config")
	if !ok {
		t.Fatalf("expected a mode discovery payload")
	}
	var sensor SensorConfig
	if err := json.Unmarshal([]byte(payload), &sensor); err != nil {
		t.Fatalf("invalid discovery payload: %v", err)
	}
	if sensor.UniqueID != "instance-1_mode" || sensor.StateTopic != "emapet/desk/mode/state" || len(sensor.Options) != len(ModeNames) {
		t.Fatalf("unexpected mode sensor: %+v", sensor)
	}

	for _, entity := range []string{entityDecorations, entityStatus} {
		if _, ok := b.get(p.discoveryTopic(entity)); !ok {
			t.Fatalf("expected a %s discovery payload", entity)
		}
	}
}

func TestRunPublishesLatestStates(t *testing.T) {
	p := newTestPublisher()
	b := &recordingBroker{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(ctx, b)
	}()
	defer func() {
		cancel()
		<-done
	}()

	p.SetMode("listening")
	p.SetMode("thinking")
	p.SetDecorations(2)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mode, _ := b.get("emapet/desk/mode/state")
		decorations, _ := b.get("emapet/desk/decorations/state")
		if mode == "thinking" && decorations == "2" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for the latest states to be published")
}

func TestSetNeverBlocks(t *testing.T) {
	p := newTestPublisher()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 100 {
			p.SetDecorations(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Set blocked without a running publisher")
	}
	if got := p.snapshot()[entityDecorations]; got != "99" {
		t.Fatalf("expected the last value to be kept, got %q", got)
	}
}
