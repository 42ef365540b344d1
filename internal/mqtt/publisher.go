package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/koscakluka/ema-pet/internal/config"
)

const (
	entityMode        = "mode"
	entityDecorations = "decorations"
	entityStatus      = "status"

	connectTimeout = 30 * time.Second
)

// ModeNames are the values the mode sensor can take.
var ModeNames = []string{"idle", "listening", "thinking", "speaking"}

type broker interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
}

// Publisher keeps the latest companion state and publishes it whenever it
// changes. The Set methods never block, so they can be called from the
// orchestrator's callbacks.
type Publisher struct {
	cfg        config.MQTTConfig
	instanceID string
	device     DeviceInfo
	logger     *slog.Logger

	mu      sync.Mutex
	states  map[string]string
	changed chan struct{}

	cm *autopaho.ConnectionManager
}

func New(cfg config.MQTTConfig, instanceID string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:        cfg,
		instanceID: instanceID,
		device:     NewDeviceInfo(instanceID, cfg.DeviceName),
		logger:     logger.With("component", "mqtt"),
		states:     map[string]string{},
		changed:    make(chan struct{}, 1),
	}
}

func (p *Publisher) SetMode(mode string)     { p.set(entityMode, mode) }
func (p *Publisher) SetDecorations(count int) { p.set(entityDecorations, strconv.Itoa(count)) }
func (p *Publisher) SetStatus(status string)  { p.set(entityStatus, status) }

func (p *Publisher) set(entity, value string) {
	p.mu.Lock()
	if p.states[entity] == value {
		p.mu.Unlock()
		return
	}
	p.states[entity] = value
	p.mu.Unlock()

	select {
	case p.changed <- struct{}{}:
	default:
	}
}

// Start connects to the broker and publishes state changes until ctx is
// cancelled. Connection failures are retried in the background.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker url: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   p.availabilityTopic(),
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected to broker", "broker", p.cfg.Broker)
			p.publishDiscovery(ctx, cm)
			p.publishAvailability(ctx, cm, "online")
			p.publishStates(ctx, cm, p.snapshot())
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "emapet-" + p.cfg.DeviceName,
		},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, connCancel := context.WithTimeout(ctx, connectTimeout)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.logger.Warn("mqtt initial connection timed out, retrying in background", "error", err)
	}

	p.run(ctx, cm)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	p.publishAvailability(stopCtx, cm, "offline")
	if err := cm.Disconnect(stopCtx); err != nil {
		p.logger.Warn("mqtt disconnect failed", "error", err)
	}
	return nil
}

func (p *Publisher) run(ctx context.Context, b broker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.changed:
			p.publishStates(ctx, b, p.snapshot())
		}
	}
}

func (p *Publisher) snapshot() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make(map[string]string, len(p.states))
	for entity, value := range p.states {
		states[entity] = value
	}
	return states
}

func (p *Publisher) baseTopic() string {
	return "emapet/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) stateTopic(entity string) string {
	return p.baseTopic() + "/" + entity + "/state"
}

func (p *Publisher) discoveryTopic(entity string) string {
	return p.cfg.DiscoveryPrefix + "/sensor/" + p.cfg.DeviceName + "/" + entity + "/config"
}

func (p *Publisher) sensorDefinitions() map[string]SensorConfig {
	sensor := func(entity, name, icon string) SensorConfig {
		return SensorConfig{
			Name:              p.device.Name + " " + name,
			UniqueID:          p.instanceID + "_" + entity,
			StateTopic:        p.stateTopic(entity),
			AvailabilityTopic: p.availabilityTopic(),
			Device:            p.device,
			Icon:              icon,
		}
	}

	mode := sensor(entityMode, "Mode", "mdi:robot-happy")
	mode.DeviceClass = "enum"
	mode.Options = ModeNames

	decorations := sensor(entityDecorations, "Decorations", "mdi:broom")
	decorations.StateClass = "measurement"

	return map[string]SensorConfig{
		entityMode:        mode,
		entityDecorations: decorations,
		entityStatus:      sensor(entityStatus, "Status", "mdi:message-text"),
	}
}

func (p *Publisher) publishDiscovery(ctx context.Context, b broker) {
	for entity, sensor := range p.sensorDefinitions() {
		payload, err := json.Marshal(sensor)
		if err != nil {
			p.logger.Error("mqtt marshal discovery payload", "entity", entity, "error", err)
			continue
		}

		topic := p.discoveryTopic(entity)
		if _, err := b.Publish(ctx, &paho.Publish{Topic: topic, Payload: payload, QoS: 1, Retain: true}); err != nil {
			p.logger.Warn("mqtt discovery publish failed", "entity", entity, "topic", topic, "error", err)
		}
	}
}

func (p *Publisher) publishAvailability(ctx context.Context, b broker, status string) {
	if _, err := b.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt availability publish failed", "status", status, "error", err)
	}
}

func (p *Publisher) publishStates(ctx context.Context, b broker, states map[string]string) {
	for entity, value := range states {
		if _, err := b.Publish(ctx, &paho.Publish{
			Topic:   p.stateTopic(entity),
			Payload: []byte(value),
			Retain:  true,
		}); err != nil {
			p.logger.Debug("mqtt state publish failed", "entity", entity, "error", err)
		}
	}
}
