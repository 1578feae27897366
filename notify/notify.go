// Package notify publishes alert transitions to external consumers. The
// engine itself behaves identically whether a notifier is attached or not.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/timzifer/aquasync/alerts"
	"github.com/timzifer/aquasync/config"
)

// Event describes a single alert transition.
type Event struct {
	Type      string        `json:"type"` // "raised" or "cleared"
	Key       string        `json:"key"`
	Alert     *alerts.Alert `json:"alert,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Notifier receives alert transitions from the engine.
type Notifier interface {
	AlertRaised(alert alerts.Alert)
	AlertCleared(key string)
	Close()
}

type noopNotifier struct{}

// Noop returns a notifier that discards all events.
func Noop() Notifier {
	return noopNotifier{}
}

func (noopNotifier) AlertRaised(alerts.Alert) {}
func (noopNotifier) AlertCleared(string)      {}
func (noopNotifier) Close()                   {}

type mqttNotifier struct {
	client mqtt.Client
	topic  string
	logger zerolog.Logger
}

// New builds a notifier from configuration. A disabled configuration yields
// the noop notifier.
func New(cfg config.NotifyConfig, logger zerolog.Logger) (Notifier, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("notify broker is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "aquasync/alerts"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "aquasync"
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect notify broker %s: %w", cfg.Broker, token.Error())
	}
	return &mqttNotifier{
		client: client,
		topic:  topic,
		logger: logger.With().Str("component", "notify").Logger(),
	}, nil
}

func (n *mqttNotifier) publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Str("key", event.Key).Msg("encode alert event")
		return
	}
	token := n.client.Publish(n.topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		n.logger.Warn().Err(err).Str("key", event.Key).Msg("publish alert event")
	}
}

// AlertRaised publishes a raised transition.
func (n *mqttNotifier) AlertRaised(alert alerts.Alert) {
	n.publish(Event{Type: "raised", Key: alert.Key, Alert: &alert, Timestamp: time.Now()})
}

// AlertCleared publishes a cleared transition.
func (n *mqttNotifier) AlertCleared(key string) {
	n.publish(Event{Type: "cleared", Key: key, Timestamp: time.Now()})
}

// Close disconnects from the broker.
func (n *mqttNotifier) Close() {
	n.client.Disconnect(250)
}
