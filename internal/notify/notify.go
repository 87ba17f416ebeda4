// Package notify delivers operator-facing notifications (toasts).
package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Variant is the visual style of a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a single transient message shown to the operator.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	Time        time.Time `json:"time"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	Logger log.FieldLogger
}

// NewLogNotifier creates a notifier on the standard logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Logger: log.StandardLogger()}
}

// Notify logs n, at warning level for destructive notifications.
func (l *LogNotifier) Notify(n Notification) {
	entry := l.Logger.WithFields(log.Fields{
		"title":   n.Title,
		"variant": n.Variant,
	})
	if n.Variant == VariantDestructive {
		entry.Warn(n.Description)
		return
	}
	entry.Info(n.Description)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers n to every notifier in order.
func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}

// publisher is the part of mqtt.Client the MQTT notifier needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes notifications as JSON to an MQTT topic so other
// operator screens can mirror them.
type MQTTNotifier struct {
	client  publisher
	topic   string
	timeout time.Duration

	mu   sync.Mutex
	conn mqtt.Client
}

// NewMQTTNotifier connects to broker and returns a notifier publishing on topic.
func NewMQTTNotifier(broker, clientID, topic string) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	log.WithFields(log.Fields{"broker": broker, "topic": topic}).Info("Connected to MQTT broker")
	return &MQTTNotifier{client: client, topic: topic, timeout: 5 * time.Second, conn: client}, nil
}

// Notify publishes n. Delivery failures are logged; notifications are best effort.
func (m *MQTTNotifier) Notify(n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		log.WithError(err).Error("Failed to marshal notification")
		return
	}
	token := m.client.Publish(m.topic, 1, false, payload)
	if !token.WaitTimeout(m.timeout) {
		log.WithField("topic", m.topic).Warn("Timed out publishing notification")
		return
	}
	if err := token.Error(); err != nil {
		log.WithError(err).WithField("topic", m.topic).Error("Failed to publish notification")
	}
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Disconnect(250)
		m.conn = nil
	}
}
