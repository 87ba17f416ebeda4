package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	return &fakeToken{err: p.err}
}

type recorder struct {
	got []Notification
}

func (r *recorder) Notify(n Notification) { r.got = append(r.got, n) }

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := &LogNotifier{Logger: logger}

	n.Notify(Notification{Title: "Session Expired", Description: "Please log in again to continue.", Variant: VariantDestructive})
	n.Notify(Notification{Title: "Success!", Description: "Vehicle Added Successfully!", Variant: VariantDefault})

	require.Len(t, hook.Entries, 2)
	assert.Equal(t, log.WarnLevel, hook.Entries[0].Level)
	assert.Equal(t, "Session Expired", hook.Entries[0].Data["title"])
	assert.Equal(t, log.InfoLevel, hook.Entries[1].Level)
	assert.Equal(t, "Vehicle Added Successfully!", hook.Entries[1].Message)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.Notify(Notification{Title: "x"})
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}

func TestMQTTNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	n := &MQTTNotifier{client: pub, topic: "fleet/console/notifications", timeout: time.Second}

	n.Notify(Notification{Title: "Not Found", Description: "The requested resource was not found.", Variant: VariantDestructive})

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "fleet/console/notifications", pub.topics[0])
	var got Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, "Not Found", got.Title)
	assert.Equal(t, VariantDestructive, got.Variant)
}

func TestMQTTNotifier_PublishErrorIsLogged(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	n := &MQTTNotifier{client: pub, topic: "t", timeout: time.Second}

	assert.NotPanics(t, func() { n.Notify(Notification{Title: "x"}) })
	assert.Len(t, pub.payloads, 1)
	n.Close()
}
