// Package mqtt mirrors playback state to an MQTT broker so other kiosk
// devices (a proctor dashboard, a light over the booth) can follow it.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Mavwarf/quizspeak/internal/playback"
)

const (
	timeout    = 5 * time.Second
	queueDepth = 64
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	// Topic is the prefix; state goes to Topic+"/playback" and timer
	// expiry to Topic+"/timer".
	Topic    string
	Username string
	Password string
	QoS      byte
}

// client is the subset of a broker connection the publisher needs.
type client interface {
	Publish(topic string, qos byte, retain bool, payload []byte) error
	Close()
}

type pahoClient struct{ c pahomqtt.Client }

func (p pahoClient) Publish(topic string, qos byte, retain bool, payload []byte) error {
	tok := p.c.Publish(topic, qos, retain, payload)
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: publish timeout")
	}
	if tok.Error() != nil {
		return fmt.Errorf("mqtt: publish: %w", tok.Error())
	}
	return nil
}

func (p pahoClient) Close() { p.c.Disconnect(250) }

// dial connects to the broker.
func dial(o Options) (client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true)

	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}

	c := pahomqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect timeout")
	}
	if tok.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", tok.Error())
	}
	return pahoClient{c}, nil
}

// Publish connects, publishes one message and disconnects.
func Publish(o Options, topic string, payload []byte, retain bool) error {
	c, err := dial(o)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Publish(topic, o.QoS, retain, payload)
}

// State is the retained playback message.
type State struct {
	Kind      string    `json:"kind"`
	Trigger   string    `json:"trigger"`
	SessionID string    `json:"session_id,omitempty"`
	Voice     string    `json:"voice,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	Playing   bool      `json:"playing"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

type message struct {
	topic   string
	payload []byte
	retain  bool
}

// Publisher keeps one broker connection and publishes queued messages in
// order. Publishing is best-effort: a full queue or a broker error is
// logged and the message dropped.
type Publisher struct {
	opts  Options
	dial  func(Options) (client, error)
	queue chan message
}

// NewPublisher returns a publisher; the connection is made by Run.
func NewPublisher(o Options) *Publisher {
	if o.ClientID == "" {
		o.ClientID = "quizspeak"
	}
	if o.Topic == "" {
		o.Topic = "quizspeak"
	}
	return &Publisher{opts: o, dial: dial, queue: make(chan message, queueDepth)}
}

// Observe is a controller subscriber. Level events are not mirrored.
func (p *Publisher) Observe(ev playback.Event) {
	if ev.Kind == playback.EventLevel {
		return
	}
	data, err := json.Marshal(State{
		Kind:      string(ev.Kind),
		Trigger:   string(ev.Trigger),
		SessionID: ev.SessionID,
		Voice:     ev.Voice,
		Locale:    ev.Locale,
		Playing:   ev.State.Playing,
		Error:     ev.Err,
		Time:      ev.Time,
	})
	if err != nil {
		return
	}
	p.enqueue(message{topic: p.opts.Topic + "/playback", payload: data, retain: true})
}

// TimerExpired announces that the countdown submitted the form.
func (p *Publisher) TimerExpired(at time.Time) {
	data, _ := json.Marshal(map[string]any{"expired": true, "time": at})
	p.enqueue(message{topic: p.opts.Topic + "/timer", payload: data})
}

func (p *Publisher) enqueue(m message) {
	select {
	case p.queue <- m:
	default:
		slog.Warn("mqtt: queue full, dropping message", "topic", m.topic)
	}
}

// Run connects and publishes until ctx is cancelled. A failed connection
// is logged and the queue drained without publishing.
func (p *Publisher) Run(ctx context.Context) error {
	c, err := p.dial(p.opts)
	if err != nil {
		slog.Warn("mqtt: broker unavailable, state will not be mirrored", "broker", p.opts.Broker, "err", err)
		for {
			select {
			case <-p.queue:
			case <-ctx.Done():
				return err
			}
		}
	}
	defer c.Close()
	slog.Info("mqtt: connected", "broker", p.opts.Broker, "topic", p.opts.Topic)

	for {
		select {
		case m := <-p.queue:
			if err := c.Publish(m.topic, p.opts.QoS, m.retain, m.payload); err != nil {
				slog.Warn("mqtt: publish failed", "topic", m.topic, "err", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
