package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mavwarf/quizspeak/internal/playback"
)

func TestPublishBadBroker(t *testing.T) {
	// Connecting to a non-existent broker should return a connect error.
	err := Publish(Options{Broker: "tcp://127.0.0.1:19999", ClientID: "test-client"}, "test/topic", []byte("hello"), false)
	if err == nil {
		t.Fatal("expected error for unreachable broker")
	}
}

func TestPublishBadScheme(t *testing.T) {
	// A completely invalid broker URL should fail.
	err := Publish(Options{Broker: "not-a-url", ClientID: "test-client"}, "test/topic", []byte("hello"), false)
	if err == nil {
		t.Fatal("expected error for invalid broker URL")
	}
}

type published struct {
	topic   string
	payload []byte
	retain  bool
}

type fakeClient struct {
	mu   sync.Mutex
	msgs []published
	got  chan struct{}
}

func (f *fakeClient) Publish(topic string, qos byte, retain bool, payload []byte) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, published{topic, payload, retain})
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

func (f *fakeClient) Close() {}

func TestPublisherMirrorsPlayback(t *testing.T) {
	fc := &fakeClient{got: make(chan struct{}, 8)}
	p := NewPublisher(Options{Topic: "booth1"})
	p.dial = func(Options) (client, error) { return fc, nil }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Observe(playback.Event{Kind: playback.EventLevel, Trigger: "q1"})
	p.Observe(playback.Event{Kind: playback.EventStarted, Trigger: "q1", SessionID: "s1", State: playback.TriggerState{Playing: true}})
	p.TimerExpired(time.Now())

	for i := 0; i < 2; i++ {
		select {
		case <-fc.got:
		case <-time.After(5 * time.Second):
			t.Fatal("message not published")
		}
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(fc.msgs))
	}
	if fc.msgs[0].topic != "booth1/playback" || !fc.msgs[0].retain {
		t.Errorf("state message = %+v", fc.msgs[0])
	}
	var st State
	if err := json.Unmarshal(fc.msgs[0].payload, &st); err != nil {
		t.Fatal(err)
	}
	if st.Kind != "started" || st.Trigger != "q1" || !st.Playing {
		t.Errorf("state = %+v", st)
	}
	if fc.msgs[1].topic != "booth1/timer" {
		t.Errorf("timer topic = %q", fc.msgs[1].topic)
	}
}

func TestPublisherBrokerDown(t *testing.T) {
	p := NewPublisher(Options{})
	p.dial = func(Options) (client, error) { return nil, errors.New("refused") }
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < queueDepth*2; i++ {
		p.Observe(playback.Event{Kind: playback.EventEnded, Trigger: "q1"})
	}
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Run should report the dial error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
