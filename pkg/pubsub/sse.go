package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/depscope/pkg/logging"
)

var log = logging.New("pubsub")

// ErrClosed is returned once the publisher has been shut down
var ErrClosed = errors.New("publisher is closed")

// subscriberBuffer is how many undelivered events a slow subscriber may hold
// before new ones are dropped for it
const subscriberBuffer = 16

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Events kept for late subscribers, 0 disables replay
	ReplayAll  bool // Replay the whole buffer instead of only the newest event
}

// topic holds the state of one topic. It is guarded by SSEPublisher.mu.
type topic struct {
	config  TopicConfig
	version int
	buffer  []Event
	subs    map[*sseSubscription]struct{}
}

func (t *topic) replay() []Event {
	if len(t.buffer) == 0 {
		return nil
	}
	if t.config.ReplayAll {
		return t.buffer
	}
	return t.buffer[len(t.buffer)-1:]
}

func (t *topic) remember(event Event) {
	if t.config.BufferSize <= 0 {
		return
	}
	t.buffer = append(t.buffer, event)
	if over := len(t.buffer) - t.config.BufferSize; over > 0 {
		t.buffer = append(t.buffer[:0:0], t.buffer[over:]...)
	}
}

// SSEPublisher is an in-process Publisher whose events are meant to be
// streamed to HTTP clients as Server-Sent Events
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topic)}
}

// topicLocked must be called with p.mu held
func (p *SSEPublisher) topicLocked(name string) *topic {
	t, ok := p.topics[name]
	if !ok {
		t = &topic{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(name string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicLocked(name).config = config
}

// Subscribe registers a subscription and queues the topic's buffered events
// on it before any newer event can be delivered.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	t := p.topicLocked(name)
	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
		closed:    make(chan struct{}),
	}
	replayed := 0
	for _, event := range t.replay() {
		if !sub.offer(event) {
			log.Warn("could not replay event to new subscriber", "topic", name, "version", event.Version)
			break
		}
		replayed++
	}
	t.subs[sub] = struct{}{}
	p.mu.Unlock()

	if replayed > 0 {
		log.Debug("replayed events to new subscriber", "topic", name, "count", replayed)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()

	return sub, nil
}

// Publish marshals data and sends it to every subscriber of the topic.
// Subscribers that are not keeping up miss the event.
func (p *SSEPublisher) Publish(name string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	t := p.topicLocked(name)
	t.version++
	event := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.remember(event)

	for sub := range t.subs {
		if !sub.offer(event) {
			log.Warn("subscriber not keeping up, dropping event", "topic", name, "type", eventType)
		}
	}
	return nil
}

// Close shuts down the publisher. Every subscription's event channel is closed.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			sub.shutdown()
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

// sseSubscription implements Subscription. Its channel is only written and
// closed with the publisher lock held.
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *sseSubscription) offer(event Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// shutdown closes the event channel, p.mu must be held
func (s *sseSubscription) shutdown() {
	close(s.events)
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription from its publisher. The events channel is
// left open, readers should stop on their own context.
func (s *sseSubscription) Close() error {
	first := false
	s.closeOnce.Do(func() {
		close(s.closed)
		first = true
	})
	if first {
		s.publisher.unsubscribe(s)
	}
	return nil
}

// WriteSSE writes an event as a single SSE frame: "event: <type>\ndata: <json>\n\n"
func WriteSSE(w io.Writer, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
