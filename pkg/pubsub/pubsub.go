package pubsub

import (
	"context"
	"encoding/json"
)

// TopicScanStatus carries a ScanStatus every time a scan finishes or fails
const TopicScanStatus = "scan_status"

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic, e.g. "scan_status"
	Type    string          `json:"type"`    // Event type, e.g. "ready" or "error"
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Per-topic sequence number
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string

	// Events is closed when the publisher shuts down
	Events() <-chan Event

	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// ScanStatus is the payload of TopicScanStatus events
type ScanStatus struct {
	State      string `json:"state"` // "ready" or "error"
	Project    string `json:"project,omitempty"`
	Reason     string `json:"reason,omitempty"` // What triggered the scan
	Targets    int    `json:"targets"`
	Cycles     int    `json:"cycles"`
	Error      string `json:"error,omitempty"`
	Generation int    `json:"generation"`
}
