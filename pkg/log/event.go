package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the pairing or control connection (UUID);
	// empty for discovery events.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port) where applicable.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// StableID is the bridge stable id the event relates to.
	StableID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"8,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
	// DirectionNone is used for events with no message flow.
	DirectionNone Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which subsystem captured the event.
type Layer uint8

const (
	// LayerDiscovery is the mDNS browse/resolve layer.
	LayerDiscovery Layer = 0
	// LayerPairing is the hello/pair handshake layer.
	LayerPairing Layer = 1
	// LayerGateway is the endpoint resolver layer.
	LayerGateway Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDiscovery:
		return "DISCOVERY"
	case LayerPairing:
		return "PAIRING"
	case LayerGateway:
		return "GATEWAY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MaxLogLineSize is the maximum message line size to include in log
// events. Longer lines are truncated.
const MaxLogLineSize = 4096

// MessageEvent captures one newline-delimited JSON protocol line.
type MessageEvent struct {
	// Type is the message type discriminant (hello, hello-ok, ...).
	Type string `cbor:"1,keyasint"`

	// Line holds the raw JSON line (possibly truncated).
	Line []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Line was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures discovery, connection and resolver
// lifecycle transitions.
type StateChangeEvent struct {
	// Entity is what changed state ("domain", "resolver", "link").
	Entity string `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"2,keyasint,omitempty"`
}

// NewMessageEvent builds a message event, truncating oversized lines.
func NewMessageEvent(msgType string, line []byte) *MessageEvent {
	ev := &MessageEvent{Type: msgType, Line: line}
	if len(line) > MaxLogLineSize {
		ev.Line = line[:MaxLogLineSize]
		ev.Truncated = true
	}
	return ev
}
