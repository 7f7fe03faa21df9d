package log

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// captureLogger records events for assertions.
type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureLogger) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestEncodeDecodeEvent(t *testing.T) {
	want := Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: "conn-1",
		Direction:    DirectionOut,
		Layer:        LayerPairing,
		Category:     CategoryMessage,
		RemoteAddr:   "127.0.0.1:18789",
		StableID:     "0123456789abcdef",
		Message:      NewMessageEvent("hello", []byte(`{"type":"hello"}`)),
	}

	data, err := EncodeEvent(want)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	if got.ConnectionID != want.ConnectionID {
		t.Errorf("ConnectionID = %q, want %q", got.ConnectionID, want.ConnectionID)
	}
	if got.Layer != LayerPairing || got.Category != CategoryMessage {
		t.Errorf("layer/category = %v/%v, want %v/%v",
			got.Layer, got.Category, LayerPairing, CategoryMessage)
	}
	if got.Message == nil || got.Message.Type != "hello" {
		t.Fatalf("Message = %+v, want type hello", got.Message)
	}
	if !bytes.Equal(got.Message.Line, want.Message.Line) {
		t.Errorf("Line = %q, want %q", got.Message.Line, want.Message.Line)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
}

func TestNewMessageEventTruncation(t *testing.T) {
	long := bytes.Repeat([]byte("x"), MaxLogLineSize+100)

	ev := NewMessageEvent("hello", long)
	if !ev.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(ev.Line) != MaxLogLineSize {
		t.Errorf("len(Line) = %d, want %d", len(ev.Line), MaxLogLineSize)
	}

	short := []byte("short")
	ev = NewMessageEvent("hello", short)
	if ev.Truncated {
		t.Error("short line marked truncated")
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.clog")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	fl.Log(Event{
		Timestamp: time.Now(),
		Direction: DirectionNone,
		Layer:     LayerDiscovery,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   "domain:local",
			NewState: "ready",
		},
	})
	fl.Log(Event{
		Timestamp: time.Now(),
		Direction: DirectionIn,
		Layer:     LayerPairing,
		Category:  CategoryMessage,
		Message:   NewMessageEvent("hello-ok", []byte(`{"type":"hello-ok"}`)),
	})

	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Logging after close is a no-op, not a panic.
	fl.Log(Event{Timestamp: time.Now()})
	if err := fl.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].StateChange == nil || events[0].StateChange.Entity != "domain:local" {
		t.Errorf("event 0 = %+v, want domain state change", events[0])
	}
	if events[1].Message == nil || events[1].Message.Type != "hello-ok" {
		t.Errorf("event 1 = %+v, want hello-ok message", events[1])
	}
}

func TestMultiLogger(t *testing.T) {
	a := &captureLogger{}
	b := &captureLogger{}
	ml := NewMultiLogger(a, b)

	ml.Log(Event{Timestamp: time.Now(), Layer: LayerGateway})

	if len(a.all()) != 1 || len(b.all()) != 1 {
		t.Errorf("fan-out = %d/%d events, want 1/1", len(a.all()), len(b.all()))
	}
}
