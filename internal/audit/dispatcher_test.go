package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}

	// Nil receivers are safe.
	d.Emit(context.Background(), Event{EventType: EventLogoutSession})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	d.Emit(context.Background(), Event{EventType: EventLoginSuccess, AccountID: "acct-1", Success: true})
	d.Close()

	select {
	case event := <-sink.Events():
		if event.EventType != EventLoginSuccess || event.AccountID != "acct-1" {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	sink := NewChannelSink(64)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	const n = 20
	for i := 0; i < n; i++ {
		d.Emit(context.Background(), Event{EventType: EventLoginSuccess})
	}
	d.Close()

	var received int
	for {
		select {
		case <-sink.Events():
			received++
		case <-time.After(200 * time.Millisecond):
			if received != n {
				t.Fatalf("received %d events, want %d", received, n)
			}
			return
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that never drains forces the queue to fill.
	blocked := NewChannelSink(0)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, blocked)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: EventLoginSuccess})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}
}

func TestJSONWriterSinkWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Now().UTC(),
		EventType: EventLoginFailure,
		AccountID: "acct-1",
		Error:     "invalid_credentials",
		Metadata:  map[string]string{"reason": "password_mismatch"},
	})

	line := buf.String()
	if line == "" || line[len(line)-1] != '\n' {
		t.Fatalf("output %q must be a single newline-terminated record", line)
	}

	var decoded Event
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.EventType != EventLoginFailure || decoded.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("decoded = %+v", decoded)
	}
}
