package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventType names an identity flow decision. The values below are the full
// vocabulary the engine emits; sinks can rely on the set being closed.
type EventType string

const (
	EventAccountRegistered     EventType = "account_registered"
	EventRegisterFailure       EventType = "register_failure"
	EventRegisterDuplicate     EventType = "register_duplicate"
	EventConfirmationIssued    EventType = "confirmation_issued"
	EventConfirmationConfirmed EventType = "confirmation_confirmed"
	EventConfirmationFailure   EventType = "confirmation_failure"
	EventConfirmationReplay    EventType = "confirmation_replay"
	EventLoginSuccess          EventType = "login_success"
	EventLoginFailure          EventType = "login_failure"
	EventLoginLockedOut        EventType = "login_locked_out"
	EventTwoFactorRequired     EventType = "two_factor_required"
	EventTwoFactorSuccess      EventType = "two_factor_success"
	EventTwoFactorFailure      EventType = "two_factor_failure"
	EventLockoutTriggered      EventType = "lockout_triggered"
	EventDeliveryFailure       EventType = "delivery_failure"
	EventLogoutSession         EventType = "logout_session"
	EventLogoutAll             EventType = "logout_all"
	EventTwoFactorEnabled      EventType = "two_factor_enabled"
	EventTwoFactorDisabled     EventType = "two_factor_disabled"
)

// Event is the canonical audit event model used by internal dispatching and root APIs.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
