package authcore

import (
	"context"
	"io"
	"time"

	"github.com/provafacil/authcore/internal/notify"
)

// Event is a structured domain event emitted by the controller. The
// presentation layer translates events into user-visible notifications;
// the core never formats user-facing text.
type Event = notify.Event

// EventSink receives emitted events.
type EventSink = notify.Sink

// NoOpSink drops all events.
type NoOpSink = notify.NoOpSink

// ChannelSink is a buffered channel-based EventSink.
type ChannelSink = notify.ChannelSink

// JSONWriterSink writes one JSON-encoded event per line to an io.Writer.
type JSONWriterSink = notify.JSONWriterSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return notify.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return notify.NewJSONWriterSink(w)
}

// Event types carried in Event.EventType.
const (
	EventCodeIssued            = "code.issued"
	EventLoginSucceeded        = "login.succeeded"
	EventLoginFailed           = "login.failed"
	EventAccountLocked         = "account.locked"
	EventRegistrationStaged    = "registration.staged"
	EventAccountCreated        = "account.created"
	EventVerificationFailed    = "verification.failed"
	EventVerificationCancelled = "verification.cancelled"
	EventPaymentConfirmed      = "payment.confirmed"
	EventProfileUpdated        = "profile.updated"
	EventSessionRestored       = "session.restored"
	EventLogout                = "logout"
)

// emit forwards a domain event to the dispatcher. metaFn is evaluated
// lazily so callers pay for metadata maps only when a dispatcher is
// attached.
func (c *Controller) emit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	cause error,
	metaFn func() map[string]string,
) {
	if c == nil || c.events == nil {
		return
	}

	event := Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Email:     email,
		DeviceID:  deviceIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metaFn != nil {
		event.Metadata = metaFn()
	}

	c.events.Emit(ctx, event)
}
