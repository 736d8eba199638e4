package domain

// EventType tags a broadcast event on the wire.
type EventType string

const (
	// EventMessageCreated carries a freshly persisted message.
	EventMessageCreated EventType = "message.created"
	// EventStreamReady acknowledges a stream-only subscription.
	EventStreamReady EventType = "sse.ready"
	// EventPing is the keepalive frame; it has no payload semantics.
	EventPing EventType = "ping"
)

// Event is the tagged union pushed to every live subscriber. The same shape
// goes over both transports; only the framing differs.
type Event struct {
	Type    EventType `json:"type"`
	Payload *Message  `json:"payload,omitempty"`
}

// MessageCreated builds the fan-out event for a persisted message.
func MessageCreated(msg *Message) Event {
	return Event{Type: EventMessageCreated, Payload: msg}
}
