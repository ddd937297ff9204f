package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventChatMessagePosted  = "chat.message_posted"
)

// Event is the envelope handed to the broadcast hub after a successful
// mutation. The underlying order or message is already persisted by the time
// an event is raised; events themselves are transient and never stored.
type Event struct {
	Type       string       `json:"event_type"`
	CompanyID  string       `json:"company_id"`
	Channel    string       `json:"channel,omitempty"`
	Order      *Order       `json:"order,omitempty"`
	Message    *ChatMessage `json:"message,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewOrderCreated(o Order) Event {
	return Event{
		Type:       EventOrderCreated,
		CompanyID:  o.CompanyID,
		Order:      &o,
		OccurredAt: time.Now().UTC(),
	}
}

func NewOrderStatusChanged(o Order) Event {
	return Event{
		Type:       EventOrderStatusChanged,
		CompanyID:  o.CompanyID,
		Order:      &o,
		OccurredAt: time.Now().UTC(),
	}
}

func NewChatMessagePosted(m ChatMessage) Event {
	return Event{
		Type:       EventChatMessagePosted,
		CompanyID:  m.CompanyID,
		Channel:    m.Channel,
		Message:    &m,
		OccurredAt: time.Now().UTC(),
	}
}
