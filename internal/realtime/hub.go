package realtime

import (
	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

// Hub fans domain events out to the right subset of live connections.
// Delivery is best-effort and at-most-once per connected recipient; one
// unreachable recipient never blocks or fails delivery to the others.
type Hub struct {
	reg *Registry
	lg  *logger.Logger
}

func NewHub(reg *Registry, lg *logger.Logger) *Hub {
	return &Hub{reg: reg, lg: lg}
}

type chatPayload struct {
	Channel string              `json:"channel"`
	Message *domain.ChatMessage `json:"message"`
}

func (h *Hub) Dispatch(ev domain.Event) {
	switch ev.Type {
	case domain.EventOrderCreated, domain.EventOrderStatusChanged:
		if ev.Order == nil {
			h.lg.Error("event_missing_order", nil, map[string]any{"event_type": ev.Type})
			return
		}
		// Order visibility is company-wide, not channel-scoped.
		h.deliver(h.reg.ListByCompany(ev.CompanyID), TypeOrderUpdate, ev.Order, ev.Type)
	case domain.EventChatMessagePosted:
		if ev.Message == nil {
			h.lg.Error("event_missing_message", nil, map[string]any{"event_type": ev.Type})
			return
		}
		h.deliver(h.reg.ListByChannel(ev.CompanyID, ev.Channel), TypeChatMessage,
			chatPayload{Channel: ev.Channel, Message: ev.Message}, ev.Type)
	default:
		h.lg.Debug("event_skipped", map[string]any{"event_type": ev.Type})
	}
}

func (h *Hub) deliver(conns []*Conn, frameType string, data any, eventType string) {
	sent, dropped := 0, 0
	for _, c := range conns {
		if c.Send(frameType, data) {
			sent++
		} else {
			dropped++
		}
	}
	h.lg.Debug("event_delivered", map[string]any{
		"event_type": eventType, "recipients": sent, "dropped": dropped,
	})
}
