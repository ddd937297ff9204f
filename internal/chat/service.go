package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

const maxContentLen = 2000

type MessageStore interface {
	SaveMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, companyID, channel string, limit, offset int) ([]domain.ChatMessage, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type Service struct {
	store MessageStore
	pub   EventPublisher
	lg    *logger.Logger
}

func NewService(store MessageStore, pub EventPublisher, lg *logger.Logger) *Service {
	return &Service{store: store, pub: pub, lg: lg}
}

// Post persists a chat message and emits chat.message_posted. The channel
// must exist and the actor's role must be allowed into it.
func (s *Service) Post(ctx context.Context, actor domain.Identity, channel, content string) (domain.ChatMessage, error) {
	if err := checkChannel(actor.Role, channel); err != nil {
		return domain.ChatMessage{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ChatMessage{}, errors.New("message content is empty")
	}
	if len(content) > maxContentLen {
		return domain.ChatMessage{}, errors.New("message content too long")
	}

	m := domain.ChatMessage{
		ID:        uuid.NewString(),
		CompanyID: actor.CompanyID,
		Channel:   channel,
		UserID:    actor.UserID,
		Username:  actor.Username,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveMessage(ctx, &m); err != nil {
		return domain.ChatMessage{}, err
	}

	if err := s.pub.Publish(ctx, domain.NewChatMessagePosted(m)); err != nil {
		s.lg.Error("event_publish_failed", err, map[string]any{"event_type": domain.EventChatMessagePosted})
	}
	s.lg.Debug("chat_message_posted", map[string]any{
		"company_id": m.CompanyID, "channel": m.Channel, "user_id": m.UserID,
	})
	return m, nil
}

func (s *Service) History(ctx context.Context, actor domain.Identity, channel string, limit, offset int) ([]domain.ChatMessage, error) {
	if err := checkChannel(actor.Role, channel); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, actor.CompanyID, channel, limit, offset)
}

func checkChannel(role domain.Role, channel string) error {
	if !domain.KnownChannel(channel) {
		return &domain.UnknownChannelError{Channel: channel}
	}
	if !domain.CanAccessChannel(role, channel) {
		return &domain.UnauthorizedChannelError{Channel: channel, Role: role}
	}
	return nil
}
