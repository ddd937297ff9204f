package domain

import (
	"fmt"
	"time"
)

const (
	ChannelGeneral = "general"
	ChannelSupport = "support"
	ChannelKitchen = "kitchen"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Channel   string    `json:"channel"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func KnownChannel(name string) bool {
	switch name {
	case ChannelGeneral, ChannelSupport, ChannelKitchen:
		return true
	}
	return false
}

// CanAccessChannel gates channel membership by role. The kitchen channel is
// for kitchen staff and management; general and support are open to every
// authenticated member of the tenant.
func CanAccessChannel(role Role, channel string) bool {
	if channel != ChannelKitchen {
		return true
	}
	switch role {
	case RoleAdmin, RoleManager, RoleKitchen:
		return true
	}
	return false
}

type UnknownChannelError struct {
	Channel string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %q", e.Channel)
}

type UnauthorizedChannelError struct {
	Channel string
	Role    Role
}

func (e *UnauthorizedChannelError) Error() string {
	return fmt.Sprintf("role %q may not access channel %q", e.Role, e.Channel)
}
