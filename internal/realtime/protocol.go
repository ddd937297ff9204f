package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame is the wire unit: one JSON object per line.
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// Inbound frame types (client → server).
const (
	TypeAuth         = "auth"
	TypeJoinChannel  = "join_channel"
	TypeLeaveChannel = "leave_channel"
	TypePing         = "ping"
)

// Outbound frame types (server → client).
const (
	TypeAuthSuccess   = "auth_success"
	TypeChannelJoined = "channel_joined"
	TypeChannelLeft   = "channel_left"
	TypeOrderUpdate   = "order_update"
	TypeChatMessage   = "chat_message"
	TypePong          = "pong"
	TypeError         = "error"
)

// Inbound is the closed set of client messages. Decoding happens once at the
// transport boundary; handlers switch over the concrete types.
type Inbound interface{ inbound() }

type AuthRequest struct {
	Token string `json:"token"`
}

type JoinChannel struct {
	Channel string `json:"channel"`
}

type LeaveChannel struct {
	Channel string `json:"channel"`
}

type Ping struct{}

func (AuthRequest) inbound()  {}
func (JoinChannel) inbound()  {}
func (LeaveChannel) inbound() {}
func (Ping) inbound()         {}

// UnrecognizedMessageError reports an inbound frame whose type is outside
// the protocol.
type UnrecognizedMessageError struct {
	Type string
}

func (e *UnrecognizedMessageError) Error() string {
	return fmt.Sprintf("unrecognized message type %q", e.Type)
}

// DecodeInbound parses one line into its typed message.
func DecodeInbound(line []byte) (Inbound, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	data := f.Data
	if data == nil {
		data = json.RawMessage("{}")
	}
	switch f.Type {
	case TypeAuth:
		var m AuthRequest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("malformed auth payload: %w", err)
		}
		return m, nil
	case TypeJoinChannel:
		var m JoinChannel
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("malformed join_channel payload: %w", err)
		}
		return m, nil
	case TypeLeaveChannel:
		var m LeaveChannel
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("malformed leave_channel payload: %w", err)
		}
		return m, nil
	case TypePing:
		return Ping{}, nil
	default:
		return nil, &UnrecognizedMessageError{Type: f.Type}
	}
}

// Outbound payload shapes.

type AuthSuccess struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CompanyID string `json:"company_id"`
}

type ChannelEvent struct {
	Channel string `json:"channel"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeFrame renders an outbound frame as one newline-terminated JSON line.
func EncodeFrame(typ string, data any) ([]byte, error) {
	now := time.Now().UTC()
	f := Frame{Type: typ, Timestamp: &now}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		f.Data = raw
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
