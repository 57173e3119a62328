package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Inbound request types.
const (
	TypeJoin          = "join"
	TypeCreateChannel = "create_channel"
	TypeMessage       = "message"
	TypeTyping        = "typing"
	TypeAdmin         = "admin"
)

// Outbound event types.
const (
	TypeJoined            = "joined"
	TypeHistory           = "history"
	TypeUserList          = "userlist"
	TypeChannels          = "channels"
	TypeError             = "error"
	TypeAdminActionResult = "admin_action_result"
	TypeDeleteMessage     = "delete_message"
	TypeConfigUpdated     = "config_updated"
)

// SystemAuthor is the author name used for server-generated messages.
const SystemAuthor = "system"

// Request is the JSON envelope a client sends over the websocket.
// Which fields are meaningful depends on Type (and Action for admin requests).
type Request struct {
	Type          string       `json:"type"`
	Name          string       `json:"name,omitempty"`
	Channel       string       `json:"channel,omitempty"`
	AdminPassword string       `json:"adminPassword,omitempty"`
	Text          string       `json:"text,omitempty"`
	Action        string       `json:"action,omitempty"`
	TargetID      string       `json:"targetId,omitempty"`
	TargetName    string       `json:"targetName,omitempty"`
	TargetIP      string       `json:"targetIp,omitempty"`
	Duration      Seconds      `json:"duration,omitempty"`
	MessageID     string       `json:"messageId,omitempty"`
	MessageIDs    []string     `json:"messageIds,omitempty"`
	Config        *ConfigPatch `json:"config,omitempty"`
}

// Event is the JSON envelope the server sends to clients.
type Event struct {
	Type      string        `json:"type"`
	ClientID  string        `json:"clientId,omitempty"`
	Users     []User        `json:"users,omitempty"`
	Channels  []string      `json:"channels,omitempty"`
	Channel   string        `json:"channel,omitempty"`
	Messages  []ChatMessage `json:"messages,omitempty"`
	ID        string        `json:"id,omitempty"`
	From      string        `json:"from,omitempty"`
	Text      string        `json:"text,omitempty"`
	Time      int64         `json:"time,omitempty"`
	ViaAdmin  bool          `json:"viaAdmin,omitempty"`
	Message   string        `json:"message,omitempty"`
	Action    string        `json:"action,omitempty"`
	OK        *bool         `json:"ok,omitempty"`
	Count     int           `json:"count,omitempty"`
	MessageID string        `json:"messageId,omitempty"`
	Config    *PublicConfig `json:"config,omitempty"`
}

// ChatMessage is one entry of a channel history.
type ChatMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	Time     int64  `json:"time"`
	ViaAdmin bool   `json:"viaAdmin,omitempty"`
}

// User is one roster entry. IP is only filled in for admin recipients.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Channel    string `json:"channel"`
	IsAdmin    bool   `json:"isAdmin"`
	MutedUntil int64  `json:"mutedUntil"`
	IP         string `json:"ip,omitempty"`
}

// PublicConfig is the part of the runtime configuration visible to every client.
type PublicConfig struct {
	FamilyFriendly bool `json:"familyFriendly"`
}

// ConfigPatch is a partial runtime configuration sent with set_config.
// Nil fields are left unchanged; unknown fields are ignored by the decoder.
type ConfigPatch struct {
	FamilyFriendly *bool     `json:"familyFriendly,omitempty"`
	FilteredTerms  *[]string `json:"filteredTerms,omitempty"`
}

// NewMessageEvent wraps a chat message in a "message" event.
func NewMessageEvent(m ChatMessage) Event {
	return Event{
		Type:     TypeMessage,
		ID:       m.ID,
		From:     m.From,
		Text:     m.Text,
		Channel:  m.Channel,
		Time:     m.Time,
		ViaAdmin: m.ViaAdmin,
	}
}

// NewError builds an "error" event.
func NewError(reason string) Event {
	return Event{Type: TypeError, Message: reason}
}

// NewActionResult builds an "admin_action_result" event.
func NewActionResult(action string, ok bool) Event {
	return Event{Type: TypeAdminActionResult, Action: action, OK: &ok}
}

// Seconds is a duration in whole seconds that decodes from either a JSON
// number or a numeric string. Values beyond the int64 range saturate. NaN
// and anything non-numeric decode to zero.
type Seconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(str))
	}
	n, err := strconv.ParseFloat(string(data), 64)
	switch {
	case err != nil && !errors.Is(err, strconv.ErrRange), math.IsNaN(n):
		*s = 0
	case n >= math.MaxInt64:
		*s = math.MaxInt64
	case n <= math.MinInt64:
		*s = math.MinInt64
	default:
		*s = Seconds(n)
	}
	return nil
}
