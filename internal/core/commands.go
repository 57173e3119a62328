package core

import (
	"strings"

	"chatrelay/server/internal/protocol"
)

// Admin action names accepted in the "action" field of an admin request.
const (
	ActionKick           = "kick"
	ActionBan            = "ban"
	ActionIPBan          = "ip_ban"
	ActionDisconnect     = "disconnect"
	ActionMute           = "mute"
	ActionDeleteMessage  = "delete_message"
	ActionDeleteMessages = "delete_messages"
	ActionImpersonate    = "impersonate"
	ActionSetConfig      = "set_config"
)

// Command is one moderation command. The set of implementations is closed:
// every Command is one of the types below and Relay.execute handles each.
type Command interface {
	// Action returns the wire name the command was requested with.
	Action() string
	command()
}

// KickCommand closes a session after sending it a notice.
type KickCommand struct{ TargetID string }

// BanCommand bans a display name and closes every session using it.
type BanCommand struct{ Name string }

// OriginBanCommand bans a network origin and closes every session from it.
type OriginBanCommand struct{ Origin string }

// DisconnectCommand closes a session without banning it.
type DisconnectCommand struct{ TargetID string }

// MuteCommand mutes a session for Seconds seconds.
type MuteCommand struct {
	TargetID string
	Seconds  int64
}

// DeleteMessagesCommand removes messages from history by id.
type DeleteMessagesCommand struct {
	IDs    []string
	action string
}

// ImpersonateCommand injects a message authored under an arbitrary name.
type ImpersonateCommand struct {
	Name    string
	Text    string
	Channel string
}

// SetConfigCommand merges a partial runtime configuration.
type SetConfigCommand struct{ Patch protocol.ConfigPatch }

func (KickCommand) Action() string { return ActionKick }
func (BanCommand) Action() string { return ActionBan }
func (OriginBanCommand) Action() string { return ActionIPBan }
func (DisconnectCommand) Action() string { return ActionDisconnect }
func (MuteCommand) Action() string { return ActionMute }
func (c DeleteMessagesCommand) Action() string {
	if c.action == "" {
		return ActionDeleteMessages
	}
	return c.action
}
func (ImpersonateCommand) Action() string { return ActionImpersonate }
func (SetConfigCommand) Action() string { return ActionSetConfig }

func (KickCommand) command() {}
func (BanCommand) command() {}
func (OriginBanCommand) command() {}
func (DisconnectCommand) command() {}
func (MuteCommand) command() {}
func (DeleteMessagesCommand) command() {}
func (ImpersonateCommand) command() {}
func (SetConfigCommand) command() {}

// ParseCommand converts an admin request into a Command. It returns
// ErrUnknownAction for unrecognized actions and a *ValidationError when a
// required field is missing.
func ParseCommand(req protocol.Request) (Command, error) {
	action := strings.TrimSpace(req.Action)
	switch action {
	case ActionKick:
		if req.TargetID == "" {
			return nil, &ValidationError{Action: action, Field: "targetId"}
		}
		return KickCommand{TargetID: req.TargetID}, nil

	case ActionBan:
		name := truncate(strings.TrimSpace(req.TargetName), MaxNameLength)
		if name == "" {
			return nil, &ValidationError{Action: action, Field: "targetName"}
		}
		return BanCommand{Name: name}, nil

	case ActionIPBan:
		if strings.TrimSpace(req.TargetIP) == "" {
			return nil, &ValidationError{Action: action, Field: "targetIp"}
		}
		return OriginBanCommand{Origin: strings.TrimSpace(req.TargetIP)}, nil

	case ActionDisconnect:
		if req.TargetID == "" {
			return nil, &ValidationError{Action: action, Field: "targetId"}
		}
		return DisconnectCommand{TargetID: req.TargetID}, nil

	case ActionMute:
		if req.TargetID == "" {
			return nil, &ValidationError{Action: action, Field: "targetId"}
		}
		return MuteCommand{TargetID: req.TargetID, Seconds: int64(req.Duration)}, nil

	case ActionDeleteMessage, ActionDeleteMessages:
		ids := make([]string, 0, len(req.MessageIDs)+1)
		if req.MessageID != "" {
			ids = append(ids, req.MessageID)
		}
		for _, id := range req.MessageIDs {
			if id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, &ValidationError{Action: action, Field: "messageId"}
		}
		return DeleteMessagesCommand{IDs: ids, action: action}, nil

	case ActionImpersonate:
		if strings.TrimSpace(req.Name) == "" {
			return nil, &ValidationError{Action: action, Field: "name"}
		}
		if req.Text == "" {
			return nil, &ValidationError{Action: action, Field: "text"}
		}
		return ImpersonateCommand{Name: req.Name, Text: req.Text, Channel: req.Channel}, nil

	case ActionSetConfig:
		if req.Config == nil {
			return nil, &ValidationError{Action: action, Field: "config"}
		}
		return SetConfigCommand{Patch: *req.Config}, nil

	default:
		return nil, ErrUnknownAction
	}
}
