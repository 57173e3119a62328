package core

import (
	"fmt"
	"strings"

	"chatrelay/server/internal/protocol"
)

// result is the outcome of one executed command.
type result struct {
	ok     bool
	count  int
	target string
}

func (res result) event(action string) protocol.Event {
	ev := protocol.NewActionResult(action, res.ok)
	ev.Count = res.count
	return ev
}

// execute applies cmd on behalf of actor. r.mu must be held.
func (r *Relay) execute(actor *Session, cmd Command) (result, error) {
	switch c := cmd.(type) {
	case KickCommand:
		target, ok := r.sessions.Lookup(c.TargetID)
		if !ok {
			return result{target: c.TargetID}, ErrNotFound
		}
		r.noticeLocked(target, fmt.Sprintf("You were kicked by %s", actor.name))
		r.dropLocked(target)
		return result{ok: true, count: 1, target: target.name}, nil

	case DisconnectCommand:
		target, ok := r.sessions.Lookup(c.TargetID)
		if !ok {
			return result{target: c.TargetID}, ErrNotFound
		}
		r.noticeLocked(target, fmt.Sprintf("You were disconnected by %s", actor.name))
		r.dropLocked(target)
		return result{ok: true, count: 1, target: target.name}, nil

	case BanCommand:
		r.moderation.BanName(c.Name)
		n := 0
		for _, s := range r.sessions.All() {
			if s.name != c.Name {
				continue
			}
			r.sendLocked(s, protocol.NewError(noticeBanned))
			r.dropLocked(s)
			n++
		}
		r.announceLocked(fmt.Sprintf("%s was banned by %s", c.Name, actor.name))
		return result{ok: true, count: n, target: c.Name}, nil

	case OriginBanCommand:
		r.moderation.BanOrigin(c.Origin)
		n := 0
		for _, s := range r.sessions.All() {
			if s.origin != c.Origin {
				continue
			}
			r.sendLocked(s, protocol.NewError(noticeBanned))
			r.dropLocked(s)
			n++
		}
		r.announceLocked(fmt.Sprintf("An address was banned by %s.", actor.name))
		return result{ok: true, count: n, target: c.Origin}, nil

	case MuteCommand:
		target, ok := r.sessions.Lookup(c.TargetID)
		if !ok {
			return result{target: c.TargetID}, ErrNotFound
		}
		r.moderation.Mute(target, c.Seconds, r.now())
		return result{ok: true, count: 1, target: target.name}, nil

	case DeleteMessagesCommand:
		n := 0
		for _, id := range c.IDs {
			channel, found := r.history.DeleteByID(id)
			if !found {
				continue
			}
			n++
			r.broadcastLocked(protocol.Event{
				Type:      protocol.TypeDeleteMessage,
				MessageID: id,
				Channel:   channel,
			}, nil)
		}
		target := strings.Join(c.IDs, ",")
		if n == 0 {
			return result{target: target}, ErrNotFound
		}
		return result{ok: true, count: n, target: target}, nil

	case ImpersonateCommand:
		channel := truncate(c.Channel, MaxNameLength)
		if channel == "" {
			channel = actor.channel
		}
		if channel == "" {
			channel = DefaultChannel
		}
		name := truncate(strings.TrimSpace(c.Name), MaxNameLength)
		r.postLocked(name, truncate(c.Text, MaxTextLength), channel, true)
		return result{ok: true, count: 1, target: name}, nil

	case SetConfigCommand:
		r.config = r.config.Apply(c.Patch)
		public := r.config.Public()
		r.broadcastLocked(protocol.Event{Type: protocol.TypeConfigUpdated, Config: &public}, nil)
		if r.configStore == nil {
			return result{ok: true}, nil
		}
		if err := r.configStore.Save(r.config); err != nil {
			return result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return result{ok: true}, nil

	default:
		return result{}, ErrUnknownAction
	}
}
