package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"chatrelay/server/internal/protocol"
	"chatrelay/server/internal/settings"
)

// Notices sent to clients.
const (
	noticeBanned       = "You are banned."
	noticeLocked       = "Too many failed admin attempts from your IP. Try later."
	noticeBadPassword  = "Admin password incorrect."
	noticeMuted        = "You are muted."
	noticeTooFast      = "You are sending messages too fast."
	noticeEmptyMessage = "message is required"
	noticeUnauthorized = "Unauthorized: admin only"
)

// ConfigSaver persists the runtime configuration.
type ConfigSaver interface {
	Save(cfg settings.Config) error
}

// Auditor records executed admin actions.
type Auditor interface {
	InsertAuditLog(actorID, actorName, action, target, detailsJSON string) error
}

// Options configures a Relay.
type Options struct {
	// HistoryLimit caps each channel's history (DefaultHistoryCap if <= 0).
	HistoryLimit int
	// AdminUsers are display names granted admin on join unconditionally.
	AdminUsers []string
	// Secret enables password-based admin login when configured.
	Secret Secret
	// Config is the runtime configuration loaded at startup.
	Config settings.Config
	// ConfigStore persists runtime configuration changes. Nil keeps them
	// in memory only.
	ConfigStore ConfigSaver
	// Audit receives one entry per executed admin command. Optional.
	Audit Auditor
	// LockThreshold and LockDuration override the login throttle limits.
	LockThreshold int
	LockDuration  time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Relay is the chat coordinator. It owns every piece of shared state and
// serializes all access to it with a single lock, since broadcasts and
// moderation read and write across all sessions and channels at once.
type Relay struct {
	mu          sync.Mutex
	now         func() time.Time
	sessions    *Sessions
	history     *History
	moderation  *Moderation
	throttle    *Throttle
	channels    *channelSet
	admins      map[string]struct{}
	secret      Secret
	config      settings.Config
	configStore ConfigSaver
	audit       Auditor

	relayed atomic.Uint64
}

// NewRelay returns a relay with empty state.
func NewRelay(opts Options) *Relay {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	admins := make(map[string]struct{}, len(opts.AdminUsers))
	for _, name := range opts.AdminUsers {
		if name = strings.TrimSpace(name); name != "" {
			admins[name] = struct{}{}
		}
	}
	cfg := opts.Config
	if cfg.FilteredTerms == nil {
		cfg.FilteredTerms = []string{}
	}
	return &Relay{
		now:         now,
		sessions:    NewSessions(),
		history:     NewHistory(opts.HistoryLimit),
		moderation:  NewModeration(),
		throttle:    NewThrottle(opts.LockThreshold, opts.LockDuration),
		channels:    newChannelSet(DefaultChannel),
		admins:      admins,
		secret:      opts.Secret,
		config:      cfg,
		configStore: opts.ConfigStore,
		audit:       opts.Audit,
	}
}

// Connect registers a new connection from origin. The new session receives
// the initial snapshot and the default channel's history, and everyone gets
// a refreshed user list. A banned origin is refused with ErrBanned and no
// session is created.
func (r *Relay) Connect(origin string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.moderation.IsOriginBanned(origin) {
		slog.Info("connection refused", "origin", origin, "reason", "origin banned")
		return nil, ErrBanned
	}

	s := r.sessions.Register(origin)
	slog.Info("session connected", "session_id", s.id, "origin", origin, "total_sessions", r.sessions.Len())

	r.sendLocked(s, protocol.Event{
		Type:     protocol.TypeJoined,
		ClientID: s.id,
		Users:    rosterView(r.sessions.All(), false),
		Channels: r.channels.list(),
	})
	if h := r.history.Get(s.channel); len(h) > 0 {
		r.sendLocked(s, protocol.Event{Type: protocol.TypeHistory, Channel: s.channel, Messages: h})
	}
	r.broadcastRosterLocked()
	return s, nil
}

// BannedNotice returns the event sent to a refused connection.
func BannedNotice() protocol.Event {
	return protocol.NewError(noticeBanned)
}

// Join applies a join request: display name, channel, and optional admin
// login. A banned name or origin closes the session. Every join from a
// locked origin is told about the lockout; it still joins but cannot obtain
// admin through the password.
func (r *Relay) Join(sessionID string, req protocol.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}
	now := r.now()

	name := truncate(strings.TrimSpace(req.Name), MaxNameLength)
	if name == "" {
		name = s.name
	}
	if r.moderation.IsBanned(name, s.origin) {
		slog.Info("join refused", "session_id", s.id, "name", name, "origin", s.origin, "reason", "banned")
		r.sendLocked(s, protocol.NewError(noticeBanned))
		r.dropLocked(s)
		return ErrBanned
	}

	locked := r.throttle.Check(s.origin, now)
	if locked {
		r.sendLocked(s, protocol.NewError(noticeLocked))
	}

	var result error
	channel := truncate(strings.TrimSpace(req.Channel), MaxNameLength)
	if channel == "" {
		channel = s.channel
	}
	if channel == "" {
		channel = DefaultChannel
	}
	s.name = name
	s.channel = channel
	r.channels.add(channel)

	if _, ok := r.admins[name]; ok && !s.admin {
		s.admin = true
		slog.Info("admin granted", "session_id", s.id, "name", name, "via", "allow-list")
	}
	if !s.admin && r.secret.Configured() && req.AdminPassword != "" {
		switch {
		case locked:
			slog.Warn("admin login refused", "session_id", s.id, "origin", s.origin, "reason", "locked")
			result = ErrRateLimited
		case r.secret.Matches(req.AdminPassword):
			s.admin = true
			r.throttle.RecordSuccess(s.origin)
			slog.Info("admin granted", "session_id", s.id, "name", name, "via", "password")
		default:
			attempts := r.throttle.RecordFailure(s.origin, now)
			slog.Warn("admin login failed", "session_id", s.id, "origin", s.origin, "attempts", attempts)
			r.sendLocked(s, protocol.NewError(noticeBadPassword))
			result = ErrBadPassword
		}
	}

	r.refreshLocked()
	if h := r.history.Get(channel); len(h) > 0 {
		r.sendLocked(s, protocol.Event{Type: protocol.TypeHistory, Channel: channel, Messages: h})
	}
	r.systemMessageLocked(fmt.Sprintf("%s joined %s", name, channel), channel)

	slog.Info("session joined", "session_id", s.id, "name", name, "channel", channel, "admin", s.admin)
	return result
}

// CreateChannel registers a channel name and broadcasts the channel list.
// Empty names are ignored.
func (r *Relay) CreateChannel(sessionID string, req protocol.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions.Lookup(sessionID); !ok {
		return ErrSessionClosed
	}
	name := truncate(strings.TrimSpace(req.Channel), MaxNameLength)
	if name == "" {
		return nil
	}
	if r.channels.add(name) {
		slog.Info("channel created", "session_id", sessionID, "channel", name)
	}
	r.broadcastChannelsLocked()
	return nil
}

// Chat posts a message from the session to a channel (the session's own
// channel unless the request names one) and broadcasts it to everyone.
func (r *Relay) Chat(sessionID string, req protocol.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}
	now := r.now()
	if r.moderation.IsMuted(s, now) {
		r.sendLocked(s, protocol.NewError(noticeMuted))
		return ErrMuted
	}
	if !s.limiter.AllowN(now, 1) {
		r.sendLocked(s, protocol.NewError(noticeTooFast))
		return ErrRateLimited
	}
	text := truncate(req.Text, MaxTextLength)
	if strings.TrimSpace(text) == "" {
		r.sendLocked(s, protocol.NewError(noticeEmptyMessage))
		return &ValidationError{Action: protocol.TypeMessage, Field: "text"}
	}
	channel := truncate(strings.TrimSpace(req.Channel), MaxNameLength)
	if channel == "" {
		channel = s.channel
	}
	if channel == "" {
		channel = DefaultChannel
	}
	r.postLocked(s.name, text, channel, false)
	return nil
}

// Typing tells the sessions in the sender's channel that the sender is typing.
func (r *Relay) Typing(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}
	channel := s.channel
	r.broadcastLocked(protocol.Event{Type: protocol.TypeTyping, From: s.name, Channel: channel}, func(o *Session) bool {
		return o.channel == channel
	})
	return nil
}

// Admin runs a moderation command on behalf of the session. Non-admins get
// ErrUnauthorized and nothing else happens. Every command that gets past
// authorization and parsing is followed by a roster and channel refresh,
// whether it succeeded or not.
func (r *Relay) Admin(sessionID string, req protocol.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}
	if !s.admin {
		slog.Warn("admin action refused", "session_id", s.id, "action", req.Action, "reason", "not admin")
		r.sendLocked(s, protocol.NewError(noticeUnauthorized))
		return ErrUnauthorized
	}

	cmd, err := ParseCommand(req)
	if err != nil {
		r.sendLocked(s, protocol.NewError(err.Error()))
		if IsValidation(err) {
			r.refreshLocked()
		}
		return err
	}

	res, err := r.execute(s, cmd)
	r.sendLocked(s, res.event(cmd.Action()))
	r.auditLocked(s, cmd, res)
	r.refreshLocked()
	if err != nil {
		slog.Info("admin action failed", "session_id", s.id, "action", cmd.Action(), "target", res.target, "err", err)
	} else {
		slog.Info("admin action", "session_id", s.id, "action", cmd.Action(), "target", res.target)
	}
	return err
}

// Disconnect removes the session, announces the departure and refreshes the
// user list. Calling it for an already removed session does nothing.
func (r *Relay) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Lookup(sessionID)
	if !ok {
		return
	}
	r.dropLocked(s)
}

// History returns the current history of a channel.
func (r *Relay) History(channel string) []protocol.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Get(channel)
}

// Channels returns the known channel names.
func (r *Relay) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels.list()
}

// Users returns the public roster (no network origins).
func (r *Relay) Users() []protocol.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rosterView(r.sessions.All(), false)
}

// SessionCount returns the number of live sessions.
func (r *Relay) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}

// PublicConfig returns the client-visible runtime configuration.
func (r *Relay) PublicConfig() protocol.PublicConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config.Public()
}

// Config returns a copy of the full runtime configuration.
func (r *Relay) Config() settings.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config.Apply(protocol.ConfigPatch{})
}

// Stats returns the number of messages relayed since the last call and the
// current session count.
func (r *Relay) Stats() (messages uint64, sessions int) {
	return r.relayed.Swap(0), r.SessionCount()
}

// postLocked creates a message, appends it to the channel history and
// broadcasts it to every session.
func (r *Relay) postLocked(from, text, channel string, viaAdmin bool) protocol.ChatMessage {
	msg := protocol.ChatMessage{
		ID:       uuid.NewString(),
		From:     from,
		Text:     r.config.Redact(text),
		Channel:  channel,
		Time:     r.now().UnixMilli(),
		ViaAdmin: viaAdmin,
	}
	r.history.Append(channel, msg)
	r.broadcastLocked(protocol.NewMessageEvent(msg), nil)
	r.relayed.Add(1)
	return msg
}

// systemMessageLocked posts a system notice into channel.
func (r *Relay) systemMessageLocked(text, channel string) {
	msg := protocol.ChatMessage{
		ID:      uuid.NewString(),
		From:    protocol.SystemAuthor,
		Text:    text,
		Channel: channel,
		Time:    r.now().UnixMilli(),
	}
	r.history.Append(channel, msg)
	r.broadcastLocked(protocol.NewMessageEvent(msg), nil)
}

// announceLocked broadcasts a system notice that is not tied to a channel
// and is not kept in history.
func (r *Relay) announceLocked(text string) {
	r.broadcastLocked(protocol.NewMessageEvent(protocol.ChatMessage{
		ID:   uuid.NewString(),
		From: protocol.SystemAuthor,
		Text: text,
		Time: r.now().UnixMilli(),
	}), nil)
}

// noticeLocked sends a system notice to a single session.
func (r *Relay) noticeLocked(s *Session, text string) {
	r.sendLocked(s, protocol.NewMessageEvent(protocol.ChatMessage{
		ID:   uuid.NewString(),
		From: protocol.SystemAuthor,
		Text: text,
		Time: r.now().UnixMilli(),
	}))
}

// dropLocked unregisters a session, which closes its outbound queue once
// everything already queued has been written, then announces the departure.
func (r *Relay) dropLocked(s *Session) {
	if _, ok := r.sessions.Unregister(s.id); !ok {
		return
	}
	slog.Info("session closed", "session_id", s.id, "name", s.name, "remaining_sessions", r.sessions.Len())
	r.announceLocked(s.name + " left.")
	r.broadcastRosterLocked()
}

func (r *Relay) auditLocked(actor *Session, cmd Command, res result) {
	if r.audit == nil {
		return
	}
	details, err := json.Marshal(map[string]any{"ok": res.ok, "count": res.count})
	if err != nil {
		details = []byte("{}")
	}
	if err := r.audit.InsertAuditLog(actor.id, actor.name, cmd.Action(), res.target, string(details)); err != nil {
		slog.Error("audit log write failed", "action", cmd.Action(), "err", err)
	}
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
