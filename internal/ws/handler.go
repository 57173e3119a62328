package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chatrelay/server/internal/core"
	"chatrelay/server/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeTimeout = 5 * time.Second
	maxFrameSize = 64 << 10
)

// Handler owns websocket transport for the relay.
type Handler struct {
	relay    *core.Relay
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler bound to relay.
func NewHandler(relay *core.Relay) *Handler {
	return &Handler{
		relay: relay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Register binds websocket routes on an Echo router.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades one request and serves it until disconnect.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	h.serveConn(conn, c.RealIP())
	return nil
}

func (h *Handler) serveConn(conn *websocket.Conn, origin string) {
	conn.SetReadLimit(maxFrameSize)

	session, err := h.relay.Connect(origin)
	if err != nil {
		if errors.Is(err, core.ErrBanned) {
			h.writeDirect(conn, core.BannedNotice())
		}
		_ = conn.Close()
		return
	}
	defer h.relay.Disconnect(session.ID())

	go writePump(conn, session)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Debug("dropping malformed frame", "session_id", session.ID(), "err", err)
			continue
		}
		h.dispatch(session.ID(), req)
	}
}

// writePump writes queued events until the session's queue is closed, then
// closes the connection. Events queued before the session was closed (such
// as a kick notice) are still written.
func writePump(conn *websocket.Conn, session *core.Session) {
	defer conn.Close()
	for data := range session.Send() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("websocket write failed", "session_id", session.ID(), "err", err)
			// Closing fails the reader, which disconnects the session and
			// ends this drain.
			_ = conn.Close()
			for range session.Send() {
			}
			return
		}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Handler) dispatch(sessionID string, req protocol.Request) {
	var err error
	switch req.Type {
	case protocol.TypeJoin:
		err = h.relay.Join(sessionID, req)
	case protocol.TypeCreateChannel:
		err = h.relay.CreateChannel(sessionID, req)
	case protocol.TypeMessage:
		err = h.relay.Chat(sessionID, req)
	case protocol.TypeTyping:
		err = h.relay.Typing(sessionID)
	case protocol.TypeAdmin:
		err = h.relay.Admin(sessionID, req)
	default:
		slog.Debug("ignoring unknown request type", "session_id", sessionID, "type", req.Type)
		return
	}
	if err != nil {
		slog.Debug("request rejected", "session_id", sessionID, "type", req.Type, "err", err)
	}
}

func (h *Handler) writeDirect(conn *websocket.Conn, ev protocol.Event) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(ev)
}
