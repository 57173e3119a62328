package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"chatrelay/server/internal/core"
	"chatrelay/server/internal/protocol"
	"chatrelay/server/internal/ws"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the Echo application.
type Server struct {
	echo           *echo.Echo
	relay          *core.Relay
	staticDir      string
	trustedProxies []*net.IPNet
	started        time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithStatic serves files from dir at the root path.
func WithStatic(dir string) Option {
	return func(s *Server) { s.staticDir = strings.TrimSpace(dir) }
}

// WithTrustedProxies takes the client origin from X-Forwarded-For when the
// peer, and every hop after it, is inside one of nets. Without it the socket
// peer address is the origin and forwarding headers are ignored.
func WithTrustedProxies(nets []*net.IPNet) Option {
	return func(s *Server) { s.trustedProxies = nets }
}

// ParseTrustedProxies parses CIDR ranges or bare addresses for
// WithTrustedProxies.
func ParseTrustedProxies(list []string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid address", raw)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		out = append(out, ipNet)
	}
	return out, nil
}

// New constructs an Echo app with websocket + REST routes.
func New(relay *core.Relay, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Warn("http request", append(attrs, "err", v.Error)...)
				return nil
			}
			slog.Debug("http request", attrs...)
			return nil
		},
	}))

	s := &Server{echo: e, relay: relay, started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	e.IPExtractor = s.ipExtractor()
	s.registerRoutes()
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ipExtractor decides what c.RealIP returns, which keys bans and login
// lockouts. Echo's default trusts client-supplied headers.
func (s *Server) ipExtractor() echo.IPExtractor {
	if len(s.trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}
	trust := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range s.trustedProxies {
		trust = append(trust, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(trust...)
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/messages/:channel", s.handleMessages)
	s.echo.GET("/api/state", s.handleState)
	s.echo.GET("/api/config", s.handleConfig)
	ws.NewHandler(s.relay).Register(s.echo)
	if s.staticDir != "" {
		s.echo.Static("/", s.staticDir)
	}
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

type healthResponse struct {
	Status  string  `json:"status"`
	Clients int     `json:"clients"`
	Uptime  float64 `json:"uptime"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Clients: s.relay.SessionCount(),
		Uptime:  time.Since(s.started).Seconds(),
	})
}

type messagesResponse struct {
	Channel  string                 `json:"channel"`
	Messages []protocol.ChatMessage `json:"messages"`
}

func (s *Server) handleMessages(c echo.Context) error {
	channel := strings.TrimSpace(c.Param("channel"))
	if channel == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel is required")
	}
	msgs := s.relay.History(channel)
	if msgs == nil {
		msgs = []protocol.ChatMessage{}
	}
	return c.JSON(http.StatusOK, messagesResponse{Channel: channel, Messages: msgs})
}

type stateResponse struct {
	Clients  int             `json:"clients"`
	Users    []protocol.User `json:"users"`
	Channels []string        `json:"channels"`
}

func (s *Server) handleState(c echo.Context) error {
	users := s.relay.Users()
	if users == nil {
		users = []protocol.User{}
	}
	return c.JSON(http.StatusOK, stateResponse{
		Clients:  len(users),
		Users:    users,
		Channels: s.relay.Channels(),
	})
}

func (s *Server) handleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.relay.PublicConfig())
}
