package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chatrelay/server/internal/core"
	"chatrelay/server/internal/httpapi"
	"chatrelay/server/internal/settings"
	"chatrelay/server/internal/store"
)

// Version is injected at build time with -ldflags.
var Version = "0.1.0-dev"

func main() {
	addr := flag.String("addr", defaultAddr(), "Echo listen address (env PORT)")
	dbPath := flag.String("db", "chatrelay.db", "SQLite database path")
	historyLimit := flag.Int("history", envInt("HISTORY_PER_CHANNEL", core.DefaultHistoryCap), "Messages kept per channel (env HISTORY_PER_CHANNEL)")
	adminUsers := flag.String("admin-users", os.Getenv("ADMIN_USERS"), "Comma-separated names granted admin on join (env ADMIN_USERS)")
	staticDir := flag.String("static", "", "Directory of static files served at /")
	trustedProxies := flag.String("trusted-proxies", os.Getenv("TRUSTED_PROXIES"), "Comma-separated proxy CIDRs whose X-Forwarded-For is honored (env TRUSTED_PROXIES)")
	metricsInterval := flag.Duration("metrics-interval", time.Minute, "Interval between stats log lines (0 disables)")
	debug := flag.Bool("debug", false, "Enable debug logging (auto-enabled for dev builds)")
	flag.Parse()

	// Auto-enable debug logging for dev builds; override with -debug flag.
	level := slog.LevelInfo
	if *debug || strings.Contains(Version, "dev") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if RunCLI(flag.Args(), *dbPath) {
		return
	}

	secret := loadSecret()
	admins := splitList(*adminUsers)
	slog.Info("starting server",
		"version", Version,
		"addr", *addr,
		"db", *dbPath,
		"history_per_channel", *historyLimit,
		"admin_users", len(admins),
		"admin_password", secret.String(),
	)

	sqliteStore, err := store.New(*dbPath)
	if err != nil {
		slog.Error("open sqlite store", "err", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			slog.Error("close sqlite store", "err", closeErr)
		}
	}()

	configStore := settings.NewStore(sqliteStore)
	runtimeCfg, err := configStore.Load()
	if err != nil {
		slog.Warn("load runtime config, using defaults", "err", err)
	}

	relay := core.NewRelay(core.Options{
		HistoryLimit: *historyLimit,
		AdminUsers:   admins,
		Secret:       secret,
		Config:       runtimeCfg,
		ConfigStore:  configStore,
		Audit:        sqliteStore,
	})
	slog.Debug("relay initialized", "family_friendly", runtimeCfg.FamilyFriendly, "filtered_terms", len(runtimeCfg.FilteredTerms))

	proxies, err := httpapi.ParseTrustedProxies(splitList(*trustedProxies))
	if err != nil {
		slog.Error("parse trusted proxies", "err", err)
		os.Exit(1)
	}
	server := httpapi.New(relay, httpapi.WithStatic(*staticDir), httpapi.WithTrustedProxies(proxies))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsInterval > 0 {
		go RunMetrics(ctx, relay, *metricsInterval)
	}

	slog.Info("listening", "addr", *addr)
	if err := server.Run(ctx, *addr); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	if err := sqliteStore.Optimize(); err != nil {
		slog.Debug("sqlite optimize", "err", err)
	}
	slog.Info("server stopped")
}

func defaultAddr() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":3000"
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", raw)
		return fallback
	}
	return n
}

// loadSecret reads the shared admin password from the environment. A bcrypt
// hash takes precedence over a plain password.
func loadSecret() core.Secret {
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); strings.TrimSpace(hash) != "" {
		return core.HashedSecret(hash)
	}
	return core.PlainSecret(os.Getenv("ADMIN_PASSWORD"))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
