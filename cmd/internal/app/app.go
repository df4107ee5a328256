// Package app wires the LMS server runtime: config, logging, storage, HTTP routes and the realtime gateway.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lms/cmd/identity"
	"lms/cmd/internal/auth/account"
	authapi "lms/cmd/internal/auth/api"
	"lms/cmd/internal/auth/session"
	"lms/cmd/internal/menu"
	"lms/cmd/internal/observability"
	"lms/cmd/internal/realtime"
)

// App is the LMS server runtime. It owns the DB pool and every long-lived component.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *observability.Metrics
	menus   *menu.Cache

	ws   *realtime.WSGateway
	auth *authapi.Handler
}

// New constructs a fully wired App. Without LMS_DATABASE_URL the auth
// endpoints and the gateway answer 503.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		metrics: observability.New(),
	}

	hub := realtime.NewHub(log, a.metrics)
	conns := realtime.NewConnectionRegistry()

	var (
		accounts  authapi.Accounts
		validator realtime.TokenValidator
		apiVal    authapi.SessionValidator
		auditor   authapi.Auditor = authapi.NopAuditor{}
	)

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Info("db.disabled", "effect", "auth endpoints and realtime gateway unavailable")
	} else {
		pool, err := NewDBPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.dbPool, a.dbEnabled = pool, true

		sessions, accts, err := a.wireAccounts(pool, conns, hub)
		if err != nil {
			pool.Close()
			return nil, err
		}
		accounts, validator, apiVal = accts, sessions, sessions
		auditor = authapi.NewPostgresAuditor(pool, log)
		log.Info("db.enabled", "max_conns", cfg.DBMaxConns)
	}

	a.ws = realtime.NewWSGateway(log, hub, conns, validator, realtime.ConfigFromEnv())
	a.auth = authapi.NewHandler(log, authapi.LoadConfigFromEnv(), accounts, apiVal, authapi.WithAuditor(auditor))
	return a, nil
}

func (a *App) wireAccounts(pool *pgxpool.Pool, conns *realtime.ConnectionRegistry, hub *realtime.Hub) (*session.Service, *account.Service, error) {
	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, nil, err
	}
	hasher, err := identity.NewHasherFromEnv()
	if err != nil {
		return nil, nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := session.NewTokenIssuer(sessCfg)
	if err != nil {
		return nil, nil, err
	}

	var registry session.Registry
	switch sessCfg.Store {
	case session.StoreMemory:
		a.log.Warn("session.registry.memory", "note", "single-instance only")
		registry = session.NewMemoryRegistry(users)
	default:
		registry = session.NewPostgresRegistry(pool)
	}
	sessions := session.NewService(tokens, registry)

	a.menus = menu.NewCache(menu.NewPostgresStore(pool), a.cfg.MenuCacheTTL)

	accts, err := account.NewService(account.Deps{
		Log:         a.log,
		Users:       users,
		Hasher:      hasher,
		Menus:       a.menus,
		Sessions:    sessions,
		Connections: conns,
		Notifier:    hub,
		Metrics:     a.metrics,
	})
	if err != nil {
		return nil, nil, err
	}

	a.log.Info("session.config", "format", sessCfg.Format, "store", sessCfg.Store, "ttl", sessCfg.TokenTTL.String())
	return sessions, accts, nil
}

// Handler returns the full middleware-wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, a.log)
	return h
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	if a.menus != nil {
		a.menus.Start()
	}
	if a.auth != nil {
		a.auth.Start()
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbEnabled,
		"api", base+"/api/auth",
		"ws", wsBaseURL(base)+"/ws",
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case runErr = <-errCh:
		a.log.Error("server.fail", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			runErr = err
		}
	}

	a.Close()
	a.log.Info("server.stopped")
	return runErr
}

// Close stops the cache cleanup loops and closes the DB pool. The app owns the pool.
func (a *App) Close() {
	if a.auth != nil {
		a.auth.Close()
	}
	if a.menus != nil {
		a.menus.Stop()
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}
