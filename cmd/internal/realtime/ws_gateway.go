package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"lms/cmd/internal/auth/session"
	v1 "lms/shared/contracts/realtime/v1"
)

const (
	wsCloseGrace      = 1 * time.Second
	wsMaxPingFailures = 3
)

// TokenValidator authenticates the bearer token presented at handshake.
// *session.Service satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, token string, now time.Time) (session.Claims, error)
}

// WSGateway is the WebSocket entrypoint for the forced-logout channel.
//
// A connection is authenticated before upgrade, registered under its account
// for as long as it lives, and closed with 1008 right after a forceLogout
// envelope has been written to it.
type WSGateway struct {
	log      *slog.Logger
	hub      *Hub
	registry *ConnectionRegistry
	auth     TokenValidator
	cfg      Config

	originPatterns []string
}

// NewWSGateway constructs a gateway. hub and registry must be the instances
// the login flow notifies through.
func NewWSGateway(log *slog.Logger, hub *Hub, registry *ConnectionRegistry, auth TokenValidator, cfg Config) *WSGateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log, nil)
	}
	if registry == nil {
		registry = NewConnectionRegistry()
	}
	cfg = cfg.normalized()

	return &WSGateway{
		log:            log,
		hub:            hub,
		registry:       registry,
		auth:           auth,
		cfg:            cfg,
		originPatterns: originPatterns(cfg.AllowedOrigins),
	}
}

// ServeHTTP adapter so it can be mounted as http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS authenticates, upgrades and runs one realtime connection.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := checkOrigin(r.Header.Get("Origin"), g.cfg.OriginRequired, g.cfg.AllowedOrigins); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if g.auth == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	tok := g.handshakeToken(r)
	if tok == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := g.auth.Validate(r.Context(), tok, time.Now().UTC())
	if err != nil {
		if session.IsAuthFailure(err) {
			g.log.Info("ws.reject.auth", "err", err, "remote", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		g.log.Error("ws.auth.fail", "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{v1.Subprotocol},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.cfg.DevInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != v1.Subprotocol {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", v1.Subprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	now := time.Now().UTC()
	connID, err := NewConnectionID(now)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "id")
		return
	}

	client := NewClient(claims.UserID, connID, g.cfg.SendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once

	// The registry entry goes first so the login flow never targets a
	// connection the hub has already forgotten.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.registry.Unregister(connID)
			g.hub.Detach(connID)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	g.hub.Attach(client)
	g.registry.Register(connID, claims.UserID)
	g.log.Info("ws.connect", "conn_id", connID, "user_id", claims.UserID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
					g.log.Info("ws.write.fail", "conn_id", connID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
				if env.Type == v1.TypeForceLogout {
					g.log.Info("ws.force_logout", "conn_id", connID, "user_id", claims.UserID)
					shutdown(websocket.StatusPolicyViolation, "session superseded")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.cfg.HeartbeatInterval)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("ws.ping.fail", "conn_id", connID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	g.enqueue(client, g.helloAck(client, now))

	// A login that swapped the session between our Validate and Register
	// could not have seen this connection; catch it up now.
	if _, err := g.auth.Validate(ctx, tok, time.Now().UTC()); errors.Is(err, session.ErrSessionSuperseded) {
		g.enqueue(client, ForceLogoutEnvelope(v1.ReasonAnotherLogin, time.Now().UTC()))
	}

	rl := NewRateLimiter(g.cfg.RateEvents, g.cfg.RateWindow)

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.cfg.ReadIdleTimeout)
		env, err := readEnvelope(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
				break readLoop
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
				break readLoop
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
				break readLoop
			case readErrBadJSON:
				g.enqueue(client, errorEnvelope("bad_json", "invalid JSON", time.Now().UTC()))
				continue readLoop
			default:
				g.log.Info("ws.read.fail", "conn_id", connID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
				break readLoop
			}
		}

		now := time.Now().UTC()
		if !rl.Allow(now) {
			g.enqueue(client, errorEnvelope("rate_limited", "too many events", now))
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break readLoop
		}

		if err := env.Validate(); err != nil {
			g.enqueue(client, errorEnvelope("bad_envelope", err.Error(), now))
			continue readLoop
		}

		switch env.Type {
		case v1.TypeHello:
			g.enqueue(client, g.helloAck(client, now))
		case v1.TypePing:
			g.enqueue(client, NewEnvelope(v1.TypePong, nil, now))
		default:
			g.enqueue(client, errorEnvelope("unsupported", "unsupported type: "+env.Type, now))
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
	g.log.Info("ws.disconnect", "conn_id", connID, "user_id", claims.UserID)
}

func (g *WSGateway) helloAck(c *Client, now time.Time) v1.Envelope {
	return NewEnvelope(v1.TypeHelloAck, v1.HelloAckPayload{ConnectionID: c.ConnID, UserID: c.UserID}, now)
}

// enqueue is the gateway's own non-blocking write path; it bypasses the hub
// because replies belong to this connection regardless of hub membership.
func (g *WSGateway) enqueue(c *Client, env v1.Envelope) bool {
	select {
	case <-c.Done():
		return false
	case c.Send <- env:
		return true
	default:
		return false
	}
}

func (g *WSGateway) handshakeToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			tok = strings.TrimSpace(tok)
			if len(tok) <= maxTokenBytes {
				return tok
			}
		}
		return ""
	}
	if g.cfg.AllowQueryToken {
		tok := strings.TrimSpace(r.URL.Query().Get("access_token"))
		if len(tok) <= maxTokenBytes {
			return tok
		}
	}
	return ""
}

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
	readErrBadJSON
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	var bad badJSONError
	if errors.As(err, &bad) {
		return readErrBadJSON
	}
	return readErrUnknown
}
