// Package main is a CI-friendly smoke test for single-session enforcement.
//
// It logs in, opens the realtime channel with that token, logs in again as the
// same user and expects:
//   - a forceLogout event on the first connection, then a policy-violation close
//   - GET /api/auth/session to reject the first token as superseded
//   - the second token to stay valid
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	v1 "lms/shared/contracts/realtime/v1"
)

const maxReadBytes = 1 << 20

type loginResponse struct {
	Token string `json:"token"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		baseURL  = flag.String("base", "http://127.0.0.1:8080", "Server base URL")
		origin   = flag.String("origin", "http://localhost", "Origin header for the websocket handshake")
		username = flag.String("user", "", "Username to log in with")
		password = flag.String("password", os.Getenv("LMS_SMOKE_PASSWORD"), "Password (default $LMS_SMOKE_PASSWORD)")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if strings.TrimSpace(*username) == "" || *password == "" {
		fatalf("-user and -password are required")
	}
	base, err := url.Parse(strings.TrimRight(*baseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		fatalf("invalid -base: %q", *baseURL)
	}

	ctx := context.Background()
	client := &http.Client{Timeout: *timeout}

	first := mustLogin(client, base, *username, *password)
	conn := mustConnect(ctx, base, *origin, first, *timeout)
	defer func() { _ = conn.CloseNow() }()

	ack := mustReadType(ctx, conn, v1.TypeHelloAck, *timeout)
	var ackPayload v1.HelloAckPayload
	if err := json.Unmarshal(ack.Payload, &ackPayload); err != nil || ackPayload.ConnectionID == "" {
		fatalf("hello_ack payload invalid: %s (err=%v)", ack.Payload, err)
	}
	if *verbose {
		fmt.Printf("connected: conn=%s user=%s\n", ackPayload.ConnectionID, ackPayload.UserID)
	}

	second := mustLogin(client, base, *username, *password)
	if second == first {
		fatalf("second login returned the same token")
	}

	ev := mustReadType(ctx, conn, v1.TypeForceLogout, *timeout)
	var p v1.ForceLogoutPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		fatalf("forceLogout payload: %v", err)
	}
	if p.Reason != v1.ReasonAnotherLogin {
		fatalf("forceLogout reason=%q want %q", p.Reason, v1.ReasonAnotherLogin)
	}
	mustClosedWith(ctx, conn, websocket.StatusPolicyViolation, *timeout)

	if status, code := sessionCheck(client, base, first); status != http.StatusUnauthorized || code != "session_superseded" {
		fatalf("old token: status=%d code=%q, want 401 session_superseded", status, code)
	}
	if status, _ := sessionCheck(client, base, second); status != http.StatusOK {
		fatalf("new token: status=%d, want 200", status)
	}

	fmt.Printf("OK: user=%s conn=%s forced_logout=%q\n", *username, ackPayload.ConnectionID, p.Reason)
}

func mustLogin(client *http.Client, base *url.URL, username, password string) string {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(base.String()+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		fatalf("login: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if resp.StatusCode != http.StatusOK {
		fatalf("login: status=%d body=%s", resp.StatusCode, raw)
	}
	var lr loginResponse
	if err := json.Unmarshal(raw, &lr); err != nil || lr.Token == "" {
		fatalf("login: bad body %s (err=%v)", raw, err)
	}
	return lr.Token
}

func sessionCheck(client *http.Client, base *url.URL, tok string) (int, string) {
	req, err := http.NewRequest(http.MethodGet, base.String()+"/api/auth/session", nil)
	if err != nil {
		fatalf("session request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := client.Do(req)
	if err != nil {
		fatalf("session check: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxReadBytes)).Decode(&eb)
	return resp.StatusCode, eb.Error.Code
}

func mustConnect(parent context.Context, base *url.URL, origin, tok string, timeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	wsURL := *base
	wsURL.Scheme = "ws"
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}
	wsURL.Path = "/ws"

	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok)
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL.String(), &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}
	if got := conn.Subprotocol(); got != v1.Subprotocol {
		fatalf("subprotocol=%q want %q", got, v1.Subprotocol)
	}
	conn.SetReadLimit(maxReadBytes)
	return conn
}

// mustReadType reads until an envelope of type want arrives, skipping pongs.
func mustReadType(parent context.Context, conn *websocket.Conn, want string, timeout time.Duration) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			fatalf("waiting for %s: %v", want, err)
		}
		var env v1.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			fatalf("bad frame: %v", err)
		}
		if env.Type == want {
			return env
		}
		if env.Type == v1.TypeError {
			fatalf("server error while waiting for %s: %s", want, env.Payload)
		}
	}
}

func mustClosedWith(parent context.Context, conn *websocket.Conn, want websocket.StatusCode, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	_, _, err := conn.Read(ctx)
	if err == nil {
		fatalf("expected close %d, got another frame", want)
	}
	if got := websocket.CloseStatus(err); got != want {
		if errors.Is(err, context.DeadlineExceeded) {
			fatalf("server did not close the superseded connection")
		}
		fatalf("close status=%d want %d (err=%v)", got, want, err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
