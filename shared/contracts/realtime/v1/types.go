// Package v1 defines the LMS realtime protocol v1 contract.
//
// It is shared between the server and the smoke client so that the wire
// protocol has a single authoritative definition.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is the websocket subprotocol negotiated for this contract.
const Subprotocol = "lms.realtime.v1"

// Type constants (wire-stable).
const (
	// TypeHello asks the server to (re)acknowledge the connection (client -> server).
	TypeHello = "hello"
	// TypeHelloAck carries the connection id assigned by the server (server -> client).
	TypeHelloAck = "hello_ack"

	// TypePing is an application-level liveness probe (client -> server).
	TypePing = "ping"
	// TypePong answers TypePing (server -> client).
	TypePong = "pong"

	// TypeForceLogout tells the client that its session was superseded (server -> client).
	// The server closes the connection right after delivering it.
	TypeForceLogout = "forceLogout"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// ReasonAnotherLogin is the force-logout reason sent when a newer login replaces a session.
const ReasonAnotherLogin = "Another login detected"

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello,
		TypeHelloAck,
		TypePing,
		TypePong,
		TypeForceLogout,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// HelloPayload is sent by the client; it carries no fields.
type HelloPayload struct{}

// HelloAckPayload identifies the server-side connection handle.
type HelloAckPayload struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

// ForceLogoutPayload is the body of a forced-logout event.
type ForceLogoutPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
