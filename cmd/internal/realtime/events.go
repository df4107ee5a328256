package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"

	v1 "lms/shared/contracts/realtime/v1"
)

// NewEnvelope builds a v1 envelope with a fresh id.
func NewEnvelope(typ string, payload any, ts time.Time) v1.Envelope {
	env := v1.Envelope{V: v1.Version, Type: typ, TS: ts}
	if id, err := NewEnvelopeID(ts); err == nil {
		env.ID = id
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			env.Payload = b
		}
	}
	return env
}

// ForceLogoutEnvelope builds the event telling a connection its session was replaced.
func ForceLogoutEnvelope(reason string, ts time.Time) v1.Envelope {
	if reason == "" {
		reason = v1.ReasonAnotherLogin
	}
	return NewEnvelope(v1.TypeForceLogout, v1.ForceLogoutPayload{Reason: reason}, ts)
}

func errorEnvelope(code, msg string, ts time.Time) v1.Envelope {
	return NewEnvelope(v1.TypeError, v1.ErrorPayload{Code: code, Message: msg}, ts)
}

func readEnvelope(ctx context.Context, conn *websocket.Conn) (v1.Envelope, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return v1.Envelope{}, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return v1.Envelope{}, fmt.Errorf("unsupported message type: %v", mt)
	}
	var env v1.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return v1.Envelope{}, badJSONError{err}
	}
	return env, nil
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env v1.Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

type badJSONError struct{ err error }

func (e badJSONError) Error() string { return "bad json: " + e.err.Error() }
func (e badJSONError) Unwrap() error { return e.err }
