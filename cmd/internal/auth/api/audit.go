package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Audit event names.
const (
	eventLogin          = "auth.login"
	eventPasswordChange = "auth.password_change"
)

// AuditEvent is one security-relevant auth outcome.
type AuditEvent struct {
	Event     string
	UserID    string
	Username  string
	IP        net.IP
	UserAgent string
	Result    string
}

// Auditor persists auth events. Implementations must not block the request on failure.
type Auditor interface {
	Record(ctx context.Context, ev AuditEvent)
}

// NopAuditor drops every event.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, AuditEvent) {}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresAuditor appends events to lms.auth_events.
type PostgresAuditor struct {
	pool pgExecer
	log  *slog.Logger
}

// NewPostgresAuditor returns an Auditor backed by pool.
func NewPostgresAuditor(pool pgExecer, log *slog.Logger) *PostgresAuditor {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAuditor{pool: pool, log: log}
}

// Record inserts ev; errors are logged and swallowed.
func (a *PostgresAuditor) Record(ctx context.Context, ev AuditEvent) {
	if a == nil || a.pool == nil {
		return
	}
	ev.Event = strings.TrimSpace(ev.Event)
	if ev.Event == "" {
		return
	}

	var ip any
	if ev.IP != nil {
		ip = ev.IP.String()
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO lms.auth_events (event, user_id, username, remote_ip, user_agent, result)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.Event, trimOrNil(ev.UserID), trimOrNil(ev.Username), ip, trimOrNil(ev.UserAgent), ev.Result)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "event", ev.Event)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
