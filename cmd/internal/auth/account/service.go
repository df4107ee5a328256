package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lms/cmd/identity"
	"lms/cmd/internal/auth/session"
	"lms/cmd/internal/menu"
	"lms/cmd/internal/realtime"
	v1 "lms/shared/contracts/realtime/v1"
)

// Hasher verifies and produces password hashes. *identity.Hasher satisfies it.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
	VerifyMissing(plain string)
	NeedsRehash(encoded string) bool
}

// Menus resolves the menus of a role. *menu.Cache satisfies it.
type Menus interface {
	MenusForRole(ctx context.Context, role string) ([]menu.Entry, error)
}

// Sessions mints and installs tokens. *session.Service satisfies it.
type Sessions interface {
	Issue(sub session.Subject, now time.Time) (session.Issued, error)
	Install(ctx context.Context, iss session.Issued) (previousHash string, hadPrevious bool, err error)
}

// Connections lists the live connections of an account. *realtime.ConnectionRegistry satisfies it.
type Connections interface {
	ConnectionsFor(userID string) []string
}

// Notifier delivers one event to one connection without blocking. *realtime.Hub satisfies it.
type Notifier interface {
	Send(connID string, env v1.Envelope) bool
}

// Login outcomes reported to Metrics.LoginResult.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultFeesOverdue        = "fees_overdue"
	ResultError              = "error"
)

// Metrics receives flow-level signals.
type Metrics interface {
	LoginResult(result string)
	ForcedLogout(delivered bool)
	ObserveSupersede(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) LoginResult(string)             {}
func (nopMetrics) ForcedLogout(bool)              {}
func (nopMetrics) ObserveSupersede(time.Duration) {}

// Deps are the collaborators of a Service. Log and Metrics are optional.
type Deps struct {
	Log         *slog.Logger
	Users       identity.Store
	Hasher      Hasher
	Menus       Menus
	Sessions    Sessions
	Connections Connections
	Notifier    Notifier
	Metrics     Metrics
}

// Service runs the login and password-change flows.
type Service struct {
	log     *slog.Logger
	users   identity.Store
	hasher  Hasher
	menus   Menus
	sess    Sessions
	conns   Connections
	notify  Notifier
	metrics Metrics

	now func() time.Time
}

// NewService validates d and builds a Service.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Users == nil:
		return nil, errors.New("account: nil user store")
	case d.Hasher == nil:
		return nil, errors.New("account: nil hasher")
	case d.Menus == nil:
		return nil, errors.New("account: nil menu source")
	case d.Sessions == nil:
		return nil, errors.New("account: nil session service")
	case d.Connections == nil:
		return nil, errors.New("account: nil connection registry")
	case d.Notifier == nil:
		return nil, errors.New("account: nil notifier")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}

	return &Service{
		log:     d.Log,
		users:   d.Users,
		hasher:  d.Hasher,
		menus:   d.Menus,
		sess:    d.Sessions,
		conns:   d.Connections,
		notify:  d.Notifier,
		metrics: d.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// LoginInput is a login attempt.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult is a successful login.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	UserID      string
	Role        string
	DisplayName string
	Menus       []menu.Entry

	// Superseded is true when the login replaced an earlier session.
	Superseded bool
}

// Login authenticates in.Username and makes the new token the account's only session.
//
// Rejections return ErrInvalidInput, ErrInvalidCredentials or ErrFeesOverdue.
// Any other error is an infrastructure failure. Install is the last step that
// can fail, so a failed Login never leaves a token installed.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return LoginResult{}, ErrInvalidInput
	}

	acct, err := s.authenticate(ctx, in.Username, in.Password)
	if err != nil {
		return LoginResult{}, s.fail(err)
	}

	if acct.IsStudent() && acct.HasOverdueFees {
		s.log.Info("auth.login.fees_overdue", "user_id", acct.UserID)
		return LoginResult{}, s.fail(ErrFeesOverdue)
	}

	s.upgradeHash(ctx, acct, in.Password)

	menus, err := s.menus.MenusForRole(ctx, acct.Role)
	if err != nil {
		return LoginResult{}, s.fail(fmt.Errorf("account: menus for role %q: %w", acct.Role, err))
	}

	issued, err := s.sess.Issue(session.Subject{
		UserID:      acct.UserID,
		Role:        acct.Role,
		DisplayName: acct.DisplayName,
	}, s.now())
	if err != nil {
		return LoginResult{}, s.fail(fmt.Errorf("account: issue token: %w", err))
	}

	// A caller that has gone away must not leave a token installed that nobody received.
	if err := ctx.Err(); err != nil {
		return LoginResult{}, s.fail(err)
	}

	start := time.Now()
	_, superseded, err := s.sess.Install(ctx, issued)
	s.metrics.ObserveSupersede(time.Since(start))
	if err != nil {
		return LoginResult{}, s.fail(fmt.Errorf("account: install session: %w", err))
	}

	if superseded {
		s.forceLogout(acct.UserID)
	}

	s.metrics.LoginResult(ResultSuccess)
	s.log.Info("auth.login.ok", "user_id", acct.UserID, "role", acct.Role, "superseded", superseded)

	return LoginResult{
		Token:       issued.Token,
		ExpiresAt:   issued.Claims.ExpiresAt,
		UserID:      acct.UserID,
		Role:        acct.Role,
		DisplayName: acct.DisplayName,
		Menus:       menus,
		Superseded:  superseded,
	}, nil
}

func (s *Service) authenticate(ctx context.Context, username, plain string) (identity.Account, error) {
	acct, err := s.users.LookupForLogin(ctx, username)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			s.hasher.VerifyMissing(plain)
			s.log.Info("auth.login.fail", "reason", "not_found")
			return identity.Account{}, ErrInvalidCredentials
		}
		return identity.Account{}, fmt.Errorf("account: lookup: %w", err)
	}

	ok, err := s.hasher.Verify(plain, acct.PasswordHash)
	if err != nil {
		s.log.Warn("auth.login.hash_invalid", "user_id", acct.UserID, "err", err)
	}
	if !ok {
		s.log.Info("auth.login.fail", "reason", "bad_password", "user_id", acct.UserID)
		return identity.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// upgradeHash replaces a legacy or under-cost hash after a successful verify.
func (s *Service) upgradeHash(ctx context.Context, acct identity.Account, plain string) {
	if !s.hasher.NeedsRehash(acct.PasswordHash) {
		return
	}
	h, err := s.hasher.Hash(plain)
	if err != nil {
		s.log.Info("auth.login.rehash.skip", "user_id", acct.UserID, "err", err)
		return
	}
	if err := s.users.UpdateCredentialHash(ctx, acct.UserID, h); err != nil {
		s.log.Warn("auth.login.rehash.fail", "user_id", acct.UserID, "err", err)
		return
	}
	s.log.Info("auth.login.rehash.ok", "user_id", acct.UserID)
}

// forceLogout tells every live connection of userID that its session is gone.
// The set is a snapshot; no registry lock is held while sending.
func (s *Service) forceLogout(userID string) {
	conns := s.conns.ConnectionsFor(userID)
	if len(conns) == 0 {
		return
	}

	env := realtime.ForceLogoutEnvelope(v1.ReasonAnotherLogin, s.now())
	delivered := 0
	for _, id := range conns {
		ok := s.notify.Send(id, env)
		s.metrics.ForcedLogout(ok)
		if ok {
			delivered++
		}
	}
	s.log.Info("auth.login.force_logout", "user_id", userID, "connections", len(conns), "delivered", delivered)
}

func (s *Service) fail(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		s.metrics.LoginResult(ResultInvalidCredentials)
	case errors.Is(err, ErrFeesOverdue):
		s.metrics.LoginResult(ResultFeesOverdue)
	default:
		s.metrics.LoginResult(ResultError)
		s.log.Error("auth.login.error", "err", err)
	}
	return err
}
