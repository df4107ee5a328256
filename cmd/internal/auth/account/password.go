package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lms/cmd/identity"
	"lms/cmd/security/password"
)

// ChangePasswordInput is a password change request.
type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// ChangePassword replaces the password of in.UserID after checking the old one.
//
// Existing sessions stay valid: the session slot is not touched.
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if strings.TrimSpace(in.UserID) == "" || in.OldPassword == "" || in.NewPassword == "" {
		return ErrInvalidInput
	}

	current, err := s.users.CredentialHash(ctx, in.UserID)
	if identity.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("account: credential lookup: %w", err)
	}

	ok, err := s.hasher.Verify(in.OldPassword, current)
	if err != nil {
		s.log.Warn("auth.password_change.hash_invalid", "user_id", in.UserID, "err", err)
	}
	if !ok {
		s.log.Info("auth.password_change.fail", "user_id", in.UserID, "reason", "bad_password")
		return ErrUnauthorized
	}

	next, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		if isPolicyError(err) {
			return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
		}
		return fmt.Errorf("account: hash: %w", err)
	}

	if err := s.users.UpdateCredentialHash(ctx, in.UserID, next); err != nil {
		if identity.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("account: update credential: %w", err)
	}

	s.log.Info("auth.password_change.ok", "user_id", in.UserID)
	return nil
}

func isPolicyError(err error) bool {
	return errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword)
}
