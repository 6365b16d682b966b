package auth

import (
	"context"
	"strings"

	"github.com/baechuer/notes-service/internal/domain"
)

// Signin starts the repeat-passcode flow for a verified user. It never returns
// a session; VerifySigninOTP does.
//
// Unlike a password login this deliberately tells the caller that the email is
// unknown, so the client can send the user to signup.
func (s *Service) Signin(ctx context.Context, email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !u.Verified {
		return "", domain.ErrEmailNotVerified()
	}

	code, hash, exp, err := s.newPasscode()
	if err != nil {
		return "", err
	}

	// overwrites the previous pending passcode, if any
	if err := s.users.SetPasscode(ctx, u.ID, hash, exp); err != nil {
		return "", err
	}

	s.deliverPasscode(ctx, u, code)

	s.audit("signin_requested", map[string]string{
		"user_id": u.ID,
	})

	return u.ID, nil
}

// VerifySigninOTP consumes the signin passcode and issues a session.
func (s *Service) VerifySigninOTP(ctx context.Context, userID, passcode string) (SessionResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SessionResult{}, domain.ErrMissingField("userId")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return SessionResult{}, err
	}
	if !u.Verified {
		return SessionResult{}, domain.ErrEmailNotVerified()
	}
	if err := s.checkPasscode(u, passcode); err != nil {
		return SessionResult{}, err
	}

	if err := s.users.ConsumePasscode(ctx, u.ID, u.PasscodeHash); err != nil {
		return SessionResult{}, err
	}
	u.ClearPasscode()

	res, err := s.issueSession(u)
	if err != nil {
		return SessionResult{}, err
	}

	s.audit("signin_verified", map[string]string{
		"user_id": u.ID,
	})

	return res, nil
}
