package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/notes-service/internal/domain"
)

type SignupInput struct {
	Name        string
	Email       string
	DateOfBirth *time.Time
}

// Signup creates an unverified user with a pending passcode and returns its id.
// No session is issued until the passcode is verified.
func (s *Service) Signup(ctx context.Context, in SignupInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)

	if name == "" {
		return "", domain.ErrMissingField("name")
	}
	if err := validateEmail(email); err != nil {
		return "", err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", domain.ErrEmailAlreadyExists()
	} else if !isNotFound(err) {
		return "", err
	}

	code, hash, exp, err := s.newPasscode()
	if err != nil {
		return "", err
	}

	u := domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		DateOfBirth: in.DateOfBirth,
		Verified:    false,
	}
	u.SetPasscode(hash, exp)

	// a concurrent signup for the same email surfaces here as a conflict
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return "", err
	}

	s.deliverPasscode(ctx, created, code)

	s.audit("signup", map[string]string{
		"user_id": created.ID,
		"email":   created.Email,
	})

	return created.ID, nil
}

// VerifyOTP completes signup: marks the user verified and issues a session.
func (s *Service) VerifyOTP(ctx context.Context, userID, passcode string) (SessionResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SessionResult{}, domain.ErrMissingField("userId")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return SessionResult{}, err
	}
	if u.Verified {
		return SessionResult{}, domain.ErrAlreadyVerified()
	}
	if err := s.checkPasscode(u, passcode); err != nil {
		return SessionResult{}, err
	}

	if err := s.users.MarkVerified(ctx, u.ID, u.PasscodeHash); err != nil {
		return SessionResult{}, err
	}
	u.Verified = true
	u.ClearPasscode()

	s.sendWelcome(ctx, u)

	res, err := s.issueSession(u)
	if err != nil {
		return SessionResult{}, err
	}

	s.audit("signup_verified", map[string]string{
		"user_id": u.ID,
	})

	return res, nil
}
