package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/notes-service/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Service struct {
	users     UserRepo
	hasher    PasscodeHasher
	signer    TokenSigner
	notifier  Notifier
	verifier  IdentityVerifier
	passcodes PasscodeIssuer

	now   func() time.Time
	audit func(action string, fields map[string]string)
	lg    zerolog.Logger
}

type Config struct {
	PasscodeTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasscodeHasher,
	signer TokenSigner,
	notifier Notifier,
	verifier IdentityVerifier,
	cfg Config,
) *Service {
	auditFn := func(string, map[string]string) {}
	return &Service{
		users:     users,
		hasher:    hasher,
		signer:    signer,
		notifier:  notifier,
		verifier:  verifier,
		passcodes: NewPasscodeIssuer(cfg.PasscodeTTL),

		now:   time.Now,
		audit: auditFn,
		lg:    zerolog.Nop(),
	}
}

// SessionResult is what every successful verification or Google login returns.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithLogger sets the operator log; undelivered passcodes are written there.
func (s *Service) WithLogger(lg zerolog.Logger) *Service {
	s.lg = lg.With().Str("component", "auth_service").Logger()
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) WithPasscodeIssuer(p PasscodeIssuer) *Service {
	if p != nil {
		s.passcodes = p
	}
	return s
}

// issueSession mints a session token for a user.
func (s *Service) issueSession(u domain.User) (SessionResult, error) {
	tok, exp, err := s.signer.Issue(u.ID, u.Email)
	if err != nil {
		if domain.KindOf(err) != "" {
			return SessionResult{}, err
		}
		return SessionResult{}, domain.ErrTokenSignFailed(err)
	}
	return SessionResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

// newPasscode returns the plain code (for delivery) and its stored form.
func (s *Service) newPasscode() (code, hash string, expiresAt time.Time, err error) {
	code, err = s.passcodes.Generate()
	if err != nil {
		return "", "", time.Time{}, err
	}
	hash, err = s.hasher.Hash(code)
	if err != nil {
		return "", "", time.Time{}, domain.ErrHashFailed(err)
	}
	return code, hash, s.passcodes.ExpiryFrom(s.now()), nil
}

// deliverPasscode never fails the caller. When the notifier is down the code
// goes to the operator log so the user is not locked out.
func (s *Service) deliverPasscode(ctx context.Context, u domain.User, code string) {
	if err := s.notifier.SendPasscode(ctx, u.Email, code, u.Name); err != nil {
		s.lg.Warn().
			Err(err).
			Bool("fallback", true).
			Str("user_id", u.ID).
			Str("email", u.Email).
			Str("passcode", code).
			Msg("passcode delivery failed")

		s.audit("passcode_delivery_failed", map[string]string{
			"user_id": u.ID,
		})
	}
}

func (s *Service) sendWelcome(ctx context.Context, u domain.User) {
	if err := s.notifier.SendWelcome(ctx, u.Email, u.Name); err != nil {
		s.lg.Debug().Err(err).Str("user_id", u.ID).Msg("welcome delivery failed")
	}
}

// checkPasscode applies the verification rules in order:
// nothing pending, expired, mismatch.
func (s *Service) checkPasscode(u domain.User, passcode string) error {
	if !u.HasPendingPasscode() {
		return domain.ErrNoPasscodePending()
	}
	if u.PasscodeExpired(s.now()) {
		return domain.ErrPasscodeExpired()
	}
	if err := s.hasher.Compare(u.PasscodeHash, passcode); err != nil {
		return domain.ErrInvalidPasscode()
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if !emailPattern.MatchString(email) {
		return domain.ErrInvalidField("email", "invalid format")
	}
	return nil
}

func isNotFound(err error) bool {
	return domain.KindOf(err) == domain.KindNotFound
}

// Me returns the stored user for an authenticated id.
func (s *Service) Me(ctx context.Context, userID string) (domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, domain.ErrTokenInvalid()
	}
	return s.users.GetByID(ctx, userID)
}
