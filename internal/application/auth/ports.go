package auth

import (
	"context"
	"time"

	"github.com/baechuer/notes-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for users (the identity store).
Only describes WHAT the auth service needs, not HOW it's stored.

Every passcode/verification mutation is a single atomic write on one record;
the service holds no locks of its own.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// SetPasscode overwrites any pending passcode (last write wins).
	SetPasscode(ctx context.Context, userID, passcodeHash string, expiresAt time.Time) error

	// MarkVerified sets verified=true and clears the passcode, but only while
	// passcodeHash is still the pending one. Otherwise ErrNoPasscodePending.
	MarkVerified(ctx context.Context, userID, passcodeHash string) error

	// ConsumePasscode clears the passcode under the same condition.
	ConsumePasscode(ctx context.Context, userID, passcodeHash string) error

	// LinkGoogle stores the external id, forces verified=true and drops any
	// pending passcode.
	LinkGoogle(ctx context.Context, userID, googleID string) (domain.User, error)
}

/*
PasscodeHasher
--------------
Passcodes are stored hashed. Compare must be an exact string match.
*/
type PasscodeHasher interface {
	Hash(passcode string) (string, error)
	Compare(hash string, passcode string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies stateless session tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID string
	Email  string
	Exp    time.Time
}

type TokenSigner interface {
	Issue(userID, email string) (token string, expiresAt time.Time, err error)
	Verify(token string) (TokenClaims, error)
}

/*
Notifier
--------
Delivers passcodes and welcome messages (SMTP, broker, or log).
SendPasscode failures are absorbed by the service; SendWelcome is best-effort.
*/
type Notifier interface {
	SendPasscode(ctx context.Context, email, passcode, name string) error
	SendWelcome(ctx context.Context, email, name string) error
}

/*
IdentityVerifier
----------------
Validates a third-party identity assertion (Google ID token).
*/
type FederatedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (FederatedIdentity, error)
}
