package domain

import (
	"strings"
	"time"
)

// User is the identity record. A user is created either unverified with a
// pending passcode (signup) or verified with a Google id (first Google login).
type User struct {
	ID           string
	Email        string
	Name         string
	DateOfBirth  *time.Time
	Verified     bool
	GoogleID     string
	PasswordHash string // legacy column, no flow reads it

	// PasscodeHash and PasscodeExpiresAt are set or cleared together.
	PasscodeHash      string
	PasscodeExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the public view of a user returned alongside a session token.
type Profile struct {
	ID          string
	Name        string
	Email       string
	DateOfBirth *time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPasscode replaces any pending passcode.
func (u *User) SetPasscode(hash string, expiresAt time.Time) {
	exp := expiresAt
	u.PasscodeHash = hash
	u.PasscodeExpiresAt = &exp
}

func (u *User) ClearPasscode() {
	u.PasscodeHash = ""
	u.PasscodeExpiresAt = nil
}

func (u User) HasPendingPasscode() bool {
	return u.PasscodeHash != "" && u.PasscodeExpiresAt != nil
}

// PasscodeExpired is true strictly after the expiry instant; a passcode used
// exactly at expiry is still accepted.
func (u User) PasscodeExpired(now time.Time) bool {
	if u.PasscodeExpiresAt == nil {
		return true
	}
	return now.After(*u.PasscodeExpiresAt)
}

func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		DateOfBirth: u.DateOfBirth,
	}
}
