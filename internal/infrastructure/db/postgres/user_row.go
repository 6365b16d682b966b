package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/notes-service/internal/domain"
)

type userRow struct {
	ID           string
	Email        string
	Name         string
	DateOfBirth  sql.NullTime
	Verified     bool
	GoogleID     sql.NullString
	PasswordHash sql.NullString
	OTPHash      sql.NullString
	OTPExpiresAt sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `id, email, name, date_of_birth, verified, google_id, password_hash, otp_hash, otp_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Email,
		&ur.Name,
		&ur.DateOfBirth,
		&ur.Verified,
		&ur.GoogleID,
		&ur.PasswordHash,
		&ur.OTPHash,
		&ur.OTPExpiresAt,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	u := domain.User{
		ID:           ur.ID,
		Email:        ur.Email,
		Name:         ur.Name,
		Verified:     ur.Verified,
		GoogleID:     ur.GoogleID.String,
		PasswordHash: ur.PasswordHash.String,
		CreatedAt:    ur.CreatedAt,
		UpdatedAt:    ur.UpdatedAt,
	}
	if ur.DateOfBirth.Valid {
		dob := ur.DateOfBirth.Time
		u.DateOfBirth = &dob
	}
	if ur.OTPHash.Valid && ur.OTPExpiresAt.Valid {
		u.SetPasscode(ur.OTPHash.String, ur.OTPExpiresAt.Time)
	}
	return u
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
