package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/notes-service/internal/domain"
)

const pgUniqueViolation = "23505"

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

// validID rejects ids that could never be a stored uuid, so a malformed id is a
// plain "not found" instead of a postgres cast error.
func validID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapWriteErr turns unique violations into the matching conflict.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "google_id") {
			return domain.ErrGoogleIDAlreadyLinked()
		}
		return domain.ErrEmailAlreadyExists()
	}
	return domain.ErrDBUnavailable(err)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1;`

	ur, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.getOne(ctx, "lower(email) = $1", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.getOne(ctx, "id = $1", strings.TrimSpace(id))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	googleID = strings.TrimSpace(googleID)
	if googleID == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.getOne(ctx, "google_id = $1", googleID)
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	var otpHash sql.NullString
	var otpExp sql.NullTime
	if u.HasPendingPasscode() {
		otpHash = nullString(u.PasscodeHash)
		otpExp = nullTime(u.PasscodeExpiresAt)
	}

	q := `
INSERT INTO users (id, email, name, date_of_birth, verified, google_id, password_hash, otp_hash, otp_expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING ` + userColumns + `;
`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.Name, nullTime(u.DateOfBirth), u.Verified,
		nullString(u.GoogleID), nullString(u.PasswordHash), otpHash, otpExp,
	))
	if err != nil {
		return domain.User{}, mapWriteErr(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) SetPasscode(ctx context.Context, userID, passcodeHash string, expiresAt time.Time) error {
	if !validID(userID) {
		return domain.ErrUserNotFound()
	}
	if passcodeHash == "" {
		return domain.ErrMissingField("passcode_hash")
	}

	const q = `
UPDATE users
SET otp_hash = $2,
    otp_expires_at = $3,
    updated_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(userID), passcodeHash, expiresAt.UTC())
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID, passcodeHash string) error {
	const q = `
UPDATE users
SET verified = TRUE,
    otp_hash = NULL,
    otp_expires_at = NULL,
    updated_at = NOW()
WHERE id = $1 AND otp_hash = $2;
`
	return r.clearIfPending(ctx, q, userID, passcodeHash)
}

func (r *UserRepo) ConsumePasscode(ctx context.Context, userID, passcodeHash string) error {
	const q = `
UPDATE users
SET otp_hash = NULL,
    otp_expires_at = NULL,
    updated_at = NOW()
WHERE id = $1 AND otp_hash = $2;
`
	return r.clearIfPending(ctx, q, userID, passcodeHash)
}

// clearIfPending runs a conditional clear. Zero rows means either the user is
// gone or another request already used or replaced the passcode.
func (r *UserRepo) clearIfPending(ctx context.Context, q, userID, passcodeHash string) error {
	if !validID(userID) {
		return domain.ErrUserNotFound()
	}
	if passcodeHash == "" {
		return domain.ErrNoPasscodePending()
	}

	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(userID), passcodeHash)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNoPasscodePending()
	}
	return nil
}

func (r *UserRepo) LinkGoogle(ctx context.Context, userID, googleID string) (domain.User, error) {
	if !validID(userID) {
		return domain.User{}, domain.ErrUserNotFound()
	}
	googleID = strings.TrimSpace(googleID)
	if googleID == "" {
		return domain.User{}, domain.ErrMissingField("google_id")
	}

	q := `
UPDATE users
SET google_id = $2,
    verified = TRUE,
    otp_hash = NULL,
    otp_expires_at = NULL,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns + `;
`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, strings.TrimSpace(userID), googleID))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, mapWriteErr(err)
	}
	return toDomainUser(ur), nil
}
