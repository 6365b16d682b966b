package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/notes-service/internal/domain"
)

// UserRepo is the in-process identity store used for local runs and tests.
// One RWMutex makes every mutation atomic per record.
type UserRepo struct {
	mu       sync.RWMutex
	byID     map[string]domain.User
	byEmail  map[string]string // email -> userID
	byGoogle map[string]string // google id -> userID
	now      func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:     make(map[string]domain.User),
		byEmail:  make(map[string]string),
		byGoogle: make(map[string]string),
		now:      time.Now,
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byGoogle[googleID]
	if !ok || googleID == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	u.Email = domain.NormalizeEmail(u.Email)
	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.GoogleID != "" {
		if _, exists := r.byGoogle[u.GoogleID]; exists {
			return domain.User{}, domain.ErrGoogleIDAlreadyLinked()
		}
	}

	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	if u.GoogleID != "" {
		r.byGoogle[u.GoogleID] = u.ID
	}
	return u, nil
}

func (r *UserRepo) SetPasscode(ctx context.Context, userID, passcodeHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.SetPasscode(passcodeHash, expiresAt)
	u.UpdatedAt = r.now().UTC()
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID, passcodeHash string) error {
	return r.clearIfPending(userID, passcodeHash, true)
}

func (r *UserRepo) ConsumePasscode(ctx context.Context, userID, passcodeHash string) error {
	return r.clearIfPending(userID, passcodeHash, false)
}

func (r *UserRepo) clearIfPending(userID, passcodeHash string, verify bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if !u.HasPendingPasscode() || u.PasscodeHash != passcodeHash {
		return domain.ErrNoPasscodePending()
	}
	if verify {
		u.Verified = true
	}
	u.ClearPasscode()
	u.UpdatedAt = r.now().UTC()
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) LinkGoogle(ctx context.Context, userID, googleID string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if googleID == "" {
		return domain.User{}, domain.ErrMissingField("google_id")
	}
	if owner, taken := r.byGoogle[googleID]; taken && owner != userID {
		return domain.User{}, domain.ErrGoogleIDAlreadyLinked()
	}

	if u.GoogleID != "" {
		delete(r.byGoogle, u.GoogleID)
	}
	u.GoogleID = googleID
	u.Verified = true
	u.ClearPasscode()
	u.UpdatedAt = r.now().UTC()

	r.byID[userID] = u
	r.byGoogle[googleID] = userID
	return u, nil
}
