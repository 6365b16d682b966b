package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/notes-service/internal/domain"
)

type SeederUsers interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

type SeederNotes interface {
	Create(ctx context.Context, n domain.Note) (domain.Note, error)
}

// SeedUsers creates verified demo accounts with a starter note each.
// Safe to call on every boot: existing accounts are skipped.
// Works against any store that satisfies the seeder ports.
func SeedUsers(ctx context.Context, users SeederUsers, notes SeederNotes, lg zerolog.Logger) int {
	seeds := []struct {
		Email string
		Name  string
	}{
		{Email: "demo@example.com", Name: "Demo User"},
		{Email: "google-demo@example.com", Name: "Google Demo"},
	}

	created := 0
	for _, s := range seeds {
		now := time.Now().UTC()
		u, err := users.Create(ctx, domain.User{
			ID:       uuid.NewString(),
			Email:    s.Email,
			Name:     s.Name,
			Verified: true,
		})
		if err != nil {
			// duplicates on restart
			lg.Debug().Err(err).Str("email", s.Email).Msg("seed user skipped")
			continue
		}

		_, err = notes.Create(ctx, domain.Note{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			Title:     "Welcome",
			Content:   "This is your first note. Edit or delete it any time.",
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			lg.Warn().Err(err).Str("user_id", u.ID).Msg("seed note failed")
		}
		created++
	}

	lg.Info().Int("created", created).Msg("demo users seeded")
	return created
}
