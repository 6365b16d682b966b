package notes

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/baechuer/notes-service/internal/domain"
)

const MaxTitleLen = 200

/*
Repo
----
Persistence port for notes. Every call is scoped by owner: a note that
exists but belongs to someone else is reported as ErrNoteNotFound.
*/
type Repo interface {
	Create(ctx context.Context, n domain.Note) (domain.Note, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Note, error) // newest updated_at first
	Update(ctx context.Context, n domain.Note) (domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

type Service struct {
	repo  Repo
	now   func() time.Time
	audit func(action string, fields map[string]string)
}

func NewService(repo Repo) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		audit: func(string, map[string]string) {},
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func validate(title, content string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.ErrMissingField("title")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", domain.ErrInvalidField("title", "too long")
	}
	if strings.TrimSpace(content) == "" {
		return "", domain.ErrMissingField("content")
	}
	return title, nil
}

func requireOwner(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrTokenInvalid()
	}
	return nil
}

func (s *Service) Create(ctx context.Context, userID, title, content string) (domain.Note, error) {
	if err := requireOwner(userID); err != nil {
		return domain.Note{}, err
	}
	title, err := validate(title, content)
	if err != nil {
		return domain.Note{}, err
	}

	now := s.now().UTC()
	n, err := s.repo.Create(ctx, domain.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Note{}, err
	}

	s.audit("note_created", map[string]string{"user_id": userID, "note_id": n.ID})
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Note, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Note{}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, userID, noteID, title, content string) (domain.Note, error) {
	if err := requireOwner(userID); err != nil {
		return domain.Note{}, err
	}
	if strings.TrimSpace(noteID) == "" {
		return domain.Note{}, domain.ErrNoteNotFound()
	}
	title, err := validate(title, content)
	if err != nil {
		return domain.Note{}, err
	}

	n, err := s.repo.Update(ctx, domain.Note{
		ID:        noteID,
		UserID:    userID,
		Title:     title,
		Content:   content,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Note{}, err
	}

	s.audit("note_updated", map[string]string{"user_id": userID, "note_id": n.ID})
	return n, nil
}

func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	if err := requireOwner(userID); err != nil {
		return err
	}
	if strings.TrimSpace(noteID) == "" {
		return domain.ErrNoteNotFound()
	}
	if err := s.repo.Delete(ctx, userID, noteID); err != nil {
		return err
	}

	s.audit("note_deleted", map[string]string{"user_id": userID, "note_id": noteID})
	return nil
}
