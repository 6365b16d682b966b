package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/baechuer/notes-service/internal/domain"
)

type NoteRepo struct {
	mu    sync.RWMutex
	notes map[string]domain.Note
}

func NewNoteRepo() *NoteRepo {
	return &NoteRepo{notes: make(map[string]domain.Note)}
}

func (r *NoteRepo) Create(ctx context.Context, n domain.Note) (domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		return domain.Note{}, domain.ErrMissingField("id")
	}
	r.notes[n.ID] = n
	return n, nil
}

func (r *NoteRepo) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Note{}
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *NoteRepo) Update(ctx context.Context, n domain.Note) (domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.notes[n.ID]
	if !ok || cur.UserID != n.UserID {
		return domain.Note{}, domain.ErrNoteNotFound()
	}
	cur.Title = n.Title
	cur.Content = n.Content
	cur.UpdatedAt = n.UpdatedAt
	r.notes[n.ID] = cur
	return cur, nil
}

func (r *NoteRepo) Delete(ctx context.Context, userID, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.notes[noteID]
	if !ok || cur.UserID != userID {
		return domain.ErrNoteNotFound()
	}
	delete(r.notes, noteID)
	return nil
}
