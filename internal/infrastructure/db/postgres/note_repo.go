package postgres

import (
	"context"
	"database/sql"

	"github.com/baechuer/notes-service/internal/domain"
)

type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

const noteColumns = `id, user_id, title, content, created_at, updated_at`

func scanNote(row rowScanner) (domain.Note, error) {
	var n domain.Note
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (r *NoteRepo) Create(ctx context.Context, n domain.Note) (domain.Note, error) {
	if !validID(n.UserID) {
		return domain.Note{}, domain.ErrUserNotFound()
	}

	q := `
INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING ` + noteColumns + `;
`
	out, err := scanNote(r.db.QueryRowContext(ctx, q,
		n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt,
	))
	if err != nil {
		return domain.Note{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *NoteRepo) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	if !validID(userID) {
		return []domain.Note{}, nil
	}

	q := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 ORDER BY updated_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *NoteRepo) Update(ctx context.Context, n domain.Note) (domain.Note, error) {
	if !validID(n.ID) || !validID(n.UserID) {
		return domain.Note{}, domain.ErrNoteNotFound()
	}

	q := `
UPDATE notes
SET title = $3,
    content = $4,
    updated_at = $5
WHERE id = $1 AND user_id = $2
RETURNING ` + noteColumns + `;
`
	out, err := scanNote(r.db.QueryRowContext(ctx, q, n.ID, n.UserID, n.Title, n.Content, n.UpdatedAt))
	if err != nil {
		if isNoRows(err) {
			return domain.Note{}, domain.ErrNoteNotFound()
		}
		return domain.Note{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *NoteRepo) Delete(ctx context.Context, userID, noteID string) error {
	if !validID(noteID) || !validID(userID) {
		return domain.ErrNoteNotFound()
	}

	const q = `DELETE FROM notes WHERE id = $1 AND user_id = $2;`

	res, err := r.db.ExecContext(ctx, q, noteID, userID)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNoteNotFound()
	}
	return nil
}
