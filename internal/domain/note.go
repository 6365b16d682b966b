package domain

import "time"

// Note belongs to exactly one user; every read and write is scoped by UserID.
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
