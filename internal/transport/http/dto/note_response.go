package dto

import (
	"time"

	"github.com/baechuer/notes-service/internal/domain"
)

type NoteView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NoteData struct {
	Note NoteView `json:"note"`
}

type NotesData struct {
	Notes []NoteView `json:"notes"`
}

func NewNoteView(n domain.Note) NoteView {
	return NoteView{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
}

func NewNotesData(ns []domain.Note) NotesData {
	out := NotesData{Notes: make([]NoteView, 0, len(ns))}
	for _, n := range ns {
		out.Notes = append(out.Notes, NewNoteView(n))
	}
	return out
}
