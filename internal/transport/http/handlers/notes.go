package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/notes-service/internal/application/notes"
	"github.com/baechuer/notes-service/internal/domain"
	"github.com/baechuer/notes-service/internal/transport/http/dto"
	"github.com/baechuer/notes-service/internal/transport/http/middleware"
	"github.com/baechuer/notes-service/internal/transport/http/response"
)

type NotesHandler struct {
	svc *notes.Service
}

func NewNotesHandler(svc *notes.Service) *NotesHandler {
	return &NotesHandler{svc: svc}
}

func (h *NotesHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
	}
	return uid, ok
}

// List handles GET /notes
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.owner(w, r)
	if !ok {
		return
	}

	ns, err := h.svc.List(r.Context(), uid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewNotesData(ns))
}

// Create handles POST /notes
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := decode[dto.NoteRequest](w, r)
	if !ok {
		return
	}

	n, err := h.svc.Create(r.Context(), uid, req.Title, req.Content)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NoteData{Note: dto.NewNoteView(n)})
}

// Update handles PUT /notes/{id}
func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := decode[dto.NoteRequest](w, r)
	if !ok {
		return
	}

	n, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NoteData{Note: dto.NewNoteView(n)})
}

// Delete handles DELETE /notes/{id}
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}
