package dto

import (
	"time"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/domain"
)

// UserView is the public profile returned by every auth endpoint.
type UserView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	DateOfBirth *string `json:"dateOfBirth"` // YYYY-MM-DD or null
}

type UserIDData struct {
	UserID string `json:"userId"`
}

// SessionData is returned by both passcode checks and by Google auth.
type SessionData struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"` // "Bearer"
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

type MeData struct {
	User UserView `json:"user"`
}

func NewUserView(u domain.User) UserView {
	p := u.Profile()
	v := UserView{ID: p.ID, Name: p.Name, Email: p.Email}
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.UTC().Format(time.DateOnly)
		v.DateOfBirth = &s
	}
	return v
}

func NewSessionData(res auth.SessionResult) SessionData {
	return SessionData{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt.UTC(),
		User:      NewUserView(res.User),
	}
}
