package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/notes-service/internal/domain"
)

// GoogleAuth logs in with a Google ID token, registering or linking the
// account on first use. It always returns a session on success.
func (s *Service) GoogleAuth(ctx context.Context, idToken string) (SessionResult, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return SessionResult{}, domain.ErrMissingField("token")
	}

	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if domain.Is(err, "invalid_google_token") {
			return SessionResult{}, err
		}
		return SessionResult{}, domain.ErrInvalidGoogleToken(err)
	}

	email := domain.NormalizeEmail(id.Email)
	name := strings.TrimSpace(id.Name)
	if id.Subject == "" || email == "" || name == "" {
		return SessionResult{}, domain.ErrInvalidGoogleToken(nil)
	}

	u, found, err := s.findFederated(ctx, email, id.Subject)
	if err != nil {
		return SessionResult{}, err
	}

	action := "google_login"
	switch {
	case !found:
		u, action, err = s.registerFederated(ctx, email, name, id.Subject)
		if err != nil {
			return SessionResult{}, err
		}
	case u.GoogleID == "":
		u, err = s.users.LinkGoogle(ctx, u.ID, id.Subject)
		if err != nil {
			return SessionResult{}, err
		}
		action = "google_linked"
	}

	res, err := s.issueSession(u)
	if err != nil {
		return SessionResult{}, err
	}

	s.audit(action, map[string]string{
		"user_id": u.ID,
		"email":   u.Email,
	})

	return res, nil
}

// findFederated looks up by email first, then by google id.
func (s *Service) findFederated(ctx context.Context, email, subject string) (domain.User, bool, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, true, nil
	}
	if !isNotFound(err) {
		return domain.User{}, false, err
	}

	u, err = s.users.GetByGoogleID(ctx, subject)
	if err == nil {
		return u, true, nil
	}
	if !isNotFound(err) {
		return domain.User{}, false, err
	}
	return domain.User{}, false, nil
}

func (s *Service) registerFederated(ctx context.Context, email, name, subject string) (domain.User, string, error) {
	created, err := s.users.Create(ctx, domain.User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     name,
		Verified: true,
		GoogleID: subject,
	})
	if err == nil {
		return created, "google_register", nil
	}
	if !domain.Is(err, "email_already_exists") {
		return domain.User{}, "", err
	}

	// lost a race with a concurrent registration for the same email
	existing, gerr := s.users.GetByEmail(ctx, email)
	if gerr != nil {
		return domain.User{}, "", gerr
	}
	if existing.GoogleID == "" {
		linked, lerr := s.users.LinkGoogle(ctx, existing.ID, subject)
		if lerr != nil {
			return domain.User{}, "", lerr
		}
		return linked, "google_linked", nil
	}
	return existing, "google_login", nil
}
