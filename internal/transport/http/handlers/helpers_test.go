package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/application/notes"
	"github.com/baechuer/notes-service/internal/infrastructure/memory"
	"github.com/baechuer/notes-service/internal/infrastructure/security"
	"github.com/baechuer/notes-service/internal/transport/http/middleware"
	"github.com/baechuer/notes-service/internal/transport/http/response"
)

// ---- fakes ----

type captureNotifier struct {
	mu        sync.Mutex
	passcodes map[string]string // email -> last passcode
	welcomed  []string
	failSend  bool
}

func (n *captureNotifier) SendPasscode(_ context.Context, email, passcode, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failSend {
		return errors.New("smtp down")
	}
	if n.passcodes == nil {
		n.passcodes = map[string]string{}
	}
	n.passcodes[email] = passcode
	return nil
}

func (n *captureNotifier) SendWelcome(_ context.Context, email, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, email)
	return nil
}

func (n *captureNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.passcodes[email]
}

type fakeGoogle struct {
	ids map[string]auth.FederatedIdentity // token -> identity
}

func (g *fakeGoogle) Verify(_ context.Context, token string) (auth.FederatedIdentity, error) {
	id, ok := g.ids[token]
	if !ok {
		return auth.FederatedIdentity{}, errors.New("bad token")
	}
	return id, nil
}

// ---- wiring ----

type testApp struct {
	mux      http.Handler
	notifier *captureNotifier
	google   *fakeGoogle
	signer   *security.JWTSigner
	now      time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	app := &testApp{
		notifier: &captureNotifier{},
		google:   &fakeGoogle{ids: map[string]auth.FederatedIdentity{}},
		signer:   security.NewJWTSigner("test-secret", "notes-test", time.Hour),
		now:      time.Now(),
	}

	users := memory.NewUserRepo()
	authSvc := auth.NewService(users, security.NewBcryptHasher(4), app.signer, app.notifier, app.google, auth.Config{})
	notesSvc := notes.NewService(memory.NewNoteRepo())

	authH := NewAuthHandler(authSvc)
	notesH := NewNotesHandler(notesSvc)
	authMW := middleware.Auth(app.signer, response.WriteError)

	r := chi.NewRouter()
	r.Post("/auth/signup", authH.Signup)
	r.Post("/auth/verify-otp", authH.VerifyOTP)
	r.Post("/auth/signin", authH.Signin)
	r.Post("/auth/verify-signin-otp", authH.VerifySigninOTP)
	r.Post("/auth/google", authH.Google)
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Get("/auth/me", authH.Me)
		r.Get("/notes", notesH.List)
		r.Post("/notes", notesH.Create)
		r.Put("/notes/{id}", notesH.Update)
		r.Delete("/notes/{id}", notesH.Delete)
	})
	app.mux = r
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		rdr = mustJSONBody(t, b)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.mux.ServeHTTP(rr, req)
	return rr
}

// signupAndVerify runs the full OTP signup and returns (userID, token).
func (a *testApp) signupAndVerify(t *testing.T, name, email string) (string, string) {
	t.Helper()

	rr := a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"name": name, "email": email})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		UserID string `json:"userId"`
	}
	mustReadJSON(t, rr.Body, &created)

	rr = a.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]string{"userId": created.UserID, "otp": a.notifier.last(email)})
	if rr.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rr.Code, rr.Body.String())
	}
	var sess sessionBody
	mustReadJSON(t, rr.Body, &sess)
	return created.UserID, sess.Token
}

type sessionBody struct {
	Token string `json:"token"`
	User  struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Email       string  `json:"email"`
		DateOfBirth *string `json:"dateOfBirth"`
	} `json:"user"`
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes the {"data": ...} envelope into out.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
		t.Fatalf("decode json failed; body=%s", string(raw))
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		t.Fatalf("decode wrapped.data failed; body=%s err=%v", string(raw), err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, rr.Body.String())
	}
	return body.Error.Code
}
