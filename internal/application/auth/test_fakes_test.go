package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/notes-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User

	// injected errors (if set, method returns error)
	getByEmailErr  error
	getByIDErr     error
	createErr      error
	setPasscodeErr error
	linkErr        error

	// createHook runs before Create stores the user (race simulation)
	createHook func(u domain.User)

	createCalls int
	linkCalls   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUserRepo) findEmail(email string) (domain.User, bool) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	if u, ok := f.findEmail(email); ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if u.GoogleID != "" && u.GoogleID == googleID {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if f.createHook != nil {
		f.createHook(u)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.findEmail(u.Email); ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) SetPasscode(ctx context.Context, userID, passcodeHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setPasscodeErr != nil {
		return f.setPasscodeErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.SetPasscode(passcodeHash, expiresAt)
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) MarkVerified(ctx context.Context, userID, passcodeHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if u.PasscodeHash == "" || u.PasscodeHash != passcodeHash {
		return domain.ErrNoPasscodePending()
	}
	u.Verified = true
	u.ClearPasscode()
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) ConsumePasscode(ctx context.Context, userID, passcodeHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if u.PasscodeHash == "" || u.PasscodeHash != passcodeHash {
		return domain.ErrNoPasscodePending()
	}
	u.ClearPasscode()
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) LinkGoogle(ctx context.Context, userID, googleID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.linkCalls++
	if f.linkErr != nil {
		return domain.User{}, f.linkErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u.GoogleID = googleID
	u.Verified = true
	u.ClearPasscode()
	f.byID[userID] = u
	return u, nil
}

type fakeHasher struct {
	hashFn func(pc string) (string, error)
}

func (h *fakeHasher) Hash(passcode string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(passcode)
	}
	return "hash:" + passcode, nil
}

func (h *fakeHasher) Compare(hash string, passcode string) error {
	if hash == "hash:"+passcode {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSigner struct {
	issueErr error
	issued   []string
}

func (s *fakeSigner) Issue(userID, email string) (string, time.Time, error) {
	if s.issueErr != nil {
		return "", time.Time{}, s.issueErr
	}
	s.issued = append(s.issued, userID)
	return fmt.Sprintf("jwt(%s,%s)", userID, email), time.Unix(0, 0).Add(7 * 24 * time.Hour), nil
}

func (s *fakeSigner) Verify(token string) (TokenClaims, error) {
	return TokenClaims{}, domain.ErrTokenInvalid()
}

type sentPasscode struct {
	email, passcode, name string
}

type fakeNotifier struct {
	mu sync.Mutex

	passcodeErr error
	welcomeErr  error

	passcodes []sentPasscode
	welcomes  []string
}

func (n *fakeNotifier) SendPasscode(ctx context.Context, email, passcode, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.passcodeErr != nil {
		return n.passcodeErr
	}
	n.passcodes = append(n.passcodes, sentPasscode{email: email, passcode: passcode, name: name})
	return nil
}

func (n *fakeNotifier) SendWelcome(ctx context.Context, email, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.welcomeErr != nil {
		return n.welcomeErr
	}
	n.welcomes = append(n.welcomes, email)
	return nil
}

func (n *fakeNotifier) lastPasscode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.passcodes) == 0 {
		t.Fatalf("expected a passcode to be sent")
	}
	return n.passcodes[len(n.passcodes)-1].passcode
}

type fakeVerifier struct {
	identity FederatedIdentity
	err      error
	tokens   []string
}

func (v *fakeVerifier) Verify(ctx context.Context, idToken string) (FederatedIdentity, error) {
	v.tokens = append(v.tokens, idToken)
	if v.err != nil {
		return FederatedIdentity{}, v.err
	}
	return v.identity, nil
}

// seqPasscodes hands out fixed codes in order, then repeats the last one.
type seqPasscodes struct {
	codes []string
	next  int
	ttl   time.Duration
	err   error
}

func (p *seqPasscodes) Generate() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	c := p.codes[p.next]
	if p.next < len(p.codes)-1 {
		p.next++
	}
	return c, nil
}

func (p *seqPasscodes) ExpiryFrom(now time.Time) time.Time { return now.Add(p.ttl) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

/*
Service factory for tests
*/

type testEnv struct {
	svc      *Service
	users    *fakeUserRepo
	hasher   *fakeHasher
	signer   *fakeSigner
	notifier *fakeNotifier
	verifier *fakeVerifier
	codes    *seqPasscodes
	clock    *fakeClock
	audits   *[]auditEntry
	logs     *bytes.Buffer
}

func newSvcForTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newFakeUserRepo(),
		hasher:   &fakeHasher{},
		signer:   &fakeSigner{},
		notifier: &fakeNotifier{},
		verifier: &fakeVerifier{},
		codes:    &seqPasscodes{codes: []string{"123456", "654321", "111222"}, ttl: 10 * time.Minute},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		audits:   &[]auditEntry{},
		logs:     &bytes.Buffer{},
	}

	audits := env.audits
	env.svc = NewService(env.users, env.hasher, env.signer, env.notifier, env.verifier, Config{PasscodeTTL: 10 * time.Minute}).
		WithClock(env.clock.Now).
		WithPasscodeIssuer(env.codes).
		WithLogger(zerolog.New(env.logs)).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*audits = append(*audits, auditEntry{action: action, fields: cp})
		})

	if env.svc == nil {
		t.Fatalf("svc is nil")
	}
	return env
}

// seedVerified stores a verified user with no pending passcode.
func (e *testEnv) seedVerified(id, email string) domain.User {
	u := domain.User{ID: id, Email: email, Name: "Ann", Verified: true}
	e.users.put(u)
	return u
}

/*
Small assertions
*/

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func requireErrKind(t *testing.T, err error, kind domain.ErrKind) {
	t.Helper()
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected kind=%q, got %q (err=%v)", kind, got, err)
	}
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	for i := len(*audits) - 1; i >= 0; i-- {
		if (*audits)[i].action == wantAction {
			return (*audits)[i]
		}
	}
	t.Fatalf("expected audit action=%q, got %+v", wantAction, *audits)
	return auditEntry{}
}
