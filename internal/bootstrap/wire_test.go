package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/config"
	"github.com/baechuer/notes-service/internal/infrastructure/redis"
	"github.com/baechuer/notes-service/internal/transport/http/router"
)

// --------------------------
// helpers
// --------------------------

func baseConfig() *config.Config {
	return &config.Config{
		Env:              "dev",
		HTTPAddr:         ":0",
		HTTPReadTimeout:  5 * time.Second,
		HTTPWriteTimeout: 5 * time.Second,
		HTTPIdleTimeout:  30 * time.Second,
		JWTSecret:        "test-secret",
		JWTIssuer:        "notes-test",
		SessionTokenTTL:  time.Hour,
		PasscodeTTL:      10 * time.Minute,
		Store:            config.StoreMemory,
		Notifier:         config.NotifierLog,
		RabbitExchange:   "notes.events",
		RateLimitEnabled: true,
	}
}

type fakePublisher struct{ closed int }

func (p *fakePublisher) SendPasscode(context.Context, string, string, string) error { return nil }
func (p *fakePublisher) SendWelcome(context.Context, string, string) error          { return nil }
func (p *fakePublisher) Close() error {
	p.closed++
	return nil
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(context.Context, string) (auth.FederatedIdentity, error) {
	return auth.FederatedIdentity{}, errors.New("not in tests")
}

func testDeps(cfg *config.Config) Deps {
	return Deps{
		LoadConfig: func() (*config.Config, error) { return cfg, nil },
		NewDB: func(string, bool) (*sql.DB, error) {
			return nil, errors.New("NewDB should not be called")
		},
		NewPublisher: func(string, string) (Publisher, error) {
			return nil, errors.New("NewPublisher should not be called")
		},
		NewRouter:           router.New,
		NewIdentityVerifier: func(string) auth.IdentityVerifier { return fakeVerifier{} },
		Registerer:          prometheus.NewRegistry(),
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

// --------------------------
// tests
// --------------------------

func TestNewServer_ConfigLoadFails(t *testing.T) {
	deps := testDeps(nil)
	deps.LoadConfig = func() (*config.Config, error) { return nil, errors.New("missing JWT_SECRET") }

	srv, cleanup, err := NewServerWithDeps(deps)
	if err == nil || srv != nil || cleanup != nil {
		t.Fatalf("expected error with nil server and cleanup, got srv=%v err=%v", srv, err)
	}
}

func TestNewServer_MemoryStore_ServesRequests(t *testing.T) {
	cfg := baseConfig()
	srv, cleanup, err := NewServerWithDeps(testDeps(cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if srv.Addr != ":0" || srv.ReadTimeout != 5*time.Second {
		t.Fatalf("server not configured from config: %+v", srv)
	}
	if rr := get(t, srv.Handler, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}
	if rr := get(t, srv.Handler, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz: %d %s", rr.Code, rr.Body.String())
	}
	if rr := get(t, srv.Handler, "/notes"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected /notes to require a session, got %d", rr.Code)
	}
}

func TestNewServer_SeedsDemoAccounts(t *testing.T) {
	cfg := baseConfig()
	cfg.SeedDemo = true
	srv, cleanup, err := NewServerWithDeps(testDeps(cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"email":"demo@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected seeded account to sign in, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestNewServer_PostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectPing()
	mock.ExpectClose()

	cfg := baseConfig()
	cfg.Store = config.StorePostgres
	cfg.DBAddr = "postgres://x"

	deps := testDeps(cfg)
	deps.NewDB = func(addr string, debug bool) (*sql.DB, error) { return db, nil }

	srv, cleanup, err := NewServerWithDeps(deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rr := get(t, srv.Handler, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz: %d %s", rr.Code, rr.Body.String())
	}

	cleanup()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected ping then close: %v", err)
	}
}

func TestNewServer_DBConnectFails(t *testing.T) {
	cfg := baseConfig()
	cfg.Store = config.StorePostgres

	deps := testDeps(cfg)
	deps.NewDB = func(string, bool) (*sql.DB, error) { return nil, errors.New("dial tcp: refused") }

	srv, cleanup, err := NewServerWithDeps(deps)
	if err == nil || srv != nil || cleanup != nil {
		t.Fatalf("expected db error, got srv=%v err=%v", srv, err)
	}
}

func TestNewServer_RedisConnected_AddsReadinessCheck(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := baseConfig()
	cfg.RedisAddr = mr.Addr()

	deps := testDeps(cfg)
	deps.NewRedis = func(addr, pw string, db int) RedisClient { return redis.New(addr, pw, db) }

	srv, cleanup, err := NewServerWithDeps(deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if rr := get(t, srv.Handler, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz with redis up: %d", rr.Code)
	}

	mr.Close()
	rr := get(t, srv.Handler, "/readyz")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "redis unavailable") {
		t.Fatalf("expected redis readiness failure, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestNewServer_RedisUnavailable_StillStarts(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	deps := testDeps(cfg)
	deps.NewRedis = func(addr, pw string, db int) RedisClient { return redis.New(addr, pw, db) }

	srv, cleanup, err := NewServerWithDeps(deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if rr := get(t, srv.Handler, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("redis is optional; readyz should pass, got %d", rr.Code)
	}
}

func TestNewServer_Rabbit(t *testing.T) {
	t.Run("connected publisher is closed on cleanup", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Notifier = config.NotifierRabbit
		pub := &fakePublisher{}

		deps := testDeps(cfg)
		deps.NewPublisher = func(string, string) (Publisher, error) { return pub, nil }

		_, cleanup, err := NewServerWithDeps(deps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cleanup()
		if pub.closed != 1 {
			t.Fatalf("expected publisher closed once, got %d", pub.closed)
		}
	})

	t.Run("unavailable in dev falls back", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Notifier = config.NotifierRabbit

		deps := testDeps(cfg)
		deps.NewPublisher = func(string, string) (Publisher, error) { return nil, errors.New("refused") }

		srv, cleanup, err := NewServerWithDeps(deps)
		if err != nil || srv == nil {
			t.Fatalf("expected dev fallback, got %v", err)
		}
		cleanup()
	})

	t.Run("unavailable in prod fails", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Env = "prod"
		cfg.Notifier = config.NotifierRabbit

		deps := testDeps(cfg)
		deps.NewPublisher = func(string, string) (Publisher, error) { return nil, errors.New("refused") }

		srv, cleanup, err := NewServerWithDeps(deps)
		if err == nil || srv != nil || cleanup != nil {
			t.Fatalf("expected failure in prod")
		}
	})
}

func TestNewServer_RouterErrorRunsCleanup(t *testing.T) {
	cfg := baseConfig()
	cfg.Notifier = config.NotifierRabbit
	pub := &fakePublisher{}

	deps := testDeps(cfg)
	deps.NewPublisher = func(string, string) (Publisher, error) { return pub, nil }
	deps.NewRouter = func(router.Deps) (http.Handler, error) { return nil, errors.New("boom") }

	_, _, err := NewServerWithDeps(deps)
	if err == nil {
		t.Fatalf("expected router error")
	}
	if pub.closed != 1 {
		t.Fatalf("expected cleanup to close publisher, got %d", pub.closed)
	}
}
