package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/application/notes"
	"github.com/baechuer/notes-service/internal/audit"
	"github.com/baechuer/notes-service/internal/config"
	"github.com/baechuer/notes-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/notes-service/internal/infrastructure/email"
	"github.com/baechuer/notes-service/internal/infrastructure/memory"
	"github.com/baechuer/notes-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/notes-service/internal/infrastructure/oauth"
	"github.com/baechuer/notes-service/internal/infrastructure/redis"
	"github.com/baechuer/notes-service/internal/infrastructure/security"
	"github.com/baechuer/notes-service/internal/logger"
	http_handlers "github.com/baechuer/notes-service/internal/transport/http/handlers"
	"github.com/baechuer/notes-service/internal/transport/http/middleware"
	"github.com/baechuer/notes-service/internal/transport/http/response"
	"github.com/baechuer/notes-service/internal/transport/http/router"
)

const passcodeHashCost = 10

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	// NewRedis is optional; without it rate limiting falls back to in-process.
	NewRedis func(addr, password string, db int) RedisClient

	NewPublisher func(url, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)

	// NewIdentityVerifier defaults to the Google tokeninfo verifier.
	NewIdentityVerifier func(clientID string) auth.IdentityVerifier

	// Registerer receives the audit counter; defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

// Publisher is a Notifier that owns a broker connection.
type Publisher interface {
	auth.Notifier
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	lg := logger.Component("bootstrap")

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	checks := map[string]http_handlers.Pinger{}

	// 1) stores
	var (
		users    auth.UserRepo
		notesRep notes.Repo
		seedU    postgres.SeederUsers
		seedN    postgres.SeederNotes
	)

	switch cfg.Store {
	case config.StoreMemory:
		lg.Warn().Msg("STORE=memory; data is lost on restart")
		u, n := memory.NewUserRepo(), memory.NewNoteRepo()
		users, notesRep, seedU, seedN = u, n, u, n

	default:
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })
		checks["postgres"] = db

		if cfg.DBMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := postgres.RunMigrations(ctx, db)
			cancel()
			if err != nil {
				return fail(fmt.Errorf("migrate: %w", err))
			}
		}

		u, n := postgres.NewUserRepo(db), postgres.NewNoteRepo(db)
		users, notesRep, seedU, seedN = u, n, u, n
	}

	if cfg.SeedDemo {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		postgres.SeedUsers(ctx, seedU, seedN, logger.Component("seed"))
		cancel()
	}

	// 2) redis (best-effort)
	var limiter middleware.RateLimiter
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			lg.Warn().Err(err).Msg("redis unavailable; using in-process rate limiting")
			_ = c.Close()
		} else {
			lg.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			checks["redis"] = http_handlers.PingFunc(c.Ping)
			if rc, ok := c.(*redis.Client); ok {
				limiter = redis.NewFixedWindowLimiter(rc)
			}
		}
	}

	// 3) notifier
	notifier, err := newNotifier(deps, cfg, &cleanupFns)
	if err != nil {
		return fail(err)
	}

	// 4) identity verifier
	var verifier auth.IdentityVerifier
	if deps.NewIdentityVerifier != nil {
		verifier = deps.NewIdentityVerifier(cfg.GoogleClientID)
	} else {
		gv := oauth.NewGoogleVerifier(cfg.GoogleClientID)
		if !gv.IsConfigured() {
			lg.Warn().Msg("GOOGLE_CLIENT_ID not set; google sign-in will reject every token")
		}
		verifier = gv
	}

	// 5) security
	lg.Info().Str("issuer", cfg.JWTIssuer).Dur("ttl", cfg.SessionTokenTTL).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(passcodeHashCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTokenTTL)

	// 6) services
	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	aud := audit.New(logger.Component("audit"), reg)

	authSvc := auth.NewService(users, hasher, signer, notifier, verifier, auth.Config{
		PasscodeTTL: cfg.PasscodeTTL,
	}).
		WithLogger(logger.Component("auth")).
		WithAudit(aud.Record)

	notesSvc := notes.NewService(notesRep).WithAudit(aud.Record)

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health:      http_handlers.NewHealthHandler(checks),
		Auth:        http_handlers.NewAuthHandler(authSvc),
		Notes:       http_handlers.NewNotesHandler(notesSvc),
		AuthMW:      middleware.Auth(signer, response.WriteError),
		Limiter:     limiter,
		RateLimit:   cfg.RateLimitEnabled,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func newNotifier(deps Deps, cfg *config.Config, cleanupFns *[]func()) (auth.Notifier, error) {
	lg := logger.Component("notifier")

	switch cfg.Notifier {
	case config.NotifierSMTP:
		lg.Info().Str("host", cfg.SMTPHost).Int("port", cfg.SMTPPort).Msg("smtp notifier")
		return email.NewSMTPNotifier(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			Timeout:     cfg.SMTPTimeout,
			Insecure:    cfg.SMTPInsecure,
			PasscodeTTL: cfg.PasscodeTTL,
			AppURL:      cfg.FrontendURL,
		}, lg), nil

	case config.NotifierRabbit:
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.Env == "dev" {
				lg.Warn().Err(err).Msg("rabbitmq unavailable; logging passcodes instead")
				return email.NewLogNotifier(lg, cfg.FakeFailMode), nil
			}
			return nil, err
		}
		*cleanupFns = append(*cleanupFns, func() { _ = pub.Close() })
		return pub, nil

	default:
		return email.NewLogNotifier(lg, cfg.FakeFailMode), nil
	}
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(addr string, debug bool) (*sql.DB, error) {
			return config.NewDB(addr, debug, logger.Logger)
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange, logger.Component("rabbitmq"))
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
