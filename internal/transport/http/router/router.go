package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/notes-service/internal/domain"
	"github.com/baechuer/notes-service/internal/transport/http/middleware"
	"github.com/baechuer/notes-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Signup(w http.ResponseWriter, r *http.Request)
	VerifyOTP(w http.ResponseWriter, r *http.Request)
	Signin(w http.ResponseWriter, r *http.Request)
	VerifySigninOTP(w http.ResponseWriter, r *http.Request)
	Google(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type NotesHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// Limit is a per-route fixed-window budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits are keyed by route key. Passcode issuance is the tightest
// since every call sends an email.
var DefaultLimits = map[string]Limit{
	"auth_signup": {Requests: 5, Window: time.Minute},
	"auth_signin": {Requests: 5, Window: time.Minute},
	"auth_verify": {Requests: 10, Window: time.Minute},
	"auth_google": {Requests: 10, Window: time.Minute},
	"notes_write": {Requests: 60, Window: time.Minute},
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Notes  NotesHandler

	AuthMW func(http.Handler) http.Handler

	// Limiter backs per-route limits. When nil and RateLimit is set, an
	// in-process limiter keyed by client IP is used instead.
	Limiter   middleware.RateLimiter
	RateLimit bool
	Limits    map[string]Limit

	CORSOrigins []string

	// Metrics defaults to promhttp.Handler().
	Metrics http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Notes == nil {
		return nil, fmt.Errorf("nil Notes handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.Limits == nil {
		deps.Limits = DefaultLimits
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, domain.New(domain.KindNotFound, "route_not_found", "route not found"))
	})

	limit := func(routeKey string) func(http.Handler) http.Handler {
		l, ok := deps.Limits[routeKey]
		if !deps.RateLimit || !ok {
			return passthrough
		}
		if deps.Limiter == nil {
			return httprate.Limit(l.Requests, l.Window,
				httprate.WithKeyFuncs(httprate.KeyByIP, func(*http.Request) (string, error) { return routeKey, nil }),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					response.WriteError(w, r, domain.ErrRateLimited(routeKey))
				}),
			)
		}
		return middleware.RateLimitFixedWindow(deps.Limiter, middleware.FixedWindowConfig{
			RouteKey: routeKey,
			Limit:    l.Requests,
			Window:   l.Window,
		}, response.WriteError)
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", deps.Metrics)

	r.Route("/auth", func(r chi.Router) {
		r.With(limit("auth_signup")).Post("/signup", deps.Auth.Signup)
		r.With(limit("auth_verify")).Post("/verify-otp", deps.Auth.VerifyOTP)
		r.With(limit("auth_signin")).Post("/signin", deps.Auth.Signin)
		r.With(limit("auth_verify")).Post("/verify-signin-otp", deps.Auth.VerifySigninOTP)
		r.With(limit("auth_google")).Post("/google", deps.Auth.Google)
		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(deps.AuthMW)
		r.Get("/", deps.Notes.List)
		r.With(limit("notes_write")).Post("/", deps.Notes.Create)
		r.With(limit("notes_write")).Put("/{id}", deps.Notes.Update)
		r.With(limit("notes_write")).Delete("/{id}", deps.Notes.Delete)
	})

	return r, nil
}

func passthrough(next http.Handler) http.Handler { return next }
