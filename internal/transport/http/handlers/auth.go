package http_handlers

import (
	"net/http"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/domain"
	"github.com/baechuer/notes-service/internal/logger"
	"github.com/baechuer/notes-service/internal/transport/http/dto"
	"github.com/baechuer/notes-service/internal/transport/http/middleware"
	"github.com/baechuer/notes-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// decode reads, normalizes and validates a request body.
func decode[T any, PT interface {
	*T
	Normalize()
}](w http.ResponseWriter, r *http.Request) (PT, bool) {
	req := PT(new(T))
	if err := response.DecodeJSON(r, req); err != nil {
		response.WriteError(w, r, err)
		return nil, false
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return nil, false
	}
	return req, true
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[dto.SignupRequest](w, r)
	if !ok {
		return
	}

	userID, err := h.svc.Signup(r.Context(), auth.SignupInput{
		Name:        req.Name,
		Email:       req.Email,
		DateOfBirth: req.DOB(),
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	lg := logger.WithCtx(r.Context())
	lg.Info().Str("user_id", userID).Msg("user_signed_up")

	response.Created(w, dto.UserIDData{UserID: userID})
}

// VerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[dto.VerifyOTPRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.VerifyOTP(r.Context(), req.UserID, req.OTP)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Session(w, dto.NewSessionData(res))
}

// Signin handles POST /auth/signin
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[dto.SigninRequest](w, r)
	if !ok {
		return
	}

	userID, err := h.svc.Signin(r.Context(), req.Email)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.UserIDData{UserID: userID})
}

// VerifySigninOTP handles POST /auth/verify-signin-otp
func (h *AuthHandler) VerifySigninOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[dto.VerifyOTPRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.VerifySigninOTP(r.Context(), req.UserID, req.OTP)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	lg := logger.WithCtx(r.Context())
	lg.Info().Str("user_id", res.User.ID).Msg("user_signed_in")

	response.Session(w, dto.NewSessionData(res))
}

// Google handles POST /auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[dto.GoogleAuthRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.GoogleAuth(r.Context(), req.Token)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Session(w, dto.NewSessionData(res))
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	u, err := h.svc.Me(r.Context(), uid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MeData{User: dto.NewUserView(u)})
}
