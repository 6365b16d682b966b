package dto

import (
	"strings"
	"time"
)

type SignupRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	DateOfBirth string `json:"dateOfBirth,omitempty" validate:"omitempty,dob"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
}

// DOB is only meaningful after Validate succeeded.
func (r *SignupRequest) DOB() *time.Time {
	d, _ := ParseDateOfBirth(r.DateOfBirth)
	return d
}

// VerifyOTPRequest serves both the signup and the signin passcode checks.
type VerifyOTPRequest struct {
	UserID string `json:"userId" validate:"required"`
	OTP    string `json:"otp" validate:"required,passcode"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.OTP = strings.TrimSpace(r.OTP)
}

type SigninRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *SigninRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type GoogleAuthRequest struct {
	Token string `json:"token" validate:"required"`
}

func (r *GoogleAuthRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
}

// -------- Notes --------

type NoteRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (r *NoteRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}
