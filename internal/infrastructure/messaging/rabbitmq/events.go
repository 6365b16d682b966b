package rabbitmq

import "time"

const (
	RoutingPasscodeRequested = "notes.email.passcode.requested"
	RoutingWelcomeRequested  = "notes.email.welcome.requested"
)

// PasscodeRequestedEvent asks the mailer to deliver a one-time passcode.
type PasscodeRequestedEvent struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Passcode    string    `json:"passcode"`
	RequestedAt time.Time `json:"requested_at"`
}

type WelcomeRequestedEvent struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requested_at"`
}
