package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/baechuer/notes-service/internal/domain"
)

// LogNotifier is a development notifier: it writes passcodes to the log
// instead of mailing them.
//
// failMode (FAKE_FAIL_MODE):
// - "none" (default): always succeed
// - "transient": return a temporary delivery error
// - "permanent": return a permanent delivery error
type LogNotifier struct {
	lg       zerolog.Logger
	failMode string
}

func NewLogNotifier(lg zerolog.Logger, failMode string) *LogNotifier {
	return &LogNotifier{
		lg:       lg.With().Str("component", "log_notifier").Logger(),
		failMode: strings.TrimSpace(strings.ToLower(failMode)),
	}
}

func (n *LogNotifier) SendPasscode(ctx context.Context, email, passcode, name string) error {
	if err := n.maybeFail("passcode"); err != nil {
		return err
	}
	n.lg.Info().
		Str("to", email).
		Str("name", name).
		Str("passcode", passcode).
		Msg("FAKE send passcode")
	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, email, name string) error {
	if err := n.maybeFail("welcome"); err != nil {
		return err
	}
	n.lg.Info().
		Str("to", email).
		Str("name", name).
		Msg("FAKE send welcome")
	return nil
}

func (n *LogNotifier) maybeFail(kind string) error {
	switch n.failMode {
	case "transient":
		return domain.ErrDeliveryFailed(TemporaryError{msg: fmt.Sprintf("fake transient failure (%s)", kind)})
	case "permanent":
		return domain.ErrDeliveryFailed(PermanentError{msg: fmt.Sprintf("fake permanent failure (%s)", kind)})
	default:
		return nil
	}
}
