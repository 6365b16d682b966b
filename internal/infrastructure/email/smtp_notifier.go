package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/baechuer/notes-service/internal/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool

	// PasscodeTTL is only used to tell the reader how long the code lasts.
	PasscodeTTL time.Duration
	AppURL      string
}

// SMTPNotifier delivers passcodes and welcome mails over SMTP.
type SMTPNotifier struct {
	lg  zerolog.Logger
	cfg SMTPConfig

	// dial is swapped in tests; defaults to a go-mail client send.
	dial func(ctx context.Context, m *mail.Msg) error
}

func NewSMTPNotifier(cfg SMTPConfig, lg zerolog.Logger) *SMTPNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PasscodeTTL <= 0 {
		cfg.PasscodeTTL = 10 * time.Minute
	}
	n := &SMTPNotifier{
		lg:  lg.With().Str("component", "smtp_notifier").Logger(),
		cfg: cfg,
	}
	n.dial = n.dialAndSend
	return n
}

func (n *SMTPNotifier) SendPasscode(ctx context.Context, email, passcode, name string) error {
	text, html, err := renderPasscode(name, passcode, int(n.cfg.PasscodeTTL.Minutes()))
	if err != nil {
		return domain.ErrDeliveryFailed(PermanentError{msg: "render passcode mail: " + err.Error()})
	}
	return n.send(ctx, email, "Your verification code", text, html)
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, email, name string) error {
	text, html, err := renderWelcome(name, n.cfg.AppURL)
	if err != nil {
		return domain.ErrDeliveryFailed(PermanentError{msg: "render welcome mail: " + err.Error()})
	}
	return n.send(ctx, email, "Welcome to Notes", text, html)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return domain.ErrDeliveryFailed(PermanentError{msg: "invalid from address: " + err.Error()})
	}
	if err := m.To(to); err != nil {
		return domain.ErrDeliveryFailed(PermanentError{msg: "invalid to address: " + err.Error()})
	}
	m.Subject(subject)

	// Text fallback + HTML alternative
	m.SetBodyString(mail.TypeTextPlain, textBody)
	m.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	if err := n.dial(ctx, m); err != nil {
		n.lg.Error().Err(err).Str("to", to).Str("subject", subject).Msg("smtp send failed")
		return domain.ErrDeliveryFailed(classify(err))
	}

	n.lg.Info().Str("to", to).Str("subject", subject).Msg("smtp send ok")
	return nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, m *mail.Msg) error {
	tlsPolicy := mail.TLSMandatory
	if n.cfg.Insecure {
		tlsPolicy = mail.TLSOpportunistic
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
		mail.WithTimeout(n.cfg.Timeout),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	c, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return PermanentError{msg: "smtp client init failed: " + err.Error()}
	}
	return c.DialAndSendWithContext(ctx, m)
}

// classify splits SMTP failures into permanent (auth, bad mailbox) and
// temporary (everything else).
func classify(err error) error {
	if IsPermanent(err) {
		return err
	}
	msg := err.Error()
	if containsAny(msg, "535", "5.7.8", "550", "553", "authentication", "Username and Password not accepted") {
		return PermanentError{msg: "smtp permanent failure: " + msg}
	}
	return TemporaryError{msg: "smtp transient failure: " + msg}
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if x != "" && strings.Contains(s, x) {
			return true
		}
	}
	return false
}
