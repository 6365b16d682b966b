package audit

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Logger writes structured audit lines for auth and notes business events and
// counts them per action.
type Logger struct {
	log    zerolog.Logger
	events *prometheus.CounterVec
}

// New creates a new audit logger. reg may be nil to skip metrics.
func New(log zerolog.Logger, reg prometheus.Registerer) *Logger {
	l := &Logger{
		log: log.With().Bool("audit", true).Logger(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notes_service",
				Name:      "audit_events_total",
				Help:      "Business events by action",
			},
			[]string{"action"},
		),
	}
	if reg != nil {
		if err := reg.Register(l.events); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				l.events = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return l
}

// Record matches the audit hook signature of the application services.
func (l *Logger) Record(action string, fields map[string]string) {
	l.events.WithLabelValues(action).Inc()

	ev := l.log.Info()
	if action == "passcode_delivery_failed" {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		switch k {
		case "email":
			v = maskEmail(v)
		case "passcode":
			continue
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := 0
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
