package engine

// Notification template keys
const (
	TemplateEnrollmentConfirmed = "enrollment_confirmed"
	TemplateCertificateIssued   = "certificate_issued"
	TemplateReminder7Days       = "reminder_7_days"
	TemplateReminder1Day        = "reminder_1_day"
	TemplateInactivityNudge     = "inactivity_nudge"
)

// Notifier sends a templated email. Implementations live outside the
// engine (SMTP, SendGrid); failures are reported through the error so
// the caller can log and move on, never retried here.
type Notifier interface {
	Send(templateKey string, to string, params map[string]string) error
}

// NoopNotifier is selected at startup when no mail provider is
// configured, so the engine never branches on configuration presence.
type NoopNotifier struct{}

func (NoopNotifier) Send(string, string, map[string]string) error { return nil }
