package utils

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"forma/config"
	"forma/engine"
)

// NewNotifier selects the notification gateway from configuration.
// Unknown or missing providers degrade to the no-op gateway so callers
// never branch on configuration presence.
func NewNotifier(cfg *config.Config) engine.Notifier {
	switch cfg.MailProvider {
	case "smtp":
		return &SMTPNotifier{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Sender:   cfg.EmailSender,
			Password: cfg.SMTPPassword,
		}
	case "sendgrid":
		return &SendGridNotifier{
			APIKey: cfg.SendGridKey,
			Sender: cfg.EmailSender,
		}
	default:
		return engine.NoopNotifier{}
	}
}

// SMTPNotifier delivers notification emails over plain SMTP.
type SMTPNotifier struct {
	Host     string
	Port     string
	Sender   string
	Password string
}

func (n *SMTPNotifier) Send(templateKey string, to string, params map[string]string) error {
	subject, body, err := buildEmail(templateKey, params)
	if err != nil {
		return err
	}

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Forma <%s>\r\n", n.Sender)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += body

	auth := smtp.PlainAuth("", n.Sender, n.Password, n.Host)
	return smtp.SendMail(n.Host+":"+n.Port, auth, n.Sender, []string{to}, []byte(msg))
}

// SendGridNotifier delivers notification emails through the SendGrid API.
type SendGridNotifier struct {
	APIKey string
	Sender string
}

func (n *SendGridNotifier) Send(templateKey string, to string, params map[string]string) error {
	subject, body, err := buildEmail(templateKey, params)
	if err != nil {
		return err
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail("Forma", n.Sender),
		subject,
		sgmail.NewEmail(params["name"], to),
		"",
		body,
	)
	response, err := sendgrid.NewSendClient(n.APIKey).Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

type emailTemplate struct {
	subject string
	body    func(params map[string]string) string
}

var emailTemplates = map[string]emailTemplate{
	engine.TemplateEnrollmentConfirmed: {
		subject: "Your enrollment is confirmed",
		body: func(p map[string]string) string {
			return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your enrollment in <strong>%s</strong> has been registered.</p>
		<p>You can start the training from your dashboard at any time.</p>
	`, p["name"], p["training"])
		},
	},
	engine.TemplateCertificateIssued: {
		subject: "Your certificate is ready",
		body: func(p map[string]string) string {
			return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations! You have completed <strong>%s</strong>.</p>
		<p>Your certificate (n° %s) is available in your account.</p>
	`, p["name"], p["training"], p["certificate_number"])
		},
	},
	engine.TemplateReminder7Days: {
		subject: "Your training session starts in 7 days",
		body: func(p map[string]string) string {
			return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your session of <strong>%s</strong> starts on <strong>%s</strong>.</p>
		<p>Please make sure you are available on that date.</p>
	`, p["name"], p["training"], p["date"])
		},
	},
	engine.TemplateReminder1Day: {
		subject: "Your training session starts tomorrow",
		body: func(p map[string]string) string {
			return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a last reminder: your session of <strong>%s</strong> starts on <strong>%s</strong>.</p>
		<p>See you there!</p>
	`, p["name"], p["training"], p["date"])
		},
	},
	engine.TemplateInactivityNudge: {
		subject: "Continue your training",
		body: func(p map[string]string) string {
			return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You have not made progress on <strong>%s</strong> for a while.</p>
		<p>Pick up where you left off and keep going towards your certificate!</p>
	`, p["name"], p["training"])
		},
	},
}

func buildEmail(templateKey string, params map[string]string) (subject, body string, err error) {
	tmpl, ok := emailTemplates[templateKey]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", templateKey)
	}
	return tmpl.subject, wrapEmailBody(tmpl.subject, tmpl.body(params)), nil
}

// wrapEmailBody wraps the message content in the shared HTML layout.
func wrapEmailBody(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1B3A4B; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1B3A4B; line-height: 1.6; }
			.content h2 { color: #1B3A4B; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>FORMA</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 Forma. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, strings.TrimSpace(bodyContent))
}
