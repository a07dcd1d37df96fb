package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const (
	senderName       = "Storefront"
	magicLinkSubject = "Your sign-in link"
)

// Mailer sends the passwordless sign-in email
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// SendGridMailer delivers mail through the SendGrid v3 API
type SendGridMailer struct {
	apiKey string
	from   string
	logger *logrus.Entry
}

func NewSendGridMailer(apiKey, from string, logger *logrus.Logger) *SendGridMailer {
	return &SendGridMailer{
		apiKey: apiKey,
		from:   from,
		logger: logger.WithField("component", "mailer"),
	}
}

func (m *SendGridMailer) SendMagicLink(ctx context.Context, to, link string) error {
	if m.apiKey == "" {
		return errors.New("sendgrid api key is empty")
	}
	if to == "" {
		return errors.New("to address is empty")
	}

	plain := fmt.Sprintf("Click the link below to sign in. It expires in 15 minutes.\n\n%s\n", link)
	htmlContent := fmt.Sprintf(
		`<p>Click the link below to sign in. It expires in 15 minutes.</p><p><a href="%s">Sign in</a></p>`,
		html.EscapeString(link),
	)

	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, m.from),
		magicLinkSubject,
		mail.NewEmail("", to),
		plain,
		htmlContent,
	)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		m.logger.WithFields(logrus.Fields{
			"status": response.StatusCode,
			"body":   response.Body,
		}).Error("SendGrid rejected magic link email")
		return fmt.Errorf("sendgrid send failed: status=%d", response.StatusCode)
	}

	m.logger.WithField("status", response.StatusCode).Debug("Magic link email sent")
	return nil
}

// LogMailer writes the link to the log instead of sending it. Used when no
// SendGrid key is configured, which is the normal local setup.
type LogMailer struct {
	logger *logrus.Entry
}

func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithField("component", "mailer")}
}

func (m *LogMailer) SendMagicLink(ctx context.Context, to, link string) error {
	m.logger.WithFields(logrus.Fields{"to": to, "link": link}).Info("Magic link (not sent, SENDGRID_API_KEY unset)")
	return nil
}
