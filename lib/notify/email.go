package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"parkwatch/lib/booking"
	"parkwatch/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type EmailConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"emailAddress"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Email sends availability reports over SMTP.
type Email struct {
	config     EmailConfig
	bookingURL string
}

func NewEmail(config EmailConfig, bookingURL string) *Email {
	return &Email{config: config, bookingURL: bookingURL}
}

func (e *Email) Notify(ctx context.Context, result booking.PollResult) error {
	_, span := tracer.Start(ctx, "email.Notify")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Park Watch <%s>", e.config.EmailAddress)
	mail.To = e.config.To
	mail.Subject = fmt.Sprintf("Campsite availability: %s", result.Summary())

	body := fmt.Sprintf(`%s - Available sites: %s

Book at:
%s`, timezone.Stamp(result.Time), result.Summary(), e.bookingURL)
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
