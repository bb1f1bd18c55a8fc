package notify

import (
	"context"
	"fmt"

	"parkwatch/lib/booking"
	"parkwatch/lib/timezone"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.opentelemetry.io/otel/codes"
)

type SMSConfig struct {
	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// SMS sends availability reports as text messages. The booking URL is
// shortened per message so the link survives SMS length limits.
type SMS struct {
	client     *twilio.RestClient
	config     SMSConfig
	bookingURL string
	shortener  *Shortener
}

func NewSMS(config SMSConfig, bookingURL string) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})
	return &SMS{
		client:     client,
		config:     config,
		bookingURL: bookingURL,
		shortener:  NewShortener(),
	}
}

func (s *SMS) Notify(ctx context.Context, result booking.PollResult) error {
	ctx, span := tracer.Start(ctx, "sms.Notify")
	defer span.End()

	body := fmt.Sprintf(
		"%s - Available sites: %s\n%s",
		timezone.Stamp(result.Time),
		result.Summary(),
		s.shortener.Shorten(ctx, s.bookingURL),
	)

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(s.config.To)
	params.SetFrom(s.config.From)
	params.SetBody(body)

	_, err := s.client.Api.CreateMessage(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send sms")
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}
