package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"parkwatch/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const tinyurlEndpoint = "https://tinyurl.com/api-create.php"

// Shortener turns the long booking URL into something that fits in an
// SMS. Shorten degrades to the original URL on any failure.
type Shortener struct {
	http     *resty.Client
	endpoint string
}

func NewShortener() *Shortener {
	client := resty.New().SetTimeout(10 * time.Second)
	telemetry.InstrumentResty(client, "notify/shorten")
	return &Shortener{http: client, endpoint: tinyurlEndpoint}
}

func (s *Shortener) Shorten(ctx context.Context, longURL string) string {
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("url", longURL).
		Get(s.endpoint)
	if err != nil {
		slog.Warn("url shortener unreachable, using long url", "err", err)
		return longURL
	}
	if res.IsError() {
		slog.Warn("url shortener refused, using long url", "status", res.StatusCode())
		return longURL
	}

	short := strings.TrimSpace(string(res.Body()))
	if !strings.HasPrefix(short, "http") {
		slog.Warn("url shortener returned junk, using long url")
		return longURL
	}
	return short
}
