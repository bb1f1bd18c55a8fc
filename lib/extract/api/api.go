// Package api extracts availability snapshots from the booking site's
// JSON API. It issues two requests per attempt: one for site id to
// display-name mappings, one for site id to status-code mappings.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"parkwatch/lib/extract"
	"parkwatch/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("extract/api")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// query parameters each endpoint requires, lifted from the booking
// URL the user pastes in
var namesParams = []string{"resourceLocationId", "mapId"}
var statusParams = []string{"mapId", "startDate", "endDate"}

// Strategy implements extract.Strategy over the JSON API.
type Strategy struct {
	http        *resty.Client
	namesQuery  url.Values
	statusQuery url.Values
}

// New validates the booking URL and builds the API client. A booking
// URL missing any required query parameter is a configuration error,
// reported before the poll loop ever starts.
func New(bookingURL string) (*Strategy, error) {
	parsed, err := url.Parse(bookingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid booking url: %w", err)
	}
	query := parsed.Query()

	namesQuery, err := pickParams(query, namesParams)
	if err != nil {
		return nil, err
	}
	statusQuery, err := pickParams(query, statusParams)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(fmt.Sprintf("%s://%s/api/", parsed.Scheme, parsed.Host))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "extract/api/http")

	return &Strategy{
		http:        client,
		namesQuery:  namesQuery,
		statusQuery: statusQuery,
	}, nil
}

func pickParams(query url.Values, required []string) (url.Values, error) {
	picked := url.Values{}
	var missing []string
	for _, key := range required {
		value := query.Get(key)
		if value == "" {
			missing = append(missing, key)
			continue
		}
		picked.Set(key, value)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("booking url is missing query parameters: %s", strings.Join(missing, ", "))
	}
	return picked, nil
}

func (s *Strategy) Extract(ctx context.Context) (extract.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	names, err := s.fetchNames(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch names")
		return extract.Snapshot{}, err
	}
	statuses, err := s.fetchStatuses(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch statuses")
		return extract.Snapshot{}, err
	}

	return extract.Snapshot{Names: names, Statuses: statuses}, nil
}

// resourceEntry is one value in the resources payload; display names
// hide inside the first localized value.
type resourceEntry struct {
	LocalizedValues []struct {
		Name string `json:"name"`
	} `json:"localizedValues"`
}

func (s *Strategy) fetchNames(ctx context.Context) (map[string]string, error) {
	body, err := s.get(ctx, "resourcelocation/resources", s.namesQuery)
	if err != nil {
		return nil, err
	}

	var payload map[string]resourceEntry
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, extract.Malformed("decode resources", err)
	}

	names := make(map[string]string, len(payload))
	for id, entry := range payload {
		if len(entry.LocalizedValues) == 0 {
			return nil, extract.Malformed(
				"decode resources",
				fmt.Errorf("resource %q has no localized values", id),
			)
		}
		names[id] = entry.LocalizedValues[0].Name
	}
	return names, nil
}

// availabilityPayload is the map endpoint's shape; each resource id
// maps to a list of availability windows, the first of which covers
// the requested date range.
type availabilityPayload struct {
	ResourceAvailabilities map[string][]struct {
		Availability int `json:"availability"`
	} `json:"resourceAvailabilities"`
}

func (s *Strategy) fetchStatuses(ctx context.Context) (map[string]int, error) {
	body, err := s.get(ctx, "availability/map", s.statusQuery)
	if err != nil {
		return nil, err
	}

	var payload availabilityPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, extract.Malformed("decode availability", err)
	}
	if payload.ResourceAvailabilities == nil {
		return nil, extract.Malformed(
			"decode availability",
			fmt.Errorf("response has no resourceAvailabilities"),
		)
	}

	statuses := make(map[string]int, len(payload.ResourceAvailabilities))
	for id, windows := range payload.ResourceAvailabilities {
		if len(windows) == 0 {
			return nil, extract.Malformed(
				"decode availability",
				fmt.Errorf("resource %q has an empty availability list", id),
			)
		}
		statuses[id] = windows[0].Availability
	}
	return statuses, nil
}

func (s *Strategy) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		return nil, extract.Transport(fmt.Sprintf("get %s", path), err)
	}
	if res.IsError() {
		return nil, extract.Transport(
			fmt.Sprintf("get %s", path),
			fmt.Errorf("unexpected status %s", res.Status()),
		)
	}
	return res.Body(), nil
}

func (s *Strategy) Close() error {
	s.http.GetClient().CloseIdleConnections()
	return nil
}
