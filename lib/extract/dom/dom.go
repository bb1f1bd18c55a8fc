// Package dom extracts availability snapshots by inspecting the
// rendered booking map in a headless browser. The page only signals
// availability positively: a site with no available marker produces
// no record at all, because a missing marker is indistinguishable
// from one that has not rendered yet.
package dom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parkwatch/lib/extract"
	"parkwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("extract/dom")

// Options tune the page-readiness waits. Zero values fall back to the
// booking map's known selectors and bounds.
type Options struct {
	ContainerSelector string
	MarkerSelector    string
	AvailableClass    string
	LabelClass        string
	LabelTextClass    string

	// MinMarkers is the marker count that must appear before the
	// quiescence wait starts.
	MinMarkers       int
	ContainerTimeout time.Duration
	MarkersTimeout   time.Duration
	// SampleInterval and MaxSamples bound the quiescence wait.
	SampleInterval time.Duration
	MaxSamples     int

	NoSandbox bool
}

func (o Options) withDefaults() Options {
	if o.ContainerSelector == "" {
		o.ContainerSelector = ".map-container"
	}
	if o.MarkerSelector == "" {
		o.MarkerSelector = ".map-icon"
	}
	if o.AvailableClass == "" {
		o.AvailableClass = "icon-available"
	}
	if o.LabelClass == "" {
		o.LabelClass = "map-site-label"
	}
	if o.LabelTextClass == "" {
		o.LabelTextClass = "resource-label"
	}
	if o.MinMarkers <= 0 {
		o.MinMarkers = 10
	}
	if o.ContainerTimeout <= 0 {
		o.ContainerTimeout = 30 * time.Second
	}
	if o.MarkersTimeout <= 0 {
		o.MarkersTimeout = 15 * time.Second
	}
	if o.SampleInterval <= 0 {
		o.SampleInterval = 500 * time.Millisecond
	}
	if o.MaxSamples <= 0 {
		o.MaxSamples = 5
	}
	return o
}

const labelLookupTimeout = 2 * time.Second

// Strategy implements extract.Strategy over a headless browser
// session. The browser lives for the whole poll loop; each attempt
// re-navigates the same page.
type Strategy struct {
	bookingURL string
	opts       Options
	lnch       *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
}

// New launches the browser. A launch or connect failure here is a
// startup failure, not an extraction error.
func New(bookingURL string, opts Options) (*Strategy, error) {
	opts = opts.withDefaults()

	l := launcher.New().Headless(true)
	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Strategy{
		bookingURL: bookingURL,
		opts:       opts,
		lnch:       l,
		browser:    browser,
	}, nil
}

func (s *Strategy) Extract(ctx context.Context) (extract.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	page, err := s.ensurePage()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open page")
		return extract.Snapshot{}, extract.Transport("open page", err)
	}

	if err := page.Context(ctx).Navigate(s.bookingURL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigate")
		return extract.Snapshot{}, extract.Transport("navigate", err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		// the map can still render after a slow subresource; the
		// container wait below is the real readiness gate
		slog.Debug("wait load did not settle", "err", err)
	}

	if err := s.waitContainer(ctx, page); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wait container")
		return extract.Snapshot{}, err
	}
	count, err := s.waitMarkers(ctx, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wait markers")
		return extract.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int("markers", count))

	names, err := s.readAvailable(ctx, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read markers")
		return extract.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int("available", len(names)))

	return extract.Snapshot{Available: names}, nil
}

func (s *Strategy) ensurePage() (*rod.Page, error) {
	if s.page != nil {
		return s.page, nil
	}
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, err
	}
	s.page = page
	return page, nil
}

func (s *Strategy) waitContainer(ctx context.Context, page *rod.Page) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.ContainerTimeout)
	defer cancel()

	_, err := page.Context(waitCtx).Element(s.opts.ContainerSelector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return extract.Timeout("wait container", err)
		}
		return classify("wait container", err)
	}
	return nil
}

// waitMarkers first waits for a minimum marker count to appear, then
// runs the quiescence wait so a half-rendered map is not read.
func (s *Strategy) waitMarkers(ctx context.Context, page *rod.Page) (int, error) {
	deadline := time.Now().Add(s.opts.MarkersTimeout)
	for {
		count, err := s.markerCount(page)
		if err != nil {
			return 0, classify("count markers", err)
		}
		if count > s.opts.MinMarkers {
			break
		}
		if time.Now().After(deadline) {
			return 0, extract.Timeout(
				"wait markers",
				fmt.Errorf("only %d markers after %s", count, s.opts.MarkersTimeout),
			)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.opts.SampleInterval):
		}
	}

	count, err := waitStable(ctx, func() (int, error) {
		return s.markerCount(page)
	}, s.opts.SampleInterval, s.opts.MaxSamples)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, classify("count markers", err)
	}
	return count, nil
}

func (s *Strategy) markerCount(page *rod.Page) (int, error) {
	els, err := page.Elements(s.opts.MarkerSelector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (s *Strategy) readAvailable(ctx context.Context, page *rod.Page) ([]string, error) {
	els, err := page.Context(ctx).Elements(s.opts.MarkerSelector)
	if err != nil {
		return nil, classify("list markers", err)
	}

	var names []string
	seen := make(map[string]bool)
	for i, el := range els {
		classAttr, err := el.Attribute("class")
		if err != nil {
			// the map re-rendered under us; restart this attempt
			return nil, classify("read marker class", err)
		}
		if classAttr == nil || !htmlutil.HasClass(*classAttr, s.opts.AvailableClass) {
			continue
		}

		name, err := s.lookupLabel(el)
		if err != nil {
			slog.Warn("skipped marker without label", "index", i, "err", err)
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// lookupLabel tries the ordered label lookup chain until one path
// yields text: the marker's following sibling, the parent's following
// sibling, then a plain parse of the parent's HTML.
func (s *Strategy) lookupLabel(el *rod.Element) (string, error) {
	lookups := []func(*rod.Element) (string, error){
		s.labelFromSibling,
		s.labelFromParentSibling,
		s.labelFromParentHTML,
	}

	var errs []error
	for _, lookup := range lookups {
		name, err := lookup(el)
		if err == nil {
			return name, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

func (s *Strategy) labelFromSibling(el *rod.Element) (string, error) {
	sibling, err := el.Timeout(labelLookupTimeout).ElementX(
		fmt.Sprintf(`./following-sibling::*[contains(@class,"%s")]`, s.opts.LabelClass),
	)
	if err != nil {
		return "", err
	}
	text, err := sibling.Timeout(labelLookupTimeout).Element("." + s.opts.LabelTextClass)
	if err != nil {
		return "", err
	}
	return text.Text()
}

func (s *Strategy) labelFromParentSibling(el *rod.Element) (string, error) {
	sibling, err := el.Timeout(labelLookupTimeout).ElementX(
		fmt.Sprintf(`../following-sibling::div[contains(@class,"%s")]`, s.opts.LabelClass),
	)
	if err != nil {
		return "", err
	}
	text, err := sibling.Timeout(labelLookupTimeout).Element("." + s.opts.LabelTextClass)
	if err != nil {
		return "", err
	}
	return text.Text()
}

func (s *Strategy) labelFromParentHTML(el *rod.Element) (string, error) {
	parent, err := el.Timeout(labelLookupTimeout).Parent()
	if err != nil {
		return "", err
	}
	html, err := parent.HTML()
	if err != nil {
		return "", err
	}
	return labelFromHTML(html, s.opts.LabelTextClass)
}

// labelFromHTML parses an HTML fragment and pulls the first label
// text out of it.
func labelFromHTML(html, textClass string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	selection := doc.Find("." + textClass)
	if len(selection.Nodes) == 0 {
		return "", fmt.Errorf("no %q element in fragment", textClass)
	}
	return htmlutil.GetText(selection.Nodes[0]), nil
}

// classify maps a rod failure onto the extraction taxonomy: CDP-level
// node errors mean the page mutated mid-read (transient), anything
// else at this layer means the session itself is gone.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return extract.Timeout(op, err)
	}
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		return extract.Transient(op, err)
	}
	return extract.Transport(op, err)
}

// Close shuts the page, browser, and launched process down. Runs on
// every poll loop exit path.
func (s *Strategy) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch = nil
	}
	return errors.Join(errs...)
}
