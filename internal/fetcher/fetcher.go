package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nao1215/prayertimes/internal/model"
)

const (
	defaultUserAgent = "Mozilla/5.0"
	defaultTimeout   = 30 * time.Second
	defaultDelay     = 1 * time.Second
)

var tracer = otel.Tracer("prayertimes/internal/fetcher")

// Fetcher retrieves district pages from one site.
// It is safe for concurrent use.
type Fetcher struct {
	client      *resty.Client
	baseURL     string
	userAgent   string
	headers     map[string]string
	maxBodySize int64
	pacer       *pacer
	logger      *slog.Logger
}

type settings struct {
	userAgent        string
	delay            time.Duration
	timeout          time.Duration
	headers          map[string]string
	transport        http.RoundTripper
	maxBodySize      int64
	logger           *slog.Logger
	cloudflareBypass bool
}

// Option configures a Fetcher.
type Option func(*settings)

// WithUserAgent sets the User-Agent header. Empty keeps the default.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithDelay sets the minimum time between the starts of two requests.
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		s.delay = d
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// WithTransport replaces the HTTP transport, e.g. with a SOCKS5 one.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.transport = rt
	}
}

// WithMaxBodySize sets the largest accepted response body.
func WithMaxBodySize(size int64) Option {
	return func(s *settings) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCloudflareBypass makes the TLS handshake look like a browser's.
func WithCloudflareBypass(enabled bool) Option {
	return func(s *settings) {
		s.cloudflareBypass = enabled
	}
}

// New creates a Fetcher for pages below baseURL.
func New(baseURL string, opts ...Option) *Fetcher {
	s := &settings{
		userAgent:   defaultUserAgent,
		delay:       defaultDelay,
		timeout:     defaultTimeout,
		headers:     make(map[string]string),
		maxBodySize: model.DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	client := resty.New()
	client.SetTimeout(s.timeout)
	client.SetRetryCount(0)
	if s.transport != nil {
		client.SetTransport(s.transport)
	}
	if s.cloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	return &Fetcher{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   s.userAgent,
		headers:     s.headers,
		maxBodySize: s.maxBodySize,
		pacer:       newPacer(s.delay),
		logger:      s.logger,
	}
}

// BaseURL returns the base URL without a trailing slash.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// URLFor returns the page URL of district. The id is appended verbatim.
func (f *Fetcher) URLFor(district model.DistrictID) string {
	return f.baseURL + "/" + string(district)
}

// Fetch waits for the pacer and then issues one GET for district.
// Every failure is returned as a *FetchError. When ctx is cancelled the
// FetchError wraps the context error.
func (f *Fetcher) Fetch(ctx context.Context, district model.DistrictID) (*model.RawPage, error) {
	pageURL := f.URLFor(district)

	ctx, span := tracer.Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("district", district.String()),
		attribute.String("url", pageURL),
	))
	defer span.End()

	page, err := f.fetch(ctx, district, pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("status_code", page.StatusCode),
		attribute.Int("body_size", len(page.Body)),
	)
	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, district model.DistrictID, pageURL string) (*model.RawPage, error) {
	fail := func(status int, err error) error {
		return &FetchError{District: district, URL: pageURL, StatusCode: status, Err: err}
	}

	released, err := f.pacer.Wait(ctx)
	if err != nil {
		return nil, fail(0, err)
	}

	f.logger.DebugContext(ctx, "fetching district page", "district", district, "url", pageURL)

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(f.headers).
		SetHeader("User-Agent", f.userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fail(0, err)
	}

	body := resp.RawBody()
	if body == nil {
		return nil, fail(resp.StatusCode(), errors.New("empty response"))
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.maxBodySize+1))
	if err != nil {
		return nil, fail(resp.StatusCode(), fmt.Errorf("failed to read body: %w", err))
	}
	if int64(len(data)) > f.maxBodySize {
		return nil, fail(resp.StatusCode(), fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBodySize))
	}

	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, fail(status, ErrUnexpectedStatus)
	}

	page := &model.RawPage{
		District:    district,
		URL:         pageURL,
		StatusCode:  status,
		ContentType: resp.Header().Get("Content-Type"),
		Body:        data,
		FetchedAt:   released,
	}
	page.ComputeHash()

	f.logger.DebugContext(ctx, "fetched district page",
		"district", district,
		"status", status,
		"bytes", len(data),
		"elapsed", time.Since(released),
	)
	return page, nil
}
