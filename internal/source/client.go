package source

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/config"
	"sgxfeed/internal/model"
)

const indexTTL = 5 * time.Minute

// Client is the HTTP RemoteFileSource. Requests share one rate limiter and carry the configured User-Agent.
type Client struct {
	http      *http.Client
	resolver  KeyResolver
	template  string
	userAgent string
	limiter   *rate.Limiter
	timeout   time.Duration
	cal       calendar.Calendar
	logger    *slog.Logger
}

var _ Source = (*Client)(nil)

// NewLimiter turns a requests-per-second setting into a limiter; rps <= 0 disables limiting.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}

// NewClient wires the feed client and its index resolver from configuration.
func NewClient(cfg config.FeedConfig, cal calendar.Calendar, logger *slog.Logger) *Client {
	hc := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	limiter := NewLimiter(cfg.RequestsPerSecond)

	c := &Client{
		http:      hc,
		template:  cfg.FileURLTemplate,
		userAgent: cfg.UserAgent,
		limiter:   limiter,
		timeout:   cfg.FetchTimeout(),
		cal:       cal,
		logger:    logger.With("component", "source"),
	}
	if strings.Contains(cfg.FileURLTemplate, keyPlaceholder) {
		c.resolver = NewIndexResolver(hc, cfg.IndexURL, cfg.UserAgent, limiter, indexTTL)
	}
	return c
}

// Resolver exposes the index resolver, or nil when the URL template has no {key}.
func (c *Client) Resolver() KeyResolver {
	return c.resolver
}

// Fetch downloads one file for businessDate. HTTP 404/410 and dates missing from the index
// are reported as Unavailable.
func (c *Client) Fetch(ctx context.Context, spec model.FileSpec, businessDate time.Time) (*model.FetchResult, error) {
	businessDate = calendar.Date(businessDate)
	res := &model.FetchResult{
		Spec:         spec,
		BusinessDate: businessDate,
		RemoteName:   RemoteName(spec.Remote, businessDate, c.cal),
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var key string
	if c.resolver != nil {
		k, ok, err := c.resolver.Key(ctx, businessDate)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.logger.Info("date_not_in_index", "file", spec.Name, "business_date", calendar.Format(businessDate))
			res.Unavailable = true
			return res, nil
		}
		key = k
	}

	u := FileURL(c.template, key, res.RemoteName)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Info("file_not_published", "file", spec.Name, "url", u, "status", resp.StatusCode)
		res.Unavailable = true
		return res, nil
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{URL: u, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}
	res.Data = data

	c.logger.Debug("file_fetched",
		"file", spec.Name,
		"url", u,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
