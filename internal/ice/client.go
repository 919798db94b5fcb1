package ice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/HellLord77/goce/internal/cookies"
)

// Form field names the results endpoint selects on.
const (
	marketKey     = "selectedMarket"
	timePeriodKey = "selectedTimePeriod"
)

// Options configures a report client.
type Options struct {
	BaseURL   string
	ReportID  int64
	Refresher cookies.Refresher

	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond throttles outbound requests on top of the
	// server's own 429 handling. Zero or negative disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// Client fetches criteria and result pages for one report.
type Client struct {
	gateway     *Gateway
	reportID    int64
	cookieURL   string
	criteriaURL string
	resultsURL  string

	// One-slot result cache. The dump loop asks for the same page twice
	// in a row when it first learns a period's label, so remembering
	// just the last page removes the duplicate request without any
	// unbounded growth. Sequential use only.
	cacheKey  resultsKey
	cachePage *ResultPage
}

type resultsKey struct {
	market     string
	timePeriod string
}

// NewClient builds a client for the report identified by opts.ReportID.
func NewClient(opts Options) (*Client, error) {
	id := strconv.FormatInt(opts.ReportID, 10)

	cookieURL, err := url.JoinPath(opts.BaseURL, "report", id)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	criteriaURL, err := url.JoinPath(opts.BaseURL, "marketdata", "api", "reports", id, "criteria")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	resultsURL, err := url.JoinPath(opts.BaseURL, "marketdata", "api", "reports", id, "results")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}

	// No cookie jar: the session blob the gateway manages is the only
	// cookie state, and the server must never smuggle entries past it.
	httpClient := resty.New()
	httpClient.SetCookieJar(nil)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		httpClient.SetHeader("User-Agent", opts.UserAgent)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		gateway:     NewGateway(httpClient, rate.NewLimiter(limit, burst), opts.Refresher, cookieURL),
		reportID:    opts.ReportID,
		cookieURL:   cookieURL,
		criteriaURL: criteriaURL,
		resultsURL:  resultsURL,
	}, nil
}

// CookieURL returns the report page URL a session has to be minted for.
func (c *Client) CookieURL() string {
	return c.cookieURL
}

// Criteria fetches the selectable market and time period values, in
// server order. A missing criterion yields an empty list, not an error.
func (c *Client) Criteria(ctx context.Context) (markets, timePeriods []string, err error) {
	resp, err := c.gateway.Do(ctx, http.MethodGet, c.criteriaURL, nil)
	if err != nil {
		return nil, nil, err
	}

	var criteria []Criterion
	if err := json.Unmarshal(resp.Body(), &criteria); err != nil {
		return nil, nil, fmt.Errorf("failed to parse criteria: %w", err)
	}

	for _, criterion := range criteria {
		switch criterion.Name {
		case marketKey:
			markets = values(criterion)
		case timePeriodKey:
			timePeriods = values(criterion)
		}
	}

	slog.DebugContext(ctx, "Fetched criteria",
		slog.Int64("report_id", c.reportID),
		slog.Int("markets", len(markets)),
		slog.Int("time_periods", len(timePeriods)))

	return markets, timePeriods, nil
}

func values(criterion Criterion) []string {
	out := make([]string, 0, len(criterion.Values))
	for _, v := range criterion.Values {
		out = append(out, v.Value)
	}
	return out
}

// Results fetches the page for one (market, time period) pair. A repeat
// of the immediately preceding pair is served from cache without a
// request; any other pair evicts it.
func (c *Client) Results(ctx context.Context, market, timePeriod string) (*ResultPage, error) {
	key := resultsKey{market: market, timePeriod: timePeriod}
	if c.cachePage != nil && c.cacheKey == key {
		slog.DebugContext(ctx, "Result cache hit",
			slog.String("market", market),
			slog.String("time_period", timePeriod))
		return c.cachePage, nil
	}

	resp, err := c.gateway.Do(ctx, http.MethodPost, c.resultsURL, map[string]string{
		marketKey:     market,
		timePeriodKey: timePeriod,
	})
	if err != nil {
		return nil, err
	}

	var envelope resultsEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	rows, err := decodeRows(envelope.Datasets.Results.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	page := &ResultPage{
		Label: envelope.Datasets.Results.Subheader,
		Rows:  rows,
	}
	c.cacheKey = key
	c.cachePage = page
	return page, nil
}
