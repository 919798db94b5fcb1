package ice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/HellLord77/goce/internal/cookies"
)

// Gateway issues requests with status-driven recovery. A 409 means the
// server dropped our session: refresh cookies and retry. A 429 means
// back off: sleep the server-stated Retry-After and retry. Neither
// retry carries an attempt cap; the server decides how long either
// condition lasts. Everything else non-2xx is fatal.
type Gateway struct {
	http      *resty.Client
	limiter   *rate.Limiter
	refresher cookies.Refresher
	cookieURL string

	// session is the opaque Cookie header blob. It is replaced wholesale
	// on refresh and nothing here ever parses it.
	session string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a gateway. cookieURL is the page a refresher should
// visit to mint a new session.
func NewGateway(client *resty.Client, limiter *rate.Limiter, refresher cookies.Refresher, cookieURL string) *Gateway {
	return &Gateway{
		http:      client,
		limiter:   limiter,
		refresher: refresher,
		cookieURL: cookieURL,
		sleep:     sleepContext,
	}
}

// Do sends one logical request, looping through recovery until the
// server answers 2xx or fails it for good. Transport errors are returned
// as they are; unrecoverable statuses surface as a StatusError.
func (g *Gateway) Do(ctx context.Context, method, url string, form map[string]string) (*resty.Response, error) {
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req := g.http.R().SetContext(ctx)
		if g.session != "" {
			req.SetHeader("Cookie", g.session)
		}
		if len(form) > 0 {
			req.SetFormData(form)
		}

		resp, err := req.Execute(method, url)
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %w", url, err)
		}
		if resp.IsSuccess() {
			return resp, nil
		}

		slog.WarnContext(ctx, "Request failed",
			slog.String("method", method),
			slog.String("url", url),
			slog.String("status", resp.Status()))

		switch resp.StatusCode() {
		case http.StatusConflict:
			if err := g.refreshSession(ctx); err != nil {
				return nil, err
			}
		case http.StatusTooManyRequests:
			if err := g.backOff(ctx, resp); err != nil {
				return nil, err
			}
		default:
			return nil, &StatusError{
				StatusCode: resp.StatusCode(),
				Status:     resp.Status(),
				URL:        url,
			}
		}
	}
}

func (g *Gateway) refreshSession(ctx context.Context) error {
	slog.InfoContext(ctx, "Session rejected, refreshing cookies",
		slog.String("cookie_url", g.cookieURL))

	header, err := g.refresher.Refresh(ctx, g.cookieURL)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	g.session = header
	return nil
}

func (g *Gateway) backOff(ctx context.Context, resp *resty.Response) error {
	value := resp.Header().Get("Retry-After")
	if value == "" {
		return fmt.Errorf("rate limited without a Retry-After header")
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("unusable Retry-After header %q: %w", value, err)
	}

	slog.InfoContext(ctx, "Rate limited, sleeping", slog.Int("seconds", seconds))
	return g.sleep(ctx, time.Duration(seconds)*time.Second)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
