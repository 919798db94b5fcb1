package cookies

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// The challenge iframe counts as gone when it was never rendered or has
// been hidden after a successful solve.
const captchaHiddenJS = `(() => {
	const frame = document.querySelector('iframe[title="reCAPTCHA"]');
	if (frame === null) return true;
	const style = getComputedStyle(frame);
	return frame.offsetParent === null || style.visibility === 'hidden' || style.display === 'none';
})()`

// Browser obtains a session by opening the report page in a real browser
// and waiting for the user to get past the reCAPTCHA challenge. The
// profile directory persists across runs so a solved challenge usually
// carries over to the next session.
type Browser struct {
	UserDataDir string
	ExecPath    string
	Headless    bool
}

// NewBrowser creates a browser refresher with its profile under
// userDataDir.
func NewBrowser(userDataDir string, headless bool) *Browser {
	return &Browser{UserDataDir: userDataDir, Headless: headless}
}

// Refresh opens url and waits until the challenge iframe is gone, then
// joins the browser's cookies into a Cookie header value.
func (b *Browser) Refresh(ctx context.Context, url string) (string, error) {
	profileDir, err := filepath.Abs(b.UserDataDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve profile directory: %w", err)
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("headless", b.Headless),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	slog.InfoContext(ctx, "Solve the reCAPTCHA challenge in the browser window",
		slog.String("url", url))

	var header string
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.ActionFunc(waitForCaptcha),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to read browser cookies: %w", err)
			}
			pairs := make([]string, 0, len(cookies))
			for _, cookie := range cookies {
				pairs = append(pairs, cookie.Name+"="+cookie.Value)
			}
			header = strings.Join(pairs, "; ")
			return nil
		}),
	)
	if err != nil {
		return "", fmt.Errorf("browser cookie refresh failed: %w", err)
	}

	slog.DebugContext(ctx, "Harvested browser cookies", slog.String("url", url))
	return header, nil
}

// waitForCaptcha polls the page until the challenge iframe is gone. No
// deadline of its own: the user may take as long as the run context
// allows.
func waitForCaptcha(ctx context.Context) error {
	for {
		var hidden bool
		if err := chromedp.Evaluate(captchaHiddenJS, &hidden).Do(ctx); err != nil {
			return fmt.Errorf("failed to check challenge state: %w", err)
		}
		if hidden {
			return nil
		}

		timer := time.NewTimer(500 * time.Millisecond)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
