package cookies

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Refresher produces a fresh Cookie header value for the given page URL.
// Implementations block until a session is available or ctx is done.
type Refresher interface {
	Refresh(ctx context.Context, url string) (string, error)
}

// Prompt reads a cookie header pasted by the user.
type Prompt struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompt creates a prompt refresher reading from in and writing the
// prompt text to out. The reader is kept across calls so repeated
// refreshes in one run keep their place in the input stream.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{reader: bufio.NewReader(in), out: out}
}

// NewStdinPrompt creates a prompt refresher on standard input and output.
func NewStdinPrompt() *Prompt {
	return NewPrompt(os.Stdin, os.Stdout)
}

// Refresh prompts for a cookie header and returns the trimmed line.
func (p *Prompt) Refresh(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprintf(p.out, "Enter cookies<%s>: ", url)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read cookie input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Auto tries a primary refresher and falls back to a secondary one when
// the primary fails for any reason other than cancellation. The usual
// wiring is a browser first and a prompt second, so a machine without a
// usable browser still gets a session.
type Auto struct {
	Primary  Refresher
	Fallback Refresher
}

// NewAuto chains primary and fallback.
func NewAuto(primary, fallback Refresher) *Auto {
	return &Auto{Primary: primary, Fallback: fallback}
}

// Refresh delegates to the primary refresher, then the fallback.
func (a *Auto) Refresh(ctx context.Context, url string) (string, error) {
	header, err := a.Primary.Refresh(ctx, url)
	if err == nil {
		return header, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	slog.WarnContext(ctx, "Primary cookie refresh failed, falling back",
		slog.String("url", url),
		slog.String("error", err.Error()))

	return a.Fallback.Refresh(ctx, url)
}
