package rangefilter

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

// ParseError reports a malformed token inside a filter spec.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid range token %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// span is a half-open index interval [lo, hi).
type span struct {
	lo, hi int
}

// Filter is a parsed set of index ranges. The zero value and any filter
// parsed from an empty spec match every index.
type Filter struct {
	raw   string
	spans []span
}

// Parse builds a Filter from a comma-separated spec. Tokens and the parts
// around a hyphen may carry surrounding whitespace; empty tokens are
// dropped. A token that is neither an integer nor one of the hyphen forms
// fails with a ParseError.
func Parse(spec string) (*Filter, error) {
	f := &Filter{raw: spec}
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		sp, err := parseToken(token)
		if err != nil {
			return nil, &ParseError{Token: token, Err: err}
		}
		f.spans = append(f.spans, sp)
	}
	return f, nil
}

func parseToken(token string) (span, error) {
	if !strings.Contains(token, "-") {
		n, err := strconv.Atoi(token)
		if err != nil {
			return span{}, fmt.Errorf("not an integer: %w", err)
		}
		return span{lo: n, hi: n + 1}, nil
	}

	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return span{}, fmt.Errorf("expected at most one hyphen")
	}

	sp := span{lo: 0, hi: math.MaxInt}
	if start := strings.TrimSpace(parts[0]); start != "" {
		n, err := strconv.Atoi(start)
		if err != nil {
			return span{}, fmt.Errorf("invalid range start: %w", err)
		}
		sp.lo = n
	}
	if end := strings.TrimSpace(parts[1]); end != "" {
		n, err := strconv.Atoi(end)
		if err != nil {
			return span{}, fmt.Errorf("invalid range end: %w", err)
		}
		sp.hi = n
	}
	return sp, nil
}

// MustParse is Parse for specs known to be valid, such as literals in
// tests. It panics on error.
func MustParse(spec string) *Filter {
	f, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return f
}

// Matches reports whether index is selected. A filter with no ranges
// matches everything.
func (f *Filter) Matches(index int) bool {
	if len(f.spans) == 0 {
		return true
	}
	for _, sp := range f.spans {
		if index >= sp.lo && index < sp.hi {
			return true
		}
	}
	return false
}

// Apply returns the cells whose positions are selected, preserving order.
func (f *Filter) Apply(cells []string) []string {
	if len(f.spans) == 0 {
		return cells
	}
	kept := make([]string, 0, len(cells))
	for i, cell := range cells {
		if f.Matches(i) {
			kept = append(kept, cell)
		}
	}
	return kept
}

// String returns the spec the filter was parsed from.
func (f *Filter) String() string {
	return f.raw
}

// Each lazily yields the elements of seq whose positions are selected by
// f, in order. It never materializes the sequence, so it is safe over
// unbounded inputs; re-ranging the result restarts iff seq does.
func Each[T any](f *Filter, seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		i := 0
		for v := range seq {
			if f.Matches(i) && !yield(v) {
				return
			}
			i++
		}
	}
}
