package files

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Layout derives every output path for one report run.
type Layout struct {
	BaseDir  string
	ReportID int64
}

// NewLayout creates a layout rooted at baseDir for the given report.
func NewLayout(baseDir string, reportID int64) Layout {
	return Layout{BaseDir: baseDir, ReportID: reportID}
}

// PeriodDir returns the directory holding a period's output, named by the
// period label exactly as the server reports it.
func (l Layout) PeriodDir(label string) string {
	return filepath.Join(l.BaseDir, label)
}

// FragmentDir returns the transient fragment directory for a period. The
// tilde prefix separates it from the consolidated file beside it.
func (l Layout) FragmentDir(label string) string {
	return filepath.Join(l.PeriodDir(label), "~"+strconv.FormatInt(l.ReportID, 10))
}

// FragmentPath returns the fragment file path for one market in a period.
func (l Layout) FragmentPath(label, market string) string {
	return filepath.Join(l.FragmentDir(label), EncodeMarket(market)+".csv")
}

// ConsolidatedPath returns the per-period consolidated CSV path.
func (l Layout) ConsolidatedPath(label string) string {
	return filepath.Join(l.PeriodDir(label), strconv.FormatInt(l.ReportID, 10)+".csv")
}

// WorkbookPath returns the workbook twin of the consolidated CSV.
func (l Layout) WorkbookPath(label string) string {
	return filepath.Join(l.PeriodDir(label), strconv.FormatInt(l.ReportID, 10)+".xlsx")
}

// EncodeMarket turns a market name into a filesystem-safe fragment stem
// using unpadded URL-safe base64.
func EncodeMarket(market string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(market))
}

// DecodeMarket reverses EncodeMarket. Trailing padding is tolerated so
// hand-padded names still decode.
func DecodeMarket(encoded string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode market name %q: %w", encoded, err)
	}
	return string(decoded), nil
}
