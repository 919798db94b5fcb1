package dumper

import (
	"context"
	"log/slog"
	"slices"

	"github.com/HellLord77/goce/internal/files"
	"github.com/HellLord77/goce/internal/ice"
	"github.com/HellLord77/goce/internal/rangefilter"
)

// ReportClient fetches report metadata and pages.
type ReportClient interface {
	Criteria(ctx context.Context) (markets, timePeriods []string, err error)
	Results(ctx context.Context, market, timePeriod string) (*ice.ResultPage, error)
}

// FragmentWriter writes fragment and consolidated output files.
type FragmentWriter interface {
	WriteFragment(path string, rows [][]string) error
	MergeFragments(outPath string, fragments []string) (int, error)
	WorkbookFromCSV(csvPath, xlsxPath string) error
}

// Options configures a Dumper.
type Options struct {
	Client ReportClient
	Writer FragmentWriter
	Layout files.Layout

	MarketFilter     *rangefilter.Filter
	TimePeriodFilter *rangefilter.Filter
	ColumnFilter     *rangefilter.Filter

	// Workbook additionally mirrors each consolidated CSV into an xlsx
	// file next to it.
	Workbook bool
}

// Dumper produces one consolidated CSV per selected time period.
type Dumper struct {
	client   ReportClient
	writer   FragmentWriter
	layout   files.Layout
	markets  *rangefilter.Filter
	periods  *rangefilter.Filter
	columns  *rangefilter.Filter
	workbook bool
}

// New creates a Dumper.
func New(opts Options) *Dumper {
	return &Dumper{
		client:   opts.Client,
		writer:   opts.Writer,
		layout:   opts.Layout,
		markets:  opts.MarketFilter,
		periods:  opts.TimePeriodFilter,
		columns:  opts.ColumnFilter,
		workbook: opts.Workbook,
	}
}

// Run executes the dump. Any error aborts the whole run; fragments
// written so far stay on disk and a rerun resumes from them.
func (d *Dumper) Run(ctx context.Context) error {
	markets, timePeriods, err := d.client.Criteria(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Starting dump",
		slog.Int64("report_id", d.layout.ReportID),
		slog.Int("markets", len(markets)),
		slog.Int("time_periods", len(timePeriods)))

	for timePeriod := range rangefilter.Each(d.periods, slices.Values(timePeriods)) {
		if err := d.dumpPeriod(ctx, markets, timePeriod); err != nil {
			return err
		}
	}
	return nil
}

// dumpPeriod processes one time period: fragments for every selected
// market, then the merge. The first successfully fetched market decides
// the period's label; pages reporting a different label are skipped as
// belonging to some other period.
func (d *Dumper) dumpPeriod(ctx context.Context, markets []string, timePeriod string) error {
	label := ""
	fragmentDir := ""

	for market := range rangefilter.Each(d.markets, slices.Values(markets)) {
		if err := ctx.Err(); err != nil {
			return err
		}

		if label == "" {
			page, err := d.client.Results(ctx, market, timePeriod)
			if err != nil {
				return err
			}
			label = page.Label
			fragmentDir = d.layout.FragmentDir(label)
			if err := files.EnsureDirectory(fragmentDir); err != nil {
				return err
			}
		}

		path := d.layout.FragmentPath(label, market)
		if files.Exists(path) {
			slog.InfoContext(ctx, "Fragment exists, skipping",
				slog.String("market", market),
				slog.String("time_period", timePeriod))
			continue
		}

		// The label-deciding market hits the client's one-slot cache
		// here, so learning the label does not cost a second request.
		page, err := d.client.Results(ctx, market, timePeriod)
		if err != nil {
			return err
		}
		if page.Label != label {
			slog.WarnContext(ctx, "Label mismatch, skipping market",
				slog.String("market", market),
				slog.String("time_period", timePeriod),
				slog.String("want", label),
				slog.String("got", page.Label))
			continue
		}

		rows := make([][]string, 0, len(page.Rows))
		for _, row := range page.Rows {
			rows = append(rows, d.columns.Apply(row))
		}
		if err := d.writer.WriteFragment(path, rows); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Wrote fragment",
			slog.String("market", market),
			slog.String("time_period", timePeriod),
			slog.String("path", path))
	}

	// No market ever set the label: nothing was fetched for this period
	// and there is nothing to merge.
	if fragmentDir == "" || !files.DirExists(fragmentDir) {
		return nil
	}
	return d.consolidate(ctx, label, fragmentDir)
}

func (d *Dumper) consolidate(ctx context.Context, label, fragmentDir string) error {
	fragments, err := files.ListFragments(fragmentDir)
	if err != nil {
		return err
	}

	outPath := d.layout.ConsolidatedPath(label)
	consumed, err := d.writer.MergeFragments(outPath, fragments)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Wrote consolidated report",
		slog.Int64("report_id", d.layout.ReportID),
		slog.String("label", label),
		slog.String("path", outPath),
		slog.Int("fragments", consumed))

	if d.workbook {
		if err := d.writer.WorkbookFromCSV(outPath, d.layout.WorkbookPath(label)); err != nil {
			return err
		}
	}

	return files.RemoveTree(fragmentDir)
}
