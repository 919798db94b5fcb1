package dumper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HellLord77/goce/internal/exporter"
	"github.com/HellLord77/goce/internal/files"
	"github.com/HellLord77/goce/internal/ice"
	"github.com/HellLord77/goce/internal/rangefilter"
)

type pageKey struct {
	market string
	period string
}

type stubClient struct {
	markets      []string
	periods      []string
	pages        map[pageKey]*ice.ResultPage
	criteriaErr  error
	resultsErr   map[pageKey]error
	resultsCalls map[pageKey]int
}

func (s *stubClient) Criteria(ctx context.Context) ([]string, []string, error) {
	if s.criteriaErr != nil {
		return nil, nil, s.criteriaErr
	}
	return s.markets, s.periods, nil
}

func (s *stubClient) Results(ctx context.Context, market, timePeriod string) (*ice.ResultPage, error) {
	key := pageKey{market: market, period: timePeriod}
	if s.resultsCalls == nil {
		s.resultsCalls = make(map[pageKey]int)
	}
	s.resultsCalls[key]++

	if err := s.resultsErr[key]; err != nil {
		return nil, err
	}
	page, ok := s.pages[key]
	if !ok {
		return nil, fmt.Errorf("no page for %s@%s", market, timePeriod)
	}
	return page, nil
}

type failingWriter struct {
	err error
}

func (f *failingWriter) WriteFragment(path string, rows [][]string) error {
	return f.err
}

func (f *failingWriter) MergeFragments(outPath string, fragments []string) (int, error) {
	return 0, f.err
}

func (f *failingWriter) WorkbookFromCSV(csvPath, xlsxPath string) error {
	return f.err
}

func newTestDumper(t *testing.T, client *stubClient, marketSpec, periodSpec, columnSpec string) (*Dumper, files.Layout) {
	t.Helper()

	layout := files.NewLayout(t.TempDir(), 355)
	d := New(Options{
		Client:           client,
		Writer:           exporter.NewCSVWriter(),
		Layout:           layout,
		MarketFilter:     rangefilter.MustParse(marketSpec),
		TimePeriodFilter: rangefilter.MustParse(periodSpec),
		ColumnFilter:     rangefilter.MustParse(columnSpec),
	})
	return d, layout
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

const periodLabel = "Aug 22, 2026"

func twoMarketClient() *stubClient {
	return &stubClient{
		markets: []string{"Alpha", "Beta"},
		periods: []string{"0"},
		pages: map[pageKey]*ice.ResultPage{
			{market: "Alpha", period: "0"}: {
				Label: periodLabel,
				Rows:  [][]string{{"a1", "a2"}, {"a3", "a4"}},
			},
			{market: "Beta", period: "0"}: {
				Label: periodLabel,
				Rows:  [][]string{{"b1", "b2"}},
			},
		},
	}
}

func TestDumper_Run_ConsolidatesAllMarkets(t *testing.T) {
	client := twoMarketClient()
	d, layout := newTestDumper(t, client, "-", "0", "-")

	require.NoError(t, d.Run(context.Background()))

	records := readCSV(t, layout.ConsolidatedPath(periodLabel))
	assert.Equal(t, [][]string{
		{"a1", "a2"},
		{"a3", "a4"},
		{"b1", "b2"},
	}, records)

	assert.False(t, files.DirExists(layout.FragmentDir(periodLabel)), "fragment directory is cleaned up")

	// The first market pays one extra fetch to learn the period label.
	assert.Equal(t, 2, client.resultsCalls[pageKey{market: "Alpha", period: "0"}])
	assert.Equal(t, 1, client.resultsCalls[pageKey{market: "Beta", period: "0"}])
}

func TestDumper_Run_LabelMismatchSkipsMarket(t *testing.T) {
	client := twoMarketClient()
	client.pages[pageKey{market: "Beta", period: "0"}] = &ice.ResultPage{
		Label: "Aug 21, 2026",
		Rows:  [][]string{{"b1", "b2"}},
	}
	d, layout := newTestDumper(t, client, "-", "0", "-")

	require.NoError(t, d.Run(context.Background()), "a mismatch is not an error")

	records := readCSV(t, layout.ConsolidatedPath(periodLabel))
	assert.Equal(t, [][]string{{"a1", "a2"}, {"a3", "a4"}}, records)
	assert.False(t, files.DirExists(layout.FragmentDir(periodLabel)))
}

func TestDumper_Run_SkipsExistingFragment(t *testing.T) {
	client := twoMarketClient()
	d, layout := newTestDumper(t, client, "-", "0", "-")

	// A previous interrupted run already downloaded Alpha.
	require.NoError(t, files.EnsureDirectory(layout.FragmentDir(periodLabel)))
	require.NoError(t, exporter.NewCSVWriter().WriteFragment(
		layout.FragmentPath(periodLabel, "Alpha"), [][]string{{"old1", "old2"}}))

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, 1, client.resultsCalls[pageKey{market: "Alpha", period: "0"}],
		"the existing fragment is not fetched again; only the label probe runs")

	records := readCSV(t, layout.ConsolidatedPath(periodLabel))
	assert.Equal(t, [][]string{
		{"old1", "old2"},
		{"b1", "b2"},
	}, records, "the old fragment's rows survive, not a refetched copy")
}

func TestDumper_Run_AppliesColumnFilter(t *testing.T) {
	client := &stubClient{
		markets: []string{"Alpha"},
		periods: []string{"0"},
		pages: map[pageKey]*ice.ResultPage{
			{market: "Alpha", period: "0"}: {
				Label: periodLabel,
				Rows:  [][]string{{"keep0", "drop1", "keep2", "drop3"}},
			},
		},
	}
	d, layout := newTestDumper(t, client, "-", "0", "0,2")

	require.NoError(t, d.Run(context.Background()))

	records := readCSV(t, layout.ConsolidatedPath(periodLabel))
	assert.Equal(t, [][]string{{"keep0", "keep2"}}, records)
}

func TestDumper_Run_MarketFilterByPosition(t *testing.T) {
	client := twoMarketClient()
	d, layout := newTestDumper(t, client, "1", "0", "-")

	require.NoError(t, d.Run(context.Background()))

	assert.Zero(t, client.resultsCalls[pageKey{market: "Alpha", period: "0"}])
	records := readCSV(t, layout.ConsolidatedPath(periodLabel))
	assert.Equal(t, [][]string{{"b1", "b2"}}, records)
}

func TestDumper_Run_WriteFailureAborts(t *testing.T) {
	client := twoMarketClient()
	layout := files.NewLayout(t.TempDir(), 355)
	wantErr := &exporter.FragmentError{Path: "x", Err: errors.New("disk full")}

	d := New(Options{
		Client:           client,
		Writer:           &failingWriter{err: wantErr},
		Layout:           layout,
		MarketFilter:     rangefilter.MustParse("-"),
		TimePeriodFilter: rangefilter.MustParse("0"),
		ColumnFilter:     rangefilter.MustParse("-"),
	})

	err := d.Run(context.Background())
	var fragErr *exporter.FragmentError
	require.ErrorAs(t, err, &fragErr)

	assert.Zero(t, client.resultsCalls[pageKey{market: "Beta", period: "0"}],
		"the run aborts before later markets")
	assert.True(t, files.DirExists(layout.FragmentDir(periodLabel)),
		"the fragment directory stays for the next run to resume into")
	assert.NoFileExists(t, layout.ConsolidatedPath(periodLabel))
}

func TestDumper_Run_NoSelectedMarketIsSilentNoOp(t *testing.T) {
	client := twoMarketClient()
	d, layout := newTestDumper(t, client, "5-", "0", "-")

	require.NoError(t, d.Run(context.Background()))

	entries, err := os.ReadDir(layout.BaseDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing fetched, nothing written")
	assert.Empty(t, client.resultsCalls)
}

func TestDumper_Run_PeriodFilterByPosition(t *testing.T) {
	client := &stubClient{
		markets: []string{"Alpha"},
		periods: []string{"10", "11", "12"},
		pages: map[pageKey]*ice.ResultPage{
			{market: "Alpha", period: "10"}: {Label: "Day0", Rows: [][]string{{"d0"}}},
			{market: "Alpha", period: "11"}: {Label: "Day1", Rows: [][]string{{"d1"}}},
			{market: "Alpha", period: "12"}: {Label: "Day2", Rows: [][]string{{"d2"}}},
		},
	}
	d, layout := newTestDumper(t, client, "-", "1", "-")

	require.NoError(t, d.Run(context.Background()))

	assert.NoFileExists(t, layout.ConsolidatedPath("Day0"))
	assert.NoFileExists(t, layout.ConsolidatedPath("Day2"))
	records := readCSV(t, layout.ConsolidatedPath("Day1"))
	assert.Equal(t, [][]string{{"d1"}}, records)
}

func TestDumper_Run_AllPeriods(t *testing.T) {
	client := &stubClient{
		markets: []string{"Alpha"},
		periods: []string{"10", "11"},
		pages: map[pageKey]*ice.ResultPage{
			{market: "Alpha", period: "10"}: {Label: "Day0", Rows: [][]string{{"d0"}}},
			{market: "Alpha", period: "11"}: {Label: "Day1", Rows: [][]string{{"d1"}}},
		},
	}
	d, layout := newTestDumper(t, client, "-", "-", "-")

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, [][]string{{"d0"}}, readCSV(t, layout.ConsolidatedPath("Day0")))
	assert.Equal(t, [][]string{{"d1"}}, readCSV(t, layout.ConsolidatedPath("Day1")))
	assert.False(t, files.DirExists(layout.FragmentDir("Day0")))
	assert.False(t, files.DirExists(layout.FragmentDir("Day1")))
}

func TestDumper_Run_MergesAccumulatedFragments(t *testing.T) {
	client := &stubClient{
		markets: []string{"Alpha"},
		periods: []string{"0"},
		pages: map[pageKey]*ice.ResultPage{
			{market: "Alpha", period: "0"}: {Label: periodLabel, Rows: [][]string{{"a1"}}},
		},
	}
	d, layout := newTestDumper(t, client, "-", "0", "-")

	// A fragment from a market no longer in the list, left by an older run.
	require.NoError(t, files.EnsureDirectory(layout.FragmentDir(periodLabel)))
	require.NoError(t, exporter.NewCSVWriter().WriteFragment(
		filepath.Join(layout.FragmentDir(periodLabel), "zzzz.csv"), [][]string{{"stray"}}))

	require.NoError(t, d.Run(context.Background()))

	records := readCSV(t, layout.ConsolidatedPath(periodLabel))
	assert.Equal(t, [][]string{{"a1"}, {"stray"}}, records,
		"fragments merge in name order, accumulated ones included")
	assert.False(t, files.DirExists(layout.FragmentDir(periodLabel)))
}

func TestDumper_Run_WorkbookMirror(t *testing.T) {
	client := twoMarketClient()
	layout := files.NewLayout(t.TempDir(), 355)

	d := New(Options{
		Client:           client,
		Writer:           exporter.NewCSVWriter(),
		Layout:           layout,
		MarketFilter:     rangefilter.MustParse("-"),
		TimePeriodFilter: rangefilter.MustParse("0"),
		ColumnFilter:     rangefilter.MustParse("-"),
		Workbook:         true,
	})

	require.NoError(t, d.Run(context.Background()))

	assert.FileExists(t, layout.ConsolidatedPath(periodLabel))
	assert.FileExists(t, layout.WorkbookPath(periodLabel))
}

func TestDumper_Run_CriteriaErrorPropagates(t *testing.T) {
	wantErr := errors.New("criteria unavailable")
	d, _ := newTestDumper(t, &stubClient{criteriaErr: wantErr}, "-", "0", "-")

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestDumper_Run_ResultsErrorPropagates(t *testing.T) {
	client := twoMarketClient()
	client.resultsErr = map[pageKey]error{
		{market: "Alpha", period: "0"}: errors.New("server broke"),
	}
	d, layout := newTestDumper(t, client, "-", "0", "-")

	err := d.Run(context.Background())
	require.Error(t, err)

	entries, readErr := os.ReadDir(layout.BaseDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "failed before anything hit the disk")
}

func TestDumper_Run_CanceledContext(t *testing.T) {
	client := twoMarketClient()
	d, layout := newTestDumper(t, client, "-", "0", "-")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	entries, readErr := os.ReadDir(layout.BaseDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
	assert.Empty(t, client.resultsCalls)
}
