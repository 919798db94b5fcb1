package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HellLord77/goce/internal/config"
	"github.com/HellLord77/goce/internal/cookies"
	"github.com/HellLord77/goce/internal/dumper"
	"github.com/HellLord77/goce/internal/exporter"
	"github.com/HellLord77/goce/internal/files"
	"github.com/HellLord77/goce/internal/ice"
	"github.com/HellLord77/goce/internal/infrastructure"
	"github.com/HellLord77/goce/internal/rangefilter"
	"github.com/HellLord77/goce/internal/version"
)

var (
	marketFilter     string
	timePeriodFilter string
	columnFilter     string
	baseDir          string
	baseURL          string
	excel            bool
	headless         bool
	noBrowser        bool
)

var rootCmd = &cobra.Command{
	Use:   "goce report_id",
	Short: "goce dumps ICE market reports into per-period CSV files",
	Long: `goce walks every selected (market, time period) combination of an ICE
market report, stores each market's rows as a CSV fragment and merges the
fragments into one consolidated CSV per time period.

The report_id argument is the numeric id in https://www.ice.com/report/<report_id>.`,
	Version:       version.FullString(),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDump,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&marketFilter, "market-filter", "m", "-", "comma separated market filter")
	flags.StringVarP(&timePeriodFilter, "time-period-filter", "t", "0", "comma separated time period filter")
	flags.StringVarP(&columnFilter, "column-filter", "c", "-", "comma separated column filter")
	flags.StringVarP(&baseDir, "base-dir", "d", "", "base output directory")
	flags.StringVar(&baseURL, "base-url", "", "report service base URL")
	flags.BoolVar(&excel, "excel", false, "also write consolidated reports as xlsx workbooks")
	flags.BoolVar(&headless, "headless", false, "run the cookie browser headless")
	flags.BoolVar(&noBrowser, "no-browser", false, "prompt for cookies instead of launching a browser")
}

// ExecuteContext runs the root command and exits the process on failure.
func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupt received, exiting...")
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func runDump(cmd *cobra.Command, args []string) error {
	reportID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	// Filters are parsed before anything touches the network so a typo
	// fails fast.
	markets, err := rangefilter.Parse(marketFilter)
	if err != nil {
		return fmt.Errorf("invalid market filter: %w", err)
	}
	periods, err := rangefilter.Parse(timePeriodFilter)
	if err != nil {
		return fmt.Errorf("invalid time period filter: %w", err)
	}
	columns, err := rangefilter.Parse(columnFilter)
	if err != nil {
		return fmt.Errorf("invalid column filter: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	if _, err := infrastructure.InitializeLogger(cfg.Logging); err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(cmd.Context())

	client, err := ice.NewClient(ice.Options{
		BaseURL:           cfg.BaseURL,
		ReportID:          reportID,
		Refresher:         newRefresher(cfg),
		UserAgent:         cfg.HTTP.UserAgent,
		Timeout:           cfg.HTTP.Timeout,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Starting goce",
		slog.String("version", version.Version),
		slog.String("report_url", client.CookieURL()),
		slog.String("base_dir", cfg.Output.BaseDir))

	d := dumper.New(dumper.Options{
		Client:           client,
		Writer:           exporter.NewCSVWriter(),
		Layout:           files.NewLayout(cfg.Output.BaseDir, reportID),
		MarketFilter:     markets,
		TimePeriodFilter: periods,
		ColumnFilter:     columns,
		Workbook:         cfg.Output.Excel,
	})
	return d.Run(ctx)
}

// applyFlagOverrides lets explicitly set flags win over file and env
// configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-dir") {
		cfg.Output.BaseDir = baseDir
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("excel") {
		cfg.Output.Excel = excel
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
}

// newRefresher picks how a fresh session cookie is obtained when the
// server rejects the current one.
func newRefresher(cfg *config.Config) cookies.Refresher {
	prompt := cookies.NewStdinPrompt()
	if noBrowser {
		return prompt
	}
	browser := &cookies.Browser{
		UserDataDir: cfg.Browser.UserDataDir,
		ExecPath:    cfg.Browser.ExecPath,
		Headless:    cfg.Browser.Headless,
	}
	return cookies.NewAuto(browser, prompt)
}
