package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/keepnetics/waterzone/internal/classify"
	"github.com/keepnetics/waterzone/internal/config"
	"github.com/keepnetics/waterzone/internal/extract"
	"github.com/keepnetics/waterzone/internal/fetch"
	"github.com/keepnetics/waterzone/internal/pipeline"
	"github.com/keepnetics/waterzone/internal/rows"
	"github.com/keepnetics/waterzone/internal/store"
	"github.com/keepnetics/waterzone/internal/telemetry"
)

// newIngestCmd creates the 'ingest' subcommand: the batch pipeline that
// downloads, extracts and stores zone reports for every row in the
// input CSV.
func newIngestCmd() *cobra.Command {
	var (
		inputPath string
		dbPath    string
		cacheDir  string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest zone quality reports for a postcode CSV",
		Long: `Reads a CSV with POSTCODE and AREA CODE columns, downloads the
quality report PDF for each zone, extracts the measurement table, and
stores the results in SQLite. Zones shared by multiple postcodes are
extracted once per run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			if dbPath != "" {
				cfg.DB.Path = dbPath
			}
			if cacheDir != "" {
				cfg.Cache.Dir = cacheDir
			}
			return runIngest(cmd.Context(), cfg, logger, inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV with columns POSTCODE, AREA CODE")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides config)")
	cmd.Flags().StringVarP(&cacheDir, "outdir", "o", "", "folder for downloaded PDFs (overrides config)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runIngest(parent context.Context, cfg config.Config, logger *zap.Logger, inputPath string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry.Serve(cfg.Metrics.Addr, logger.Named("metrics"))

	provider, err := store.NewSQLiteProvider(ctx, cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer provider.Close()

	cache, err := fetch.NewCache(cfg.Cache.Dir, cfg.Cache.MinViableBytes)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	clock := clockwork.NewRealClock()
	direct := fetch.NewDirect(fetch.DirectConfig{
		UserAgent: cfg.Source.UserAgent,
		Referer:   cfg.Source.Referer,
		Origin:    cfg.Source.Origin,
		Timeout:   cfg.SourceTimeout(),
	}, clock)

	var browser fetch.BrowserStrategy
	if cfg.Headless.Enabled {
		headless, err := fetch.NewHeadless(fetch.HeadlessConfig{
			UserAgent:   cfg.Source.UserAgent,
			Referer:     cfg.Source.Referer,
			NavTimeout:  time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			DownloadDir: cfg.Headless.DownloadDir,
		})
		if err != nil {
			logger.Warn("headless init failed, continuing without browser fallback", zap.Error(err))
		} else {
			defer headless.Close()
			browser = headless
		}
	}

	client := fetch.NewClient(fetch.ClientConfig{
		BaseURL:        cfg.Source.BaseURL,
		Politeness:     rate.Every(cfg.Delay()),
		MinViableBytes: cfg.Cache.MinViableBytes,
	}, cache, direct, browser, logger.Named("fetch"))

	driver := pipeline.New(
		rows.NewCSVSource(inputPath),
		client,
		extract.New(),
		classify.Annotate,
		provider,
		cfg.Delay(),
		clock,
		logger.Named("pipeline"),
	)

	sum, err := driver.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run ingest: %w", err)
	}

	logger.Info("ingest complete",
		zap.String("run_id", sum.RunID),
		zap.Int("rows", sum.RowsTotal),
		zap.Int("skipped", sum.RowsSkipped),
		zap.Int("zones_ingested", sum.ZonesIngested),
		zap.Int("zones_reused", sum.ZonesReused),
		zap.Int("unavailable", sum.Unavailable),
		zap.Int("extract_errors", sum.ExtractErrors),
		zap.Int("store_errors", sum.StoreErrors),
		zap.Int("measurements", sum.Measurements),
	)
	return nil
}
