package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docvet/qrscan/internal/classify"
	"github.com/docvet/qrscan/internal/config"
	"github.com/docvet/qrscan/internal/database"
	"github.com/docvet/qrscan/internal/log"
	"github.com/docvet/qrscan/internal/model"
	"github.com/docvet/qrscan/internal/pipeline"
	"github.com/docvet/qrscan/internal/qr"
	"github.com/docvet/qrscan/internal/rasterize"
	"github.com/docvet/qrscan/internal/report"
	"github.com/docvet/qrscan/internal/reputation"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [pdf-file...]",
		Short: "Scan PDF documents for QR code URLs and assess their risk",
		Long: `Scan rasterizes each page of the given PDF documents, decodes every QR
code it finds, and assesses the risk of each encoded URL.

Verdicts combine two signal sources:
- Reputation service lookups (requires an API key)
- Local heuristic analysis (URL shorteners, IP literals, homoglyph
  hosts, suspicious TLDs, and similar patterns)

Without an API key every verdict is heuristic-only and carries reduced
confidence. Pages that fail to rasterize or decode are reported
individually without failing the rest of the document.

Examples:
  # Scan a single document
  qrscan scan invoice.pdf

  # Scan several documents concurrently
  qrscan scan --batch 4 inbox/*.pdf

  # Use a reputation API key for live verdicts
  qrscan scan --api-key $QRSCAN_API_KEY invoice.pdf

  # Output a JSON report to a file
  qrscan scan --json -o report.json invoice.pdf

  # Use a custom configuration file
  qrscan scan -c myconfig.yaml invoice.pdf

Configuration file (.qrscan) example:
  reputation_api_key: "0123...cdef"
  cache_ttl_seconds: 86400
  page_concurrency: 4
  scan_timeout_seconds: 300`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Reputation service flags
	cmd.Flags().StringP("api-key", "k", "",
		"Reputation service API key (default: "+config.APIKeyEnvVar+" environment variable)")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"Maximum age of cached verdicts before refresh")
	cmd.Flags().Int("cache-capacity", config.DefaultCacheCapacity,
		"Maximum number of cached URL verdicts")

	// Scan behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultScanTimeout,
		"Deadline for each document scan (partial results on expiry)")
	cmd.Flags().IntP("page-concurrency", "p", config.DefaultPageConcurrency,
		"Number of pages rasterized and decoded concurrently")
	cmd.Flags().Int("classify-concurrency", config.DefaultClassifyConcurrency,
		"Number of URLs classified concurrently")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", 1,
		"Number of documents scanned concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .qrscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-db", false,
		"Do not save scan results to the local database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Structured logging with credential redaction
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file, and
// cobra command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load the configuration file before flags so explicit flags win.
	// An explicitly specified file that does not exist is an error; a
	// missing default file is not.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	// Environment variable fills the key when neither file nor flag did.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(config.APIKeyEnvVar)
	}

	apiKey, err := cmd.Flags().GetString("api-key")
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	if cmd.Flags().Changed("cache-ttl") {
		cfg.CacheTTL, err = cmd.Flags().GetDuration("cache-ttl")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("cache-capacity") {
		cfg.CacheCapacity, err = cmd.Flags().GetInt("cache-capacity")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("timeout") {
		cfg.ScanTimeout, err = cmd.Flags().GetDuration("timeout")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("page-concurrency") {
		cfg.PageConcurrency, err = cmd.Flags().GetInt("page-concurrency")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("classify-concurrency") {
		cfg.ClassifyConcurrency, err = cmd.Flags().GetInt("classify-concurrency")
		if err != nil {
			return nil, err
		}
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the PDF paths
	cfg.Targets = args

	return cfg, nil
}

// runScan executes the scan over all targets.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"liveLookups", cfg.APIKey != "",
		"saveToDB", cfg.SaveToDB,
	)

	// Every target must at least exist before any scanning starts.
	for _, target := range cfg.Targets {
		if _, err := os.Stat(target); err != nil {
			return fmt.Errorf("cannot read document %q: %w", target, err)
		}
	}

	var db *database.ScanDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	classifier := buildClassifier(cfg, logger)
	factory := func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(
			rasterize.NewMuPDF(),
			qr.NewZXing(),
			classifier,
			pipeline.Config{
				PageConcurrency:     cfg.PageConcurrency,
				ClassifyConcurrency: cfg.ClassifyConcurrency,
			},
			pipeline.WithLogger(logger),
		)
	}

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, factory, db, logger)
	}
	return runSequentialScan(ctx, cfg, factory, db, logger)
}

// buildClassifier wires the heuristic scorer with the reputation resolver
// when an API key is available. Without a key the classifier runs
// heuristic-only.
func buildClassifier(cfg *config.Config, logger *slog.Logger) *classify.Classifier {
	opts := []classify.Option{classify.WithLogger(logger)}

	if cfg.APIKey != "" {
		client := reputation.NewClient(cfg.APIKey,
			reputation.WithClientLogger(logger),
		)
		cache := reputation.NewCache(client.Lookup,
			reputation.WithTTL(cfg.CacheTTL),
			reputation.WithCapacity(cfg.CacheCapacity),
			reputation.WithCacheLogger(logger),
		)
		opts = append(opts, classify.WithResolver(cache))
	}

	return classify.New(opts...)
}

// runSequentialScan scans documents one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, db *database.ScanDB, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Scanning %s...\n", target)
		startTime := time.Now()

		scan, err := scanOne(ctx, cfg, factory, target)
		if err != nil {
			logger.Error("scan failed", "document", target, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Scan completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, scan.Result); err != nil {
			logger.Error("report failed", "document", target, "error", err)
		}

		if err := saveScanResult(ctx, db, scan.Result, logger); err != nil {
			logger.Error("failed to save scan result", "document", target, "error", err)
		}
	}

	return nil
}

// runBatchScan scans multiple documents concurrently using BatchProcessor.
func runBatchScan(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, db *database.ScanDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch scan of %d documents (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// The batch context carries only signal cancellation; the processor
	// applies the scan timeout per document, counted from each scan's
	// own start.
	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchConcurrency(cfg.BatchSize),
		pipeline.WithScanTimeout(cfg.ScanTimeout),
		pipeline.WithBatchLogger(logger),
	)

	scans, err := bp.ProcessBatch(ctx, cfg.Targets)

	for i, scan := range scans {
		if scan == nil {
			continue
		}
		if scan.Result == nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] Scan failed: %s: %v\n",
				i+1, len(scans), scan.Path, scan.Err)
			continue
		}
		fmt.Printf("[%d/%d] Scan completed: %s\n", i+1, len(scans), scan.Path)

		if reportErr := outputReport(cfg, scan.Result); reportErr != nil {
			logger.Error("report failed", "document", scan.Path, "error", reportErr)
		}
		if saveErr := saveScanResult(ctx, db, scan.Result, logger); saveErr != nil {
			logger.Error("failed to save scan result", "document", scan.Path, "error", saveErr)
		}
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch scan completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// scanOne runs the pipeline for a single document under the configured
// deadline. A deadline expiry is not an error; the partial result is
// returned.
func scanOne(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, target string) (*pipeline.Scan, error) {
	scanCtx := ctx
	if cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, cfg.ScanTimeout)
		defer cancel()
	}

	scan := pipeline.NewScan(target)
	if err := factory().Execute(scanCtx, scan); err != nil {
		if errors.Is(err, pipeline.ErrDocumentLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return scan, nil
}

// outputReport outputs the scan result in the requested format.
func outputReport(cfg *config.Config, result *model.ScanResult) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports name the scanned files, so keep them owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(result)
	return err
}

// saveScanResult saves the scan result to the database if enabled.
// If db is nil, this function is a no-op.
func saveScanResult(ctx context.Context, db *database.ScanDB, result *model.ScanResult, logger *slog.Logger) error {
	if db == nil || result == nil {
		return nil
	}

	if err := db.SaveScanResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save scan result: %w", err)
	}

	logger.Info("scan result saved to database", "document", result.DocumentID)
	return nil
}
