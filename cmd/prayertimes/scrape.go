package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/prayertimes/internal/config"
	"github.com/nao1215/prayertimes/internal/database"
	"github.com/nao1215/prayertimes/internal/extractor"
	"github.com/nao1215/prayertimes/internal/fetcher"
	"github.com/nao1215/prayertimes/internal/model"
	"github.com/nao1215/prayertimes/internal/pipeline"
	"github.com/nao1215/prayertimes/internal/proxy"
	"github.com/nao1215/prayertimes/internal/report"
	"github.com/nao1215/prayertimes/internal/sink"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the prayer-time table of every district",
		Long: `Scrape fetches the page of each district in the catalog, extracts the
first table on the page and writes all tables to one JSON document.

Districts are fetched in catalog order with at least --delay between the
starts of two requests. A district whose page cannot be fetched, or has no
table, is skipped and reported; the run continues with the next one.

The document is written to --output and, when --mirror is set, copied to
the mirror directory or bucket under the same file name. A failed mirror
copy is reported but does not fail the run.

Examples:
  # Scrape every district of the default month
  prayertimes scrape

  # Write to a custom file and mirror it to a second directory
  prayertimes scrape -o out/namaz.json -m /srv/www/data

  # Mirror to an S3 bucket
  prayertimes scrape -m "s3://my-bucket?region=ap-south-1"

  # Scrape a few districts of April, four at a time
  prayertimes scrape --month April -D districts.txt -j 4

  # Route requests through a local SOCKS5 proxy
  prayertimes scrape --proxy 127.0.0.1:1080`,
		Args: cobra.NoArgs,
		RunE: runScrapeCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Primary output file")
	cmd.Flags().StringP("mirror", "m", "",
		"Mirror directory or bucket URL (s3://, gs://, file://, mem://) for a best-effort copy")
	cmd.Flags().String("report", "",
		"Write a run report to the specified file (.json for JSON, otherwise Markdown)")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	// Source flags
	cmd.Flags().StringP("base-url", "u", config.DefaultBaseURL,
		"Prefix every district id is appended to")
	cmd.Flags().String("month", "",
		"Month page to scrape, e.g. April (overrides --base-url)")
	cmd.Flags().StringP("districts", "D", "",
		"District list file (.json, .json5, .yaml or one id per line)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .prayertimes in current or home directory)")

	// Request flags
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Minimum time between the starts of two requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("concurrency", "j", config.DefaultConcurrency,
		"Number of districts fetched at the same time")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each request")
	cmd.Flags().StringToString("header", nil,
		"Extra request header, e.g. --header Cookie=a=b (repeatable)")
	cmd.Flags().Bool("cloudflare-bypass", false,
		"Use a browser-like TLS fingerprint")

	// Proxy flags
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScrape(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig layers defaults, the configuration file and the flags the
// user actually set, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg, configPath); err != nil {
		return nil, err
	}

	if flags.Changed("output") {
		if cfg.Output, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("mirror") {
		if cfg.Mirror, err = flags.GetString("mirror"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("report") {
		if cfg.ReportFile, err = flags.GetString("report"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveToDB = false
	}

	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
		// An explicit base URL wins over a month from the config file.
		cfg.Month = ""
	}
	if flags.Changed("month") {
		if cfg.Month, err = flags.GetString("month"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("districts") {
		path, err := flags.GetString("districts")
		if err != nil {
			return nil, err
		}
		if cfg.Districts, err = config.LoadCatalog(path); err != nil {
			return nil, err
		}
	}

	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("header") {
		headers, err := flags.GetStringToString("header")
		if err != nil {
			return nil, err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}
	if flags.Changed("cloudflare-bypass") {
		if cfg.CloudflareBypass, err = flags.GetBool("cloudflare-bypass"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor") {
		if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor-timeout") {
		if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	return cfg, nil
}

// loadConfigFile applies the configuration file, if any, to cfg.
// If the user explicitly specified a path, a missing file is an error;
// otherwise an absent file is silently ignored.
func loadConfigFile(cfg *config.Config, configPath string) error {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
		}
		return nil
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := cfg.Apply(cf); err != nil {
		return fmt.Errorf("failed to apply config file %s: %w", path, err)
	}
	cfg.ConfigFilePath = path
	return nil
}

// runScrape executes one scraping run. It fails only when the run cannot
// start or the primary document cannot be written.
func runScrape(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting scrape",
		"base_url", cfg.EffectiveBaseURL(),
		"districts", len(cfg.Districts),
		"concurrency", cfg.Concurrency,
		"config", cfg.ConfigFilePath,
	)

	transport, cleanup, err := newTransport(ctx, cfg, out, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fetchOpts := []fetcher.Option{
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithDelay(cfg.Delay),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithCloudflareBypass(cfg.CloudflareBypass),
		fetcher.WithLogger(logger),
	}
	if transport != nil {
		fetchOpts = append(fetchOpts, fetcher.WithTransport(transport))
	}
	f := fetcher.New(cfg.EffectiveBaseURL(), fetchOpts...)

	runner := pipeline.NewRunner(f, extractor.New(),
		pipeline.WithRunnerLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithProgress(out),
		pipeline.WithBaseURL(f.BaseURL()),
	)

	doc, summary, err := runner.Run(ctx, cfg.Districts)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	pubOpts := []pipeline.PublisherOption{
		pipeline.WithPublisherLogger(logger),
		pipeline.WithPublisherProgress(out),
	}
	if cfg.Mirror != "" {
		mirror, err := sink.OpenMirror(ctx, cfg.Mirror, cfg.Output)
		if err != nil {
			// Record the failure the same way a failed write would be.
			summary.MirrorLocation = cfg.Mirror
			summary.MirrorError = err.Error()
			fmt.Fprintf(out, "Mirror copy skipped: %s: %v\n", cfg.Mirror, err)
			logger.Warn("mirror unavailable", "location", cfg.Mirror, "error", err)
		} else {
			if c, ok := mirror.(io.Closer); ok {
				defer c.Close()
			}
			pubOpts = append(pubOpts, pipeline.WithMirror(mirror))
		}
	}

	data, err := pipeline.NewPublisher(sink.NewFileSink(cfg.Output), pubOpts...).Publish(ctx, doc, summary)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	writers := []report.Writer{report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))}
	if cfg.ReportFile != "" {
		rf, w, err := createReportFile(cfg.ReportFile)
		if err != nil {
			fmt.Fprintf(out, "Report not written: %v\n", err)
			logger.Warn("failed to create report", "path", cfg.ReportFile, "error", err)
		} else {
			defer rf.Close()
			writers = append(writers, w)
		}
	}
	if _, err := report.NewMultiWriter(writers...).WriteSummary(summary); err != nil {
		logger.Warn("failed to write run summary", "error", err)
	} else if len(writers) > 1 {
		fmt.Fprintf(out, "Report written to: %s\n", cfg.ReportFile)
	}

	if cfg.SaveToDB {
		if err := saveHistory(ctx, cfg.DBDir, summary, data); err != nil {
			logger.Warn("failed to record run history", "dir", cfg.DBDir, "error", err)
		} else {
			logger.Debug("run recorded", "run_id", summary.RunID, "dir", cfg.DBDir)
		}
	}

	return nil
}

// newTransport returns the HTTP transport for the configured proxy, or nil
// for a direct connection. cleanup is always safe to call.
func newTransport(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (http.RoundTripper, func(), error) {
	noop := func() {}

	switch {
	case cfg.UseTor:
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		embedded := proxy.NewEmbeddedTor(proxy.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		client, err := embedded.NewClient(cfg.Timeout)
		if err != nil {
			stop()
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != proxy.StatusOK {
			stop()
			return nil, noop, fmt.Errorf("tor proxy check failed: %w", status.Err())
		}
		fmt.Fprintf(out, "Embedded Tor ready at %s\n", embedded.SocksAddr())
		return client.Transport(), stop, nil

	case cfg.ProxyAddress != "":
		client, err := proxy.NewClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != proxy.StatusOK {
			return nil, noop, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Err(), cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return client.Transport(), noop, nil
	}

	return nil, noop, nil
}

// createReportFile opens the run report file. The format follows the
// extension: .json writes the summary as JSON, anything else Markdown.
func createReportFile(path string) (*os.File, report.Writer, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return f, report.NewJSONWriter(f, report.WithIndent("", "    ")), nil
	}
	return f, report.NewMarkdownWriter(f), nil
}

// saveHistory records the run and its document in the history database.
func saveHistory(ctx context.Context, dbDir string, summary *model.RunSummary, document []byte) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return db.SaveRun(ctx, summary, document)
}
