package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/pipeline"
	"github.com/aluiziolira/go-books-etl/scraper"
	"github.com/aluiziolira/go-books-etl/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultConfig()
	pagesDefault := cfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		return 1
	} else if ok {
		pagesDefault = value
	}
	dbDefault := cfg.DBPath
	if value, ok := config.EnvString("SCRAPER_DB"); ok {
		dbDefault = value
	}
	metricsDefault := cfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	maxPages := flag.Int("pages", pagesDefault, "Maximum catalog pages to scrape")
	delayMs := flag.Int("delay", int(cfg.Delay/time.Millisecond), "Delay between requests (milliseconds)")
	timeoutMs := flag.Int("timeout", int(cfg.Timeout/time.Millisecond), "Request timeout (milliseconds)")
	baseURL := flag.String("base-url", cfg.BaseURL, "Base URL of the catalog")
	userAgent := flag.String("user-agent", cfg.UserAgent, "User-Agent header sent with every request")
	dbPath := flag.String("db", dbDefault, "SQLite database path")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg.BaseURL = *baseURL
	cfg.MaxPages = *maxPages
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.UserAgent = *userAgent
	cfg.DBPath = *dbPath
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Duration("delay", cfg.Delay),
	)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		return 1
	}
	walker, err := scraper.NewWalker(cfg, fetcher, metrics)
	if err != nil {
		slog.Error("initialising walker", slog.Any("error", err))
		return 1
	}
	enricher, err := scraper.NewEnricher(cfg, fetcher)
	if err != nil {
		slog.Error("initialising enricher", slog.Any("error", err))
		return 1
	}
	runner, err := pipeline.NewRunner(cfg, walker, enricher, fetcher, store, metrics)
	if err != nil {
		slog.Error("initialising pipeline", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	result, runErr := runner.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		// Only store-level failures abort the run; committed upserts
		// stay intact.
		slog.Error("scraping failed", slog.Any("error", runErr))
		return 1
	}

	printSummary(result, time.Since(startTime), cfg.DBPath)
	return 0
}

func printSummary(result *models.RunResult, duration time.Duration, dbPath string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Pages:      %d\n", result.Pages)
	fmt.Printf("  Attempted:  %d\n", result.Attempted)
	fmt.Printf("  Persisted:  %d\n", result.Persisted)
	fmt.Printf("  Skipped:    %d\n", result.Skipped)
	if len(result.SkipsByReason) > 0 {
		fmt.Printf("  Skip reasons: %v\n", result.SkipsByReason)
	}
	if len(result.FailedURLs) > 0 {
		fmt.Printf("  Failed URLs:  %d\n", len(result.FailedURLs))
	}
	fmt.Printf("  Requests:   %d\n", result.RequestCount)
	fmt.Printf("  Duration:   %v\n", duration)
	fmt.Printf("  Database:   %s\n", dbPath)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
