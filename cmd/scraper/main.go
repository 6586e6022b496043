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
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doctordoom101/go-scrape-amazon/config"
	"github.com/doctordoom101/go-scrape-amazon/fetcher"
	"github.com/doctordoom101/go-scrape-amazon/insights"
	"github.com/doctordoom101/go-scrape-amazon/models"
	"github.com/doctordoom101/go-scrape-amazon/pipeline"
	"github.com/doctordoom101/go-scrape-amazon/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()
	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	delayDefault := int(defaultCfg.Delay / time.Millisecond)
	if value, ok, err := config.EnvInt("SCRAPER_DELAY_MS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_DELAY_MS: %v\n", err)
		os.Exit(1)
	} else if ok {
		delayDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	keyword := flag.String("keyword", defaultCfg.Keyword, "Product keyword to search for")
	maxPages := flag.Int("pages", pagesDefault, "Maximum search-result pages to crawl")
	delayMs := flag.Int("delay", delayDefault, "Politeness delay between page requests (milliseconds)")
	maxItems := flag.Int("max-items", 0, "Maximum items to collect (0 = unlimited)")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Site origin to crawl")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, xlsx, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(*keyword, *maxPages, *delayMs, *maxItems, *timeoutSec, *baseURL, *outputFile, *outputFormat, *metricsAddr, *verbose)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("keyword", cfg.Keyword),
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Duration("delay", cfg.Delay),
	)

	pageFetcher := fetcher.New(fetcher.Config{
		Headers:   config.DefaultHeaders(),
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	})

	s, err := scraper.NewScraper(cfg, pageFetcher)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current page")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	params := models.CrawlParameters{
		Keyword:  cfg.Keyword,
		MaxPages: cfg.MaxPages,
		Delay:    cfg.Delay,
		MaxItems: cfg.MaxItems,
	}

	records, result, err := s.Run(ctx, params)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	exporter, err := pipeline.NewExporter(writer, cfg.DedupeMaxSize)
	if err != nil {
		slog.Error("initialising exporter", slog.Any("error", err))
		os.Exit(1)
	}
	if err := exporter.Export(records); err != nil {
		slog.Error("exporting records", slog.Any("error", err))
		os.Exit(1)
	}

	if len(records) > 0 {
		if err := writer.Validate(); err != nil {
			slog.Error("output validation failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	report := insights.Generate(records, cfg.TopAuthors)
	report.Print(os.Stdout)
	printSummary(result, exporter.Dropped(), cfg.OutputFile)
}

func buildConfigFromFlags(keyword string, maxPages, delayMs, maxItems, timeoutSec int, baseURL, outputFile, outputFormat, metricsAddr string, verbose bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Keyword = keyword
	cfg.MaxPages = maxPages
	cfg.Delay = time.Duration(delayMs) * time.Millisecond
	cfg.MaxItems = maxItems
	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	cfg.BaseURL = baseURL
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.MetricsAddr = metricsAddr
	cfg.Verbose = verbose
	return cfg
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "xlsx":
		return pipeline.NewXLSXWriter(filename)
	case "dual":
		xlsxFilename := strings.TrimSuffix(filename, ".csv") + ".xlsx"
		return pipeline.NewDualWriter(filename, xlsxFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, dropped map[string]int, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Items collected: %d\n", result.ItemCount)
	fmt.Printf("  Pages fetched:   %d of %d requested\n", result.PageCount, result.RequestCount)
	fmt.Printf("  Duplicates:      %d\n", result.DuplicateCount)
	fmt.Printf("  Missing titles:  %d\n", result.NoTitleCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:     %v\n", result.ErrorsByType)
	}
	if result.FailedURL != "" {
		fmt.Printf("  Stopped at:      %s\n", result.FailedURL)
	}
	if len(dropped) > 0 {
		fmt.Printf("  Export drops:    %v\n", dropped)
	}
	fmt.Printf("  Duration:        %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Printf("  Output file:     %s\n", outputFile)
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
