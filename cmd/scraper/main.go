package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kitvault/scraper/internal/config"
	"github.com/kitvault/scraper/internal/download"
	"github.com/kitvault/scraper/internal/expand"
	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/logging"
	"github.com/kitvault/scraper/internal/models"
	"github.com/kitvault/scraper/internal/pipeline"
	"github.com/kitvault/scraper/internal/ratelimit"
	"github.com/kitvault/scraper/internal/records"
)

func main() {
	var (
		urls        = flag.String("urls", "", "Comma-separated list of product or listing URLs")
		inputFile   = flag.String("file", "", "File containing URLs (one per line, # for comments)")
		runDownload = flag.Bool("download", false, "Download images after the batch (or standalone with -records)")
		recordSet   = flag.String("records", "", "Record set path for -download (default: the newest one)")
		headless    = flag.Bool("headless", true, "Run the browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	store, err := records.NewStore(cfg.Records.Dir)
	if err != nil {
		logger.Error("failed to open records dir", "error", err)
		os.Exit(1)
	}

	inputs, err := loadInputs(*urls, *inputFile)
	if err != nil {
		logger.Error("failed to load inputs", "error", err)
		os.Exit(1)
	}

	if len(inputs) == 0 && !*runDownload {
		fmt.Println("Nothing to do. Use -urls or -file to run a batch, or -download for an existing record set.")
		flag.Usage()
		os.Exit(1)
	}

	client := fetch.NewClient(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent)

	var recs []models.CanonicalProduct
	setPath := *recordSet

	if len(inputs) > 0 {
		orch := pipeline.New(
			client,
			expand.New(client, logger),
			store,
			ratelimit.NewFixedLimiter(cfg.Crawler.RequestDelay),
			logger,
		)

		result, err := orch.Process(ctx, inputs)
		if err != nil {
			logger.Error("batch failed", "error", err)
			os.Exit(1)
		}
		logger.Info("batch done",
			"products", result.TotalURLs, "successes", result.Successes,
			"failures", result.Failures, "records", result.OutputPath)

		recs = result.Records
		if setPath == "" {
			setPath = result.OutputPath
		}
	}

	if !*runDownload {
		return
	}
	if ctx.Err() != nil {
		logger.Info("cancelled before downloads")
		return
	}

	if len(recs) == 0 {
		setPath, recs, err = resolveRecords(store, setPath)
		if err != nil {
			logger.Error("failed to resolve record set", "error", err)
			os.Exit(1)
		}
	}
	if len(recs) == 0 {
		logger.Info("record set is empty, nothing to download", "path", setPath)
		return
	}

	runner := download.NewRunner(download.Options{
		UserAgent:  cfg.Crawler.UserAgent,
		Timeout:    cfg.Crawler.RequestTimeout,
		Delay:      cfg.Download.ImageDelay,
		RefererAll: cfg.Download.RefererAll,
		MinKB:      cfg.Download.MinKB,
		OutRoot:    cfg.Download.OutputDir,
		Headless:   *headless && cfg.Browser.Headless,
	}, client, logger)

	res := runner.Run(ctx, recs)
	logger.Info("downloads done",
		"albums", res.TotalAlbums, "failures", res.Failures, "cancelled", res.Cancelled)
}

func loadInputs(urls, inputFile string) ([]string, error) {
	var inputs []string

	if urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				inputs = append(inputs, u)
			}
		}
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				inputs = append(inputs, line)
			}
		}
	}

	return inputs, nil
}

func resolveRecords(store *records.Store, path string) (string, []models.CanonicalProduct, error) {
	if path != "" {
		recs, err := store.Load(path)
		return path, recs, err
	}
	return store.Latest()
}
