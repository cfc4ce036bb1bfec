package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kitvault/scraper/internal/api"
	"github.com/kitvault/scraper/internal/config"
	"github.com/kitvault/scraper/internal/download"
	"github.com/kitvault/scraper/internal/expand"
	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/jobs"
	"github.com/kitvault/scraper/internal/logging"
	"github.com/kitvault/scraper/internal/pipeline"
	"github.com/kitvault/scraper/internal/ratelimit"
	"github.com/kitvault/scraper/internal/records"
)

func main() {
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

	store, err := records.NewStore(cfg.Records.Dir)
	if err != nil {
		logger.Error("failed to open records dir", "error", err)
		os.Exit(1)
	}

	client := fetch.NewClient(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent)

	orch := pipeline.New(
		client,
		expand.New(client, logger),
		store,
		ratelimit.NewFixedLimiter(cfg.Crawler.RequestDelay),
		logger,
	)

	runner := download.NewRunner(download.Options{
		UserAgent:  cfg.Crawler.UserAgent,
		Timeout:    cfg.Crawler.RequestTimeout,
		Delay:      cfg.Download.ImageDelay,
		RefererAll: cfg.Download.RefererAll,
		MinKB:      cfg.Download.MinKB,
		OutRoot:    cfg.Download.OutputDir,
		Headless:   cfg.Browser.Headless,
	}, client, logger)

	manager := jobs.NewManager(orch, runner, store, logger)
	defer manager.Close()
	go manager.Start(ctx)

	handlers := api.NewHandlers(manager, store, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/", handlers.Routes())

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
