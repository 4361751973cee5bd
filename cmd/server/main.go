// Package main is the entry point for the folio portfolio server. It ingests
// brokerage statement files into a normalized transaction ledger and serves
// portfolio analytics over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkwei/folio/internal/clients/exchangerate"
	"github.com/mkwei/folio/internal/clients/quotes"
	"github.com/mkwei/folio/internal/config"
	"github.com/mkwei/folio/internal/database"
	"github.com/mkwei/folio/internal/ingest"
	"github.com/mkwei/folio/internal/modules/freshness"
	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/mkwei/folio/internal/modules/portfolio"
	"github.com/mkwei/folio/internal/scheduler"
	"github.com/mkwei/folio/internal/server"
	"github.com/mkwei/folio/internal/services"
	"github.com/mkwei/folio/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting folio")

	// Initialize the ledger database
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	if err := ledger.EnsureColumns(db.Conn(), log); err != nil {
		log.Fatal().Err(err).Msg("Failed to upgrade ledger schema")
	}

	// Repositories
	repo := ledger.NewRepository(db.Conn(), log)
	plog := ledger.NewProcessingLog(db.Conn(), log)
	maintenance := ledger.NewMaintenance(db.Conn(), log)

	// External data clients
	rates := exchangerate.NewClient(log)
	quoteClient := quotes.NewClient(log)

	// Services
	pipeline := ingest.NewPipeline(log)
	processor := services.NewProcessor(pipeline, repo, plog, maintenance, cfg.StatementsDir, log)
	portfolioSvc := portfolio.NewService(repo, rates, quoteClient, log)
	freshnessSvc := freshness.NewService(repo, log)

	// Initialize scheduler and register background jobs
	sched := scheduler.New(log)
	rescanJob := scheduler.NewRescanJob(processor, log)
	ratesJob := scheduler.NewRatesJob(rates, log)
	if err := sched.AddJob(cfg.RescanSchedule, rescanJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register rescan job")
	}
	if err := sched.AddJob(cfg.RatesSchedule, ratesJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register rates job")
	}
	sched.Start()
	defer sched.Stop()

	// Import whatever is already in the statements directory before serving.
	if _, err := processor.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("Initial statement import failed")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		DB:        db,
		Repo:      repo,
		PLog:      plog,
		Portfolio: portfolioSvc,
		Freshness: freshnessSvc,
		Processor: processor,
		DevMode:   cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Compact the WAL so the next start opens a clean ledger file.
	if err := db.WALCheckpoint(""); err != nil {
		log.Error().Err(err).Msg("WAL checkpoint failed")
	}

	log.Info().Msg("Server stopped")
}
