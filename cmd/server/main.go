package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/substrate/internal/config"
	"github.com/aristath/substrate/internal/database"
	"github.com/aristath/substrate/internal/events"
	"github.com/aristath/substrate/internal/modules/region"
	"github.com/aristath/substrate/internal/network"
	"github.com/aristath/substrate/internal/scheduler"
	"github.com/aristath/substrate/internal/server"
	"github.com/aristath/substrate/internal/ticker"
	"github.com/aristath/substrate/pkg/logger"
)

func main() {
	// Load configuration first so the log level is configurable
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting substrate engine")

	// ledger.db - Immutable harvest audit trail
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/ledger.db",
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger database")
	}
	defer ledgerDB.Close()

	// cache.db - Rebuildable state (region snapshots)
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to apply schema")
		}
	}

	// Event bus: handlers and the engine publish, the WebSocket hub streams
	bus := events.NewBus(log)
	eventManager := events.NewManager(bus, log)

	// Repositories
	ledgerRepo := region.NewLedgerRepository(ledgerDB, log)
	snapshotRepo := region.NewSnapshotRepository(cacheDB, log)

	// Region service owns every simulation instance
	regions := region.NewService(region.Config{
		Tolerance:        cfg.Tolerance,
		SimDT:            cfg.SimDT,
		AuditTolerance:   cfg.AuditTolerance,
		TerminalPoolSize: cfg.TerminalPoolSize,
	}, ledgerRepo, snapshotRepo, eventManager, log)

	// Root context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// WebSocket hub streams engine events to clients
	hub := network.NewHub(log)
	go hub.Run(ctx)
	hub.SubscribeBus(ctx, bus)

	// Evolution heartbeat
	tick := ticker.New(regions, time.Duration(cfg.TickInterval)*time.Millisecond, log)
	go tick.Start(ctx)

	// Periodic maintenance jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SnapshotSchedule, scheduler.NewSnapshotJob(regions, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	if err := sched.AddJob(cfg.AuditSchedule, scheduler.NewAuditJob(regions, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register audit job")
	}
	maintenance := scheduler.NewMaintenanceJob(ledgerDB, cacheDB, log)
	if err := sched.AddJob(cfg.MaintenanceSchedule, maintenance); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()
	defer sched.Stop()

	// Checkpoint the WAL files left by a previous run before serving
	if err := sched.RunNow(maintenance); err != nil {
		log.Warn().Err(err).Msg("Startup maintenance pass failed")
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		LedgerDB:  ledgerDB,
		CacheDB:   cacheDB,
		Regions:   regions,
		Ledger:    ledgerRepo,
		Events:    eventManager,
		Hub:       hub,
		Ticker:    tick,
		Scheduler: sched,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	// Flush state before exit so a restart resumes from fresh snapshots
	regions.SaveAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Substrate engine stopped")
}
