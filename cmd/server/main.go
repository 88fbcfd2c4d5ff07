package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/infra"
	"stockledger/internal/repository"
	"stockledger/internal/router"
	"stockledger/internal/service"
	"stockledger/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Worker pool for async alert jobs — wired at the composition root so the
	// pool has full access to all infrastructure dependencies.
	workerHandlers := &worker.WorkerHandlers{
		Alert: worker.NewAlertWorker(rdb),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	// Background reservation sweeper — expires stale holds even when no
	// request traffic touches them.
	inventoryRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	dispatcher := worker.NewDispatcher(rdb)
	adjustSvc := service.NewAdjustmentService(inventoryRepo, movementRepo, dispatcher, cfg.AdjustMaxRetries)
	reservationSvc := service.NewReservationService(inventoryRepo, reservationRepo, adjustSvc, cfg.ReservationTTLMinutes)
	worker.StartSweeper(ctx, reservationSvc, time.Duration(cfg.SweepIntervalSeconds)*time.Second)

	r := router.New(cfg, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("stockledger listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
