package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"flightslot/internal/api"
	"flightslot/internal/booking"
	"flightslot/internal/config"
	"flightslot/internal/eventlog"
	"flightslot/internal/view"
	"flightslot/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := makeLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
}

func makeLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	elCfg := eventlog.DefaultConfig()
	elCfg.Store.Addr = cfg.RedisAddr
	elCfg.Store.Password = cfg.RedisPassword
	elCfg.Store.DB = cfg.RedisDB
	elCfg.Store.Prefix = cfg.EventPrefix

	store, err := eventlog.NewStore(elCfg.Store, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if elCfg.EnableSnapshotWorker {
		store.StartSnapshotWorker()
	}

	slots := eventlog.NewExecutor(
		store, booking.NewTimeslot, booking.SlotAppliers, elCfg,
	)
	projections := eventlog.NewExecutor(
		store, booking.NewParticipantSlot, booking.ParticipantSlotAppliers, elCfg,
	)

	index, err := view.NewIndex(view.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.ViewPrefix,
	}, log)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	router := booking.NewRouter(projections, log)
	routerRelay, err := eventlog.NewRelay(
		store, booking.SlotKind, "router", router.Handler(ctx), log,
	)
	if err != nil {
		return err
	}
	routerRelay.Start(ctx)
	defer routerRelay.Stop()

	indexRelay, err := eventlog.NewRelay(
		store, booking.ParticipantSlotKind, "indexer", index.Handler(ctx), log,
	)
	if err != nil {
		return err
	}
	indexRelay.Start(ctx)
	defer indexRelay.Stop()

	assessor := weather.NewService(weather.ServiceConfig{
		APIKey: cfg.WeatherAPIKey,
	}, log)

	coordinator := booking.NewCoordinator(
		slots, index, assessor, cfg.Location, log,
	)

	cold, err := makeColdStore(cfg, log)
	if err != nil {
		return err
	}
	if cold != nil {
		defer func() { _ = cold.Close() }()
		sweeper := booking.NewSweeper(
			store, cold, cfg.SweepRetention, cfg.SweepInterval, log,
		)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	} else {
		log.Info("cold store disabled; elapsed slots are never offloaded")
	}

	server := api.NewServer(coordinator, index, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), api.DefaultShutdownTimeout,
	)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func makeColdStore(
	cfg *config.Config, log *zap.Logger,
) (eventlog.ColdStore, error) {
	switch cfg.ColdStore {
	case "bolt":
		return eventlog.NewBoltColdStore(cfg.BoltPath)
	case "postgres":
		ctx, cancel := context.WithTimeout(
			context.Background(), eventlog.DefaultSnapshotSaveTimeout,
		)
		defer cancel()
		return eventlog.NewPGColdStore(ctx, cfg.PostgresURL)
	case "none":
		return nil, nil
	default:
		log.Warn("unknown cold store, disabling offload",
			zap.String("cold_store", cfg.ColdStore))
		return nil, nil
	}
}
