package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yieldvault/api"
	"yieldvault/config"
	"yieldvault/native/connector/sim"
	"yieldvault/native/optimizer"
	"yieldvault/native/registry"
	"yieldvault/native/vault"
	"yieldvault/observability/logging"
	"yieldvault/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to vault configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.Setup("vaultd", cfg.Log.Environment, logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("vaultd exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	operator, err := cfg.Operator()
	if err != nil {
		return err
	}

	var db storage.Database
	if cfg.DataDir == ":memory:" {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			return err
		}
		db = ldb
	}
	defer db.Close()

	reg := registry.New(operator)
	for _, p := range cfg.Protocols {
		if err := reg.RegisterProtocol(operator, p.ID, p.Name); err != nil {
			return err
		}
		conn := sim.New(p.ID, cfg.Asset, p.RateBps)
		if err := reg.RegisterConnector(operator, p.ID, cfg.Asset, conn); err != nil {
			return err
		}
	}
	if err := reg.SetActiveProtocol(operator, cfg.ActiveProtocol); err != nil {
		return err
	}

	params := vault.Params{
		Asset:       cfg.Asset,
		EpochLength: cfg.EpochLengthSeconds,
		PenaltyBps:  cfg.PenaltyBps,
		Operator:    operator,
	}
	v, err := vault.New(params, reg)
	if err != nil {
		return err
	}
	v.SetState(storage.NewVaultState(db))
	v.SetLogger(logger)

	// Routing-set membership survives restarts, re-adding is a no-op.
	for _, p := range cfg.Protocols {
		if err := v.AddProtocol(operator, p.ID); err != nil && !errors.Is(err, vault.ErrProtocolActive) {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go harvestLoop(ctx, v, logger, time.Duration(cfg.HarvestIntervalSeconds)*time.Second)

	if cfg.Optimizer.Enabled {
		opt := optimizer.New(reg, v, cfg.Asset, operator)
		opt.MinImprovementBps = cfg.Optimizer.MinImprovementBps
		opt.SetLogger(logger)
		go opt.Run(ctx, time.Duration(cfg.Optimizer.IntervalSeconds)*time.Second)
	}

	limiter := api.NewRateLimiter(50, 100)
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.New(v, reg, cfg.Asset, logger, limiter).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vaultd listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("asset", cfg.Asset),
			slog.String("active_protocol", cfg.ActiveProtocol))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// harvestLoop drives epoch processing. The vault itself decides whether an
// epoch has elapsed, so the ticker only needs to fire often enough.
func harvestLoop(ctx context.Context, v *vault.Vault, logger *slog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := v.CheckAndHarvest(); err != nil {
				logger.Warn("harvest round failed", slog.Any("error", err))
			}
		}
	}
}
