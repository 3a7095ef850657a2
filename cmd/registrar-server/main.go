package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/chain"
	"github.com/ruteri/name-registrar/cmd/flags"
	"github.com/ruteri/name-registrar/config"
	"github.com/ruteri/name-registrar/dnsfront"
	"github.com/ruteri/name-registrar/events"
	"github.com/ruteri/name-registrar/httpserver"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/metrics"
	"github.com/ruteri/name-registrar/registrar"
	"github.com/ruteri/name-registrar/storage"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const statsInterval = 5 * time.Second

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.DNSAddrFlag,
	flags.RpcAddrFlag,
	flags.ConfigFileFlag,
	flags.AdminFlag,
	flags.StorageFlag,
	flags.RestoreSnapshotFlag,
	flags.SnapshotOnExitFlag,
	flags.RequireSignaturesFlag,
	flags.SignatureWindowFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "registrar-server",
		Usage:  "Serve the name registrar and resolver API",
		Flags:  serverFlags,
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cCtx *cli.Context) (config.Config, registrar.ProtocolConfig, error) {
	cfg, err := config.Load(cCtx.String(flags.ConfigFileFlag.Name))
	if err != nil {
		return cfg, registrar.ProtocolConfig{}, err
	}
	if admin := cCtx.String(flags.AdminFlag.Name); admin != "" {
		if !common.IsHexAddress(admin) {
			return cfg, registrar.ProtocolConfig{}, fmt.Errorf("invalid --admin address %q", admin)
		}
		cfg.Protocol.Admin = admin
	}
	cfg.Storage = append(cfg.Storage, cCtx.StringSlice(flags.StorageFlag.Name)...)

	protocol, err := cfg.ProtocolConfig()
	return cfg, protocol, err
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, protocol, err := loadConfig(cCtx)
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		return err
	}
	engine, err := cfg.PricingEngine()
	if err != nil {
		logger.Error("Invalid pricing configuration", "err", err)
		return err
	}

	recorder := events.NewRecorder(0)
	reg, err := registrar.New(registrar.Options{
		Config:  protocol,
		Pricing: engine,
		Sink:    events.Fanout{events.NewLog(logger), recorder},
		Log:     logger,
	})
	if err != nil {
		logger.Error("Failed to create registrar", "err", err)
		return err
	}

	var clock interfaces.Clock = chain.SystemClock
	if rpcAddr := cCtx.String(flags.RpcAddrFlag.Name); rpcAddr != "" {
		logger.Info("Using ledger time from RPC", "address", rpcAddr)
		ledgerClock, closeClient, err := chain.DialLedgerClock(ctx, rpcAddr, logger)
		if err != nil {
			logger.Error("Failed to dial RPC", "err", err)
			return err
		}
		defer closeClient()
		clock = ledgerClock
	}

	backend, err := setupStorage(cfg, logger)
	if err != nil {
		return err
	}
	if id := cCtx.String(flags.RestoreSnapshotFlag.Name); id != "" {
		if err := restoreSnapshot(ctx, reg, backend, id, logger); err != nil {
			return err
		}
	}

	httpCfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))

	var (
		metricsSrv *metrics.MetricsServer
		observer   api.Observer
	)
	if httpCfg.MetricsAddr != "" {
		metricsSrv, err = metrics.New("registrar", httpCfg.MetricsAddr)
		if err != nil {
			logger.Error("Failed to create metrics server", "err", err)
			return err
		}
		observer = metricsSrv.Metrics
	}

	dispatcher := api.NewDispatcher(api.DispatcherOpts{
		Registrar: reg,
		Clock:     clock,
		Recorder:  recorder,
		Observer:  observer,
		Log:       logger,
	})
	handler := httpserver.NewHandler(dispatcher, httpCfg)
	admin := httpserver.NewAdminHandler(handler, backend, recorder, logger)

	server, err := httpserver.New(httpCfg, handler, admin, metricsSrv)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gCtx)
	})

	if httpCfg.DNSAddr != "" {
		front := dnsfront.NewServer(dnsfront.ServerOpts{Source: reg, Clock: clock, Log: logger})
		g.Go(func() error {
			return front.ListenAndServe(httpCfg.DNSAddr)
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.GracefulShutdownDuration)
			defer cancel()
			return front.Shutdown(shutdownCtx)
		})
	}

	if metricsSrv != nil {
		g.Go(func() error {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				stats := reg.Stats()
				metricsSrv.Metrics.SetState(stats.Domains, stats.Commitments, stats.LastSeq)
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}

	logger.Info("Server is running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "err", err)
		return err
	}
	logger.Info("Shutdown signal received")

	if backend != nil && cCtx.Bool(flags.SnapshotOnExitFlag.Name) {
		storeFinalSnapshot(reg, clock, backend, logger)
	}
	logger.Info("Server shutdown complete")
	return nil
}

func setupStorage(cfg config.Config, logger *slog.Logger) (interfaces.StorageBackend, error) {
	locations, err := cfg.StorageLocations()
	if err != nil {
		logger.Error("Invalid storage location", "err", err)
		return nil, err
	}
	if len(locations) == 0 {
		logger.Warn("No storage configured, snapshots are disabled")
		return nil, nil
	}
	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		logger.Error("Failed to create storage backends", "err", err)
		return nil, err
	}
	return backend, nil
}

func restoreSnapshot(ctx context.Context, reg *registrar.Registrar, backend interfaces.StorageBackend, rawID string, logger *slog.Logger) error {
	if backend == nil {
		return errors.New("--restore-snapshot requires --storage")
	}
	id, err := interfaces.ParseContentID(rawID)
	if err != nil {
		return fmt.Errorf("invalid snapshot id: %w", err)
	}
	data, err := backend.Fetch(ctx, id, interfaces.SnapshotType)
	if err != nil {
		logger.Error("Failed to fetch snapshot", slog.String("id", rawID), "err", err)
		return err
	}
	snap, err := registrar.UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	if err := reg.Restore(snap); err != nil {
		logger.Error("Failed to restore snapshot", slog.String("id", rawID), "err", err)
		return err
	}
	stats := reg.Stats()
	logger.Info("Restored snapshot",
		slog.String("id", rawID),
		slog.Int("domains", stats.Domains),
		slog.Uint64("last_seq", stats.LastSeq))
	return nil
}

func storeFinalSnapshot(reg *registrar.Registrar, clock interfaces.Clock, backend interfaces.StorageBackend, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now, err := clock.Now(ctx)
	if err != nil {
		logger.Error("Skipping final snapshot, ledger time unavailable", "err", err)
		return
	}
	data, err := registrar.MarshalSnapshot(reg.Snapshot(now))
	if err != nil {
		logger.Error("Failed to encode final snapshot", "err", err)
		return
	}
	id, err := backend.Store(ctx, data, interfaces.SnapshotType)
	if err != nil {
		logger.Error("Failed to store final snapshot", "err", err)
		return
	}
	logger.Info("Stored final snapshot", slog.String("id", id.String()))
}
