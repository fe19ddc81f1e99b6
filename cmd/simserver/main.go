// Package main runs the simulation server: the worker pool and history
// store behind a gRPC and an HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/game/catalog"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/gameserver"
	"github.com/cory-johannsen/combatsim/internal/httpapi"
	"github.com/cory-johannsen/combatsim/internal/observability"
	"github.com/cory-johannsen/combatsim/internal/scripting"
	"github.com/cory-johannsen/combatsim/internal/server"
	"github.com/cory-johannsen/combatsim/internal/simulation"
	"github.com/cory-johannsen/combatsim/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "simserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cat, err := catalog.Load(cfg.Simulation.CatalogDir)
	if err != nil {
		logger.Fatal("loading catalog", zap.String("dir", cfg.Simulation.CatalogDir), zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.Int("spells", len(cat.Spells())),
		zap.Int("characters", len(cat.Characters())),
		zap.Int("monsters", len(cat.Monsters())),
		zap.Int("encounters", len(cat.Encounters())),
	)

	store, release, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening history store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer release()

	opts := []simulation.Option{
		simulation.WithStore(store),
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithRoundCap(cfg.Simulation.RoundCap),
		simulation.WithProgressInterval(cfg.Simulation.ProgressInterval),
		simulation.WithSeed(cfg.Simulation.Seed),
	}
	if cfg.Scripting.ScriptDir != "" {
		mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger), logger)
		defer mgr.Close()
		profiles, err := mgr.LoadProfiles(cfg.Scripting.ScriptDir, cfg.Scripting.InstructionLimit)
		if err != nil {
			logger.Fatal("loading tactics scripts", zap.String("dir", cfg.Scripting.ScriptDir), zap.Error(err))
		}
		logger.Info("tactics scripts loaded", zap.Strings("profiles", profiles))
		opts = append(opts, simulation.WithScripts(mgr))
	}
	svc := simulation.NewService(cat, logger, opts...)

	grpcServer := grpc.NewServer()
	gameserver.RegisterSimulatorServer(grpcServer, gameserver.NewServer(svc, logger))
	grpcSvc, err := server.NewGRPCService(cfg.Server.GRPCAddr(), grpcServer)
	if err != nil {
		logger.Fatal("binding grpc listener", zap.Error(err))
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpSvc := server.NewHTTPService(cfg.Server.HTTPAddr(), httpapi.NewRouter(svc, logger,
		httpapi.WithHealthCheck(func(ctx context.Context) error { return storage.Health(ctx, store) }),
	), cfg.Server.ShutdownTimeout)

	lc := server.NewLifecycle(logger)
	// Stopped last, after both APIs; cancelled runs are still saved as failed.
	lc.Add("simulations", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  svc.Close,
	})
	lc.Add("grpc", grpcSvc)
	lc.Add("http", httpSvc)

	logger.Info("simserver ready",
		zap.String("grpc_addr", grpcSvc.Addr()),
		zap.String("http_addr", cfg.Server.HTTPAddr()),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lc.Run(ctx); err != nil {
		logger.Error("simserver stopped with error", zap.Error(err))
	}
}
