// Package main runs one catalog encounter, or a seeded batch of them, and
// prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/game/catalog"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/stats"
	"github.com/cory-johannsen/combatsim/internal/observability"
	"github.com/cory-johannsen/combatsim/internal/scripting"
	"github.com/cory-johannsen/combatsim/internal/simulation"
	"github.com/cory-johannsen/combatsim/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults")
	encounter := flag.String("encounter", "", "encounter id to run (required)")
	seed := flag.Uint64("seed", 0, "dice seed; 0 draws a fresh one")
	runs := flag.Int("runs", 1, "number of seeded replicas; >1 prints batch statistics")
	roundCap := flag.Int("round-cap", 0, "round limit; 0 uses the configured cap")
	showLog := flag.Bool("log", false, "include the full combat log in the output")
	list := flag.Bool("list", false, "list catalog encounters and exit")
	flag.Parse()

	var (
		cfg config.Config
		err error
	)
	if *configPath == "" {
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "simulate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cat, err := catalog.Load(cfg.Simulation.CatalogDir)
	if err != nil {
		logger.Fatal("loading catalog", zap.String("dir", cfg.Simulation.CatalogDir), zap.Error(err))
	}
	if *list {
		for _, id := range cat.Encounters() {
			fmt.Println(id)
		}
		return
	}
	if *encounter == "" {
		log.Fatal("-encounter is required (use -list to see encounter ids)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, release, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening history store", zap.Error(err))
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
			logger.Fatal("loading tactics scripts", zap.Error(err))
		}
		logger.Debug("tactics loaded", zap.Strings("profiles", profiles))
		opts = append(opts, simulation.WithScripts(mgr))
	}
	svc := simulation.NewService(cat, logger, opts...)
	defer svc.Close()

	req := simulation.Request{EncounterID: *encounter, Seed: *seed, RoundCap: *roundCap}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *runs > 1 {
		res, err := svc.RunBatch(ctx, req, *runs)
		if err != nil {
			logger.Fatal("batch failed", zap.Error(err))
		}
		if err := enc.Encode(res); err != nil {
			log.Fatalf("writing output: %v", err)
		}
		logger.Info("batch finished", zap.Duration("elapsed", time.Since(start)))
		return
	}

	rec, err := svc.RunSync(ctx, req)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
	out := struct {
		ID               string             `json:"id"`
		Encounter        string             `json:"encounter"`
		Seed             uint64             `json:"seed"`
		Winner           string             `json:"winner"`
		Rounds           int                `json:"rounds"`
		PartyHPRemaining int                `json:"party_hp_remaining"`
		Combatants       any                `json:"combatants"`
		Stats            []stats.ActorStats `json:"stats"`
		Log              any                `json:"log,omitempty"`
	}{
		ID:               rec.ID,
		Encounter:        rec.EncounterID,
		Seed:             rec.Seed,
		Winner:           string(rec.Winner),
		Rounds:           rec.Rounds,
		PartyHPRemaining: rec.PartyHPRemaining,
		Combatants:       rec.Combatants,
		Stats:            stats.FromLog(rec.Log).Sorted(),
	}
	if *showLog {
		out.Log = rec.Log
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("writing output: %v", err)
	}
	logger.Info("simulation finished", zap.Duration("elapsed", time.Since(start)))
}
