package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/reelforge/reelforge/internal/acquisition"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/database"
	"github.com/reelforge/reelforge/internal/download"
	"github.com/reelforge/reelforge/internal/downloadclient"
	"github.com/reelforge/reelforge/internal/indexer"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	log := logging.Init("info", true)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logging.Init(cfg.LogLevel, cfg.LogPretty)

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", dataDir).Msg("failed to create data directory")
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	downloads := downloadclient.NewManager(db)
	indexers := indexer.NewManager()
	indexers.Blocklisted = func(title string) bool {
		blocked, err := db.IsReleaseBlocklisted(title)
		if err != nil {
			return false
		}
		return blocked
	}

	dbIndexers, err := db.GetIndexers()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configured indexers")
	}
	for _, idx := range dbIndexers {
		if !idx.Enabled {
			continue
		}
		ic := idx
		if err := indexers.AddIndexer(&indexer.IndexerConfig{
			ID:         ic.ID,
			Name:       ic.Name,
			Type:       ic.Type,
			URL:        ic.URL,
			APIKey:     ic.APIKey,
			Categories: ic.Categories,
			Priority:   ic.Priority,
			Enabled:    ic.Enabled,
		}); err != nil {
			log.Warn().Err(err).Str("indexer", ic.Name).Msg("failed to register indexer")
		}
	}

	acqCfg := acquisition.DefaultConfig()
	acqCfg.AutoBlockAfter = cfg.AutoBlockAfter
	acqCfg.DeleteOnFail = cfg.DeleteOnFail
	acqCfg.SearchAlternative = cfg.SearchAlternative
	acqCfg.PollInterval = cfg.PollInterval
	acqCfg.StalledThreshold = cfg.StalledThreshold
	acqCfg.ImportTimeout = cfg.ImportTimeout
	acqCfg.RecycleBinPath = cfg.RecycleBinPath
	acqCfg.KeepOldFiles = cfg.KeepOldFiles
	acqCfg.SeedingConfig = download.SeedingConfig{
		MinRatio:    cfg.SeedingMinRatio,
		MinSeedTime: cfg.SeedingMinTime,
		MaxSeedTime: cfg.SeedingMaxTime,
	}

	acqSvc := acquisition.NewService(db, db.DB(), downloads, indexers, acqCfg, logging.Component(log, "acquisition"))

	sched := scheduler.New(db, indexers, acqSvc)
	sched.SetIntervals(cfg.SearchIntervalMinutes, cfg.RSSIntervalMinutes)

	sched.Start()
	acqSvc.Start()
	log.Info().Msg("acquisition service started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")

	acqSvc.Stop()
	sched.Stop()

	log.Info().Msg("goodbye")
}
