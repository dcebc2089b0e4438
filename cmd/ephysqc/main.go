package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/ephys-qc/internal/config"
	"github.com/rickgao/ephys-qc/internal/database"
	"github.com/rickgao/ephys-qc/internal/lims"
	"github.com/rickgao/ephys-qc/internal/report"
	"github.com/rickgao/ephys-qc/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ephysqc.local.yaml", "path to config file")
	flag.Parse()

	// Logs go to stderr; stdout carries the JSON summary.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ephysqc",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"run", cfg.Run.Name,
		"sync_file", cfg.Sync.File,
		"probes", len(cfg.Probes),
	)

	// Cancel on signal or when the run timeout expires
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	defer cancel()

	p := &pipeline{cfg: cfg, logger: logger}

	if cfg.LIMS.Enabled {
		logger.Info("connecting to lims",
			"host", cfg.LIMS.Database.Host,
			"port", cfg.LIMS.Database.Port,
			"database", cfg.LIMS.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.LIMS.Database)
		if err != nil {
			logger.Error("failed to connect to lims", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		p.lims = lims.New(pool)
		logger.Info("lims connected")
	}

	run, err := p.run(ctx)
	if err != nil {
		logger.Error("qc run failed", "error", err)
		os.Exit(1)
	}

	if err := run.WriteJSON(os.Stdout); err != nil {
		logger.Error("failed to write summary", "error", err)
		os.Exit(1)
	}

	logger.Info("qc run complete",
		"run_id", run.ID,
		"probes_aligned", countAligned(run.Sync),
		"stage_errors", len(run.Errors),
	)
}

func countAligned(regs map[string]report.Registration) int {
	n := 0
	for _, r := range regs {
		if r.OK() {
			n++
		}
	}
	return n
}
