// FountainScan - heuristic fraud-risk scoring for scholarship and education sites
package main

import (
	"context"
	"os"

	"github.com/mbd888/fountainscan/internal/config"
	"github.com/mbd888/fountainscan/internal/logging"
	"github.com/mbd888/fountainscan/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	bootLogger := logging.New("info", "text")

	bootLogger.Info("starting fountainscan",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("configuration loaded",
		"env", cfg.Env,
		"thresholds", []int{cfg.RiskLowMin, cfg.RiskMediumMin, cfg.RiskHighMin},
		"probe_enabled", cfg.ProbeEnabled,
		"blocking_enabled", cfg.BlockingEnabled,
		"persistent", cfg.DatabaseURL != "",
	)

	srv, err := server.New(cfg, server.WithLogger(logger), server.WithVersion(Version))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
