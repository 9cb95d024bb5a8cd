// Command train runs the housing-price training pipeline: it loads the
// dataset from Postgres, grid-searches the scaler+Lasso pipeline, and
// registers the best model with the tracking service.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/itu-sdse/housing-estimator/dataset"
	"github.com/itu-sdse/housing-estimator/pkg/log"
	"github.com/itu-sdse/housing-estimator/tracking"
	"github.com/itu-sdse/housing-estimator/train"
)

const defaultArtifactRoot = "mlruns"

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	level := log.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = log.ToLevel(v)
	}
	provider := log.NewZerologProvider(level)
	logger := provider.GetLoggerWithName("main")

	dsCfg, err := dataset.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid configuration", log.ErrAttrKey, err)
		os.Exit(1)
	}

	var client tracking.Client
	if uri := os.Getenv(tracking.EnvTrackingURI); uri != "" {
		client, err = tracking.NewRESTClient(uri, tracking.WithLogger(provider.GetLoggerWithName("tracking")))
	} else {
		logger.Info("no tracking server configured, recording runs locally", "root", defaultArtifactRoot)
		client, err = tracking.NewFileClient(defaultArtifactRoot)
	}
	if err != nil {
		logger.Error("failed to set up tracking client", log.ErrAttrKey, err)
		os.Exit(1)
	}

	cfg := train.DefaultConfig(dsCfg)
	result, err := train.Run(context.Background(), cfg, dataset.Load, client, provider)
	if err != nil {
		logger.Error("training failed", log.ErrAttrKey, err)
		os.Exit(1)
	}

	logger.Info("total training time",
		log.DurationSecondsKey, result.Elapsed.Seconds(),
		log.ScoreKey, result.Search.BestScore,
	)
}
