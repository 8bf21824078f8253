package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"nutripredict/config"
	"nutripredict/db"
	qhttp "nutripredict/http"
	"nutripredict/logger"
	"nutripredict/ml"
	"nutripredict/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.LoadOptional(config.Resolve(*configPath))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Load model artifact; the service cannot run without it
	predictor, err := ml.LoadPredictor(cfg.Artifact.Path, cfg.PredictorOptions())
	if err != nil {
		logger.Fatal("Failed to load model artifact",
			zap.String("path", cfg.Artifact.Path),
			zap.Error(err),
		)
	}
	holder := ml.NewPredictorHolder(predictor)
	metrics := monitoring.NewMetrics()
	metrics.SetDishes(len(predictor.Dishes()))
	logger.Info("Model artifact loaded",
		zap.String("path", cfg.Artifact.Path),
		zap.Int("dishes", len(predictor.Dishes())),
		zap.Time("trained_at", predictor.Artifact().TrainedAt),
	)

	deps := qhttp.Dependencies{
		Predictor:      func() qhttp.NutritionPredictor { return holder.Load() },
		Metrics:        metrics,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}

	// 4. Prediction history (optional)
	var store *db.Store
	if cfg.Database.Path != "" {
		store, err = db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		deps.History = store
		logger.Info("Database initialized", zap.String("path", cfg.Database.Path))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Artifact watcher (optional)
	var watcher *ml.ArtifactWatcher
	if cfg.Artifact.Watch {
		watcher, err = ml.NewArtifactWatcher(cfg.Artifact.Path, cfg.PredictorOptions(), holder, func(p *ml.Predictor, err error) {
			metrics.ObserveReload(err)
			if err != nil {
				logger.Warn("Artifact reload failed, keeping previous model", zap.Error(err))
				return
			}
			metrics.SetDishes(len(p.Dishes()))
			logger.Info("Artifact reloaded", zap.Int("dishes", len(p.Dishes())))
		})
		if err != nil {
			logger.Fatal("Failed to watch artifact", zap.String("path", cfg.Artifact.Path), zap.Error(err))
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.Warn("Artifact watcher stopped", zap.Error(err))
			}
		}()
		logger.Info("Watching artifact for changes", zap.String("path", cfg.Artifact.Path))
	}

	// 6. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, qhttp.NewHandlers(deps))
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	err = server.Stop()
	cancel()
	if watcher != nil {
		err = multierr.Append(err, watcher.Close())
	}
	if store != nil {
		err = multierr.Append(err, store.Close())
	}
	if err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
	}

	logger.Info("Exiting")
}
