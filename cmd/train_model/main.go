package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"

	"go.uber.org/zap"

	"nutripredict/config"
	"nutripredict/db"
	"nutripredict/logger"
	"nutripredict/ml"
	"nutripredict/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dataPath := flag.String("data", "", "training CSV (overrides dataset.path)")
	outPath := flag.String("out", "", "artifact output path (overrides artifact.path)")
	testRatio := flag.Float64("test_ratio", 0.2, "hold-out ratio for the calories diagnostic")
	seed := flag.Int64("seed", 42, "shuffle seed for the hold-out split")
	flag.Parse()

	cfg, err := config.LoadOptional(config.Resolve(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// 只覆盖命令行显式给出的参数
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Dataset.Path = *dataPath
		case "out":
			cfg.Artifact.Path = *outPath
		case "test_ratio":
			cfg.Training.TestRatio = *testRatio
		case "seed":
			cfg.Training.Seed = *seed
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Dataset.Path == "" {
		log.Fatal("dataset path is required (-data or dataset.path)")
	}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ds, err := ml.LoadDataset(cfg.Dataset.Path, cfg.DatasetColumns())
	if err != nil {
		logger.Fatal("failed to read training data", zap.String("path", cfg.Dataset.Path), zap.Error(err))
	}
	logger.Info("training data loaded", zap.String("path", cfg.Dataset.Path), zap.Int("rows", ds.Len()))

	issues, stats := pipeline.NewDataChecker().Check(ds)
	for _, issue := range issues {
		logger.Warn("data quality issue",
			zap.String("rule", issue.Rule),
			zap.String("severity", issue.Severity),
			zap.Int("row", issue.Row),
			zap.String("dish", issue.Dish),
			zap.String("message", issue.Message),
		)
	}
	if stats.Flagged > 0 {
		logger.Warn("training continues with flagged rows", zap.Int("flagged", stats.Flagged), zap.Int("rows", stats.TotalRows))
	}

	artifact, report, err := ml.Train(ds, cfg.TrainingOptions())
	if err != nil {
		logger.Fatal("failed to train models", zap.Error(err))
	}
	if report.Evaluated {
		logger.Info(fmt.Sprintf("Calories model RMSE: %.2f", report.RMSE),
			zap.Float64("r2", report.R2),
			zap.Int("train_rows", report.TrainRows),
			zap.Int("test_rows", report.TestRows),
		)
	} else {
		logger.Warn("too few rows for a hold-out split, RMSE not reported", zap.Int("rows", report.Rows))
	}

	if err := ml.SaveArtifact(cfg.Artifact.Path, artifact); err != nil {
		logger.Fatal("failed to save artifact", zap.String("path", cfg.Artifact.Path), zap.Error(err))
	}

	if cfg.Database.Path != "" {
		if err := recordRun(cfg.Database.Path, cfg.Artifact.Path, artifact, report); err != nil {
			logger.Warn("failed to record training run", zap.Error(err))
		}
	}

	fmt.Printf("Model and vectorizer saved as %s\n", cfg.Artifact.Path)
}

func recordRun(dbPath, artifactPath string, artifact *ml.Artifact, report *ml.TrainingReport) error {
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveTrainingRun(context.Background(), trainingRun(artifactPath, artifact, report))
}

func trainingRun(artifactPath string, artifact *ml.Artifact, report *ml.TrainingReport) db.TrainingRun {
	run := db.TrainingRun{
		ModelName:    string(ml.TargetCalories),
		DataPoints:   report.Rows,
		TrainPoints:  report.TrainRows,
		TestPoints:   report.TestRows,
		ArtifactPath: artifactPath,
		TrainedAt:    artifact.TrainedAt,
	}
	if report.Evaluated {
		run.RMSE = report.RMSE
		run.R2 = report.R2
	} else {
		run.RMSE = math.NaN()
		run.R2 = math.NaN()
	}
	return run
}
