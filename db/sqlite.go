package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists training runs and prediction history in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        rmse REAL,
        r2 REAL,
        data_points INTEGER,
        train_points INTEGER,
        test_points INTEGER,
        artifact_path TEXT,
        trained_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        query TEXT NOT NULL,
        dish TEXT NOT NULL,
        calories REAL,
        carbs REAL,
        protein REAL,
        fat REAL,
        created_at DATETIME
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type TrainingRun struct {
	ModelName    string    `json:"model_name"`
	RMSE         float64   `json:"rmse"`
	R2           float64   `json:"r2"`
	DataPoints   int       `json:"data_points"`
	TrainPoints  int       `json:"train_points"`
	TestPoints   int       `json:"test_points"`
	ArtifactPath string    `json:"artifact_path"`
	TrainedAt    time.Time `json:"trained_at"`
}

func (s *Store) SaveTrainingRun(ctx context.Context, run TrainingRun) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (
            model_name, rmse, r2, data_points, train_points, test_points, artifact_path, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ModelName, nullableFloat(run.RMSE), nullableFloat(run.R2), run.DataPoints,
		run.TrainPoints, run.TestPoints, run.ArtifactPath, run.TrainedAt.UTC())
	return err
}

// TrainingRuns returns the most recent runs first.
func (s *Store) TrainingRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, rmse, r2, data_points, train_points, test_points, artifact_path, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var rmse, r2 sql.NullFloat64
		if err := rows.Scan(&run.ModelName, &rmse, &r2, &run.DataPoints, &run.TrainPoints,
			&run.TestPoints, &run.ArtifactPath, &run.TrainedAt); err != nil {
			return nil, err
		}
		run.RMSE = rmse.Float64
		run.R2 = r2.Float64
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type PredictionRecord struct {
	Query     string    `json:"query"`
	Dish      string    `json:"dish"`
	Calories  float64   `json:"calories"`
	Carbs     float64   `json:"carbs"`
	Protein   float64   `json:"protein"`
	Fat       float64   `json:"fat"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) SavePrediction(ctx context.Context, rec PredictionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (query, dish, calories, carbs, protein, fat, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Query, rec.Dish, rec.Calories, rec.Carbs, rec.Protein, rec.Fat, rec.CreatedAt.UTC())
	return err
}

// RecentPredictions returns the latest predictions first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT query, dish, calories, carbs, protein, fat, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.Query, &rec.Dish, &rec.Calories, &rec.Carbs, &rec.Protein,
			&rec.Fat, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NaN cannot be stored as REAL; a skipped evaluation is stored as NULL.
func nullableFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v == v}
}
