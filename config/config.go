package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"nutripredict/logger"
	"nutripredict/ml"
)

type Config struct {
	Dataset struct {
		Path    string `yaml:"path"`
		Columns struct {
			Name     string `yaml:"name"`
			Calories string `yaml:"calories"`
			Carbs    string `yaml:"carbs"`
			Protein  string `yaml:"protein"`
			Fat      string `yaml:"fat"`
		} `yaml:"columns"`
	} `yaml:"dataset"`
	Artifact struct {
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"artifact"`
	Training struct {
		TestRatio float64 `yaml:"test_ratio"`
		Seed      int64   `yaml:"seed"`
	} `yaml:"training"`
	Matching struct {
		Cutoff    float64 `yaml:"cutoff"`
		CacheSize int     `yaml:"cache_size"`
	} `yaml:"matching"`
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level       string `yaml:"level"`
		File        string `yaml:"file"`
		MaxSizeMB   int    `yaml:"max_size_mb"`
		MaxBackups  int    `yaml:"max_backups"`
		MaxAgeDays  int    `yaml:"max_age_days"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Default returns the configuration used for any key the file leaves out.
func Default() *Config {
	var c Config
	columns := ml.DefaultColumns()
	c.Dataset.Columns.Name = columns.Name
	c.Dataset.Columns.Calories = columns.Calories
	c.Dataset.Columns.Carbs = columns.Carbs
	c.Dataset.Columns.Protein = columns.Protein
	c.Dataset.Columns.Fat = columns.Fat

	c.Artifact.Path = "nutrition_model.json"

	training := ml.DefaultTrainingOptions()
	c.Training.TestRatio = training.TestRatio
	c.Training.Seed = training.Seed

	matching := ml.DefaultPredictorOptions()
	c.Matching.Cutoff = matching.Cutoff
	c.Matching.CacheSize = matching.CacheSize

	c.Http.Port = 8501
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}

	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 5
	c.Log.MaxAgeDays = 30
	return &c
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// LoadOptional is Load, except a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

// Resolve returns path, or ../path when path is missing and the parent has one,
// so binaries started from cmd/ still find the repository config.
func Resolve(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		parent := filepath.Join("..", path)
		if _, err := os.Stat(parent); err == nil {
			return parent
		}
	}
	return path
}

func (c *Config) Validate() error {
	if c.Artifact.Path == "" {
		return errors.New("artifact.path is required")
	}
	if c.Matching.Cutoff < 0 || c.Matching.Cutoff > 1 {
		return fmt.Errorf("matching.cutoff must be in [0, 1], got %v", c.Matching.Cutoff)
	}
	if c.Matching.CacheSize < 0 {
		return fmt.Errorf("matching.cache_size must not be negative, got %d", c.Matching.CacheSize)
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio must be in (0, 1), got %v", c.Training.TestRatio)
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	if c.Dataset.Columns.Name == "" {
		return errors.New("dataset.columns.name is required")
	}
	return nil
}

func (c *Config) DatasetColumns() ml.Columns {
	return ml.Columns{
		Name:     c.Dataset.Columns.Name,
		Calories: c.Dataset.Columns.Calories,
		Carbs:    c.Dataset.Columns.Carbs,
		Protein:  c.Dataset.Columns.Protein,
		Fat:      c.Dataset.Columns.Fat,
	}
}

func (c *Config) TrainingOptions() ml.TrainingOptions {
	return ml.TrainingOptions{TestRatio: c.Training.TestRatio, Seed: c.Training.Seed}
}

func (c *Config) PredictorOptions() ml.PredictorOptions {
	return ml.PredictorOptions{Cutoff: c.Matching.Cutoff, CacheSize: c.Matching.CacheSize}
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		File:        c.Log.File,
		MaxSizeMB:   c.Log.MaxSizeMB,
		MaxBackups:  c.Log.MaxBackups,
		MaxAgeDays:  c.Log.MaxAgeDays,
		Development: c.Log.Development,
	}
}
