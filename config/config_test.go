package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
dataset:
  path: data/indian_dishes.csv
artifact:
  path: models/nutrition_model.json
http:
  port: 9000
  timeout: 10s
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/indian_dishes.csv", c.Dataset.Path)
	assert.Equal(t, "Dish Name", c.Dataset.Columns.Name)
	assert.Equal(t, "Fat (g)", c.DatasetColumns().Fat)
	assert.Equal(t, "models/nutrition_model.json", c.Artifact.Path)
	assert.Equal(t, 9000, c.Http.Port)
	assert.Equal(t, 10*time.Second, c.Http.Timeout)
	assert.Equal(t, 0.6, c.PredictorOptions().Cutoff)
	assert.Equal(t, 0.2, c.TrainingOptions().TestRatio)
	assert.Equal(t, int64(42), c.TrainingOptions().Seed)
	assert.Equal(t, "info", c.LoggerConfig().Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"cutoff":     "matching:\n  cutoff: 1.5\n",
		"test ratio": "training:\n  test_ratio: 1\n",
		"cache":      "matching:\n  cache_size: -1\n",
		"port":       "http:\n  port: 0\n",
		"artifact":   "artifact:\n  path: \"\"\n",
		"yaml":       "http: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOptional(t *testing.T) {
	c, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = LoadOptional(writeConfig(t, "http:\n  port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Http.Port)

	_, err = LoadOptional(writeConfig(t, "matching:\n  cutoff: 2\n"))
	assert.Error(t, err)
}
