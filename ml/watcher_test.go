package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactWatcherReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nutrition_model.json")
	require.NoError(t, SaveArtifact(path, trainSample(t)))

	initial, err := LoadPredictor(path, DefaultPredictorOptions())
	require.NoError(t, err)
	holder := NewPredictorHolder(initial)

	var lastErr error
	w, err := NewArtifactWatcher(path, DefaultPredictorOptions(), holder, func(p *Predictor, err error) {
		lastErr = err
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	w.Reload()
	assert.Error(t, lastErr)
	assert.Same(t, initial, holder.Load())
}

func TestArtifactWatcherPicksUpNewArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nutrition_model.json")
	require.NoError(t, SaveArtifact(path, trainSample(t)))

	initial, err := LoadPredictor(path, DefaultPredictorOptions())
	require.NoError(t, err)
	holder := NewPredictorHolder(initial)

	reloaded := make(chan *Predictor, 4)
	w, err := NewArtifactWatcher(path, DefaultPredictorOptions(), holder, func(p *Predictor, err error) {
		if err == nil {
			reloaded <- p
		}
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	next := trainSample(t)
	next.Dishes = []string{"upma", "poha", "idli", "vada", "dosa"}
	require.NoError(t, SaveArtifact(path, next))

	select {
	case p := <-reloaded:
		assert.Same(t, p, holder.Load())
		assert.Equal(t, []string{"Upma", "Poha", "Idli", "Vada", "Dosa"}, p.Dishes())
	case <-time.After(5 * time.Second):
		t.Fatal("artifact was not reloaded")
	}
}
