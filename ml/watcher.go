package ml

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// PredictorHolder publishes the current predictor. Reloading swaps in a new
// predictor built from a freshly loaded artifact; loaded artifacts are never
// changed in place.
type PredictorHolder struct {
	current atomic.Pointer[Predictor]
}

func NewPredictorHolder(p *Predictor) *PredictorHolder {
	h := &PredictorHolder{}
	h.current.Store(p)
	return h
}

func (h *PredictorHolder) Load() *Predictor {
	return h.current.Load()
}

func (h *PredictorHolder) Store(p *Predictor) {
	h.current.Store(p)
}

// ReloadFunc is called after every reload attempt. err is nil when p was
// installed.
type ReloadFunc func(p *Predictor, err error)

// ArtifactWatcher reloads the artifact when the file at path is rewritten.
// The parent directory is watched so atomic rename-over saves are seen.
type ArtifactWatcher struct {
	path     string
	opts     PredictorOptions
	holder   *PredictorHolder
	onReload ReloadFunc
	watcher  *fsnotify.Watcher
}

func NewArtifactWatcher(path string, opts PredictorOptions, holder *PredictorHolder, onReload ReloadFunc) (*ArtifactWatcher, error) {
	if holder == nil {
		return nil, errors.New("predictor holder is nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}
	return &ArtifactWatcher{
		path:     abs,
		opts:     opts,
		holder:   holder,
		onReload: onReload,
		watcher:  watcher,
	}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *ArtifactWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.Reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.onReload != nil {
				w.onReload(nil, err)
			}
		}
	}
}

// Reload loads the artifact and installs a new predictor. On failure the
// previous predictor stays in place.
func (w *ArtifactWatcher) Reload() {
	p, err := w.load()
	if err == nil {
		w.holder.Store(p)
	}
	if w.onReload != nil {
		w.onReload(p, err)
	}
}

func (w *ArtifactWatcher) load() (*Predictor, error) {
	return LoadPredictor(w.path, w.opts)
}

func (w *ArtifactWatcher) Close() error {
	return w.watcher.Close()
}
