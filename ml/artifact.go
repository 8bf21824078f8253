package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactFormatVersion is bumped whenever the on-disk layout changes.
const ArtifactFormatVersion = 1

var ErrArtifactVersion = errors.New("unsupported artifact format version")

// Artifact bundles everything the predictor needs: the fitted vectorizer,
// one regressor per nutrition field and the lower-cased training dish names.
type Artifact struct {
	FormatVersion int                          `json:"format_version"`
	TrainedAt     time.Time                    `json:"trained_at"`
	Vectorizer    *TfidfVectorizer             `json:"vectorizer"`
	Models        map[Target]*LinearRegression `json:"models"`
	Dishes        []string                     `json:"dishes"`
}

func (a *Artifact) Validate() error {
	if a.FormatVersion != ArtifactFormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrArtifactVersion, a.FormatVersion, ArtifactFormatVersion)
	}
	if a.Vectorizer == nil {
		return errors.New("artifact has no vectorizer")
	}
	if err := a.Vectorizer.Validate(); err != nil {
		return err
	}
	dims := a.Vectorizer.Dimensions()
	for _, target := range Targets() {
		model, ok := a.Models[target]
		if !ok || model == nil {
			return fmt.Errorf("artifact has no %s model", target)
		}
		if len(model.Coefficients) != dims {
			return fmt.Errorf("%s model has %d coefficients, vectorizer has %d terms", target, len(model.Coefficients), dims)
		}
	}
	if len(a.Dishes) == 0 {
		return errors.New("artifact has an empty dish list")
	}
	return nil
}

// SaveArtifact writes the artifact next to path and renames it into place,
// replacing whatever was there.
func SaveArtifact(path string, a *Artifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("load artifact %s: malformed: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", path, err)
	}
	return &a, nil
}
