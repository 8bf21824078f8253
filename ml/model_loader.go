package ml

// LoadPredictor loads the artifact at path and wraps it in a Predictor.
func LoadPredictor(path string, opts PredictorOptions) (*Predictor, error) {
	artifact, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return NewPredictor(artifact, opts)
}
