package ml

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type TrainingOptions struct {
	TestRatio float64
	Seed      int64
}

func DefaultTrainingOptions() TrainingOptions {
	return TrainingOptions{TestRatio: 0.2, Seed: 42}
}

// TrainingReport carries the calories hold-out diagnostic. It is informational
// only and never stored in the artifact.
type TrainingReport struct {
	Rows      int
	TrainRows int
	TestRows  int
	Evaluated bool
	RMSE      float64
	R2        float64
}

// Train fits the vectorizer and all four regressors on the full dataset, then
// refits a calories regressor on a seeded split to measure hold-out RMSE.
// A poor fit is still returned.
func Train(ds *Dataset, opts TrainingOptions) (*Artifact, *TrainingReport, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, nil, errors.New("dataset has no rows")
	}

	names := ds.Names()
	vectorizer := NewTfidfVectorizer()
	if err := vectorizer.Fit(names); err != nil {
		return nil, nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	x, err := vectorizer.Transform(names)
	if err != nil {
		return nil, nil, err
	}

	models := make(map[Target]*LinearRegression, 4)
	for _, target := range Targets() {
		model := NewLinearRegression()
		if err := model.Fit(x, ds.Values(target)); err != nil {
			return nil, nil, fmt.Errorf("fit %s model: %w", target, err)
		}
		models[target] = model
	}

	dishes := make([]string, len(names))
	for i, name := range names {
		dishes[i] = strings.ToLower(name)
	}

	artifact := &Artifact{
		FormatVersion: ArtifactFormatVersion,
		TrainedAt:     time.Now().UTC(),
		Vectorizer:    vectorizer,
		Models:        models,
		Dishes:        dishes,
	}

	report := &TrainingReport{Rows: ds.Len()}
	if err := evaluateCalories(ds, names, vectorizer, opts, report); err != nil {
		return nil, nil, err
	}
	return artifact, report, nil
}

func evaluateCalories(ds *Dataset, names []string, vectorizer *TfidfVectorizer, opts TrainingOptions, report *TrainingReport) error {
	if ds.Len() < 2 {
		return nil
	}
	trainIdx, testIdx, err := SplitIndices(ds.Len(), opts.TestRatio, opts.Seed)
	if err != nil {
		return err
	}

	pick := func(idx []int) ([]string, []float64) {
		docs := make([]string, len(idx))
		values := make([]float64, len(idx))
		for i, j := range idx {
			docs[i] = names[j]
			values[i] = ds.Records[j].Calories
		}
		return docs, values
	}
	trainDocs, trainY := pick(trainIdx)
	testDocs, testY := pick(testIdx)

	trainX, err := vectorizer.Transform(trainDocs)
	if err != nil {
		return err
	}
	testX, err := vectorizer.Transform(testDocs)
	if err != nil {
		return err
	}

	model := NewLinearRegression()
	if err := model.Fit(trainX, trainY); err != nil {
		return fmt.Errorf("fit hold-out calories model: %w", err)
	}
	predicted, err := model.Predict(testX)
	if err != nil {
		return err
	}
	rmse, err := RMSE(testY, predicted)
	if err != nil {
		return err
	}

	report.TrainRows = len(trainIdx)
	report.TestRows = len(testIdx)
	report.Evaluated = true
	report.RMSE = rmse
	report.R2 = RSquared(testY, predicted)
	return nil
}
