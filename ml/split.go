package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SplitIndices shuffles row indices with a seeded source and holds out
// ceil(testRatio*n) of them for evaluation.
func SplitIndices(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	testSize := int(math.Ceil(testRatio * float64(n)))
	trainSize := n - testSize
	if testSize == 0 || trainSize == 0 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test ratio %v", n, testRatio)
	}

	rnd := rand.New(rand.NewSource(seed))
	perm := rnd.Perm(n)
	return perm[testSize:], perm[:testSize], nil
}

// RMSE is the root mean squared error between two equal-length series.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, errors.New("no values to evaluate")
	}
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("length mismatch: %d actual, %d predicted", len(actual), len(predicted))
	}
	return floats.Distance(actual, predicted, 2) / math.Sqrt(float64(len(actual))), nil
}

// RSquared is the coefficient of determination of predicted against actual.
// It is NaN when actual has no variance.
func RSquared(actual, predicted []float64) float64 {
	return stat.RSquaredFrom(predicted, actual, nil)
}
