package ml

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted    = errors.New("model not trained")
	ErrEmptyInput   = errors.New("invalid input: dish name is empty")
	ErrDishNotFound = errors.New("dish not found")
)

// Target names one of the four nutrition fields a regressor is fitted on.
type Target string

const (
	TargetCalories Target = "calories"
	TargetCarbs    Target = "carbs"
	TargetProtein  Target = "protein"
	TargetFat      Target = "fat"
)

// Targets returns the nutrition fields in display order.
func Targets() []Target {
	return []Target{TargetCalories, TargetCarbs, TargetProtein, TargetFat}
}

// Vectorizer turns dish names into fixed-length numeric rows.
type Vectorizer interface {
	Fit(docs []string) error
	Transform(docs []string) (*mat.Dense, error)
	Dimensions() int
}

// Regressor maps vectorized rows to a single scalar value per row.
type Regressor interface {
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) ([]float64, error)
}

var (
	_ Vectorizer = (*TfidfVectorizer)(nil)
	_ Regressor  = (*LinearRegression)(nil)
)
