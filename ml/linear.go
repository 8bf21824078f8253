package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LinearRegression is ordinary least squares with an intercept term.
//
// Fit centers the design matrix and solves the minimum-norm least-squares
// problem through an SVD, so it copes with more features than rows and with
// duplicated rows.
type LinearRegression struct {
	Coefficients []float64 `json:"coef"`
	Bias         float64   `json:"intercept"`
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

func (lr *LinearRegression) Fit(x mat.Matrix, y []float64) error {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return errors.New("features or labels empty")
	}
	if rows != len(y) {
		return fmt.Errorf("features and labels size mismatch: %d rows, %d labels", rows, len(y))
	}

	xMean := make([]float64, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			xMean[j] += x.At(i, j)
		}
		xMean[j] /= float64(rows)
	}
	yMean := stat.Mean(y, nil)

	var centered mat.Dense
	centered.Apply(func(_, j int, v float64) float64 {
		return v - xMean[j]
	}, x)
	target := mat.NewDense(rows, 1, nil)
	for i, v := range y {
		target.Set(i, 0, v-yMean)
	}

	var svd mat.SVD
	if !svd.Factorize(&centered, mat.SVDThin) {
		return errors.New("svd factorization failed")
	}

	coef := make([]float64, cols)
	rcond := epsilon * float64(max(rows, cols))
	if rank := svd.Rank(rcond); rank > 0 {
		var solution mat.Dense
		svd.SolveTo(&solution, target, rank)
		for j := range coef {
			coef[j] = solution.At(j, 0)
		}
	}

	lr.Coefficients = coef
	lr.Bias = yMean - floats.Dot(xMean, coef)
	return nil
}

func (lr *LinearRegression) Predict(x mat.Matrix) ([]float64, error) {
	if len(lr.Coefficients) == 0 {
		return nil, ErrNotFitted
	}
	rows, cols := x.Dims()
	if cols != len(lr.Coefficients) {
		return nil, fmt.Errorf("feature count mismatch: model has %d, input has %d", len(lr.Coefficients), cols)
	}
	if rows == 0 {
		return nil, nil
	}

	var product mat.VecDense
	product.MulVec(x, mat.NewVecDense(cols, lr.Coefficients))
	out := make([]float64, rows)
	for i := range out {
		out[i] = product.AtVec(i) + lr.Bias
	}
	return out, nil
}

func (lr *LinearRegression) Intercept() float64 {
	return lr.Bias
}

func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.Coefficients...)
}

var epsilon = math.Nextafter(1, 2) - 1
