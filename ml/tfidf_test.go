package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestTfidfVectorizerFit(t *testing.T) {
	v := NewTfidfVectorizer()
	require.NoError(t, v.Fit([]string{"Pav Bhaji", "Bhaji", "a Bhaji"}))

	assert.Equal(t, []string{"bhaji", "pav"}, v.Vocabulary)
	assert.InDelta(t, 1.0, v.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(4.0/2.0)+1, v.IDF[1], 1e-12)
	assert.Equal(t, 2, v.Dimensions())
}

func TestTfidfVectorizerTransform(t *testing.T) {
	v := NewTfidfVectorizer()
	require.NoError(t, v.Fit([]string{"Pav Bhaji", "Masala Dosa", "Bhaji"}))

	x, err := v.Transform([]string{"PAV bhaji", "unknown dish", "dosa dosa"})
	require.NoError(t, err)

	rows, cols := x.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, len(v.Vocabulary), cols)

	assert.InDelta(t, 1.0, floats.Norm(x.RawRowView(0), 2), 1e-12)
	assert.Equal(t, 0.0, floats.Norm(x.RawRowView(1), 2))
	assert.InDelta(t, 1.0, floats.Norm(x.RawRowView(2), 2), 1e-12)
}

func TestTfidfVectorizerErrors(t *testing.T) {
	v := NewTfidfVectorizer()
	_, err := v.Transform([]string{"pav"})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Error(t, v.Fit(nil))
	assert.Error(t, v.Fit([]string{"a", "!"}))
}

func TestTfidfVectorizerValidate(t *testing.T) {
	v := &TfidfVectorizer{Vocabulary: []string{"pav"}, IDF: []float64{1, 2}}
	assert.Error(t, v.Validate())

	v = &TfidfVectorizer{Vocabulary: []string{"pav", "pav"}, IDF: []float64{1, 2}}
	assert.Error(t, v.Validate())

	v = &TfidfVectorizer{Vocabulary: []string{"bhaji", "pav"}, IDF: []float64{1, 2}}
	require.NoError(t, v.Validate())
	x, err := v.Transform([]string{"pav"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x.At(0, 1), 1e-12)
}
