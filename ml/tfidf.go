package ml

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// tokens are runs of at least two word characters
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// TfidfVectorizer is a smoothed, L2-normalized TF-IDF transform over dish names.
// It is immutable once fitted or loaded and safe for concurrent Transform calls.
type TfidfVectorizer struct {
	Vocabulary []string  `json:"vocabulary"`
	IDF        []float64 `json:"idf"`

	index map[string]int
}

func NewTfidfVectorizer() *TfidfVectorizer {
	return &TfidfVectorizer{}
}

func tokenize(doc string) []string {
	return tokenPattern.FindAllString(strings.ToLower(doc), -1)
}

func (v *TfidfVectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return errors.New("no documents to fit")
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, token := range tokenize(doc) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			df[token]++
		}
	}
	if len(df) == 0 {
		return errors.New("empty vocabulary: documents contain no tokens")
	}

	vocabulary := make([]string, 0, len(df))
	for token := range df {
		vocabulary = append(vocabulary, token)
	}
	sort.Strings(vocabulary)

	n := float64(len(docs))
	idf := make([]float64, len(vocabulary))
	for i, token := range vocabulary {
		idf[i] = math.Log((1+n)/(1+float64(df[token]))) + 1
	}

	v.Vocabulary = vocabulary
	v.IDF = idf
	v.buildIndex()
	return nil
}

// Transform returns one row per document. Tokens outside the vocabulary are
// ignored, so a document with no known tokens maps to the zero row.
func (v *TfidfVectorizer) Transform(docs []string) (*mat.Dense, error) {
	if len(v.Vocabulary) == 0 || v.index == nil {
		return nil, ErrNotFitted
	}
	if len(docs) == 0 {
		return nil, errors.New("no documents to transform")
	}

	out := mat.NewDense(len(docs), len(v.Vocabulary), nil)
	for i, doc := range docs {
		row := out.RawRowView(i)
		for _, token := range tokenize(doc) {
			if j, ok := v.index[token]; ok {
				row[j]++
			}
		}
		var norm float64
		for j := range row {
			if row[j] == 0 {
				continue
			}
			row[j] *= v.IDF[j]
			norm += row[j] * row[j]
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for j := range row {
			row[j] /= norm
		}
	}
	return out, nil
}

func (v *TfidfVectorizer) Dimensions() int {
	return len(v.Vocabulary)
}

// Validate checks a decoded vectorizer. The lookup index is built on the first
// successful call, so call it before sharing the vectorizer.
func (v *TfidfVectorizer) Validate() error {
	if len(v.Vocabulary) == 0 {
		return errors.New("vectorizer has an empty vocabulary")
	}
	if len(v.Vocabulary) != len(v.IDF) {
		return fmt.Errorf("vectorizer vocabulary has %d terms but %d idf weights", len(v.Vocabulary), len(v.IDF))
	}
	if v.index != nil {
		return nil
	}
	index := make(map[string]int, len(v.Vocabulary))
	for i, token := range v.Vocabulary {
		index[token] = i
	}
	if len(index) != len(v.Vocabulary) {
		return errors.New("vectorizer vocabulary contains duplicate terms")
	}
	v.index = index
	return nil
}

func (v *TfidfVectorizer) buildIndex() {
	index := make(map[string]int, len(v.Vocabulary))
	for i, token := range v.Vocabulary {
		index[token] = i
	}
	v.index = index
}
