package ml

import (
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Nutrition is the prediction returned for a matched dish. Values are rounded
// to one decimal place.
type Nutrition struct {
	Dish     string  `json:"Dish"`
	Calories float64 `json:"Calories (kcal)"`
	Carbs    float64 `json:"Carbs (g)"`
	Protein  float64 `json:"Protein (g)"`
	Fat      float64 `json:"Fat (g)"`
}

type PredictorOptions struct {
	Cutoff    float64
	CacheSize int
}

func DefaultPredictorOptions() PredictorOptions {
	return PredictorOptions{Cutoff: DefaultCutoff, CacheSize: 1024}
}

type cachedPrediction struct {
	nutrition Nutrition
	found     bool
}

// Predictor serves predictions from one loaded artifact. The artifact is never
// modified after construction, so a Predictor is safe for concurrent use.
type Predictor struct {
	artifact *Artifact
	matcher  *Matcher
	cache    *lru.Cache[string, cachedPrediction]
}

func NewPredictor(artifact *Artifact, opts PredictorOptions) (*Predictor, error) {
	if artifact == nil {
		return nil, fmt.Errorf("artifact is nil")
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	matcher, err := NewMatcher(artifact.Dishes, opts.Cutoff)
	if err != nil {
		return nil, err
	}
	p := &Predictor{artifact: artifact, matcher: matcher}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, cachedPrediction](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// Predict matches dish against the known dishes and runs all four regressors
// on the matched name. It returns ErrEmptyInput for blank input and
// ErrDishNotFound when nothing clears the cutoff.
func (p *Predictor) Predict(dish string) (Nutrition, error) {
	query := strings.ToLower(strings.TrimSpace(dish))
	if query == "" {
		return Nutrition{}, ErrEmptyInput
	}

	if p.cache != nil {
		if hit, ok := p.cache.Get(query); ok {
			if !hit.found {
				return Nutrition{}, ErrDishNotFound
			}
			return hit.nutrition, nil
		}
	}

	nutrition, found, err := p.predict(query)
	if err != nil {
		return Nutrition{}, err
	}
	if p.cache != nil {
		p.cache.Add(query, cachedPrediction{nutrition: nutrition, found: found})
	}
	if !found {
		return Nutrition{}, ErrDishNotFound
	}
	return nutrition, nil
}

func (p *Predictor) predict(query string) (Nutrition, bool, error) {
	match, ok := p.matcher.Closest(query)
	if !ok {
		return Nutrition{}, false, nil
	}
	dish := TitleCase(match.Name)

	x, err := p.artifact.Vectorizer.Transform([]string{dish})
	if err != nil {
		return Nutrition{}, false, err
	}
	values := make(map[Target]float64, 4)
	for _, target := range Targets() {
		out, err := p.artifact.Models[target].Predict(x)
		if err != nil {
			return Nutrition{}, false, fmt.Errorf("predict %s: %w", target, err)
		}
		values[target] = roundOne(out[0])
	}

	return Nutrition{
		Dish:     dish,
		Calories: values[TargetCalories],
		Carbs:    values[TargetCarbs],
		Protein:  values[TargetProtein],
		Fat:      values[TargetFat],
	}, true, nil
}

// Suggest returns the title-cased closest dish without running the models.
func (p *Predictor) Suggest(dish string) (Match, bool) {
	query := strings.TrimSpace(dish)
	if query == "" {
		return Match{}, false
	}
	match, ok := p.matcher.Closest(query)
	if !ok {
		return Match{}, false
	}
	match.Name = TitleCase(match.Name)
	return match, true
}

// Dishes returns the distinct known dishes, title-cased, in training order.
func (p *Predictor) Dishes() []string {
	seen := make(map[string]struct{}, len(p.artifact.Dishes))
	out := make([]string, 0, len(p.artifact.Dishes))
	for _, dish := range p.artifact.Dishes {
		if _, ok := seen[dish]; ok {
			continue
		}
		seen[dish] = struct{}{}
		out = append(out, TitleCase(dish))
	}
	return out
}

func (p *Predictor) Artifact() *Artifact {
	return p.artifact
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}
