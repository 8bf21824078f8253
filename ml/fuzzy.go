package ml

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultCutoff = 0.6

// Match is the best candidate found for a query.
type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Matcher finds the closest known dish name for free-text input. Similarity is
// the SequenceMatcher ratio computed over code points. Ties on the ratio go to
// the lexicographically greatest candidate.
type Matcher struct {
	names      []string
	candidates [][]string
	cutoff     float64
}

func NewMatcher(choices []string, cutoff float64) (*Matcher, error) {
	if cutoff < 0 || cutoff > 1 {
		return nil, fmt.Errorf("cutoff must be in [0, 1], got %v", cutoff)
	}
	m := &Matcher{
		names:      append([]string(nil), choices...),
		candidates: make([][]string, len(choices)),
		cutoff:     cutoff,
	}
	for i, choice := range choices {
		m.candidates[i] = splitRunes(choice)
	}
	return m, nil
}

// Closest lower-cases query and returns the best candidate whose ratio is at
// least the cutoff.
func (m *Matcher) Closest(query string) (Match, bool) {
	word := splitRunes(strings.ToLower(query))
	sm := difflib.NewMatcher(nil, word)

	var best Match
	found := false
	for i, candidate := range m.candidates {
		sm.SetSeq1(candidate)
		if sm.RealQuickRatio() < m.cutoff || sm.QuickRatio() < m.cutoff {
			continue
		}
		ratio := sm.Ratio()
		if ratio < m.cutoff {
			continue
		}
		if !found || ratio > best.Score || (ratio == best.Score && m.names[i] > best.Name) {
			best = Match{Name: m.names[i], Score: ratio}
			found = true
		}
	}
	return best, found
}

func (m *Matcher) Cutoff() float64 {
	return m.cutoff
}

// TitleCase capitalizes the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
