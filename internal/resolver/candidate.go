package resolver

import (
	"github.com/vparse/vparse/internal/config"
)

// Candidate is one upstream strategy for turning a page URL into a playable URL
type Candidate struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Prefix string `json:"prefix,omitempty"`
}

// IsExtract reports whether the candidate runs the extraction library
func (c Candidate) IsExtract() bool {
	return c.Kind == config.KindExtract
}

// CandidatesFromConfig numbers the configured candidates in order
func CandidatesFromConfig(cfgs []config.CandidateConfig) []Candidate {
	candidates := make([]Candidate, len(cfgs))
	for i, c := range cfgs {
		kind := c.Kind
		if kind == "" {
			kind = config.KindRedirect
		}
		candidates[i] = Candidate{
			Index:  i,
			Name:   c.Name,
			Kind:   kind,
			Prefix: c.Prefix,
		}
	}
	return candidates
}

// Order returns the candidate indices in the order they are tried for the
// given starting index. n must be positive and start within [0, n).
//
// round_robin:     start, start+1, ..., n-1, 0, ..., start-1
// preferred_first: start, 0, 1, ..., n-1 (start skipped)
func Order(rotation string, n, start int) []int {
	order := make([]int, 0, n)
	order = append(order, start)
	if rotation == config.RotationPreferredFirst {
		for i := 0; i < n; i++ {
			if i != start {
				order = append(order, i)
			}
		}
		return order
	}
	for i := 1; i < n; i++ {
		order = append(order, (start+i)%n)
	}
	return order
}
