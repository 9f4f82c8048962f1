package identity

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultNeighbors is the neighbourhood used for the label vote.
const DefaultNeighbors = 4

// Neighbor is one gallery entry ranked by distance to the query.
type Neighbor struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Match is the outcome of one identification.
type Match struct {
	Identity  Identity   `json:"identity"`
	Distance  float64    `json:"distance"` // nearest-neighbour distance
	Neighbors []Neighbor `json:"neighbors"`
}

// Matcher is an open-set k-nearest-neighbour classifier under Euclidean
// distance.
type Matcher struct {
	// Threshold: a nearest distance above this is rejected as unknown.
	Threshold float64
	// K neighbours vote on the label. Clamped to the gallery size.
	K int
}

// NewMatcher returns a matcher with the given rejection threshold.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{Threshold: threshold, K: DefaultNeighbors}
}

// Identify compares features against gallery.
//
// The nearest distance alone decides rejection: if it exceeds Threshold the
// result is Unknown whatever label was closest, even with a single enrolled
// driver. Otherwise the label is the majority among the K nearest, ties
// going to the lexicographically smallest label.
func (m *Matcher) Identify(features []float64, gallery []Template) (Match, error) {
	if len(gallery) == 0 {
		return Match{Identity: NoFace()}, ErrEmptyGallery
	}

	ranked := make([]Neighbor, 0, len(gallery))
	for i, t := range gallery {
		if len(t.Features) != len(features) {
			return Match{}, fmt.Errorf("%w: template %d has %d values, query has %d",
				ErrFeatureLength, i, len(t.Features), len(features))
		}
		ranked = append(ranked, Neighbor{
			Label:    t.Label,
			Distance: floats.Distance(features, t.Features, 2),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	k := m.K
	if k <= 0 {
		k = 1
	}
	if k > len(ranked) {
		k = len(ranked)
	}

	match := Match{
		Distance:  ranked[0].Distance,
		Neighbors: ranked[:k],
	}
	if match.Distance > m.Threshold {
		match.Identity = Unknown()
		return match, nil
	}

	match.Identity = Known(vote(ranked[:k]))
	return match, nil
}

func vote(neighbors []Neighbor) string {
	counts := make(map[string]int, len(neighbors))
	for _, n := range neighbors {
		counts[n.Label]++
	}

	best, bestCount := "", -1
	for label, c := range counts {
		if c > bestCount || (c == bestCount && label < best) {
			best, bestCount = label, c
		}
	}
	return best
}
