// Package similarity implements the vector math behind semantic routing.
//
// Two cosine flavours exist on purpose: Cosine is strict and reports a
// dimension mismatch as core.ErrDimensionMismatch (routing, resonance,
// coupling, detection), while Similarity is lenient and scores empty or
// unequal vectors as 0 (search utilities, olfactory fatigue).
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/hupe1980/biosphere/core"
)

// Cosine calculates dot(a,b)/(|a|·|b|). Unequal lengths are an error; a zero
// magnitude vector yields 0. The result is clamped to [-1, 1] to absorb
// rounding drift.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", core.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}

	if na == 0 || nb == 0 {
		return 0, nil
	}

	return clamp(dot/(math.Sqrt(na)*math.Sqrt(nb)), -1, 1), nil
}

// Similarity is the lenient cosine: empty or unequal vectors score 0.
func Similarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	s, _ := Cosine(a, b)
	return s
}

// MeanPairwise averages Cosine over every unordered pair. Fewer than two
// vectors yield 0.
func MeanPairwise(vecs [][]float64) (float64, error) {
	if len(vecs) < 2 {
		return 0, nil
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(vecs); i++ {
		for j := i + 1; j < len(vecs); j++ {
			s, err := Cosine(vecs[i], vecs[j])
			if err != nil {
				return 0, err
			}
			sum += s
			pairs++
		}
	}

	return sum / float64(pairs), nil
}

// MaxAgainst returns the highest Cosine between any vector in vecs and any
// anchor. Empty inputs yield 0.
func MaxAgainst(vecs, anchors [][]float64) (float64, error) {
	best := 0.0
	found := false
	for _, v := range vecs {
		for _, a := range anchors {
			s, err := Cosine(v, a)
			if err != nil {
				return 0, err
			}
			if !found || s > best {
				best, found = s, true
			}
		}
	}
	return best, nil
}

// Match is a scored corpus entry.
type Match struct {
	Index int
	Score float64
}

// TopK scores every corpus vector against query with Cosine, keeps those
// strictly above minScore, and returns at most k matches sorted by score
// descending (ties keep corpus order). k <= 0 means no limit.
func TopK(query []float64, corpus [][]float64, minScore float64, k int) ([]Match, error) {
	matches := make([]Match, 0, len(corpus))
	for i, v := range corpus {
		s, err := Cosine(query, v)
		if err != nil {
			return nil, err
		}
		if s > minScore {
			matches = append(matches, Match{Index: i, Score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
