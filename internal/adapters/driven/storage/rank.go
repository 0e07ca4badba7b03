// Package storage holds ranking helpers shared by the vector collection adapters.
package storage

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// CosineDistance returns 1 - cosine similarity of a and b.
// Mismatched lengths or zero vectors have distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Rank scores records against the query embedding and returns the k closest,
// ties broken by ID so results are deterministic.
func Rank(records []driven.VectorRecord, query []float32, k int) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	matches := make([]driven.VectorMatch, 0, len(records))
	for _, r := range records {
		matches = append(matches, driven.VectorMatch{Record: r, Distance: CosineDistance(query, r.Embedding)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
