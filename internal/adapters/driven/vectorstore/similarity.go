// Package vectorstore provides the similarity math shared by the vector
// store adapters. The stores themselves live in the memory and sqlite
// sub-packages.
package vectorstore

import (
	"math"
	"sort"

	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Cosine returns the cosine similarity dot(a,b)/(||a||*||b||) in [-1, 1].
// Mismatched lengths or a zero vector score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankedHit pairs a vector hit with its insertion sequence for stable
// tie-breaking.
type RankedHit struct {
	Hit driven.VectorHit
	Seq int64
}

// TopK sorts hits by descending score, ties broken by ascending insertion
// sequence, and returns at most k of them.
func TopK(hits []RankedHit, k int) []driven.VectorHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Hit.Score != hits[j].Hit.Score {
			return hits[i].Hit.Score > hits[j].Hit.Score
		}
		return hits[i].Seq < hits[j].Seq
	})
	if k > len(hits) {
		k = len(hits)
	}
	out := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		out[i] = hits[i].Hit
	}
	return out
}
