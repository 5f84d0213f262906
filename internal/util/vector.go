// ABOUTME: Vector math shared by the embedding index backends
// ABOUTME: Cosine similarity and top-k ranking of scored matches
package util

import (
	"math"
	"sort"

	"github.com/harper/agenda/internal/models"
)

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK sorts matches by score descending, ties by id, and keeps the first k.
// k <= 0 keeps everything.
func TopK(matches []models.Match, k int) []models.Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ItemID < matches[j].ItemID
		}
		return matches[i].Score > matches[j].Score
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// MatchesFilter reports whether metadata carries every key/value in filter
func MatchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
