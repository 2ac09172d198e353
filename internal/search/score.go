// Package search implements the social impact score and the result
// enrichment pipeline.
package search

import (
	"math"
)

// Per-metric scale factors and relative importance weights. Retweets are
// weighted highest as the strongest engagement signal.
const (
	likesScale    = 10.0
	retweetsScale = 15.0
	viewsScale    = 8.0

	likesWeight    = 0.3
	retweetsWeight = 0.4
	viewsWeight    = 0.3

	normalization = 1.5
)

// Score maps raw engagement counters to a popularity score in [0, 100].
//
// Each counter contributes log10(max(count, 1)) scaled by a per-metric
// factor; the contributions are combined with relative importance weights,
// multiplied by a normalization factor, clamped to [0, 100] and truncated
// to an integer. The result is a heuristic, monotonic, diminishing-returns
// signal, not a calibrated metric. Negative counters are treated as zero.
func Score(likes, retweets, views int64) int {
	combined := likesWeight*likesScale*logTerm(likes) +
		retweetsWeight*retweetsScale*logTerm(retweets) +
		viewsWeight*viewsScale*logTerm(views)

	scaled := normalization * combined
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return int(scaled)
}

// logTerm guards against log of zero by flooring the counter at one.
func logTerm(count int64) float64 {
	if count < 1 {
		count = 1
	}
	return math.Log10(float64(count))
}
