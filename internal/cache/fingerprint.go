// Package cache provides the file-backed deep search result cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/helixir/paper-search-gateway/internal/domain"
)

// fingerprintInput is the canonical parameter tuple hashed into a cache key.
// Field order is fixed and indexing fields are sorted, so equivalent
// requests always produce the same key.
type fingerprintInput struct {
	Query              string   `json:"query"`
	QueryUnderstanding bool     `json:"query_understanding"`
	SmartRerank        bool     `json:"smart_rerank"`
	SocialImpact       bool     `json:"social_impact"`
	IndexingFields     []string `json:"indexing_fields"`
}

// Fingerprint derives the deterministic cache key for a query and its
// options. use_cache itself is not part of the key: it selects whether the
// cache is consulted, not what the result looks like.
func Fingerprint(query string, opts domain.SearchOptions) string {
	input := fingerprintInput{
		Query:              query,
		QueryUnderstanding: opts.QueryUnderstanding,
		SmartRerank:        opts.SmartRerank,
		SocialImpact:       opts.SocialImpact,
		IndexingFields:     opts.NormalizedFields(),
	}

	// Marshaling a struct with fixed field order is deterministic.
	data, err := json.Marshal(input)
	if err != nil {
		// A struct of strings and bools cannot fail to marshal.
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
