// Package domain provides domain models and business logic for the Paper Search Gateway.
package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// IndexingField identifies one of the retrieval service's search indexes.
// These values must match the search_funcs accepted by the upstream API.
type IndexingField string

const (
	IndexingFieldMetadata     IndexingField = "metadata"
	IndexingFieldIntroduction IndexingField = "introduction"
	IndexingFieldSection      IndexingField = "section"
	IndexingFieldROC          IndexingField = "roc"
)

// DefaultIndexingFields returns the full set of indexes searched when the
// caller does not narrow the request.
func DefaultIndexingFields() []IndexingField {
	return []IndexingField{
		IndexingFieldMetadata,
		IndexingFieldIntroduction,
		IndexingFieldSection,
		IndexingFieldROC,
	}
}

// IsValid returns true if the field is one of the known retrieval indexes.
func (f IndexingField) IsValid() bool {
	switch f {
	case IndexingFieldMetadata, IndexingFieldIntroduction, IndexingFieldSection, IndexingFieldROC:
		return true
	default:
		return false
	}
}

// SearchOptions is the full parameter tuple of a deep-search request.
// It is the unit the cache fingerprint is derived from.
type SearchOptions struct {
	// QueryUnderstanding enables query decomposition in the retrieval service.
	QueryUnderstanding bool `json:"query_understanding"`
	// SmartRerank enables the retrieval service's rerank stages.
	SmartRerank bool `json:"smart_rerank"`
	// SocialImpact enables social-engagement enrichment and scoring.
	SocialImpact bool `json:"social_impact"`
	// UseCache enables the file-backed result cache for this request.
	UseCache bool `json:"use_cache"`
	// IndexingFields is the set of retrieval indexes to search.
	IndexingFields []IndexingField `json:"indexing_fields"`
}

// DefaultSearchOptions returns the option set applied when a deep-search
// request omits every parameter.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		QueryUnderstanding: false,
		SmartRerank:        true,
		SocialImpact:       false,
		UseCache:           false,
		IndexingFields:     DefaultIndexingFields(),
	}
}

// NormalizedFields returns the indexing fields sorted lexicographically.
// Fingerprinting uses this so that field order never changes the cache key.
func (o SearchOptions) NormalizedFields() []string {
	fields := make([]string, len(o.IndexingFields))
	for i, f := range o.IndexingFields {
		fields[i] = string(f)
	}
	sort.Strings(fields)
	return fields
}

// SearchResultItem is one retrieved paper in the shape the front end renders.
//
// PaperID is ephemeral: it exists only to key the enrichment lookups and is
// excluded from JSON serialization so it can never reach a response payload.
type SearchResultItem struct {
	Title       string `json:"title"`
	Abstract    string `json:"abs"`
	Authors     string `json:"authors"`
	Orgs        string `json:"orgs"`
	ReleaseDate string `json:"release_date"`
	URL         any    `json:"url"`
	Meta        string `json:"meta"`
	SocialScore *int   `json:"social_score,omitempty"`

	PaperID string `json:"-"`
}

// VenueInfo is the publication venue metadata for one paper.
type VenueInfo struct {
	Venue string         `json:"venue"`
	Year  int            `json:"year"`
	Misc  map[string]any `json:"misc,omitempty"`
}

// DisplayString renders the venue info as the suffix appended to an item's
// meta field, e.g. "NeurIPS 2024 (Main Track, Accepted)".
func (v VenueInfo) DisplayString() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(v.Venue))
	if v.Year > 0 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(strconv.Itoa(v.Year))
	}

	var extras []string
	if track, ok := v.Misc["track"].(string); ok && strings.TrimSpace(track) != "" {
		extras = append(extras, strings.TrimSpace(track))
	}
	if status, ok := v.Misc["status"].(string); ok && strings.TrimSpace(status) != "" {
		extras = append(extras, strings.TrimSpace(status))
	}
	if len(extras) > 0 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(extras, ", "))
		sb.WriteString(")")
	}

	return sb.String()
}

// SocialImpactMetrics aggregates social-media engagement rows for one paper.
// A paper with no linked posts has no metrics at all rather than zero values.
type SocialImpactMetrics struct {
	PostCount int64 `json:"post_count"`
	Likes     int64 `json:"likes"`
	Retweets  int64 `json:"retweets"`
	Views     int64 `json:"views"`
}

// CacheEntry is one cached deep-search result set, keyed by the fingerprint
// of its query and options. Entries are written whole and never expire.
type CacheEntry struct {
	Query     string             `json:"query"`
	Options   SearchOptions      `json:"options"`
	Results   []SearchResultItem `json:"results"`
	CreatedAt time.Time          `json:"created_at"`
}
