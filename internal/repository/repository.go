// Package repository provides data access for result enrichment.
//
// # Overview
//
// The package defines the LookupRepository interface and its PostgreSQL
// implementation. All lookups are read-only, keyed by a paper identifier,
// and gated by a shared weighted semaphore so that a single search request
// fanning out over many papers cannot exhaust the connection pool.
//
// # Error Handling
//
// Lookup methods never surface query errors to the caller. A failed or
// empty lookup yields an empty list (authors) or an absent value (venue,
// social impact); failures are logged and counted in metrics. Enrichment
// is best-effort and a partially enriched result is always preferred over
// a failed request.
//
// # Thread Safety
//
// All implementations are safe for concurrent use. The underlying pgxpool
// handles connection pooling and synchronization.
package repository

import (
	"context"

	"github.com/helixir/paper-search-gateway/internal/database"
	"github.com/helixir/paper-search-gateway/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// Repositories accept DBTX so tests can substitute a pgxmock pool.
type DBTX = database.DBTX

// Lookup kinds, used as metric labels and log fields.
const (
	LookupKindAuthors = "authors"
	LookupKindVenue   = "venue"
	LookupKindSocial  = "social_impact"
)

// LookupRepository resolves per-paper enrichment data.
type LookupRepository interface {
	// FetchAuthors returns the ordered author list for a paper. It returns
	// an empty slice if the paper is unknown, has no stored authors, or the
	// query fails.
	FetchAuthors(ctx context.Context, paperID string) []string

	// FetchVenue returns the proceedings record joined to the paper via its
	// work identifier. The second return value is false when no matching
	// record exists or the query fails.
	FetchVenue(ctx context.Context, paperID string) (domain.VenueInfo, bool)

	// FetchSocialImpact aggregates social post engagement for a paper. The
	// second return value is false when no posts reference the paper or the
	// query fails.
	FetchSocialImpact(ctx context.Context, paperID string) (domain.SocialImpactMetrics, bool)
}
