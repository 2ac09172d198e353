package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/observability"
)

// Compile-time interface verification.
var _ LookupRepository = (*PgLookupRepository)(nil)

// DefaultMaxConcurrentLookups bounds simultaneous database lookups across
// all lookup kinds when no explicit limit is configured.
const DefaultMaxConcurrentLookups = 10

// PgLookupRepository is a PostgreSQL implementation of LookupRepository.
// A single weighted semaphore is shared by all three lookup kinds, so the
// configured limit bounds total in-flight queries, not per-kind queries.
type PgLookupRepository struct {
	db      DBTX
	sem     *semaphore.Weighted
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewPgLookupRepository creates a PostgreSQL lookup repository. If
// maxConcurrent is not positive, DefaultMaxConcurrentLookups is used.
// Metrics may be nil, in which case lookup instrumentation is skipped.
func NewPgLookupRepository(db DBTX, maxConcurrent int64, logger zerolog.Logger, metrics *observability.Metrics) *PgLookupRepository {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLookups
	}
	return &PgLookupRepository{
		db:      db,
		sem:     semaphore.NewWeighted(maxConcurrent),
		logger:  logger.With().Str("component", "lookup_repository").Logger(),
		metrics: metrics,
	}
}

// FetchAuthors returns the ordered author list for a paper, or an empty
// slice on any failure.
func (r *PgLookupRepository) FetchAuthors(ctx context.Context, paperID string) []string {
	if paperID == "" {
		return nil
	}
	if !r.acquire(ctx, LookupKindAuthors, paperID) {
		return nil
	}
	defer r.sem.Release(1)

	start := time.Now()

	query := `SELECT authors FROM papers WHERE paper_id = $1`

	var authors []string
	err := r.db.QueryRow(ctx, query, paperID).Scan(&authors)
	if err != nil {
		r.observeFailure(ctx, LookupKindAuthors, paperID, err)
		return nil
	}

	r.observeSuccess(LookupKindAuthors, start)
	return authors
}

// FetchVenue returns the proceedings record for a paper, joined via the
// paper's work identifier. Absent when no proceedings row matches.
func (r *PgLookupRepository) FetchVenue(ctx context.Context, paperID string) (domain.VenueInfo, bool) {
	if paperID == "" {
		return domain.VenueInfo{}, false
	}
	if !r.acquire(ctx, LookupKindVenue, paperID) {
		return domain.VenueInfo{}, false
	}
	defer r.sem.Release(1)

	start := time.Now()

	query := `
		SELECT pr.venue, COALESCE(pr.year, 0), pr.misc
		FROM proceedings pr
		JOIN papers p ON p.work_id = pr.work_id
		WHERE p.paper_id = $1`

	var (
		info     domain.VenueInfo
		miscJSON []byte
	)
	err := r.db.QueryRow(ctx, query, paperID).Scan(&info.Venue, &info.Year, &miscJSON)
	if err != nil {
		r.observeFailure(ctx, LookupKindVenue, paperID, err)
		return domain.VenueInfo{}, false
	}

	if len(miscJSON) > 0 {
		if err := json.Unmarshal(miscJSON, &info.Misc); err != nil {
			// A malformed misc payload degrades to venue and year only.
			logger := observability.WithPaperContext(r.logger, paperID)
			logger.Warn().Err(err).Msg("invalid proceedings misc payload")
			info.Misc = nil
		}
	}

	r.observeSuccess(LookupKindVenue, start)
	return info, true
}

// FetchSocialImpact aggregates social post engagement for a paper. Absent
// when no posts reference the paper.
func (r *PgLookupRepository) FetchSocialImpact(ctx context.Context, paperID string) (domain.SocialImpactMetrics, bool) {
	if paperID == "" {
		return domain.SocialImpactMetrics{}, false
	}
	if !r.acquire(ctx, LookupKindSocial, paperID) {
		return domain.SocialImpactMetrics{}, false
	}
	defer r.sem.Release(1)

	start := time.Now()

	query := `
		SELECT COUNT(*),
			COALESCE(SUM(likes), 0),
			COALESCE(SUM(retweets), 0),
			COALESCE(SUM(views), 0)
		FROM social_posts
		WHERE paper_id = $1`

	var m domain.SocialImpactMetrics
	err := r.db.QueryRow(ctx, query, paperID).Scan(&m.PostCount, &m.Likes, &m.Retweets, &m.Views)
	if err != nil {
		r.observeFailure(ctx, LookupKindSocial, paperID, err)
		return domain.SocialImpactMetrics{}, false
	}

	// No linked posts means no metrics, not zero metrics.
	if m.PostCount == 0 {
		r.observeSuccess(LookupKindSocial, start)
		return domain.SocialImpactMetrics{}, false
	}

	r.observeSuccess(LookupKindSocial, start)
	return m, true
}

// acquire takes one slot from the shared semaphore, honoring context
// cancellation. A false return means the lookup should be abandoned.
func (r *PgLookupRepository) acquire(ctx context.Context, kind, paperID string) bool {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		logger := observability.WithPaperContext(r.logger, paperID)
		logger.Debug().
			Err(err).
			Str("kind", kind).
			Msg("lookup abandoned before acquiring semaphore")
		if r.metrics != nil {
			r.metrics.RecordLookupFailure(kind)
		}
		return false
	}
	return true
}

func (r *PgLookupRepository) observeSuccess(kind string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordLookup(kind, time.Since(start).Seconds())
	}
}

func (r *PgLookupRepository) observeFailure(ctx context.Context, kind, paperID string, err error) {
	if r.metrics != nil {
		r.metrics.RecordLookupFailure(kind)
	}
	logger := observability.WithPaperContext(r.logger, paperID)
	// No rows is an expected outcome for sparse enrichment data.
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Debug().
			Str("kind", kind).
			Msg("no enrichment data for paper")
		return
	}
	if ctx.Err() != nil {
		logger.Debug().
			Err(err).
			Str("kind", kind).
			Msg("lookup cancelled")
		return
	}
	logger.Warn().
		Err(err).
		Str("kind", kind).
		Msg("lookup query failed")
}
