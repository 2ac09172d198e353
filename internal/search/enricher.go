package search

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/observability"
	"github.com/helixir/paper-search-gateway/internal/repository"
)

// Enricher augments formatted search results with database-sourced fields.
// All items in a result set are enriched concurrently, and each item's
// individual lookups run concurrently as well; total in-flight database
// queries stay bounded by the repository's shared semaphore.
type Enricher struct {
	repo    repository.LookupRepository
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewEnricher creates an enricher backed by the given lookup repository.
// Metrics may be nil.
func NewEnricher(repo repository.LookupRepository, logger zerolog.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{
		repo:    repo,
		logger:  logger.With().Str("component", "enricher").Logger(),
		metrics: metrics,
	}
}

// Enrich fills in authors, venue and optionally social score for every item,
// then strips the ephemeral paper identifier. Lookups are best-effort: a
// failed lookup leaves the corresponding field absent and never fails the
// item or the set. The input slice is modified in place and returned.
func (e *Enricher) Enrich(ctx context.Context, items []domain.SearchResultItem, includeSocial bool) []domain.SearchResultItem {
	g, ctx := errgroup.WithContext(ctx)

	for i := range items {
		g.Go(func() error {
			e.enrichItem(ctx, &items[i], includeSocial)
			return nil
		})
	}

	// Lookups swallow their own failures, so the only wait outcome is
	// completion.
	_ = g.Wait()

	// The identifier is internal plumbing and must never reach a client.
	for i := range items {
		items[i].PaperID = ""
	}

	return items
}

// enrichItem runs the item's needed lookups concurrently and merges the
// outcomes. Venue info is always fetched; authors only when formatting left
// them empty; social impact only when the caller requested it.
func (e *Enricher) enrichItem(ctx context.Context, item *domain.SearchResultItem, includeSocial bool) {
	var (
		venue    domain.VenueInfo
		hasVenue bool
		authors  []string
		social   domain.SocialImpactMetrics
		hasSoc   bool
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		venue, hasVenue = e.repo.FetchVenue(ctx, item.PaperID)
		return nil
	})

	needAuthors := item.Authors == ""
	if needAuthors {
		g.Go(func() error {
			authors = e.repo.FetchAuthors(ctx, item.PaperID)
			return nil
		})
	}

	if includeSocial {
		g.Go(func() error {
			social, hasSoc = e.repo.FetchSocialImpact(ctx, item.PaperID)
			return nil
		})
	}

	_ = g.Wait()

	if needAuthors && len(authors) > 0 {
		item.Authors = joinNames(authors)
	}

	if hasVenue {
		if display := venue.DisplayString(); display != "" {
			if item.Meta != "" {
				item.Meta += " | " + display
			} else {
				item.Meta = display
			}
		}
	}

	// A paper without metrics gets no score at all rather than zero.
	if includeSocial && hasSoc {
		score := Score(social.Likes, social.Retweets, social.Views)
		item.SocialScore = &score
		if e.metrics != nil {
			e.metrics.RecordSocialScore(score)
		}
	}
}

// joinNames joins author names with ", ", skipping empties.
func joinNames(names []string) string {
	out := ""
	for _, n := range names {
		if n == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += n
	}
	return out
}
