package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/helixir/paper-search-gateway/internal/cache"
	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/format"
	"github.com/helixir/paper-search-gateway/internal/observability"
)

const (
	// defaultQuery is used when a search request omits the query parameter.
	defaultQuery = "Agentic Reinforcement Learning"

	// maxQueryLength bounds accepted query strings.
	maxQueryLength = 10000

	// Cache envelope markers.
	cacheInfoHit  = "hit"
	cacheInfoMiss = "miss"

	// Metric endpoint labels.
	endpointSearch     = "search"
	endpointDeepSearch = "deep_search"
)

// searchParams is the validated parameter set shared by both search endpoints.
type searchParams struct {
	Query string `validate:"required,max=10000"`
}

// deepSearchEnvelope wraps deep search results when caching is active.
type deepSearchEnvelope struct {
	CacheInfo string                    `json:"cache_info"`
	Results   []domain.SearchResultItem `json:"results"`
	CachedAt  *time.Time                `json:"cached_at,omitempty"`
}

// getConfig handles GET /api/config, serving the static configuration
// document verbatim.
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.configDocPath)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.configDocPath).Msg("config document unreadable")
		writeError(w, http.StatusInternalServerError, "configuration unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// search handles GET /api/search. It proxies a plain top-k retrieval call;
// any retrieval failure falls back to the repeated static sample payload.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params := searchParams{Query: queryParam(r, "query")}
	if err := s.validate.Struct(params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be non-empty and at most %d characters", maxQueryLength))
		return
	}

	records, err := s.retrievalClient.Retrieve(r.Context(), params.Query)
	if err != nil {
		logger := observability.WithSearchContext(s.logger, params.Query)
		logger.Warn().Err(err).Msg("retrieval failed, serving sample fallback")
		s.serveFallback(w, endpointSearch)
		return
	}

	items := make([]domain.SearchResultItem, 0, len(records))
	for _, rec := range records {
		items = append(items, format.BasicRecord(rec))
	}

	if s.metrics != nil {
		s.metrics.RecordSearchRequest(endpointSearch, len(items), time.Since(start).Seconds())
	}
	writeJSON(w, http.StatusOK, items)
}

// deepSearch handles GET /api/deep_search: the full formatter, enrichment
// and cache pipeline.
func (s *Server) deepSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := queryParam(r, "query")
	if err := s.validate.Struct(searchParams{Query: query}); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be non-empty and at most %d characters", maxQueryLength))
		return
	}

	opts, err := parseSearchOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := observability.WithSearchContext(s.logger, query)

	var fingerprint string
	if opts.UseCache {
		fingerprint = cache.Fingerprint(query, opts)
		if entry, ok := s.cacheStore.Get(fingerprint); ok {
			logger.Debug().Msg("serving deep search from cache")
			if s.metrics != nil {
				s.metrics.RecordSearchRequest(endpointDeepSearch, len(entry.Results), time.Since(start).Seconds())
			}
			cachedAt := entry.CreatedAt
			writeJSON(w, http.StatusOK, deepSearchEnvelope{
				CacheInfo: cacheInfoHit,
				Results:   entry.Results,
				CachedAt:  &cachedAt,
			})
			return
		}
	}

	records, err := s.retrievalClient.DeepSearch(r.Context(), query, opts)
	if err != nil {
		logger.Warn().Err(err).Msg("deep search failed, serving sample fallback")
		s.serveFallback(w, endpointDeepSearch)
		return
	}

	items := make([]domain.SearchResultItem, 0, len(records))
	for _, rec := range records {
		items = append(items, format.DeepRecord(rec))
	}

	items = s.enricher.Enrich(r.Context(), items, opts.SocialImpact)

	if s.metrics != nil {
		s.metrics.RecordSearchRequest(endpointDeepSearch, len(items), time.Since(start).Seconds())
	}

	if opts.UseCache {
		entry := domain.CacheEntry{
			Query:     query,
			Options:   opts,
			Results:   items,
			CreatedAt: time.Now().UTC(),
		}
		// Cache write failures are already logged and counted by the store.
		_ = s.cacheStore.Put(fingerprint, entry)

		writeJSON(w, http.StatusOK, deepSearchEnvelope{
			CacheInfo: cacheInfoMiss,
			Results:   items,
		})
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// getStats handles GET /api/stats. Transport failures answer 503, any other
// upstream failure 500.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.retrievalClient.Stats(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			s.logger.Warn().Err(err).Msg("statistics service unreachable")
			writeError(w, http.StatusServiceUnavailable, "database service unavailable")
			return
		}
		s.logger.Error().Err(err).Msg("statistics request failed")
		writeError(w, http.StatusInternalServerError, "failed to retrieve database statistics")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// serveFallback answers with the repeated static sample payload.
func (s *Server) serveFallback(w http.ResponseWriter, endpoint string) {
	if s.metrics != nil {
		s.metrics.RecordSearchFallback(endpoint)
	}
	writeJSON(w, http.StatusOK, s.samples.Fallback())
}

// queryParam returns the named query parameter, defaulting to defaultQuery
// for the query parameter itself when absent.
func queryParam(r *http.Request, name string) string {
	v := r.URL.Query().Get(name)
	if v == "" && name == "query" {
		return defaultQuery
	}
	return v
}

// parseSearchOptions builds the deep search option set from query
// parameters, applying defaults for everything omitted.
func parseSearchOptions(r *http.Request) (domain.SearchOptions, error) {
	opts := domain.DefaultSearchOptions()
	q := r.URL.Query()

	var err error
	if opts.QueryUnderstanding, err = boolParam(q.Get("query_understanding"), opts.QueryUnderstanding); err != nil {
		return opts, fmt.Errorf("query_understanding must be a boolean")
	}
	if opts.SmartRerank, err = boolParam(q.Get("smart_rerank"), opts.SmartRerank); err != nil {
		return opts, fmt.Errorf("smart_rerank must be a boolean")
	}
	if opts.UseCache, err = boolParam(q.Get("use_cache"), opts.UseCache); err != nil {
		return opts, fmt.Errorf("use_cache must be a boolean")
	}
	if opts.SocialImpact, err = boolParam(q.Get("social_impact"), opts.SocialImpact); err != nil {
		return opts, fmt.Errorf("social_impact must be a boolean")
	}

	// An omitted or empty indexing_fields parameter means the full set.
	if raw := q["indexing_fields"]; len(raw) > 0 {
		fields := make([]domain.IndexingField, 0, len(raw))
		for _, f := range raw {
			if f == "" {
				continue
			}
			field := domain.IndexingField(f)
			if !field.IsValid() {
				return opts, fmt.Errorf("unknown indexing field: %s", f)
			}
			fields = append(fields, field)
		}
		if len(fields) > 0 {
			opts.IndexingFields = fields
		}
	}

	return opts, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}
