package repository

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-search-gateway/internal/domain"
)

func newTestRepo(t *testing.T) (*PgLookupRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewPgLookupRepository(mock, 10, zerolog.Nop(), nil)
	return repo, mock
}

func TestNewPgLookupRepository(t *testing.T) {
	t.Run("creates repository with mock db", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
		assert.NotNil(t, repo.sem)
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLookupRepository(mock, 0, zerolog.Nop(), nil)
		assert.NotNil(t, repo.sem)

		// The default capacity admits DefaultMaxConcurrentLookups holders.
		for i := 0; i < DefaultMaxConcurrentLookups; i++ {
			require.True(t, repo.sem.TryAcquire(1))
		}
		assert.False(t, repo.sem.TryAcquire(1))
		repo.sem.Release(DefaultMaxConcurrentLookups)
	})
}

func TestPgLookupRepository_FetchAuthors(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored author list in order", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT authors FROM papers").
			WithArgs("2510.17431").
			WillReturnRows(pgxmock.NewRows([]string{"authors"}).
				AddRow([]string{"Ada Lovelace", "Charles Babbage"}))

		authors := repo.FetchAuthors(ctx, "2510.17431")
		assert.Equal(t, []string{"Ada Lovelace", "Charles Babbage"}, authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown paper yields empty list", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT authors FROM papers").
			WithArgs("9999.00000").
			WillReturnError(pgx.ErrNoRows)

		authors := repo.FetchAuthors(ctx, "9999.00000")
		assert.Empty(t, authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is swallowed", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT authors FROM papers").
			WithArgs("2510.17431").
			WillReturnError(errors.New("connection reset"))

		authors := repo.FetchAuthors(ctx, "2510.17431")
		assert.Empty(t, authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty paper id short-circuits without query", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		authors := repo.FetchAuthors(ctx, "")
		assert.Empty(t, authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgLookupRepository_FetchVenue(t *testing.T) {
	ctx := context.Background()

	t.Run("returns joined proceedings record", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT pr.venue").
			WithArgs("2510.17431").
			WillReturnRows(pgxmock.NewRows([]string{"venue", "year", "misc"}).
				AddRow("NeurIPS", 2024, []byte(`{"track":"Main Track","status":"Accepted"}`)))

		info, ok := repo.FetchVenue(ctx, "2510.17431")
		require.True(t, ok)
		assert.Equal(t, "NeurIPS", info.Venue)
		assert.Equal(t, 2024, info.Year)
		assert.Equal(t, "Main Track", info.Misc["track"])
		assert.Equal(t, "NeurIPS 2024 (Main Track, Accepted)", info.DisplayString())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent when no proceedings match", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT pr.venue").
			WithArgs("2510.17431").
			WillReturnError(pgx.ErrNoRows)

		_, ok := repo.FetchVenue(ctx, "2510.17431")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed misc payload degrades to venue and year", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT pr.venue").
			WithArgs("2510.17431").
			WillReturnRows(pgxmock.NewRows([]string{"venue", "year", "misc"}).
				AddRow("ICML", 2023, []byte(`{not json`)))

		info, ok := repo.FetchVenue(ctx, "2510.17431")
		require.True(t, ok)
		assert.Equal(t, "ICML", info.Venue)
		assert.Nil(t, info.Misc)
		assert.Equal(t, "ICML 2023", info.DisplayString())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is swallowed", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT pr.venue").
			WithArgs("2510.17431").
			WillReturnError(errors.New("deadlock detected"))

		_, ok := repo.FetchVenue(ctx, "2510.17431")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgLookupRepository_FetchSocialImpact(t *testing.T) {
	ctx := context.Background()

	t.Run("returns aggregated engagement", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT COUNT").
			WithArgs("2510.17431").
			WillReturnRows(pgxmock.NewRows([]string{"count", "likes", "retweets", "views"}).
				AddRow(int64(3), int64(120), int64(45), int64(9000)))

		m, ok := repo.FetchSocialImpact(ctx, "2510.17431")
		require.True(t, ok)
		assert.Equal(t, domain.SocialImpactMetrics{PostCount: 3, Likes: 120, Retweets: 45, Views: 9000}, m)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero post count means absent, not zero metrics", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT COUNT").
			WithArgs("2510.17431").
			WillReturnRows(pgxmock.NewRows([]string{"count", "likes", "retweets", "views"}).
				AddRow(int64(0), int64(0), int64(0), int64(0)))

		_, ok := repo.FetchSocialImpact(ctx, "2510.17431")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is swallowed", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery("SELECT COUNT").
			WithArgs("2510.17431").
			WillReturnError(errors.New("timeout"))

		_, ok := repo.FetchSocialImpact(ctx, "2510.17431")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestPgLookupRepository_SemaphoreBound verifies the shared semaphore caps
// in-flight lookups across concurrent callers.
func TestPgLookupRepository_SemaphoreBound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	const limit = 2
	repo := NewPgLookupRepository(mock, limit, zerolog.Nop(), nil)

	// Saturate the semaphore so real lookups must wait.
	require.True(t, repo.sem.TryAcquire(limit))

	done := make(chan []string, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		done <- repo.FetchAuthors(ctx, "2510.17431")
	}()
	wg.Wait()

	// The lookup never reached the database: it gave up waiting on the
	// semaphore when the context expired, and returned an empty list.
	authors := <-done
	assert.Empty(t, authors)
	assert.NoError(t, mock.ExpectationsWereMet())

	repo.sem.Release(limit)
}

// TestPgLookupRepository_FailureLogsCarryPaperID verifies failure logs
// identify the paper being looked up.
func TestPgLookupRepository_FailureLogsCarryPaperID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var buf bytes.Buffer
	repo := NewPgLookupRepository(mock, 10, zerolog.New(&buf), nil)

	mock.ExpectQuery("SELECT authors FROM papers").
		WithArgs("2510.17431").
		WillReturnError(errors.New("connection reset"))

	repo.FetchAuthors(context.Background(), "2510.17431")
	assert.Contains(t, buf.String(), `"paper_id":"2510.17431"`)
	assert.Contains(t, buf.String(), "lookup query failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
