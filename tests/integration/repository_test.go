//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-search-gateway/internal/repository"
)

func newLookupRepo(t *testing.T) *repository.PgLookupRepository {
	t.Helper()
	return repository.NewPgLookupRepository(testPool, 10, zerolog.Nop(), nil)
}

func insertPaper(t *testing.T, paperID, workID, title string, authors []string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO papers (paper_id, work_id, title, authors) VALUES ($1, $2, $3, $4)`,
		paperID, workID, title, authors,
	)
	require.NoError(t, err)
}

func insertProceeding(t *testing.T, workID, venue string, year int, misc string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO proceedings (work_id, venue, year, misc) VALUES ($1, $2, $3, $4)`,
		workID, venue, year, misc,
	)
	require.NoError(t, err)
}

func insertSocialPost(t *testing.T, paperID string, likes, retweets, views int64) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO social_posts (paper_id, likes, retweets, views, posted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		paperID, likes, retweets, views, time.Now().UTC(),
	)
	require.NoError(t, err)
}

func TestPgLookupRepository_FetchAuthors(t *testing.T) {
	cleanTables(t, "papers")
	repo := newLookupRepo(t)
	ctx := context.Background()

	insertPaper(t, "2501.00001", "W1", "Paper One", []string{"Ada Lovelace", "Alan Turing"})
	insertPaper(t, "2501.00002", "W2", "Paper Two", []string{})

	t.Run("returns stored authors", func(t *testing.T) {
		authors := repo.FetchAuthors(ctx, "2501.00001")
		assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, authors)
	})

	t.Run("empty author array yields empty slice", func(t *testing.T) {
		authors := repo.FetchAuthors(ctx, "2501.00002")
		assert.Empty(t, authors)
	})

	t.Run("unknown paper yields empty slice", func(t *testing.T) {
		authors := repo.FetchAuthors(ctx, "9999.99999")
		assert.Empty(t, authors)
	})
}

func TestPgLookupRepository_FetchVenue(t *testing.T) {
	cleanTables(t, "papers", "proceedings")
	repo := newLookupRepo(t)
	ctx := context.Background()

	insertPaper(t, "2501.00001", "W1", "Published Paper", []string{"Ada Lovelace"})
	insertPaper(t, "2501.00002", "W2", "Preprint", []string{"Alan Turing"})
	insertProceeding(t, "W1", "NeurIPS", 2024, `{"track": "Main Track", "status": "Accepted"}`)

	t.Run("returns joined venue info", func(t *testing.T) {
		venue, ok := repo.FetchVenue(ctx, "2501.00001")
		require.True(t, ok)
		assert.Equal(t, "NeurIPS", venue.Venue)
		assert.Equal(t, 2024, venue.Year)
		assert.Equal(t, "NeurIPS 2024 (Main Track, Accepted)", venue.DisplayString())
	})

	t.Run("paper without proceedings row is absent", func(t *testing.T) {
		_, ok := repo.FetchVenue(ctx, "2501.00002")
		assert.False(t, ok)
	})
}

func TestPgLookupRepository_FetchSocialImpact(t *testing.T) {
	cleanTables(t, "papers", "social_posts")
	repo := newLookupRepo(t)
	ctx := context.Background()

	insertPaper(t, "2501.00001", "W1", "Viral Paper", []string{"Ada Lovelace"})
	insertPaper(t, "2501.00002", "W2", "Quiet Paper", []string{"Alan Turing"})
	insertSocialPost(t, "2501.00001", 100, 20, 5000)
	insertSocialPost(t, "2501.00001", 50, 5, 1000)

	t.Run("aggregates engagement across posts", func(t *testing.T) {
		metrics, ok := repo.FetchSocialImpact(ctx, "2501.00001")
		require.True(t, ok)
		assert.Equal(t, int64(2), metrics.PostCount)
		assert.Equal(t, int64(150), metrics.Likes)
		assert.Equal(t, int64(25), metrics.Retweets)
		assert.Equal(t, int64(6000), metrics.Views)
	})

	t.Run("paper with no posts is absent", func(t *testing.T) {
		_, ok := repo.FetchSocialImpact(ctx, "2501.00002")
		assert.False(t, ok)
	})
}

func TestPgLookupRepository_CascadeDelete(t *testing.T) {
	cleanTables(t, "papers", "social_posts")
	repo := newLookupRepo(t)
	ctx := context.Background()

	insertPaper(t, "2501.00001", "W1", "Ephemeral Paper", []string{"Ada Lovelace"})
	insertSocialPost(t, "2501.00001", 10, 1, 100)

	_, err := testPool.Exec(ctx, `DELETE FROM papers WHERE paper_id = $1`, "2501.00001")
	require.NoError(t, err)

	_, ok := repo.FetchSocialImpact(ctx, "2501.00001")
	assert.False(t, ok)
}
