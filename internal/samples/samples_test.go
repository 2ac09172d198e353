package samples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-search-gateway/internal/domain"
)

func TestLoad(t *testing.T) {
	t.Run("loads and repeats sample file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test_data.json")
		payload := `[{"title":"Sample Paper","abs":"A sample.","authors":"Ada Lovelace","orgs":"","release_date":"","url":"https://example.com","meta":""}]`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

		p, err := Load(path, 5)
		require.NoError(t, err)

		fallback := p.Fallback()
		require.Len(t, fallback, 5)
		for _, item := range fallback {
			assert.Equal(t, "Sample Paper", item.Title)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"), 5)
		assert.Error(t, err)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test_data.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not a list`), 0o644))

		_, err := Load(path, 5)
		assert.Error(t, err)
	})
}

func TestProvider_Fallback(t *testing.T) {
	items := []domain.SearchResultItem{{Title: "One"}, {Title: "Two"}}

	t.Run("repeats the list in order", func(t *testing.T) {
		p := New(items, 3)
		out := p.Fallback()
		require.Len(t, out, 6)
		assert.Equal(t, "One", out[0].Title)
		assert.Equal(t, "Two", out[1].Title)
		assert.Equal(t, "One", out[4].Title)
	})

	t.Run("non-positive repeat uses the default", func(t *testing.T) {
		p := New(items, 0)
		assert.Len(t, p.Fallback(), len(items)*DefaultRepeat)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		p := New(items, 2)
		out := p.Fallback()
		out[0].Title = "mutated"
		assert.Equal(t, "One", p.Fallback()[0].Title)
	})
}
