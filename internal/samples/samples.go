// Package samples loads the static fallback payload served when the
// retrieval service is unavailable.
package samples

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/helixir/paper-search-gateway/internal/domain"
)

// DefaultRepeat is how many times the sample list is repeated in a fallback
// response when no explicit repeat count is configured.
const DefaultRepeat = 5

// Provider serves a repeated copy of a sample result list loaded at startup.
type Provider struct {
	items  []domain.SearchResultItem
	repeat int
}

// Load reads the sample result file and returns a provider repeating it
// repeat times per response. A non-positive repeat falls back to
// DefaultRepeat.
func Load(path string, repeat int) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sample data: %w", err)
	}

	var items []domain.SearchResultItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing sample data: %w", err)
	}

	return New(items, repeat), nil
}

// New creates a provider from an in-memory sample list.
func New(items []domain.SearchResultItem, repeat int) *Provider {
	if repeat <= 0 {
		repeat = DefaultRepeat
	}
	return &Provider{items: items, repeat: repeat}
}

// Fallback returns the sample list repeated the configured number of times.
// Every call returns a fresh slice so callers may modify the result.
func (p *Provider) Fallback() []domain.SearchResultItem {
	out := make([]domain.SearchResultItem, 0, len(p.items)*p.repeat)
	for i := 0; i < p.repeat; i++ {
		out = append(out, p.items...)
	}
	return out
}
