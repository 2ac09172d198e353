// Package format maps raw retrieval service records into the display schema
// returned by the search API.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/retrieval"
)

// paperIDPattern matches arXiv-style identifiers (four digits, a dot, five
// digits) embedded in a URL.
var paperIDPattern = regexp.MustCompile(`\d{4}\.\d{5}`)

// releaseDateLayout is the display layout for release dates, e.g. "Oct 20, 2025".
const releaseDateLayout = "Jan 02, 2006"

// sourceDateLayouts are tried in order when parsing upstream date strings.
var sourceDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DeepRecord maps a deep search record into the display schema. The summary
// comes from the record's tldr, the meta field carries the relevance score,
// and the ephemeral paper identifier is populated for enrichment.
func DeepRecord(rec retrieval.RawRecord) domain.SearchResultItem {
	return domain.SearchResultItem{
		Title:       rec.Title,
		Abstract:    rec.TLDR,
		Authors:     JoinAuthors(rec.Authors),
		Orgs:        JoinOrganizations(rec.Authors),
		ReleaseDate: FormatReleaseDate(rec.Dates),
		URL:         rec.URLs,
		Meta:        fmt.Sprintf("Relevance: %.3f", rec.Score),
		PaperID:     ExtractPaperID(rec.URLs),
	}
}

// BasicRecord maps a plain retrieval record into the display schema. The
// summary comes from the record's abstract and no relevance annotation or
// paper identifier is produced.
func BasicRecord(rec retrieval.RawRecord) domain.SearchResultItem {
	return domain.SearchResultItem{
		Title:    rec.Title,
		Abstract: rec.Abstract,
		Authors:  JoinAuthors(rec.Authors),
		URL:      rec.URLs,
	}
}

// JoinAuthors joins cleaned author names with ", ". Names that survive
// cleaning keep their original order; rejected names are skipped entirely.
func JoinAuthors(authors []retrieval.RawAuthor) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if name := CleanText(a.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// JoinOrganizations joins cleaned, de-duplicated organization names with
// ", ", preserving first-seen order across all authors.
func JoinOrganizations(authors []retrieval.RawAuthor) string {
	seen := make(map[string]struct{})
	var orgs []string
	for _, a := range authors {
		for _, org := range a.Organizations {
			cleaned := CleanText(org)
			if cleaned == "" {
				continue
			}
			if _, dup := seen[cleaned]; dup {
				continue
			}
			seen[cleaned] = struct{}{}
			orgs = append(orgs, cleaned)
		}
	}
	return strings.Join(orgs, ", ")
}

// CleanText trims the string and rejects values containing no alphabetic
// characters at all, guarding against upstream placeholder values.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if unicode.IsLetter(r) {
			return s
		}
	}
	return ""
}

// FormatReleaseDate renders the first date entry as an abbreviated month,
// two-digit day and four-digit year. It returns "" when no date is present
// or none of the known layouts parse it.
func FormatReleaseDate(dates []string) string {
	if len(dates) == 0 {
		return ""
	}

	raw := strings.TrimSpace(dates[0])
	if raw == "" {
		return ""
	}

	for _, layout := range sourceDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(releaseDateLayout)
		}
	}
	return ""
}

// ExtractPaperID derives the arXiv-style paper identifier from the first
// URL in the record's url field, which may be a single string or a list.
// It returns "" when no identifier pattern is found.
func ExtractPaperID(urls any) string {
	return paperIDPattern.FindString(firstURL(urls))
}

// firstURL normalizes the polymorphic url field to its first string value.
func firstURL(urls any) string {
	switch v := urls.(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
