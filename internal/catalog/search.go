package catalog

import (
	"os"
	"path"
	"strings"

	"github.com/vitrine/vitrine/pkg/models"
)

const DefaultSearchLimit = 25

type SearchOptions struct {
	// Keywords must all be present (case-insensitive) for a record to match.
	Keywords []string
	// Categories restricts matches to the given categories when non-empty.
	Categories []string
	// Limit caps the number of hits; <= 0 means DefaultSearchLimit.
	Limit int
	// FilenamesOnly skips file content and searches names and titles only.
	FilenamesOnly bool
}

// SearchRecords runs a keyword search over catalog records. The searchable
// text for each record is its filename, relative path and title, plus the
// file content unless FilenamesOnly is set.
func SearchRecords(recs []*models.TemplateRecord, opts SearchOptions) []models.SearchHit {
	keywords := make([]string, 0, len(opts.Keywords))
	for _, kw := range opts.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	categories := make(map[string]struct{}, len(opts.Categories))
	for _, c := range opts.Categories {
		categories[c] = struct{}{}
	}

	var hits []models.SearchHit
	for _, rec := range recs {
		if len(categories) > 0 {
			if _, ok := categories[rec.Category]; !ok {
				continue
			}
		}

		parts := []string{
			path.Base(rec.RelativePath),
			rec.RelativePath,
			rec.Title,
		}
		if !opts.FilenamesOnly {
			if content, err := os.ReadFile(rec.AbsolutePath); err == nil {
				parts = append(parts, string(content))
			}
		}

		matched := matchKeywords(strings.Join(parts, "\n"), keywords)
		if matched == nil {
			continue
		}

		hits = append(hits, models.SearchHit{TemplateRecord: *rec, Matched: matched})
		if len(hits) >= limit {
			break
		}
	}
	return hits
}

// Search runs SearchRecords over the stored catalog.
func (m *Manager) Search(opts SearchOptions) ([]models.SearchHit, error) {
	recs, err := m.List()
	if err != nil {
		return nil, err
	}
	return SearchRecords(recs, opts), nil
}

// matchKeywords returns the matched keywords, or nil unless all matched.
func matchKeywords(text string, keywords []string) []string {
	lowered := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) != len(keywords) {
		return nil
	}
	return matched
}
