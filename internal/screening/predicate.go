package screening

import (
	"strings"

	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/processing"
)

func parseKeywords(raw string) []string {
	return processing.ParseTerms(raw)
}

// IsVisible reports whether c passes every active filter in f.
func IsVisible(c *models.Candidate, f models.FilterState) bool {
	return isVisible(c, f, processing.NewMatcher(f.Keywords))
}

// isVisible checks the id filter, then the region filter, then keywords.
// Candidates still waiting for extraction are hidden by a region filter but
// shown under a keyword filter.
func isVisible(c *models.Candidate, f models.FilterState, m *processing.Matcher) bool {
	if f.IDSubstring != "" && !strings.Contains(strings.ToLower(c.ID), strings.ToLower(f.IDSubstring)) {
		return false
	}

	if f.SelectedRegion != "" && f.SelectedRegion != models.RegionAll {
		if !c.Indexed() {
			return false
		}
		if c.Extraction.Region != f.SelectedRegion {
			return false
		}
	}

	if m.Empty() || !c.Indexed() {
		return true
	}
	return m.Count(&c.Extraction.Text).HasAnyHit
}

// hits returns the total keyword hits for the list badge, zero when unknown.
func hits(c *models.Candidate, m *processing.Matcher) int {
	if m.Empty() || !c.Indexed() {
		return 0
	}
	return m.Count(&c.Extraction.Text).TotalHits
}
