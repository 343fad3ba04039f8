package screening

import (
	"fmt"
	"strings"

	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/processing"
)

// ListItem is one visible row of the candidate list.
type ListItem struct {
	Index     int           `json:"index"`
	ID        string        `json:"id"`
	Status    models.Status `json:"status"`
	Region    models.Region `json:"region,omitempty"`
	RegionTag bool          `json:"region_tag"`
	Matches   int           `json:"matches"`
	Badge     string        `json:"badge,omitempty"`
	Active    bool          `json:"active"`
}

// ListView is the rendered candidate list plus the counters around it.
type ListView struct {
	Items      []ListItem `json:"items"`
	FilterInfo string     `json:"filter_info,omitempty"`
	Focus      int        `json:"focus"`
	Kept       int        `json:"kept"`
	Total      int        `json:"total"`
	Indexing   string     `json:"indexing,omitempty"`
	CanExport  bool       `json:"can_export"`
}

// CandidateView describes the focused candidate for the detail pane.
type CandidateView struct {
	Index    int           `json:"index"`
	ID       string        `json:"id"`
	FileName string        `json:"file_name"`
	Status   models.Status `json:"status"`
	Region   models.Region `json:"region,omitempty"`
	Indexed  bool          `json:"indexed"`
	Matches  int           `json:"matches"`
	Visible  bool          `json:"visible"`
}

// List evaluates the filters against every candidate and returns the visible rows.
func (s *Session) List() ListView {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := processing.NewMatcher(s.filter.Keywords)
	view := ListView{
		Items: make([]ListItem, 0, len(s.candidates)),
		Focus: s.focus,
		Total: len(s.candidates),
	}

	for i, c := range s.candidates {
		if c.Status == models.StatusKept {
			view.Kept++
		}
		if !isVisible(c, s.filter, m) {
			continue
		}
		item := ListItem{
			Index:   i,
			ID:      c.ID,
			Status:  c.Status,
			Matches: hits(c, m),
			Active:  i == s.focus,
		}
		if c.Indexed() {
			item.Region = c.Extraction.Region
			item.RegionTag = c.Extraction.Region != models.RegionOthers
		}
		if item.Matches > 0 {
			item.Badge = processing.BadgeLabel(item.Matches) + " hits"
		}
		view.Items = append(view.Items, item)
	}

	view.FilterInfo = filterInfo(s.filter, len(view.Items))
	view.Indexing = s.indexingStatusLocked()
	view.CanExport = view.Kept > 0
	return view
}

func filterInfo(f models.FilterState, matches int) string {
	var parts []string
	if f.SelectedRegion != "" && f.SelectedRegion != models.RegionAll {
		parts = append(parts, "Region: "+string(f.SelectedRegion))
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf(`Keywords: "%s"`, strings.Join(f.Keywords, ", ")))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("Filtering by %s - %d matches", strings.Join(parts, " & "), matches)
}

func (s *Session) indexingStatusLocked() string {
	total := len(s.candidates)
	if total == 0 {
		return ""
	}
	done := 0
	for _, c := range s.candidates {
		if c.Indexed() {
			done++
		}
	}
	if done == total {
		return "Indexing complete"
	}
	return fmt.Sprintf("Indexing... %d/%d", done, total)
}

// Current returns the focused candidate, or false when nothing is focused.
func (s *Session) Current() (CandidateView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus < 0 || s.focus >= len(s.candidates) {
		return CandidateView{}, false
	}
	c := s.candidates[s.focus]
	m := processing.NewMatcher(s.filter.Keywords)
	v := CandidateView{
		Index:    s.focus,
		ID:       c.ID,
		FileName: c.FileName,
		Status:   c.Status,
		Indexed:  c.Indexed(),
		Matches:  hits(c, m),
		Visible:  isVisible(c, s.filter, m),
	}
	if c.Indexed() {
		v.Region = c.Extraction.Region
	}
	return v, true
}

// Candidate returns a copy of the candidate at index.
func (s *Session) Candidate(index int) (models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.candidates) {
		return models.Candidate{}, ErrOutOfRange
	}
	c := *s.candidates[index]
	if c.Extraction != nil {
		ext := *c.Extraction
		c.Extraction = &ext
	}
	return c, nil
}

// Len returns the number of candidates.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}
