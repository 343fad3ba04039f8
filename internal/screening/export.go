package screening

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/pdf"
	"github.com/phpscreening/screener/internal/processing"
)

// Export packs the original files of all kept candidates into one archive.
// Statuses are never touched, so a failed export can simply be retried.
func (s *Session) Export(ctx context.Context) ([]byte, int, error) {
	s.mu.Lock()
	type entry struct{ name, key string }
	var kept []entry
	for _, c := range s.candidates {
		if c.Status == models.StatusKept {
			kept = append(kept, entry{name: c.FileName, key: c.SourceFile})
		}
	}
	s.mu.Unlock()

	if len(kept) == 0 {
		return nil, 0, ErrNothingToExport
	}

	blobs := make([]NamedBlob, 0, len(kept))
	for _, e := range kept {
		data, err := s.store.Get(ctx, e.key)
		if err != nil {
			return nil, 0, fmt.Errorf("load %s: %w", e.name, err)
		}
		name := e.name
		if s.archiveFolder != "" {
			name = path.Join(s.archiveFolder, e.name)
		}
		blobs = append(blobs, NamedBlob{Name: name, Data: data})
	}

	out, err := s.archiver.Build(blobs)
	if err != nil {
		return nil, 0, fmt.Errorf("build archive: %w", err)
	}

	s.mu.Lock()
	s.emit(models.ReviewEvent{Type: models.EventExported, Count: len(blobs)})
	s.mu.Unlock()
	s.log.Info("exported kept candidates", slog.Int("count", len(blobs)), slog.Int("bytes", len(out)))
	return out, len(blobs), nil
}

// PageView is a rendered page with keyword highlights applied to its text spans.
type PageView struct {
	CandidateID string            `json:"candidate_id"`
	Page        int               `json:"page"`
	PageCount   int               `json:"page_count"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Spans       []HighlightedSpan `json:"spans"`
}

// HighlightedSpan is a positioned text span split into highlight segments.
type HighlightedSpan struct {
	pdf.Span
	Segments []processing.Segment `json:"segments"`
}

// RenderPage renders one page of the candidate at index for the detail view.
// Errors are returned to the caller; session state is not affected.
func (s *Session) RenderPage(ctx context.Context, index, pageIndex int, scale float64) (*PageView, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.candidates) {
		s.mu.Unlock()
		return nil, ErrOutOfRange
	}
	c := s.candidates[index]
	id, key := c.ID, c.SourceFile
	m := processing.NewMatcher(s.filter.Keywords)
	s.mu.Unlock()

	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	page, err := s.doc.RenderPage(ctx, data, pageIndex, scale)
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", id, pageIndex, err)
	}

	view := &PageView{
		CandidateID: id,
		Page:        page.Index,
		PageCount:   page.Count,
		Width:       page.Width,
		Height:      page.Height,
		Spans:       make([]HighlightedSpan, 0, len(page.Spans)),
	}
	for _, span := range page.Spans {
		view.Spans = append(view.Spans, HighlightedSpan{Span: span, Segments: m.Highlight(span.Text)})
	}
	return view, nil
}
