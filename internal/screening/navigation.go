package screening

import (
	"log/slog"

	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/processing"
)

const (
	msgNoMoreMatching = "No more pending candidates matching filter."
	msgAllScreened    = "All candidates screened!"
)

// NavResult describes where focus ended up after a navigation step.
type NavResult struct {
	Focus   int    `json:"focus"`
	Found   bool   `json:"found"`
	Changed bool   `json:"changed"`
	Message string `json:"message,omitempty"`
}

// NextPending scans forward from just after from, wrapping to the start, for the
// first pending candidate accepted by visible. from itself is never returned.
// It returns -1 when nothing qualifies.
func NextPending(cands []*models.Candidate, from int, visible func(*models.Candidate) bool) int {
	n := len(cands)
	if n == 0 {
		return -1
	}
	start := from + 1
	for i := start; i < n; i++ {
		if cands[i].Status == models.StatusPending && visible(cands[i]) {
			return i
		}
	}
	for i := 0; i < start && i < n; i++ {
		if i == from {
			continue
		}
		if cands[i].Status == models.StatusPending && visible(cands[i]) {
			return i
		}
	}
	return -1
}

// SelectNextPending moves focus to the next visible pending candidate.
func (s *Session) SelectNextPending() NavResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectNextPendingLocked()
}

func (s *Session) selectNextPendingLocked() NavResult {
	m := processing.NewMatcher(s.filter.Keywords)
	next := NextPending(s.candidates, s.focus, func(c *models.Candidate) bool {
		return isVisible(c, s.filter, m)
	})
	if next == -1 {
		msg := msgAllScreened
		if s.filter.Active() {
			msg = msgNoMoreMatching
		}
		return NavResult{Focus: s.focus, Message: msg}
	}
	s.focus = next
	return NavResult{Focus: next, Found: true, Changed: true}
}

// Select focuses the candidate at index.
func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.candidates) {
		return ErrOutOfRange
	}
	s.focus = index
	return nil
}

// Judge records a decision for the focused candidate and advances to the next
// pending one. Only Kept and Rejected are decisions; anything else, or a call
// without a focused candidate, does nothing. A focused candidate that was
// already judged is re-judged directly, so Kept can become Rejected.
func (s *Session) Judge(status models.Status) NavResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status != models.StatusKept && status != models.StatusRejected {
		return NavResult{Focus: s.focus}
	}
	if s.focus < 0 || s.focus >= len(s.candidates) {
		return NavResult{Focus: s.focus}
	}
	c := s.candidates[s.focus]
	s.history = append(s.history, models.HistoryEntry{CandidateIndex: s.focus, PreviousStatus: c.Status})
	prev := c.Status
	c.Status = status
	s.emit(models.ReviewEvent{Type: models.EventJudged, CandidateID: c.ID, Status: status, PreviousStatus: prev})
	s.log.Debug("candidate judged", slog.String("id", c.ID), slog.String("status", string(status)))

	res := s.selectNextPendingLocked()
	res.Changed = true
	return res
}

// Undo reverts the most recent judgement and focuses the affected candidate,
// even if the current filters would hide it. With no history it does nothing.
func (s *Session) Undo() NavResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return NavResult{Focus: s.focus}
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	c := s.candidates[last.CandidateIndex]
	undone := c.Status
	c.Status = last.PreviousStatus
	s.focus = last.CandidateIndex
	s.emit(models.ReviewEvent{Type: models.EventUndone, CandidateID: c.ID, Status: c.Status, PreviousStatus: undone})

	return NavResult{Focus: s.focus, Found: true, Changed: true}
}

// HistoryLen returns how many judgements can still be undone.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
