package models

import (
	"fmt"
	"strings"
)

// Status is the review state of a candidate.
type Status string

const (
	StatusPending  Status = "pending"
	StatusKept     Status = "kept"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts the judged statuses only; pending is restored by undo, never set directly.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusKept:
		return StatusKept, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown judgement %q", raw)
	}
}

// Region is the coarse geography bucket inferred from address text.
type Region string

const (
	RegionSwitzerland Region = "Switzerland"
	RegionEurope      Region = "Europe"
	RegionDeveloped   Region = "Developed"
	RegionOthers      Region = "Others"

	// RegionAll is only meaningful as a filter selection.
	RegionAll Region = "All"
)

// ParseRegionFilter maps a filter control value onto a Region, defaulting to All.
func ParseRegionFilter(raw string) (Region, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RegionAll, nil
	}
	for _, r := range []Region{RegionAll, RegionSwitzerland, RegionEurope, RegionDeveloped, RegionOthers} {
		if strings.EqualFold(trimmed, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", raw)
}

// Extraction holds the results of background text extraction. Text and region
// are always set together, so a candidate either has both or neither.
type Extraction struct {
	Text   string
	Region Region
}

// Candidate is one screened document.
type Candidate struct {
	ID         string
	FileName   string
	SourceFile string // blob store key
	Status     Status
	Extraction *Extraction
}

// Indexed reports whether background extraction has completed.
func (c *Candidate) Indexed() bool {
	return c.Extraction != nil
}

// HistoryEntry records one status transition for undo.
type HistoryEntry struct {
	CandidateIndex int
	PreviousStatus Status
}

// FilterState is the transient filter selection driving visibility.
type FilterState struct {
	IDSubstring    string   `json:"id"`
	Keywords       []string `json:"keywords"`
	SelectedRegion Region   `json:"region"`
}

// Active reports whether a region or keyword filter narrows the list.
// The ID filter is deliberately not counted.
func (f FilterState) Active() bool {
	return len(f.Keywords) > 0 || (f.SelectedRegion != "" && f.SelectedRegion != RegionAll)
}
