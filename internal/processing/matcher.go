package processing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var termSeparator = regexp.MustCompile(`[\s,]+`)

// ParseTerms splits raw search input on whitespace and comma runs, lower-cases
// the pieces and drops empty tokens. Duplicates are kept.
func ParseTerms(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := termSeparator.Split(strings.ToLower(raw), -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MatchResult summarises keyword hits in one text.
type MatchResult struct {
	PerTerm      []int
	TotalHits    int
	HasAnyHit    bool
	Undetermined bool // text not extracted yet
}

// Matcher counts and locates literal, case-insensitive term occurrences.
// Scoring and highlighting both go through it so they always agree.
type Matcher struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewMatcher compiles one literal pattern per term. Terms are quoted so regex
// metacharacters never change the meaning of the search.
func NewMatcher(terms []string) *Matcher {
	m := &Matcher{
		terms:    make([]string, 0, len(terms)),
		patterns: make([]*regexp.Regexp, 0, len(terms)),
	}
	for _, term := range terms {
		if term == "" {
			continue
		}
		m.terms = append(m.terms, term)
		m.patterns = append(m.patterns, regexp.MustCompile("(?i)"+regexp.QuoteMeta(term)))
	}
	return m
}

// Terms returns the compiled terms in input order.
func (m *Matcher) Terms() []string {
	return m.terms
}

// Empty reports whether there is nothing to match.
func (m *Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// Count returns per-term and total non-overlapping occurrence counts.
// A nil text means extraction is still pending.
func (m *Matcher) Count(text *string) MatchResult {
	res := MatchResult{PerTerm: make([]int, len(m.patterns))}
	if text == nil {
		res.Undetermined = true
		return res
	}
	for i, p := range m.patterns {
		n := len(p.FindAllStringIndex(*text, -1))
		res.PerTerm[i] = n
		res.TotalHits += n
	}
	res.HasAnyHit = res.TotalHits > 0
	return res
}

// CountMatches is a convenience wrapper over NewMatcher(terms).Count(text).
func CountMatches(text *string, terms []string) MatchResult {
	return NewMatcher(terms).Count(text)
}

// Segment is a run of text that is either a keyword hit or plain text.
type Segment struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Highlight splits text into segments, marking every term occurrence.
// Overlapping hits from different terms are merged into one highlighted run.
func (m *Matcher) Highlight(text string) []Segment {
	if text == "" {
		return nil
	}

	var spans [][2]int
	for _, p := range m.patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, [2]int{loc[0], loc[1]})
		}
	}
	if len(spans) == 0 {
		return []Segment{{Text: text}}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i][0] == spans[j][0] {
			return spans[i][1] > spans[j][1]
		}
		return spans[i][0] < spans[j][0]
	})

	merged := [][2]int{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s[0] <= last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}

	segments := make([]Segment, 0, 2*len(merged)+1)
	pos := 0
	for _, s := range merged {
		if s[0] > pos {
			segments = append(segments, Segment{Text: text[pos:s[0]]})
		}
		segments = append(segments, Segment{Text: text[s[0]:s[1]], Highlight: true})
		pos = s[1]
	}
	if pos < len(text) {
		segments = append(segments, Segment{Text: text[pos:]})
	}
	return segments
}

// BadgeLabel formats a hit count the way the candidate list shows it.
func BadgeLabel(hits int) string {
	if hits > 99 {
		return "99+"
	}
	return strconv.Itoa(hits)
}
