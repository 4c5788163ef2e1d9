package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kokistudios/atlas/internal/record"
)

// ScoreDimension names one of the three ordinal score filters.
type ScoreDimension int

const (
	Significance ScoreDimension = iota
	Complexity
	Readiness
)

// ScoreDimensions lists the score filters in display order.
var ScoreDimensions = []ScoreDimension{Significance, Complexity, Readiness}

func (d ScoreDimension) String() string {
	switch d {
	case Significance:
		return "significance"
	case Complexity:
		return "complexity"
	case Readiness:
		return "readiness"
	default:
		return "unknown"
	}
}

// ParseScoreDimension accepts the current names and the legacy widget names
// (Impact, AISuitability, Novelty).
func ParseScoreDimension(name string) (ScoreDimension, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "significance", "impact":
		return Significance, nil
	case "complexity", "aisuitability":
		return Complexity, nil
	case "readiness", "novelty":
		return Readiness, nil
	}
	return 0, fmt.Errorf("unknown score filter %q (use significance, complexity or readiness)", name)
}

// ParseScore parses a score filter value. "" and "all" mean no constraint.
func ParseScore(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(record.MinScore) || n > int(record.MaxScore) {
		return nil, fmt.Errorf("invalid score %q: expected all, 1, 2 or 3", s)
	}
	return &n, nil
}

// State is the complete set of filter selections. A nil or empty selection
// on any dimension means "no constraint".
type State struct {
	Sectors      []string `json:"sectors,omitempty" yaml:"sectors,omitempty"`           // lowercase sector terms
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"` // capability ids
	SearchText   string   `json:"search,omitempty" yaml:"search,omitempty"`
	Significance *int     `json:"significance,omitempty" yaml:"significance,omitempty"`
	Complexity   *int     `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	Readiness    *int     `json:"readiness,omitempty" yaml:"readiness,omitempty"`
}

// WithSectors returns a copy of s with the sector terms replaced.
// Terms are trimmed and lowercased; blank terms are dropped.
func (s State) WithSectors(terms []string) State {
	s.Sectors = normalizeTerms(terms)
	return s
}

// WithCapabilities returns a copy of s with the capability selection replaced.
func (s State) WithCapabilities(ids []string) State {
	s.Capabilities = normalizeTerms(ids)
	return s
}

// WithSearchText returns a copy of s with the search text replaced.
func (s State) WithSearchText(text string) State {
	s.SearchText = text
	return s
}

// WithScore returns a copy of s with one score filter set; nil clears it.
func (s State) WithScore(dim ScoreDimension, value *int) State {
	var v *int
	if value != nil {
		n := *value
		v = &n
	}
	switch dim {
	case Significance:
		s.Significance = v
	case Complexity:
		s.Complexity = v
	case Readiness:
		s.Readiness = v
	}
	return s
}

// Score returns the selected value for dim, or nil.
func (s State) Score(dim ScoreDimension) *int {
	switch dim {
	case Significance:
		return s.Significance
	case Complexity:
		return s.Complexity
	case Readiness:
		return s.Readiness
	}
	return nil
}

// IsEmpty reports whether no dimension constrains the result.
func (s State) IsEmpty() bool {
	return len(Predicates(s)) == 0
}

// Describe returns a one-line summary of the enabled dimensions.
func (s State) Describe() string {
	var parts []string
	if len(s.Sectors) > 0 {
		parts = append(parts, "sector="+strings.Join(s.Sectors, "|"))
	}
	if len(s.Capabilities) > 0 {
		parts = append(parts, "capability="+strings.Join(s.Capabilities, "|"))
	}
	if s.SearchText != "" {
		parts = append(parts, fmt.Sprintf("search=%q", s.SearchText))
	}
	for _, dim := range ScoreDimensions {
		if v := s.Score(dim); v != nil {
			parts = append(parts, fmt.Sprintf("%s=%d", dim, *v))
		}
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, " ")
}

func normalizeTerms(terms []string) []string {
	var out []string
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
