package filter

import (
	"strings"

	"github.com/kokistudios/atlas/internal/record"
)

// Dimension identifies an independent filter axis.
type Dimension string

const (
	DimSector       Dimension = "sector"
	DimCapability   Dimension = "capability"
	DimSearch       Dimension = "search"
	DimSignificance Dimension = "significance"
	DimComplexity   Dimension = "complexity"
	DimReadiness    Dimension = "readiness"
)

// Predicate is the test contributed by one enabled dimension.
type Predicate struct {
	Dimension Dimension
	Match     func(r record.Record) bool
}

// Predicates returns one predicate per enabled dimension, in a fixed order.
// Dimensions with no constraint contribute nothing.
func Predicates(s State) []Predicate {
	var preds []Predicate

	if terms := normalizeTerms(s.Sectors); len(terms) > 0 {
		preds = append(preds, Predicate{DimSector, func(r record.Record) bool {
			return matchesSector(r.Sector, terms)
		}})
	}

	if ids := normalizeTerms(s.Capabilities); len(ids) > 0 {
		preds = append(preds, Predicate{DimCapability, func(r record.Record) bool {
			return matchesCapability(r.Capabilities, ids)
		}})
	}

	if s.SearchText != "" {
		q := strings.ToLower(s.SearchText)
		preds = append(preds, Predicate{DimSearch, func(r record.Record) bool {
			return matchesText(r, q)
		}})
	}

	if v := s.Significance; v != nil {
		want := record.Score(*v)
		preds = append(preds, Predicate{DimSignificance, func(r record.Record) bool {
			return r.Significance == want
		}})
	}
	if v := s.Complexity; v != nil {
		want := record.Score(*v)
		preds = append(preds, Predicate{DimComplexity, func(r record.Record) bool {
			return r.Complexity == want
		}})
	}
	if v := s.Readiness; v != nil {
		want := record.Score(*v)
		preds = append(preds, Predicate{DimReadiness, func(r record.Record) bool {
			return r.Readiness == want
		}})
	}

	return preds
}

// Evaluate returns the records that satisfy every enabled dimension,
// preserving their relative order.
func Evaluate(s State, records []record.Record) []record.Record {
	preds := Predicates(s)
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if matchesAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record passes s.
func Matches(s State, r record.Record) bool {
	return matchesAll(r, Predicates(s))
}

func matchesAll(r record.Record, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

func matchesSector(sector string, terms []string) bool {
	s := strings.ToLower(sector)
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func matchesCapability(caps []string, ids []string) bool {
	for _, c := range caps {
		c = strings.ToLower(c)
		for _, id := range ids {
			if c == id {
				return true
			}
		}
	}
	return false
}

func matchesText(r record.Record, query string) bool {
	return strings.Contains(strings.ToLower(r.Title), query) ||
		strings.Contains(strings.ToLower(r.Description), query)
}
