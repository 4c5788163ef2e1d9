package record

import "strings"

// Store holds a loaded record list. It is never mutated after construction;
// reloading builds a new Store.
type Store struct {
	records []Record
}

// NewStore copies records into an immutable store.
func NewStore(records []Record) *Store {
	cp := make([]Record, len(records))
	for i, r := range records {
		r.Capabilities = append([]string(nil), r.Capabilities...)
		cp[i] = r
	}
	return &Store{records: cp}
}

// All returns the records in their original order. The slice is a copy.
func (s *Store) All() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Get finds a record by its number or id. Matching is case-insensitive.
func (s *Store) Get(label string) (Record, bool) {
	if s == nil || label == "" {
		return Record{}, false
	}
	for _, r := range s.records {
		if strings.EqualFold(r.Number, label) || strings.EqualFold(r.ID, label) {
			return r, true
		}
	}
	return Record{}, false
}

// Sectors returns the distinct sector strings in first-seen order.
func (s *Store) Sectors() []string {
	if s == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range s.records {
		if seen[r.Sector] {
			continue
		}
		seen[r.Sector] = true
		out = append(out, r.Sector)
	}
	return out
}

// CapabilityIDs returns the distinct capability ids referenced by records, in first-seen order.
func (s *Store) CapabilityIDs() []string {
	if s == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range s.records {
		for _, c := range r.Capabilities {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
