package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kokistudios/atlas/internal/source"
)

// Score is an ordinal rating. 0 means unrated; valid ratings are 1..3.
type Score int

const (
	Unrated  Score = 0
	MinScore Score = 1
	MaxScore Score = 3
)

// Valid reports whether s is a rated value.
func (s Score) Valid() bool { return s >= MinScore && s <= MaxScore }

// UnmarshalJSON accepts numbers, numeric strings and null.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = Unrated
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*s = Unrated
			return nil
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("score %q is not an integer", str)
		}
		*s = Score(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("score %s is not an integer", data)
	}
	*s = Score(n)
	return nil
}

// Label is an identifier that may arrive as a JSON string or number.
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*l = Label(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier %s is neither string nor number", data)
	}
	*l = Label(n.String())
	return nil
}

// Record is one challenge entry. Records are read-only after load.
type Record struct {
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	Number       string   `json:"number,omitempty" yaml:"number,omitempty"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	Sector       string   `json:"sector" yaml:"sector"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Significance Score    `json:"significance,omitempty" yaml:"significance,omitempty"`
	Complexity   Score    `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	Readiness    Score    `json:"readiness,omitempty" yaml:"readiness,omitempty"`
}

// Label returns the display identifier: Number, falling back to ID.
func (r Record) Label() string {
	if r.Number != "" {
		return r.Number
	}
	return r.ID
}

// wireRecord mirrors the JSON shape; pointers detect absent required fields.
type wireRecord struct {
	ID           Label    `json:"id"`
	Number       Label    `json:"number"`
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Sector       *string  `json:"sector"`
	Capabilities []string `json:"capabilities"`
	Significance Score    `json:"significance"`
	Complexity   Score    `json:"complexity"`
	Readiness    Score    `json:"readiness"`
}

type wrapped struct {
	Challenges *[]wireRecord `json:"challenges"`
}

// Parse decodes a records document. Both a bare array and an object with a
// "challenges" field are accepted. A record missing title, description or
// sector fails the whole parse.
func Parse(data []byte) ([]Record, error) {
	var raw json.RawMessage
	if err := source.Decode(data, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	var wire []wireRecord
	switch {
	case len(raw) > 0 && raw[0] == '[':
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("invalid records array: %w", err)
		}
	case len(raw) > 0 && raw[0] == '{':
		var w wrapped
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("invalid records object: %w", err)
		}
		if w.Challenges == nil {
			return nil, fmt.Errorf("records object has no \"challenges\" field")
		}
		wire = *w.Challenges
	default:
		return nil, fmt.Errorf("records document must be an array or an object with \"challenges\"")
	}

	records := make([]Record, 0, len(wire))
	for i, w := range wire {
		var missing []string
		if w.Title == nil {
			missing = append(missing, "title")
		}
		if w.Description == nil {
			missing = append(missing, "description")
		}
		if w.Sector == nil {
			missing = append(missing, "sector")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("record %d (%s): missing %s", i, labelOf(w, i), strings.Join(missing, ", "))
		}
		records = append(records, Record{
			ID:           string(w.ID),
			Number:       string(w.Number),
			Title:        *w.Title,
			Description:  *w.Description,
			Sector:       *w.Sector,
			Capabilities: w.Capabilities,
			Significance: w.Significance,
			Complexity:   w.Complexity,
			Readiness:    w.Readiness,
		})
	}
	return records, nil
}

func labelOf(w wireRecord, i int) string {
	switch {
	case w.Number != "":
		return "number " + string(w.Number)
	case w.ID != "":
		return "id " + string(w.ID)
	default:
		return fmt.Sprintf("index %d", i)
	}
}
