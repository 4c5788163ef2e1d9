package view

import (
	"github.com/kokistudios/atlas/internal/capability"
	"github.com/kokistudios/atlas/internal/record"
)

// MaxSlots is the number of capability icons a card can show.
const MaxSlots = 3

// Glyph is one star in a rating.
type Glyph string

const (
	GlyphFilled Glyph = "filled"
	GlyphEmpty  Glyph = "empty"
)

// GlyphAsset returns the icon filename for a star glyph.
func GlyphAsset(g Glyph) string {
	if g == GlyphFilled {
		return "fill-star.svg"
	}
	return "star.svg"
}

// StarRating maps a score to exactly three glyphs. Unrated and out-of-range
// scores produce no glyphs at all, not three empty stars.
func StarRating(score record.Score) []Glyph {
	switch score {
	case 1:
		return []Glyph{GlyphFilled, GlyphEmpty, GlyphEmpty}
	case 2:
		return []Glyph{GlyphFilled, GlyphFilled, GlyphEmpty}
	case 3:
		return []Glyph{GlyphFilled, GlyphFilled, GlyphFilled}
	default:
		return []Glyph{}
	}
}

// Slot is one capability icon position on a card.
type Slot struct {
	Index          int    `json:"index" yaml:"index"`
	CapabilityID   string `json:"capability_id" yaml:"capability_id"`
	IconReference  string `json:"icon_reference" yaml:"icon_reference"`
	IconIsFontIcon bool   `json:"icon_is_font_icon" yaml:"icon_is_font_icon"`
	TooltipText    string `json:"tooltip_text" yaml:"tooltip_text"`
}

// CapabilitySlots resolves the first MaxSlots capabilities of r.
func CapabilitySlots(r record.Record, reg *capability.Registry, theme Theme) []Slot {
	n := len(r.Capabilities)
	if n > MaxSlots {
		n = MaxSlots
	}
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		id := r.Capabilities[i]
		icon := reg.DisplayIcon(id, string(theme))
		slots = append(slots, Slot{
			Index:          i,
			CapabilityID:   id,
			IconReference:  icon.Reference,
			IconIsFontIcon: icon.FontIcon,
			TooltipText:    reg.Name(id),
		})
	}
	return slots
}

// Card is the render-ready view of one record.
type Card struct {
	Label           string  `json:"label" yaml:"label"`
	Title           string  `json:"title" yaml:"title"`
	Description     string  `json:"description" yaml:"description"`
	Sector          string  `json:"sector" yaml:"sector"`
	Theme           Theme   `json:"theme" yaml:"theme"`
	BackgroundImage string  `json:"background_image" yaml:"background_image"`
	Slots           []Slot  `json:"slots" yaml:"slots"`
	Significance    []Glyph `json:"significance" yaml:"significance"`
	Complexity      []Glyph `json:"complexity" yaml:"complexity"`
	Readiness       []Glyph `json:"readiness" yaml:"readiness"`
	// Capabilities is the record's full list; Slots shows at most MaxSlots of it.
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Scores       Scores   `json:"scores" yaml:"scores"`
}

// Scores are the raw record scores behind the star ratings.
type Scores struct {
	Significance int `json:"significance" yaml:"significance"`
	Complexity   int `json:"complexity" yaml:"complexity"`
	Readiness    int `json:"readiness" yaml:"readiness"`
}

// Map derives the card view of r. It has no side effects.
func Map(r record.Record, reg *capability.Registry) Card {
	rule := Classify(r.Sector)
	return Card{
		Label:           r.Label(),
		Title:           r.Title,
		Description:     r.Description,
		Sector:          r.Sector,
		Theme:           rule.Theme,
		BackgroundImage: rule.Image,
		Slots:           CapabilitySlots(r, reg, rule.Theme),
		Significance:    StarRating(r.Significance),
		Complexity:      StarRating(r.Complexity),
		Readiness:       StarRating(r.Readiness),
		Capabilities:    append([]string{}, r.Capabilities...),
		Scores: Scores{
			Significance: int(r.Significance),
			Complexity:   int(r.Complexity),
			Readiness:    int(r.Readiness),
		},
	}
}

// MapAll maps records in order.
func MapAll(records []record.Record, reg *capability.Registry) []Card {
	cards := make([]Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, Map(r, reg))
	}
	return cards
}

// Ratings pairs each score dimension label with its glyphs, in display order.
func (c Card) Ratings() []Rating {
	return []Rating{
		{Name: "Significance", Glyphs: c.Significance},
		{Name: "Complexity", Glyphs: c.Complexity},
		{Name: "Readiness", Glyphs: c.Readiness},
	}
}

// Rating is a labelled star sequence.
type Rating struct {
	Name   string
	Glyphs []Glyph
}
