package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokistudios/atlas/internal/capability"
	"github.com/kokistudios/atlas/internal/record"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		sector string
		theme  Theme
		image  string
	}{
		{"Energy & Utilities", ThemeEnergy, "Energy.svg"},
		{"Water Utilities", ThemeEnergy, "Energy.svg"},
		{"Natural Environment", ThemeNatural, "Natural_Environment.svg"},
		{"Advanced MANUFACTURING", ThemeManufacturing, "Manufacturing.svg"},
		{"Transportation & Logistics", ThemeTransportation, "Transportation.svg"},
		{"Supply Chain", ThemeTransportation, "Transportation.svg"},
		{"Built Environment", ThemeBuilt, "Built_Environment.svg"},
		{"Health & Well-being", ThemeHealth, "Health.svg"},
		{"Well-being", ThemeHealth, "Health.svg"},
		{"Government", ThemeGovernment, "Government.svg"},
		{"Cross-cutting", ThemeCross, "Cross_Cutting.svg"},
		{"Space", ThemeEnergy, "Energy.svg"},
		{"", ThemeEnergy, "Energy.svg"},
		// Overlap resolves to the rule listed first.
		{"Government energy policy", ThemeEnergy, "Energy.svg"},
		{"Cross-cutting health", ThemeHealth, "Health.svg"},
		{"Manufacturing supply chain", ThemeManufacturing, "Manufacturing.svg"},
	}
	for _, tt := range tests {
		t.Run(tt.sector, func(t *testing.T) {
			rule := Classify(tt.sector)
			assert.Equal(t, tt.theme, rule.Theme)
			assert.Equal(t, tt.image, rule.Image)
			assert.Equal(t, tt.theme, ThemeFor(tt.sector))
			assert.Equal(t, tt.image, BackgroundImage(tt.sector))
		})
	}
}

func TestClassify_ThemeAndImageAgree(t *testing.T) {
	imageFor := map[Theme]string{}
	for _, r := range Rules() {
		imageFor[r.Theme] = r.Image
	}
	require.Len(t, imageFor, 8, "themes and images are one-to-one")

	sectors := []string{"energy", "natural environment", "health", "government", "???", "Built Environment", "utilities and health"}
	for _, s := range sectors {
		assert.Equal(t, imageFor[ThemeFor(s)], BackgroundImage(s), s)
	}
}

func TestRulesOrder(t *testing.T) {
	assert.Equal(t, []Theme{
		ThemeEnergy, ThemeNatural, ThemeManufacturing, ThemeTransportation,
		ThemeBuilt, ThemeHealth, ThemeGovernment, ThemeCross,
	}, Themes())
}

func TestStarRating(t *testing.T) {
	assert.Equal(t, []Glyph{}, StarRating(0))
	assert.Equal(t, []Glyph{GlyphFilled, GlyphEmpty, GlyphEmpty}, StarRating(1))
	assert.Equal(t, []Glyph{GlyphFilled, GlyphFilled, GlyphEmpty}, StarRating(2))
	assert.Equal(t, []Glyph{GlyphFilled, GlyphFilled, GlyphFilled}, StarRating(3))
	assert.Empty(t, StarRating(4))
	assert.Empty(t, StarRating(-1))
}

func TestGlyphAsset(t *testing.T) {
	assert.Equal(t, "fill-star.svg", GlyphAsset(GlyphFilled))
	assert.Equal(t, "star.svg", GlyphAsset(GlyphEmpty))
}

func TestCapabilitySlots(t *testing.T) {
	reg := capability.NewRegistry([]capability.Capability{
		{ID: "forecasting", Name: "Forecasting", Icon: "crystal-ball"},
	})

	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d capabilities", n), func(t *testing.T) {
			var caps []string
			for i := 0; i < n; i++ {
				caps = append(caps, fmt.Sprintf("cap_%d", i))
			}
			slots := CapabilitySlots(record.Record{Capabilities: caps}, reg, ThemeHealth)
			want := n
			if want > MaxSlots {
				want = MaxSlots
			}
			require.Len(t, slots, want)
			for i, s := range slots {
				assert.Equal(t, i, s.Index)
				assert.Equal(t, caps[i], s.CapabilityID)
			}
		})
	}
}

func TestCapabilitySlots_Resolution(t *testing.T) {
	reg := capability.NewRegistry([]capability.Capability{
		{ID: "forecasting", Name: "Forecasting", Icon: "crystal-ball"},
		{ID: "vvuq", Name: "Verification & Validation", Icon: "ignored"},
	})
	r := record.Record{Capabilities: []string{"vvuq", "forecasting", "unknown_cap", "fourth"}}

	slots := CapabilitySlots(r, reg, ThemeGovernment)
	require.Len(t, slots, 3)

	assert.Equal(t, Slot{Index: 0, CapabilityID: "vvuq", IconReference: "fa-solid fa-check-double", IconIsFontIcon: true, TooltipText: "Verification & Validation"}, slots[0])
	assert.Equal(t, Slot{Index: 1, CapabilityID: "forecasting", IconReference: "government/crystal-ball.svg", TooltipText: "Forecasting"}, slots[1])
	assert.Equal(t, Slot{Index: 2, CapabilityID: "unknown_cap", IconReference: "government/unknown_cap.svg", TooltipText: "unknown_cap"}, slots[2])
}

func TestMap(t *testing.T) {
	reg := capability.Empty()
	r := record.Record{
		Number:       "7",
		Title:        "Hospital flow",
		Description:  "Patient scheduling",
		Sector:       "Health & Well-being",
		Capabilities: []string{"decision_support"},
		Significance: 3,
		Complexity:   0,
		Readiness:    5,
	}

	card := Map(r, reg)
	assert.Equal(t, "7", card.Label)
	assert.Equal(t, "Hospital flow", card.Title)
	assert.Equal(t, "Patient scheduling", card.Description)
	assert.Equal(t, ThemeHealth, card.Theme)
	assert.Equal(t, "Health.svg", card.BackgroundImage)
	require.Len(t, card.Slots, 1)
	assert.True(t, card.Slots[0].IconIsFontIcon)
	assert.Equal(t, "decision_support", card.Slots[0].TooltipText)
	assert.Len(t, card.Significance, 3)
	assert.Empty(t, card.Complexity)
	assert.Empty(t, card.Readiness)
	assert.Equal(t, []string{"decision_support"}, card.Capabilities)
	assert.Equal(t, Scores{Significance: 3, Complexity: 0, Readiness: 5}, card.Scores)

	ratings := card.Ratings()
	require.Len(t, ratings, 3)
	assert.Equal(t, "Significance", ratings[0].Name)
	assert.Equal(t, "Readiness", ratings[2].Name)
}

func TestMapAll_PreservesOrder(t *testing.T) {
	records := []record.Record{
		{Number: "3", Sector: "Government"},
		{Number: "1", Sector: "Energy"},
		{Number: "2", Sector: "Cross-cutting"},
	}
	cards := MapAll(records, nil)
	require.Len(t, cards, 3)
	assert.Equal(t, "3", cards[0].Label)
	assert.Equal(t, ThemeGovernment, cards[0].Theme)
	assert.Equal(t, "1", cards[1].Label)
	assert.Equal(t, ThemeCross, cards[2].Theme)
	assert.NotNil(t, MapAll(nil, nil))
}

func TestMap_KeepsEveryCapability(t *testing.T) {
	r := record.Record{Sector: "Energy", Capabilities: []string{"a", "b", "c", "d", "e"}}
	card := Map(r, nil)
	assert.Len(t, card.Slots, MaxSlots)
	assert.Equal(t, r.Capabilities, card.Capabilities)

	r.Capabilities[0] = "changed"
	assert.Equal(t, "a", card.Capabilities[0], "card must not alias the record slice")

	assert.NotNil(t, Map(record.Record{Sector: "Energy"}, nil).Capabilities)
}

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme("")
	require.NoError(t, err)
	assert.Equal(t, ThemeEnergy, th)

	th, err = ParseTheme(" Health ")
	require.NoError(t, err)
	assert.Equal(t, ThemeHealth, th)

	for _, want := range Themes() {
		got, err := ParseTheme(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseTheme("foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "natural")
}
