package view

import (
	"fmt"
	"strings"
)

// Theme is the visual category derived from a record's sector.
type Theme string

const (
	ThemeEnergy         Theme = "energy"
	ThemeNatural        Theme = "natural"
	ThemeManufacturing  Theme = "manufacturing"
	ThemeTransportation Theme = "transportation"
	ThemeBuilt          Theme = "built"
	ThemeHealth         Theme = "health"
	ThemeGovernment     Theme = "government"
	ThemeCross          Theme = "cross"
)

// ThemeRule maps any of its sector terms to a theme and background image.
type ThemeRule struct {
	Terms []string
	Theme Theme
	Image string
}

// themeRules is walked top to bottom; the first rule with a matching term wins.
// Order matters when a sector contains terms from more than one rule.
var themeRules = []ThemeRule{
	{Terms: []string{"energy", "utilities"}, Theme: ThemeEnergy, Image: "Energy.svg"},
	{Terms: []string{"natural environment"}, Theme: ThemeNatural, Image: "Natural_Environment.svg"},
	{Terms: []string{"manufacturing"}, Theme: ThemeManufacturing, Image: "Manufacturing.svg"},
	{Terms: []string{"transportation", "supply chain"}, Theme: ThemeTransportation, Image: "Transportation.svg"},
	{Terms: []string{"built environment"}, Theme: ThemeBuilt, Image: "Built_Environment.svg"},
	{Terms: []string{"health", "well-being"}, Theme: ThemeHealth, Image: "Health.svg"},
	{Terms: []string{"government"}, Theme: ThemeGovernment, Image: "Government.svg"},
	{Terms: []string{"cross-cutting"}, Theme: ThemeCross, Image: "Cross_Cutting.svg"},
}

// defaultRule applies when no rule matches.
var defaultRule = ThemeRule{Theme: ThemeEnergy, Image: "Energy.svg"}

// Rules returns the classification ladder in priority order.
func Rules() []ThemeRule {
	out := make([]ThemeRule, len(themeRules))
	copy(out, themeRules)
	return out
}

// Themes returns every theme in ladder order.
func Themes() []Theme {
	out := make([]Theme, 0, len(themeRules))
	for _, r := range themeRules {
		out = append(out, r.Theme)
	}
	return out
}

// ParseTheme resolves a theme name case-insensitively. Empty means energy.
func ParseTheme(s string) (Theme, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ThemeEnergy, nil
	}
	themes := Themes()
	for _, t := range themes {
		if Theme(name) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q (use one of %v)", s, themes)
}

// Classify returns the first rule matching sector, or the energy default.
func Classify(sector string) ThemeRule {
	s := strings.ToLower(sector)
	for _, rule := range themeRules {
		for _, term := range rule.Terms {
			if strings.Contains(s, term) {
				return rule
			}
		}
	}
	return defaultRule
}

// ThemeFor returns the theme for sector.
func ThemeFor(sector string) Theme {
	return Classify(sector).Theme
}

// BackgroundImage returns the background image filename for sector.
func BackgroundImage(sector string) string {
	return Classify(sector).Image
}
