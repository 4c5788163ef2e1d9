package ui

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/kokistudios/atlas/internal/view"
)

// themeColors gives each card theme its border and accent color.
var themeColors = map[view.Theme]lipgloss.Color{
	view.ThemeEnergy:         lipgloss.Color("214"),
	view.ThemeNatural:        lipgloss.Color("34"),
	view.ThemeManufacturing:  lipgloss.Color("245"),
	view.ThemeTransportation: lipgloss.Color("33"),
	view.ThemeBuilt:          lipgloss.Color("136"),
	view.ThemeHealth:         lipgloss.Color("197"),
	view.ThemeGovernment:     lipgloss.Color("99"),
	view.ThemeCross:          lipgloss.Color("37"),
}

// ThemeColor returns the accent color for a theme.
func ThemeColor(t view.Theme) lipgloss.Color {
	if c, ok := themeColors[t]; ok {
		return c
	}
	return themeColors[view.ThemeEnergy]
}

// Assets holds the base paths card assets are served from.
type Assets struct {
	Images string `json:"images" yaml:"images"`
	Icons  string `json:"icons" yaml:"icons"`
}

// DefaultAssets matches the layout the card images ship in.
var DefaultAssets = Assets{Images: "images/", Icons: "images/icons/"}

// Background returns the full background image path for a card.
func (a Assets) Background(c view.Card) string {
	return a.Images + c.BackgroundImage
}

// Icon returns the full path of a file icon, or the class string of a font icon.
func (a Assets) Icon(s view.Slot) string {
	if s.IconIsFontIcon {
		return s.IconReference
	}
	return a.Icons + s.IconReference
}

// Star returns the full path of a star glyph image.
func (a Assets) Star(g view.Glyph) string {
	return a.Icons + view.GlyphAsset(g)
}

// TermWidth returns the terminal width, defaulting to 80 if unable to detect.
func TermWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// Stars renders a glyph sequence as text. An unrated score renders as "".
func Stars(glyphs []view.Glyph) string {
	var b strings.Builder
	for _, g := range glyphs {
		if g == view.GlyphFilled {
			b.WriteString("★")
		} else {
			b.WriteString("☆")
		}
	}
	return b.String()
}

// slotMarker distinguishes icon-font capabilities from file-icon ones in text output.
func slotMarker(s view.Slot) string {
	if s.IconIsFontIcon {
		return "●"
	}
	return "◇"
}

// Truncate shortens s to max runes, adding an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// RenderCard draws one card as a bordered box of the given outer width.
func RenderCard(c view.Card, width int) string {
	if width < 20 {
		width = 20
	}
	inner := width - 4
	color := ThemeColor(c.Theme)

	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render("#" + c.Label)
	budget := inner - utf8.RuneCountInString(c.Label) - 2
	if budget < 0 {
		budget = 0
	}
	sector := dimStyle.Render(Truncate(c.Sector, budget))
	title := boldStyle.Render(lipgloss.NewStyle().Width(inner).Render(c.Title))

	desc := lipgloss.NewStyle().Width(inner).Render(PlainText(c.Description))
	if lines := strings.Split(desc, "\n"); len(lines) > 3 {
		lines[2] = Truncate(strings.TrimRight(lines[2], " "), inner-3) + "..."
		desc = strings.Join(lines[:3], "\n")
	}

	var caps []string
	for _, s := range c.Slots {
		caps = append(caps, slotMarker(s)+" "+Truncate(s.TooltipText, inner-2))
	}

	var ratings []string
	for _, r := range c.Ratings() {
		ratings = append(ratings, fmt.Sprintf("%-13s%s", r.Name, lipgloss.NewStyle().Foreground(color).Render(Stars(r.Glyphs))))
	}

	parts := []string{label + " " + sector, title, dimStyle.Render(desc)}
	if len(caps) > 0 {
		parts = append(parts, strings.Join(caps, "\n"))
	}
	parts = append(parts, strings.Join(ratings, "\n"))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		PaddingLeft(1).
		PaddingRight(1).
		Width(width - 2).
		Render(strings.Join(parts, "\n\n"))
}

// GridColumns returns how many cards of cardWidth fit in termWidth.
func GridColumns(termWidth, cardWidth int) int {
	if cardWidth <= 0 {
		return 1
	}
	n := termWidth / (cardWidth + 1)
	if n < 1 {
		n = 1
	}
	return n
}

// RenderGrid lays cards out in rows of columns cards each.
func RenderGrid(cards []view.Card, columns, cardWidth int) string {
	if columns < 1 {
		columns = 1
	}
	var rows []string
	for i := 0; i < len(cards); i += columns {
		end := i + columns
		if end > len(cards) {
			end = len(cards)
		}
		var row []string
		for _, c := range cards[i:end] {
			row = append(row, RenderCard(c, cardWidth), " ")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// DetailMarkdown builds the markdown shown by the detail view of one card.
func DetailMarkdown(c view.Card, assets Assets) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s · %s\n\n", c.Label, c.Title)
	fmt.Fprintf(&b, "**Sector:** %s  \n", c.Sector)
	fmt.Fprintf(&b, "**Theme:** %s (`%s`)\n\n", c.Theme, assets.Background(c))

	desc, err := ToMarkdown(c.Description)
	if err != nil {
		desc = c.Description
	}
	b.WriteString(desc)
	b.WriteString("\n\n## Scores\n\n| Dimension | Rating |\n|---|---|\n")
	scores := []int{c.Scores.Significance, c.Scores.Complexity, c.Scores.Readiness}
	for i, rating := range c.Ratings() {
		stars := Stars(rating.Glyphs)
		if stars == "" {
			stars = "unrated"
		} else {
			stars = fmt.Sprintf("%s (%d)", stars, scores[i])
		}
		fmt.Fprintf(&b, "| %s | %s |\n", rating.Name, stars)
	}

	b.WriteString("\n## Capabilities\n\n")
	if len(c.Capabilities) == 0 {
		b.WriteString("_None listed._\n")
	}
	for _, s := range c.Slots {
		fmt.Fprintf(&b, "- **%s** (`%s`): `%s`\n", s.TooltipText, s.CapabilityID, assets.Icon(s))
	}
	if extra := len(c.Capabilities) - len(c.Slots); extra > 0 {
		fmt.Fprintf(&b, "- _%d more not shown on the card: %s_\n", extra, strings.Join(c.Capabilities[len(c.Slots):], ", "))
	}
	return b.String()
}
