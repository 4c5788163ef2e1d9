package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/atlas/internal/catalog"
	"github.com/kokistudios/atlas/internal/filter"
	"github.com/kokistudios/atlas/internal/view"
)

// Formats lists the output formats accepted by NewRenderer.
var Formats = []string{"grid", "table", "json", "yaml"}

// RenderOptions configures the terminal renderers.
type RenderOptions struct {
	Columns   int // 0 = fit the terminal
	CardWidth int
	Assets    Assets
}

// NewRenderer returns the card sink for format.
func NewRenderer(format string, w io.Writer, opts RenderOptions) (catalog.Renderer, error) {
	if opts.CardWidth <= 0 {
		opts.CardWidth = 38
	}
	if opts.Assets == (Assets{}) {
		opts.Assets = DefaultAssets
	}
	switch strings.ToLower(format) {
	case "", "grid":
		return &GridRenderer{W: w, Opts: opts}, nil
	case "table":
		return &TableRenderer{W: w}, nil
	case "json":
		return &JSONRenderer{W: w, Assets: opts.Assets}, nil
	case "yaml", "yml":
		return &YAMLRenderer{W: w, Assets: opts.Assets}, nil
	}
	return nil, fmt.Errorf("unknown format %q (use %s)", format, strings.Join(Formats, ", "))
}

// GridRenderer draws themed cards side by side.
type GridRenderer struct {
	W    io.Writer
	Opts RenderOptions
}

func (g *GridRenderer) Render(cards []view.Card, state filter.State) error {
	fmt.Fprintf(g.W, "%s %s\n\n", boldStyle.Render(countLabel(len(cards))), dimStyle.Render("· "+state.Describe()))
	if len(cards) == 0 {
		_, err := fmt.Fprintln(g.W, dimStyle.Render("  No challenges match the current filters."))
		return err
	}
	cols := g.Opts.Columns
	if cols <= 0 {
		cols = GridColumns(TermWidth(), g.Opts.CardWidth)
	}
	_, err := fmt.Fprintln(g.W, RenderGrid(cards, cols, g.Opts.CardWidth))
	return err
}

// TableRenderer prints one row per card.
type TableRenderer struct {
	W io.Writer
}

func (t *TableRenderer) Render(cards []view.Card, state filter.State) error {
	tw := tabwriter.NewWriter(t.W, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, boldStyle.Render(strings.Join([]string{"#", "TITLE", "SECTOR", "THEME", "SIG", "CPLX", "READY", "CAPABILITIES"}, "\t")))
	for _, c := range cards {
		var caps []string
		for _, s := range c.Slots {
			caps = append(caps, s.CapabilityID)
		}
		fmt.Fprintln(tw, strings.Join([]string{
			c.Label,
			Truncate(c.Title, 40),
			Truncate(c.Sector, 28),
			string(c.Theme),
			orDash(Stars(c.Significance)),
			orDash(Stars(c.Complexity)),
			orDash(Stars(c.Readiness)),
			orDash(strings.Join(caps, ", ")),
		}, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(t.W, "\n%s · %s\n", countLabel(len(cards)), state.Describe())
	return err
}

// Result is the document written by the JSON and YAML sinks.
type Result struct {
	Filters filter.State `json:"filters" yaml:"filters"`
	Count   int          `json:"count" yaml:"count"`
	Assets  Assets       `json:"assets" yaml:"assets"`
	Cards   []view.Card  `json:"cards" yaml:"cards"`
}

// JSONRenderer writes an indented Result document.
type JSONRenderer struct {
	W      io.Writer
	Assets Assets
}

func (j *JSONRenderer) Render(cards []view.Card, state filter.State) error {
	enc := json.NewEncoder(j.W)
	enc.SetIndent("", "  ")
	return enc.Encode(Result{Filters: state, Count: len(cards), Assets: j.Assets, Cards: nonNil(cards)})
}

// YAMLRenderer writes a Result document as YAML.
type YAMLRenderer struct {
	W      io.Writer
	Assets Assets
}

func (y *YAMLRenderer) Render(cards []view.Card, state filter.State) error {
	enc := yaml.NewEncoder(y.W)
	enc.SetIndent(2)
	if err := enc.Encode(Result{Filters: state, Count: len(cards), Assets: y.Assets, Cards: nonNil(cards)}); err != nil {
		return err
	}
	return enc.Close()
}

func nonNil(cards []view.Card) []view.Card {
	if cards == nil {
		return []view.Card{}
	}
	return cards
}

func countLabel(n int) string {
	if n == 1 {
		return "1 challenge"
	}
	return fmt.Sprintf("%d challenges", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
