package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/atlas/internal/catalog"
	"github.com/kokistudios/atlas/internal/filter"
	"github.com/kokistudios/atlas/internal/view"
)

// Assets are the base paths prefixed to card image and icon references.
type Assets struct {
	Images string `json:"images"`
	Icons  string `json:"icons"`
}

// Server wraps the MCP server with the challenge catalog.
type Server struct {
	cat    *catalog.Catalog
	assets Assets
	server *mcp.Server
}

// NewServer creates a new atlas MCP server.
func NewServer(cat *catalog.Catalog, assets Assets, version string) *Server {
	s := &Server{cat: cat, assets: assets}

	impl := &mcp.Implementation{
		Name:    "atlas",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all atlas tools to the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "atlas_query",
		Description: "Filter the challenge catalog and return matching cards in catalog order. " +
			"All filters are optional and combine with AND; values inside sectors or capabilities combine with OR. " +
			"Sectors match by case-insensitive substring, capabilities by exact id, search by substring of title or description. " +
			"Scores take all, 1, 2 or 3. Call with no params to list every challenge.",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "atlas_card",
		Description: "Get the full card for one challenge by number or id, including every capability (not only the three shown on the card) and resolved asset paths.",
	}, s.handleCard)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "atlas_capabilities",
		Description: "List the AI capability taxonomy with display names, resolved icons and how many challenges reference each id. Use the ids as the capabilities filter of atlas_query.",
	}, s.handleCapabilities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "atlas_sectors",
		Description: "List the distinct sectors in the catalog with the visual theme and background image each maps to, and the number of challenges per sector.",
	}, s.handleSectors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "atlas_reload",
		Description: "Re-fetch both data sources. A source that fails keeps its previously loaded data; failures are reported in the result.",
	}, s.handleReload)
}

// QueryArgs defines input for atlas_query.
type QueryArgs struct {
	Sectors      []string `json:"sectors,omitempty" jsonschema:"Sector terms, matched as case-insensitive substrings (e.g. energy, health)"`
	Capabilities []string `json:"capabilities,omitempty" jsonschema:"Capability ids (see atlas_capabilities)"`
	Search       string   `json:"search,omitempty" jsonschema:"Text to find in titles and descriptions"`
	Significance string   `json:"significance,omitempty" jsonschema:"all, 1, 2 or 3"`
	Complexity   string   `json:"complexity,omitempty" jsonschema:"all, 1, 2 or 3"`
	Readiness    string   `json:"readiness,omitempty" jsonschema:"all, 1, 2 or 3"`
	Format       string   `json:"format,omitempty" jsonschema:"compact (default) or full"`
}

// CardSummary is the compact view of a card.
type CardSummary struct {
	Label        string   `json:"label"`
	Title        string   `json:"title"`
	Sector       string   `json:"sector"`
	Theme        string   `json:"theme"`
	Capabilities []string `json:"capabilities,omitempty"`
	Significance int      `json:"significance"`
	Complexity   int      `json:"complexity"`
	Readiness    int      `json:"readiness"`
}

// QueryResult is the output of atlas_query.
type QueryResult struct {
	Filters string        `json:"filters"`
	Count   int           `json:"count"`
	Cards   []CardSummary `json:"cards,omitempty"`
	Full    []view.Card   `json:"full,omitempty"`
	Assets  *Assets       `json:"assets,omitempty"`
	Message string        `json:"message,omitempty"`
}

// StateFromArgs builds a filter state from tool arguments.
func StateFromArgs(args QueryArgs) (filter.State, error) {
	state := filter.State{}.
		WithSectors(args.Sectors).
		WithCapabilities(args.Capabilities).
		WithSearchText(args.Search)
	scores := []struct {
		dim filter.ScoreDimension
		raw string
	}{
		{filter.Significance, args.Significance},
		{filter.Complexity, args.Complexity},
		{filter.Readiness, args.Readiness},
	}
	for _, sc := range scores {
		v, err := filter.ParseScore(sc.raw)
		if err != nil {
			return filter.State{}, fmt.Errorf("%s: %w", sc.dim, err)
		}
		state = state.WithScore(sc.dim, v)
	}
	return state, nil
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
	state, err := StateFromArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cards := s.cat.Query(state)
	out := QueryResult{Filters: state.Describe(), Count: len(cards)}

	if len(cards) == 0 {
		if s.cat.Records().Len() == 0 {
			out.Message = "The catalog is empty. The records source may be unreachable; try atlas_reload."
		} else {
			out.Message = "No challenges match these filters. Try atlas_sectors or atlas_capabilities to see valid values."
		}
		return nil, out, nil
	}

	switch args.Format {
	case "full":
		out.Full = cards
		assets := s.assets
		out.Assets = &assets
	case "", "compact":
		for _, c := range cards {
			out.Cards = append(out.Cards, summary(c))
		}
	default:
		return nil, nil, fmt.Errorf("unknown format %q (use compact or full)", args.Format)
	}
	return nil, out, nil
}

// summary flattens a card with its raw scores and full capability list.
func summary(c view.Card) CardSummary {
	return CardSummary{
		Label:        c.Label,
		Title:        c.Title,
		Sector:       c.Sector,
		Theme:        string(c.Theme),
		Capabilities: c.Capabilities,
		Significance: c.Scores.Significance,
		Complexity:   c.Scores.Complexity,
		Readiness:    c.Scores.Readiness,
	}
}

// CardArgs defines input for atlas_card.
type CardArgs struct {
	Number string `json:"number" jsonschema:"The challenge number or id (e.g. 12)"`
}

// CardDetail is the output of atlas_card.
type CardDetail struct {
	Card            view.Card `json:"card"`
	Capabilities    []string  `json:"capabilities"`
	BackgroundImage string    `json:"background_image"`
	Icons           []string  `json:"icons"`
	Significance    int       `json:"significance"`
	Complexity      int       `json:"complexity"`
	Readiness       int       `json:"readiness"`
}

func (s *Server) handleCard(ctx context.Context, req *mcp.CallToolRequest, args CardArgs) (*mcp.CallToolResult, any, error) {
	if args.Number == "" {
		return nil, nil, fmt.Errorf("challenge number is required")
	}
	card, _, ok := s.cat.Card(args.Number)
	if !ok {
		return nil, nil, fmt.Errorf("challenge not found: %s", args.Number)
	}

	out := CardDetail{
		Card:            card,
		Capabilities:    card.Capabilities,
		BackgroundImage: s.assets.Images + card.BackgroundImage,
		Significance:    card.Scores.Significance,
		Complexity:      card.Scores.Complexity,
		Readiness:       card.Scores.Readiness,
	}
	if out.Capabilities == nil {
		out.Capabilities = []string{}
	}
	for _, slot := range card.Slots {
		if slot.IconIsFontIcon {
			out.Icons = append(out.Icons, slot.IconReference)
		} else {
			out.Icons = append(out.Icons, s.assets.Icons+slot.IconReference)
		}
	}
	return nil, out, nil
}

// CapabilitiesArgs defines input for atlas_capabilities.
type CapabilitiesArgs struct {
	Theme string `json:"theme,omitempty" jsonschema:"Theme used to resolve file icons (default energy)"`
}

// CapabilityInfo describes one taxonomy entry.
type CapabilityInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	FontIcon     bool   `json:"font_icon"`
	Challenges   int    `json:"challenges"`
	Unregistered bool   `json:"unregistered,omitempty"`
}

// CapabilitiesResult is the output of atlas_capabilities.
type CapabilitiesResult struct {
	Capabilities []CapabilityInfo `json:"capabilities"`
	Message      string           `json:"message,omitempty"`
}

func (s *Server) handleCapabilities(ctx context.Context, req *mcp.CallToolRequest, args CapabilitiesArgs) (*mcp.CallToolResult, any, error) {
	theme, err := view.ParseTheme(args.Theme)
	if err != nil {
		return nil, nil, err
	}
	out := CapabilitiesResult{Capabilities: CapabilityTable(s.cat, theme)}
	if len(out.Capabilities) == 0 {
		out.Message = "No capabilities loaded."
	}
	return nil, out, nil
}

// CapabilityTable lists registered capabilities in taxonomy order, then ids
// referenced by records but missing from the taxonomy.
func CapabilityTable(cat *catalog.Catalog, theme view.Theme) []CapabilityInfo {
	reg := cat.Registry()
	counts := map[string]int{}
	for _, r := range cat.Records().All() {
		for _, id := range r.Capabilities {
			counts[strings.ToLower(id)]++
		}
	}

	out := []CapabilityInfo{}
	seen := map[string]bool{}
	add := func(id string, unregistered bool) {
		icon := reg.DisplayIcon(id, string(theme))
		out = append(out, CapabilityInfo{
			ID:           id,
			Name:         reg.Name(id),
			Icon:         icon.Reference,
			FontIcon:     icon.FontIcon,
			Challenges:   counts[strings.ToLower(id)],
			Unregistered: unregistered,
		})
		seen[strings.ToLower(id)] = true
	}
	for _, c := range reg.All() {
		add(c.ID, false)
	}
	for _, id := range cat.Records().CapabilityIDs() {
		if !seen[strings.ToLower(id)] {
			add(id, true)
		}
	}
	return out
}

// SectorsArgs defines input for atlas_sectors.
type SectorsArgs struct{}

// SectorInfo describes one sector and its visual mapping.
type SectorInfo struct {
	Sector     string `json:"sector"`
	Theme      string `json:"theme"`
	Image      string `json:"image"`
	Challenges int    `json:"challenges"`
}

// SectorsResult is the output of atlas_sectors.
type SectorsResult struct {
	Sectors []SectorInfo `json:"sectors"`
}

func (s *Server) handleSectors(ctx context.Context, req *mcp.CallToolRequest, args SectorsArgs) (*mcp.CallToolResult, any, error) {
	return nil, SectorsResult{Sectors: SectorTable(s.cat)}, nil
}

// SectorTable lists distinct sectors sorted by name with their theme mapping.
func SectorTable(cat *catalog.Catalog) []SectorInfo {
	counts := map[string]int{}
	for _, r := range cat.Records().All() {
		counts[r.Sector]++
	}
	out := []SectorInfo{}
	for _, sector := range cat.Records().Sectors() {
		rule := view.Classify(sector)
		out = append(out, SectorInfo{
			Sector:     sector,
			Theme:      string(rule.Theme),
			Image:      rule.Image,
			Challenges: counts[sector],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Sector) < strings.ToLower(out[j].Sector)
	})
	return out
}

// ReloadArgs defines input for atlas_reload.
type ReloadArgs struct{}

// ReloadResult is the output of atlas_reload.
type ReloadResult struct {
	Records      int      `json:"records"`
	Capabilities int      `json:"capabilities"`
	Errors       []string `json:"errors,omitempty"`
	Took         string   `json:"took"`
}

func (s *Server) handleReload(ctx context.Context, req *mcp.CallToolRequest, args ReloadArgs) (*mcp.CallToolResult, any, error) {
	report := s.cat.Load(ctx)
	out := ReloadResult{
		Records:      report.Records,
		Capabilities: report.Capabilities,
		Took:         report.Duration.Round(time.Millisecond).String(),
	}
	for _, err := range report.Errors() {
		out.Errors = append(out.Errors, err.Error())
	}
	return nil, out, nil
}
