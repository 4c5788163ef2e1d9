package capability

import (
	"fmt"

	"github.com/kokistudios/atlas/internal/source"
)

// Capability is one entry of the AI-capability taxonomy.
type Capability struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon" yaml:"icon"`
}

// Icon is a resolved icon reference. FontIcon distinguishes an icon-font
// class string from a themed SVG path.
type Icon struct {
	Reference string `json:"reference" yaml:"reference"`
	FontIcon  bool   `json:"font_icon" yaml:"font_icon"`
}

// fontIcons maps built-in capability ids to icon-font classes.
// Ids outside this table always resolve to file icons.
var fontIcons = map[string]string{
	"system_modelling":         "fa-solid fa-diagram-project",
	"data_integration":         "fa-solid fa-database",
	"predictive_analytics":     "fa-solid fa-chart-line",
	"anomaly_detection":        "fa-solid fa-triangle-exclamation",
	"decision_support":         "fa-solid fa-clipboard-check",
	"visual_spatial":           "fa-solid fa-map",
	"human_twin_interaction":   "fa-solid fa-user-gear",
	"twin_orchestration":       "fa-solid fa-cubes",
	"knowledge_representation": "fa-solid fa-brain",
	"security_privacy":         "fa-solid fa-shield-halved",
	"realtime_monitoring":      "fa-solid fa-gauge-high",
	"vvuq":                     "fa-solid fa-check-double",
	"optimisation":             "fa-solid fa-sliders",
}

// FontIconClass returns the icon-font class for a built-in id.
func FontIconClass(id string) (string, bool) {
	cls, ok := fontIcons[id]
	return cls, ok
}

type taxonomy struct {
	Capabilities []Capability `json:"capabilities"`
}

// ParseTaxonomy decodes a {"capabilities": [...]} document.
// A document without the field yields an empty taxonomy.
func ParseTaxonomy(data []byte) ([]Capability, error) {
	var t taxonomy
	if err := source.Decode(data, &t); err != nil {
		return nil, err
	}
	for i, c := range t.Capabilities {
		if c.ID == "" {
			return nil, fmt.Errorf("capability %d: missing id", i)
		}
	}
	if t.Capabilities == nil {
		return []Capability{}, nil
	}
	return t.Capabilities, nil
}

// Registry is a read-only lookup from capability id to display metadata.
type Registry struct {
	ordered []Capability
	byID    map[string]Capability
}

// NewRegistry builds a registry. The first entry wins on duplicate ids.
func NewRegistry(caps []Capability) *Registry {
	r := &Registry{byID: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		if _, dup := r.byID[c.ID]; dup {
			continue
		}
		r.byID[c.ID] = c
		r.ordered = append(r.ordered, c)
	}
	return r
}

// Empty returns a registry with no capabilities; lookups fall back to raw ids.
func Empty() *Registry {
	return NewRegistry(nil)
}

// Lookup returns the capability registered under id.
func (r *Registry) Lookup(id string) (Capability, bool) {
	if r == nil {
		return Capability{}, false
	}
	c, ok := r.byID[id]
	return c, ok
}

// Name returns the display name for id, or id itself when unregistered.
func (r *Registry) Name(id string) string {
	if id == "" {
		return ""
	}
	if c, ok := r.Lookup(id); ok {
		return c.Name
	}
	return id
}

// DisplayIcon resolves the icon for id as shown on a card of the given theme.
func (r *Registry) DisplayIcon(id, theme string) Icon {
	if id == "" {
		return Icon{}
	}
	if cls, ok := FontIconClass(id); ok {
		return Icon{Reference: cls, FontIcon: true}
	}
	iconName := id
	if c, ok := r.Lookup(id); ok && c.Icon != "" {
		iconName = c.Icon
	}
	return Icon{Reference: theme + "/" + iconName + ".svg"}
}

// All returns the taxonomy in load order.
func (r *Registry) All() []Capability {
	if r == nil {
		return nil
	}
	out := make([]Capability, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}
