package catalog

import (
	"fmt"

	"github.com/kokistudios/atlas/internal/filter"
	"github.com/kokistudios/atlas/internal/view"
)

// Renderer receives the full card list after every pipeline run.
type Renderer interface {
	Render(cards []view.Card, state filter.State) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(cards []view.Card, state filter.State) error

func (f RendererFunc) Render(cards []view.Card, state filter.State) error {
	return f(cards, state)
}

// Session holds the filter state for one interactive consumer. Every control
// input rebuilds the state and re-runs the whole pipeline. A Session is owned
// by a single goroutine.
type Session struct {
	cat      *Catalog
	renderer Renderer
	state    filter.State
}

// NewSession starts a session with no filters.
func NewSession(cat *Catalog, r Renderer) *Session {
	return &Session{cat: cat, renderer: r}
}

// State returns the current filter state.
func (s *Session) State() filter.State {
	return s.state
}

// SetState replaces the whole state.
func (s *Session) SetState(state filter.State) error {
	s.state = state
	return s.Refresh()
}

// SetSectors replaces the selected sector terms.
func (s *Session) SetSectors(terms []string) error {
	return s.SetState(s.state.WithSectors(terms))
}

// SetCapabilities replaces the selected capability ids.
func (s *Session) SetCapabilities(ids []string) error {
	return s.SetState(s.state.WithCapabilities(ids))
}

// SetSearchText replaces the search text.
func (s *Session) SetSearchText(text string) error {
	return s.SetState(s.state.WithSearchText(text))
}

// SetScore sets or clears (nil) one score filter.
func (s *Session) SetScore(dim filter.ScoreDimension, value *int) error {
	return s.SetState(s.state.WithScore(dim, value))
}

// ToggleScore selects value for dim, or clears it when value is already selected.
func (s *Session) ToggleScore(dim filter.ScoreDimension, value int) error {
	if cur := s.state.Score(dim); cur != nil && *cur == value {
		return s.SetScore(dim, nil)
	}
	return s.SetScore(dim, &value)
}

// Reset clears every filter.
func (s *Session) Reset() error {
	return s.SetState(filter.State{})
}

// Refresh runs the pipeline for the current state and hands the result to the renderer.
func (s *Session) Refresh() error {
	cards := s.cat.Query(s.state)
	if s.renderer == nil {
		return nil
	}
	if err := s.renderer.Render(cards, s.state); err != nil {
		s.cat.logger.Error("Render failed", "filters", s.state.Describe(), "err", err)
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
