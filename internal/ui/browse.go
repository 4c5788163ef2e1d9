package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kokistudios/atlas/internal/catalog"
	"github.com/kokistudios/atlas/internal/filter"
	"github.com/kokistudios/atlas/internal/view"
)

// BrowseOptions configures the interactive browser.
type BrowseOptions struct {
	Assets Assets
	Watch  bool // reload when local sources change
}

// cardSink is the browser's Renderer: it keeps the latest pipeline output for View.
type cardSink struct {
	cards []view.Card
	state filter.State
}

func (s *cardSink) Render(cards []view.Card, state filter.State) error {
	s.cards = cards
	s.state = state
	return nil
}

type reloadMsg struct {
	report *catalog.LoadReport
}

type browseModel struct {
	session   *catalog.Session
	sink      *cardSink
	search    textinput.Model
	searching bool
	dim       filter.ScoreDimension
	cursor    int
	offset    int
	detail    bool
	width     int
	height    int
	status    string
	opts      BrowseOptions
}

func newBrowseModel(cat *catalog.Catalog, opts BrowseOptions) browseModel {
	if opts.Assets == (Assets{}) {
		opts.Assets = DefaultAssets
	}
	sink := &cardSink{}
	session := catalog.NewSession(cat, sink)
	_ = session.Refresh()

	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "search titles and descriptions..."
	si.CharLimit = 120
	si.Width = 50

	return browseModel{
		session: session,
		sink:    sink,
		search:  si,
		dim:     filter.Significance,
		width:   80,
		height:  24,
		opts:    opts,
	}
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case reloadMsg:
		if msg.report.RecordsErr != nil {
			m.status = "reload failed, keeping previous records"
		} else {
			m.status = fmt.Sprintf("reloaded %d records", msg.report.Records)
		}
		m.apply(m.session.Refresh())
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.detail {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "q", "backspace":
				m.detail = false
			}
			return m, nil
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "tab":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.apply(m.session.SetSearchText(m.search.Value()))
	}
	return m, cmd
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "s":
		m.dim = filter.Significance
	case "c":
		m.dim = filter.Complexity
	case "r":
		m.dim = filter.Readiness
	case "1", "2", "3":
		n := int(msg.String()[0] - '0')
		m.apply(m.session.ToggleScore(m.dim, n))
	case "0":
		m.apply(m.session.SetScore(m.dim, nil))
	case "x":
		m.search.SetValue("")
		m.apply(m.session.Reset())
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sink.cards)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.sink.cards) > 0 {
			m.detail = true
		}
	}
	m.scroll()
	return m, nil
}

// apply records a pipeline error and keeps the cursor on a visible card.
func (m *browseModel) apply(err error) {
	if err != nil {
		m.status = err.Error()
	}
	if m.cursor >= len(m.sink.cards) {
		m.cursor = len(m.sink.cards) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll()
}

func (m *browseModel) listHeight() int {
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	return h
}

func (m *browseModel) scroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m browseModel) View() string {
	if m.detail && m.cursor < len(m.sink.cards) {
		return m.detailView()
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("ATLAS"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s", countLabel(len(m.sink.cards)), m.sink.state.Describe())))
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	b.WriteString("\n")
	b.WriteString(m.scoreBar())
	b.WriteString("\n\n")

	if len(m.sink.cards) == 0 {
		b.WriteString(dimStyle.Render("  No challenges match the current filters."))
		b.WriteString("\n")
	}
	end := m.offset + m.listHeight()
	if end > len(m.sink.cards) {
		end = len(m.sink.cards)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.row(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(warningStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("/ search • s/c/r pick score • 1-3 toggle • 0 clear • x reset • enter detail • q quit"))
	return b.String()
}

func (m browseModel) scoreBar() string {
	var parts []string
	state := m.session.State()
	for _, dim := range filter.ScoreDimensions {
		val := "all"
		if v := state.Score(dim); v != nil {
			val = strings.Repeat("★", *v)
		}
		label := fmt.Sprintf("%s: %s", dim, val)
		if dim == m.dim {
			label = promptStyle.Render("▸ " + label)
		} else {
			label = dimStyle.Render("  " + label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "   ")
}

func (m browseModel) row(i int) string {
	c := m.sink.cards[i]
	color := ThemeColor(c.Theme)
	marker := "  "
	if i == m.cursor {
		marker = promptStyle.Render("▸ ")
	}
	titleWidth := m.width - 40
	if titleWidth < 20 {
		titleWidth = 20
	}
	label := lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("#%-4s", c.Label))
	title := Truncate(c.Title, titleWidth)
	if i == m.cursor {
		title = boldStyle.Render(title)
	}
	stars := fmt.Sprintf("%-3s %-3s %-3s", Stars(c.Significance), Stars(c.Complexity), Stars(c.Readiness))
	return fmt.Sprintf("%s%s %s  %s", marker, label, title, dimStyle.Render(stars))
}

func (m browseModel) detailView() string {
	src := DetailMarkdown(m.sink.cards[m.cursor], m.opts.Assets)
	out, err := RenderMarkdownString(src, m.width-4)
	if err != nil {
		out = src
	}
	return out + "\n" + dimStyle.Render("esc back • ctrl+c quit")
}

// Browse runs the interactive browser until the user quits.
func Browse(ctx context.Context, cat *catalog.Catalog, opts BrowseOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBrowseModel(cat, opts), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	var wg sync.WaitGroup
	if opts.Watch {
		w, err := cat.NewWatcher()
		if err != nil {
			Logger.Warn("Not watching sources", "err", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer w.Close()
				_ = w.Run(ctx, func(r *catalog.LoadReport) { p.Send(reloadMsg{report: r}) })
			}()
		}
	}

	_, err := p.Run()
	cancel()
	wg.Wait()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}
