package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kokistudios/atlas/internal/filter"
	"github.com/kokistudios/atlas/internal/source"
	"github.com/kokistudios/atlas/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const recordsJSON = `{
  "challenges": [
    {"number": 1, "title": "Grid balancing", "description": "Balance renewable supply",
     "sector": "Energy & Utilities", "capabilities": ["forecasting", "vvuq"],
     "significance": 2, "complexity": 1, "readiness": 3},
    {"number": 2, "title": "Flood prediction", "description": "River levels",
     "sector": "Natural Environment", "capabilities": ["forecasting"],
     "significance": 2, "complexity": 3, "readiness": 1},
    {"number": 3, "title": "Hospital flow", "description": "Patient scheduling",
     "sector": "Health & Well-being", "significance": 1},
  ],
}`

const capabilitiesJSON = `{"capabilities": [
  {"id": "forecasting", "name": "Forecasting", "icon": "crystal-ball"}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newFixture(t *testing.T) (*Catalog, string, string) {
	t.Helper()
	dir := t.TempDir()
	recs := writeFile(t, dir, "records.json", recordsJSON)
	caps := writeFile(t, dir, "capabilities.json", capabilitiesJSON)
	return New(Config{RecordsLocation: recs, CapabilitiesLocation: caps}), recs, caps
}

func labels(cards []view.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Label)
	}
	return out
}

func TestNew_EmptyBeforeLoad(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, 0, c.Records().Len())
	assert.Equal(t, 0, c.Registry().Len())
	assert.True(t, c.LoadedAt().IsZero())
	assert.Empty(t, c.Query(filter.State{}))
}

func TestLoad_BothSources(t *testing.T) {
	c, _, _ := newFixture(t)
	report := c.Load(context.Background())

	require.True(t, report.OK(), "errors: %v", report.Errors())
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, report.Capabilities)
	assert.False(t, c.LoadedAt().IsZero())

	cards := c.Query(filter.State{})
	assert.Equal(t, []string{"1", "2", "3"}, labels(cards))
	require.Len(t, cards[0].Slots, 2)
	assert.Equal(t, "energy/crystal-ball.svg", cards[0].Slots[0].IconReference)
	assert.Equal(t, "Forecasting", cards[0].Slots[0].TooltipText)
	assert.True(t, cards[0].Slots[1].IconIsFontIcon)
}

func TestQuery_SignificanceTwoEndToEnd(t *testing.T) {
	c, _, _ := newFixture(t)
	c.Load(context.Background())

	two := 2
	cards := c.Query(filter.State{}.WithScore(filter.Significance, &two))
	assert.Equal(t, []string{"1", "2"}, labels(cards))
	for _, card := range cards {
		assert.Equal(t, []view.Glyph{view.GlyphFilled, view.GlyphFilled, view.GlyphEmpty}, card.Significance)
	}
}

func TestLoad_CapabilityFailureDoesNotFailRecords(t *testing.T) {
	dir := t.TempDir()
	recs := writeFile(t, dir, "records.json", recordsJSON)
	c := New(Config{RecordsLocation: recs, CapabilitiesLocation: filepath.Join(dir, "missing.json")})

	report := c.Load(context.Background())
	assert.False(t, report.OK())
	assert.NoError(t, report.RecordsErr)
	assert.ErrorIs(t, report.CapabilitiesErr, source.ErrUnreachable)
	assert.Equal(t, 3, c.Records().Len())

	// Unregistered ids fall back to the raw id.
	cards := c.Query(filter.State{})
	assert.Equal(t, "forecasting", cards[0].Slots[0].TooltipText)
	assert.Equal(t, "energy/forecasting.svg", cards[0].Slots[0].IconReference)
}

func TestLoad_MalformedRecordsOnFirstLoadLeavesEmptyStore(t *testing.T) {
	dir := t.TempDir()
	recs := writeFile(t, dir, "records.json", `{"challenges": [{"title": "no sector"}]}`)
	caps := writeFile(t, dir, "capabilities.json", capabilitiesJSON)
	c := New(Config{RecordsLocation: recs, CapabilitiesLocation: caps})

	report := c.Load(context.Background())
	assert.ErrorIs(t, report.RecordsErr, source.ErrMalformed)

	var le *source.LoadError
	require.True(t, errors.As(report.RecordsErr, &le))
	assert.Equal(t, RecordsSource, le.Source)
	assert.Equal(t, 0, c.Records().Len())
	assert.Equal(t, 1, c.Registry().Len())
	assert.Empty(t, c.Query(filter.State{}))
}

func TestLoad_ReloadFailureKeepsPriorSnapshot(t *testing.T) {
	c, recs, caps := newFixture(t)
	require.True(t, c.Load(context.Background()).OK())

	require.NoError(t, os.WriteFile(recs, []byte(`not json`), 0644))
	require.NoError(t, os.Remove(caps))

	report := c.Load(context.Background())
	assert.ErrorIs(t, report.RecordsErr, source.ErrMalformed)
	assert.ErrorIs(t, report.CapabilitiesErr, source.ErrUnreachable)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, report.Capabilities)
	assert.Len(t, c.Query(filter.State{}), 3)
}

func TestLoad_ReplacesSnapshotWholesale(t *testing.T) {
	c, recs, _ := newFixture(t)
	c.Load(context.Background())
	before := c.Records()

	require.NoError(t, os.WriteFile(recs, []byte(`[{"id": "x", "title": "t", "description": "d", "sector": "Government"}]`), 0644))
	c.Load(context.Background())

	assert.Equal(t, 3, before.Len(), "old store is not mutated")
	cards := c.Query(filter.State{})
	require.Len(t, cards, 1)
	assert.Equal(t, "x", cards[0].Label)
	assert.Equal(t, view.ThemeGovernment, cards[0].Theme)
}

func TestLoad_Remote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/records.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recordsJSON))
	})
	mux.HandleFunc("/capabilities.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := &source.Fetcher{Client: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}}
	c := New(Config{
		RecordsLocation:      srv.URL + "/records.json",
		CapabilitiesLocation: srv.URL + "/capabilities.json",
		Fetcher:              fetcher,
	})

	report := c.Load(context.Background())
	assert.NoError(t, report.RecordsErr)
	assert.ErrorIs(t, report.CapabilitiesErr, source.ErrUnreachable)
	assert.Equal(t, 3, c.Records().Len())
}

func TestCard(t *testing.T) {
	c, _, _ := newFixture(t)
	c.Load(context.Background())

	card, rec, ok := c.Card("3")
	require.True(t, ok)
	assert.Equal(t, "Hospital flow", rec.Title)
	assert.Equal(t, view.ThemeHealth, card.Theme)
	assert.Empty(t, card.Slots)

	_, _, ok = c.Card("99")
	assert.False(t, ok)
}

type recordingRenderer struct {
	calls  int
	cards  []view.Card
	states []filter.State
	err    error
}

func (r *recordingRenderer) Render(cards []view.Card, state filter.State) error {
	r.calls++
	r.cards = cards
	r.states = append(r.states, state)
	return r.err
}

func TestSession_EveryInputRerunsPipeline(t *testing.T) {
	c, _, _ := newFixture(t)
	c.Load(context.Background())
	rr := &recordingRenderer{}
	s := NewSession(c, rr)

	require.NoError(t, s.Refresh())
	assert.Equal(t, []string{"1", "2", "3"}, labels(rr.cards))

	require.NoError(t, s.SetSectors([]string{"energy", "natural"}))
	assert.Equal(t, []string{"1", "2"}, labels(rr.cards))

	require.NoError(t, s.SetCapabilities([]string{"VVUQ"}))
	assert.Equal(t, []string{"1"}, labels(rr.cards))

	require.NoError(t, s.SetCapabilities(nil))
	require.NoError(t, s.SetSearchText("river"))
	assert.Equal(t, []string{"2"}, labels(rr.cards))

	require.NoError(t, s.Reset())
	assert.Len(t, rr.cards, 3)
	assert.True(t, s.State().IsEmpty())
	assert.Equal(t, 6, rr.calls)
}

func TestSession_ToggleScore(t *testing.T) {
	c, _, _ := newFixture(t)
	c.Load(context.Background())
	rr := &recordingRenderer{}
	s := NewSession(c, rr)

	require.NoError(t, s.ToggleScore(filter.Readiness, 1))
	require.NotNil(t, s.State().Readiness)
	assert.Equal(t, []string{"2"}, labels(rr.cards))

	// Selecting the active value clears it.
	require.NoError(t, s.ToggleScore(filter.Readiness, 1))
	assert.Nil(t, s.State().Readiness)
	assert.Len(t, rr.cards, 3)

	require.NoError(t, s.ToggleScore(filter.Readiness, 3))
	require.NoError(t, s.ToggleScore(filter.Readiness, 1))
	assert.Equal(t, 1, *s.State().Readiness)
}

func TestSession_RendererError(t *testing.T) {
	c, _, _ := newFixture(t)
	c.Load(context.Background())
	rr := &recordingRenderer{err: errors.New("terminal closed")}
	s := NewSession(c, rr)

	err := s.SetSearchText("grid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal closed")
	assert.Equal(t, "grid", s.State().SearchText)
}

func TestSession_RendererFunc(t *testing.T) {
	c, _, _ := newFixture(t)
	c.Load(context.Background())

	var got int
	s := NewSession(c, RendererFunc(func(cards []view.Card, _ filter.State) error {
		got = len(cards)
		return nil
	}))
	require.NoError(t, s.SetSectors([]string{"health"}))
	assert.Equal(t, 1, got)
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	c, recs, _ := newFixture(t)
	c.Load(context.Background())

	w, err := c.NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *LoadReport, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(r *LoadReport) { reloaded <- r })
	}()

	require.NoError(t, os.WriteFile(recs, []byte(`[{"number": 9, "title": "t", "description": "d", "sector": "Government"}]`), 0644))

	select {
	case r := <-reloaded:
		assert.NoError(t, r.RecordsErr)
		assert.Equal(t, 1, r.Records)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after source change")
	}
	assert.Equal(t, []string{"9"}, labels(c.Query(filter.State{})))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_IgnoresUnrelatedFiles(t *testing.T) {
	c, recs, _ := newFixture(t)
	w, err := c.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	dir := filepath.Dir(recs)
	assert.False(t, w.relevant(fsEvent(filepath.Join(dir, "notes.txt"))))
	assert.True(t, w.relevant(fsEvent(recs)))
}

func TestWatch_RemoteOnlyHasNothingToWatch(t *testing.T) {
	c := New(Config{RecordsLocation: "https://example.com/r.json", CapabilitiesLocation: "https://example.com/c.json"})
	err := c.Watch(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no local sources")
}

func TestLoad_SlowSourceSurvivesSiblingFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/records.json", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(100 * time.Millisecond):
			w.Write([]byte(recordsJSON))
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := &source.Fetcher{Client: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}}
	c := New(Config{
		RecordsLocation:      srv.URL + "/records.json",
		CapabilitiesLocation: filepath.Join(t.TempDir(), "missing.json"),
		Fetcher:              fetcher,
	})

	report := c.Load(context.Background())
	assert.ErrorIs(t, report.CapabilitiesErr, source.ErrUnreachable)
	assert.NoError(t, report.RecordsErr, "a failing capability fetch must not cancel records")
	assert.Equal(t, 3, c.Records().Len())
}

func TestLocations(t *testing.T) {
	c, recs, caps := newFixture(t)
	gotRecs, gotCaps := c.Locations()
	assert.Equal(t, recs, gotRecs)
	assert.Equal(t, caps, gotCaps)
}
