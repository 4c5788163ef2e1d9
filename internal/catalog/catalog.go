package catalog

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/kokistudios/atlas/internal/capability"
	"github.com/kokistudios/atlas/internal/filter"
	"github.com/kokistudios/atlas/internal/record"
	"github.com/kokistudios/atlas/internal/source"
	"github.com/kokistudios/atlas/internal/view"
)

// Source names used in logs and load errors.
const (
	RecordsSource      = "records"
	CapabilitiesSource = "capabilities"
)

// Config locates the two data sources.
type Config struct {
	RecordsLocation      string
	CapabilitiesLocation string
	Fetcher              *source.Fetcher
	Logger               *log.Logger
}

// snapshot is replaced wholesale on every load and never mutated.
type snapshot struct {
	records  *record.Store
	registry *capability.Registry
	loadedAt time.Time
}

// Catalog owns the loaded records and capability taxonomy. Reads are safe
// from any goroutine; loads are serialized.
type Catalog struct {
	cfg    Config
	logger *log.Logger
	snap   atomic.Pointer[snapshot]
	loadMu sync.Mutex
}

// New returns an empty catalog. Call Load to populate it.
func New(cfg Config) *Catalog {
	if cfg.Fetcher == nil {
		cfg.Fetcher = source.NewFetcher(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Catalog{cfg: cfg, logger: logger}
	c.snap.Store(&snapshot{records: record.NewStore(nil), registry: capability.Empty()})
	return c
}

// LoadReport describes the outcome of one Load.
type LoadReport struct {
	Records         int
	Capabilities    int
	RecordsErr      error
	CapabilitiesErr error
	Duration        time.Duration
}

// OK reports whether both sources loaded.
func (r *LoadReport) OK() bool {
	return r.RecordsErr == nil && r.CapabilitiesErr == nil
}

// Errors returns the non-nil source errors, records first.
func (r *LoadReport) Errors() []error {
	var errs []error
	if r.RecordsErr != nil {
		errs = append(errs, r.RecordsErr)
	}
	if r.CapabilitiesErr != nil {
		errs = append(errs, r.CapabilitiesErr)
	}
	return errs
}

// Load fetches both sources concurrently and swaps in a new snapshot.
// A source that fails keeps whatever the previous snapshot held for it
// (empty on the first load). Failures are logged and reported, never returned.
func (c *Catalog) Load(ctx context.Context) *LoadReport {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	start := time.Now()
	prev := c.snap.Load()
	next := &snapshot{records: prev.records, registry: prev.registry}
	report := &LoadReport{}

	// Each source reports into the report and returns nil, so one failing
	// never cancels the other fetch.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := c.loadRecords(gctx)
		if err != nil {
			report.RecordsErr = err
			return nil
		}
		next.records = record.NewStore(records)
		return nil
	})
	g.Go(func() error {
		caps, err := c.loadCapabilities(gctx)
		if err != nil {
			report.CapabilitiesErr = err
			return nil
		}
		next.registry = capability.NewRegistry(caps)
		return nil
	})
	g.Wait()

	next.loadedAt = time.Now()
	c.snap.Store(next)

	report.Records = next.records.Len()
	report.Capabilities = next.registry.Len()
	report.Duration = time.Since(start)

	if report.RecordsErr != nil {
		c.logger.Error("Record load failed", "location", c.cfg.RecordsLocation, "err", report.RecordsErr)
	}
	if report.CapabilitiesErr != nil {
		c.logger.Warn("Capability load failed", "location", c.cfg.CapabilitiesLocation, "err", report.CapabilitiesErr)
	}
	c.logger.Debug("Catalog loaded", "records", report.Records, "capabilities", report.Capabilities, "took", report.Duration)
	return report
}

func (c *Catalog) loadRecords(ctx context.Context) ([]record.Record, error) {
	loc := c.cfg.RecordsLocation
	data, err := c.cfg.Fetcher.Fetch(ctx, RecordsSource, loc)
	if err != nil {
		return nil, err
	}
	records, err := record.Parse(data)
	if err != nil {
		return nil, source.Wrap(RecordsSource, loc, source.Malformed, err)
	}
	return records, nil
}

func (c *Catalog) loadCapabilities(ctx context.Context) ([]capability.Capability, error) {
	loc := c.cfg.CapabilitiesLocation
	data, err := c.cfg.Fetcher.Fetch(ctx, CapabilitiesSource, loc)
	if err != nil {
		return nil, err
	}
	caps, err := capability.ParseTaxonomy(data)
	if err != nil {
		return nil, source.Wrap(CapabilitiesSource, loc, source.Malformed, err)
	}
	return caps, nil
}

// Records returns the current record store.
func (c *Catalog) Records() *record.Store {
	return c.snap.Load().records
}

// Registry returns the current capability registry.
func (c *Catalog) Registry() *capability.Registry {
	return c.snap.Load().registry
}

// LoadedAt returns when the current snapshot was built; zero before the first Load.
func (c *Catalog) LoadedAt() time.Time {
	return c.snap.Load().loadedAt
}

// Query runs the full pipeline against the current snapshot.
func (c *Catalog) Query(state filter.State) []view.Card {
	s := c.snap.Load()
	return view.MapAll(filter.Evaluate(state, s.records.All()), s.registry)
}

// Card returns the card for one record by number or id.
func (c *Catalog) Card(label string) (view.Card, record.Record, bool) {
	s := c.snap.Load()
	r, ok := s.records.Get(label)
	if !ok {
		return view.Card{}, record.Record{}, false
	}
	return view.Map(r, s.registry), r, true
}

// Locations returns the configured record and capability locations.
func (c *Catalog) Locations() (records, capabilities string) {
	return c.cfg.RecordsLocation, c.cfg.CapabilitiesLocation
}
