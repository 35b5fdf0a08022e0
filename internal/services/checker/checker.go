package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Houeta/stockwatch/internal/catalog"
	"github.com/Houeta/stockwatch/internal/changelog"
	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/notifier"
	"github.com/Houeta/stockwatch/internal/repository"
	"github.com/shopspring/decimal"
)

// Fetcher retrieves the raw upstream catalog.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.RawProduct, error)
}

// Interface is what front ends need from the engine.
type Interface interface {
	// RunOnce performs one fetch, classify, build, diff, persist and log cycle.
	RunOnce(ctx context.Context) (*CycleResult, error)
	Snapshot() models.Snapshot
	Stats() models.Stats
	Changes() []models.ChangeEvent
	ClearChanges()
}

// Options tune the engine. Zero values fall back to the defaults.
type Options struct {
	PriceTolerance     decimal.Decimal
	LogCapacity        int
	NotifyPriceChanges bool
	Now                func() time.Time
}

// CycleResult describes one completed cycle.
type CycleResult struct {
	Snapshot models.Snapshot
	Events   []models.ChangeEvent
	Stats    models.Stats
	Fetched  int   // products returned by the catalog
	Tracked  int   // products kept by the classifier
	SaveErr  error // non-fatal persist failure

	// Stale is set when a newer cycle was applied first. Nothing was diffed or saved,
	// and collaborators receive no OnCycleComplete for this cycle.
	Stale bool
}

// Checker is the engine: it owns the baseline snapshot and the change log and
// serialises the cycles that read and replace them.
type Checker struct {
	log          *slog.Logger
	fetcher      Fetcher
	classifier   *catalog.Classifier
	builder      *catalog.Builder
	store        repository.SnapshotStore
	notifier     notifier.Collaborator
	changes      *changelog.Log
	tolerance    decimal.Decimal
	notifyPrices bool
	now          func() time.Time

	// fetchMu serialises catalog sweeps and ticket assignment.
	fetchMu sync.Mutex
	tickets uint64

	// stateMu guards everything below; it is never held across network calls.
	stateMu  sync.RWMutex
	baseline models.Snapshot
	loaded   bool
	applied  uint64
	lastRun  time.Time
}

// NewChecker creates a new Checker instance.
func NewChecker(
	log *slog.Logger,
	fetcher Fetcher,
	classifier *catalog.Classifier,
	builder *catalog.Builder,
	store repository.SnapshotStore,
	collaborator notifier.Collaborator,
	opts Options,
) *Checker {
	if opts.PriceTolerance.IsZero() || opts.PriceTolerance.IsNegative() {
		opts.PriceTolerance = DefaultPriceTolerance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if collaborator == nil {
		collaborator = notifier.NewMulti()
	}

	return &Checker{
		log:          log,
		fetcher:      fetcher,
		classifier:   classifier,
		builder:      builder,
		store:        store,
		notifier:     collaborator,
		changes:      changelog.New(opts.LogCapacity),
		tolerance:    opts.PriceTolerance,
		notifyPrices: opts.NotifyPriceChanges,
		now:          opts.Now,
		baseline:     models.Snapshot{},
	}
}

// LoadBaseline reads the persisted snapshot once. Unreadable state degrades to an
// empty baseline. It returns the number of records in the baseline.
func (c *Checker) LoadBaseline(ctx context.Context) int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.loadBaselineLocked(ctx)

	return len(c.baseline)
}

func (c *Checker) loadBaselineLocked(ctx context.Context) {
	const opn = "checker.LoadBaseline"
	if c.loaded {
		return
	}
	c.loaded = true

	snap, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrStateNotFound):
		c.log.InfoContext(ctx, "No previous snapshot, first cycle only records state", "op", opn)
	case err != nil:
		c.log.WarnContext(ctx, "Previous snapshot is unreadable, starting from an empty baseline",
			"op", opn, "error", err)
	default:
		c.baseline = snap
		c.log.InfoContext(ctx, "Loaded previous snapshot", "op", opn, "records", len(snap))
	}
	if c.baseline == nil {
		c.baseline = models.Snapshot{}
	}
}

// RunOnce performs the full change checking cycle.
//
// A fetch failure aborts the cycle and keeps the baseline. A persist failure is
// reported to the collaborator and otherwise ignored: the new snapshot stays the
// in-memory baseline for the next cycle.
func (c *Checker) RunOnce(ctx context.Context) (*CycleResult, error) {
	const opn = "checker.RunOnce"
	log := c.log.With("op", opn)

	// 1. Sweep the catalog. Only one sweep runs at a time.
	c.fetchMu.Lock()
	c.tickets++
	ticket := c.tickets
	log.InfoContext(ctx, "Fetching catalog to check for updates", "ticket", ticket)
	products, err := c.fetcher.Fetch(ctx)
	c.fetchMu.Unlock()
	if err != nil {
		err = fmt.Errorf("%s: failed to fetch catalog: %w", opn, err)
		c.notifier.OnCycleError(ctx, err)
		return nil, err
	}

	// 2. Normalise outside of any lock.
	tracked := c.classifier.Classify(products)
	current := c.builder.Build(tracked)
	log.InfoContext(ctx, "Built snapshot",
		"products", len(products), "tracked", len(tracked), "variants", len(current))

	result := &CycleResult{
		Snapshot: current.Clone(),
		Stats:    current.Stats(),
		Fetched:  len(products),
		Tracked:  len(tracked),
	}

	// 3. Diff against the baseline and persist.
	events, stale, saveErr := c.apply(ctx, ticket, current)
	if stale {
		log.InfoContext(ctx, "A newer cycle already replaced the baseline, dropping this one", "ticket", ticket)
		result.Stale = true
		return result, nil
	}
	result.Events = events
	result.SaveErr = saveErr

	// 4. Log, report and alert.
	c.changes.Append(events...)
	log.InfoContext(ctx, "Change detection complete", "events", len(events))

	if saveErr != nil {
		log.WarnContext(ctx, "Snapshot could not be persisted, keeping it in memory", "error", saveErr)
		c.notifier.OnCycleError(ctx, saveErr)
	}

	c.notifier.OnCycleComplete(ctx, result.Snapshot, events, result.Stats)

	for _, e := range events {
		if e.Kind == models.KindIn || (c.notifyPrices && e.IsPriceChange()) {
			c.notifier.Notify(ctx, e)
		}
	}

	return result, nil
}

// apply runs the critical section: diff, baseline swap and save.
func (c *Checker) apply(ctx context.Context, ticket uint64, current models.Snapshot) ([]models.ChangeEvent, bool, error) {
	const opn = "checker.apply"

	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if ticket < c.applied {
		return nil, true, nil
	}
	c.loadBaselineLocked(ctx)

	now := c.now()
	events := Diff(c.baseline, current, c.tolerance, now)
	c.baseline = current
	c.applied = ticket
	c.lastRun = now

	// The save belongs to the cycle: it must finish even if the caller goes away.
	if err := c.store.Save(context.WithoutCancel(ctx), current); err != nil {
		return events, false, fmt.Errorf("%s: failed to save snapshot: %w", opn, err)
	}

	return events, false, nil
}

// Snapshot returns a copy of the current baseline.
func (c *Checker) Snapshot() models.Snapshot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.baseline.Clone()
}

// Stats summarises the current baseline.
func (c *Checker) Stats() models.Stats {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.baseline.Stats()
}

// LastRun returns when the baseline was last replaced; zero before the first cycle.
func (c *Checker) LastRun() time.Time {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.lastRun
}

// Changes returns the change log, newest first.
func (c *Checker) Changes() []models.ChangeEvent {
	return c.changes.Entries()
}

// ClearChanges empties the change log.
func (c *Checker) ClearChanges() {
	c.changes.Clear()
}
