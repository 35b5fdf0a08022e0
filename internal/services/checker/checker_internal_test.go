package checker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Houeta/stockwatch/internal/catalog"
	"github.com/Houeta/stockwatch/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records saves; it cannot come from test/mocks, which imports this package.
type countingStore struct {
	saves int
}

func (s *countingStore) Load(context.Context) (models.Snapshot, error) { return models.Snapshot{}, nil }

func (s *countingStore) Save(context.Context, models.Snapshot) error {
	s.saves++
	return nil
}

type fixedFetcher []models.RawProduct

func (f fixedFetcher) Fetch(context.Context) ([]models.RawProduct, error) { return f, nil }

// recordingCollaborator counts the callbacks it receives.
type recordingCollaborator struct {
	completed, failed, notified int
}

func (r *recordingCollaborator) OnCycleComplete(context.Context, models.Snapshot, []models.ChangeEvent, models.Stats) {
	r.completed++
}

func (r *recordingCollaborator) OnCycleError(context.Context, error) { r.failed++ }

func (r *recordingCollaborator) Notify(context.Context, models.ChangeEvent) { r.notified++ }

func TestRunOnce_StaleCycleSkipsCallbacks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &countingStore{}
	collab := &recordingCollaborator{}
	available := true

	fetcher := fixedFetcher{{
		ID: "1", Title: "PLA", Handle: "pla",
		Variants: []models.RawVariant{{ID: "1", Available: &available, Price: []byte(`"5.00"`)}},
	}}
	c := NewChecker(logger, fetcher, catalog.NewClassifier(logger, nil, false),
		catalog.NewBuilder("https://shop.example"), store, collab, Options{})

	// A cycle with a later ticket has already been applied.
	c.loaded = true
	c.applied = 10

	result, err := c.RunOnce(t.Context())

	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Empty(t, result.Events)
	assert.Zero(t, collab.completed)
	assert.Zero(t, collab.failed)
	assert.Zero(t, collab.notified)
	assert.Zero(t, store.saves)
	assert.Empty(t, c.Snapshot())
}

func TestApply_DropsStaleTicket(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &countingStore{}

	c := NewChecker(logger, nil, catalog.NewClassifier(logger, nil, false),
		catalog.NewBuilder("https://shop.example"), store, nil, Options{})

	newer := models.Snapshot{"1_1": {ProductID: "1", VariantID: "1", Available: true, Price: decimal.NewFromInt(5)}}
	c.baseline = newer
	c.loaded = true
	c.applied = 5

	older := models.Snapshot{"1_1": {ProductID: "1", VariantID: "1", Available: false, Price: decimal.NewFromInt(5)}}
	events, stale, err := c.apply(t.Context(), 4, older)

	require.NoError(t, err)
	assert.True(t, stale)
	assert.Nil(t, events)
	assert.True(t, c.Snapshot()["1_1"].Available, "baseline must not regress")
	assert.Zero(t, store.saves)

	t.Run("newer ticket is applied", func(t *testing.T) {
		events, stale, err := c.apply(t.Context(), 6, older)

		require.NoError(t, err)
		assert.False(t, stale)
		require.Len(t, events, 1)
		assert.Equal(t, models.KindOut, events[0].Kind)
		assert.Equal(t, 1, store.saves)
		assert.Equal(t, uint64(6), c.applied)
	})
}
