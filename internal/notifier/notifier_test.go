package notifier_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/notifier"
	"github.com/Houeta/stockwatch/test/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func priceEvent(kind models.ChangeKind, prev, cur, delta, percent string) models.ChangeEvent {
	return models.ChangeEvent{
		Kind:          kind,
		ProductTitle:  "PETG",
		VariantTitle:  "Blue",
		Price:         decimal.RequireFromString(cur),
		PreviousPrice: decimal.NewNullDecimal(decimal.RequireFromString(prev)),
		DeltaAbsolute: decimal.NewNullDecimal(decimal.RequireFromString(delta)),
		DeltaPercent:  decimal.NewNullDecimal(decimal.RequireFromString(percent)),
	}
}

func TestDescribe(t *testing.T) {
	testCases := []struct {
		name     string
		event    models.ChangeEvent
		expected string
	}{
		{
			name: "back in stock",
			event: models.ChangeEvent{Kind: models.KindIn, ProductTitle: "PLA", VariantTitle: "Red",
				Price: decimal.NewFromInt(636)},
			expected: "Back in stock: PLA - Red (636.00)",
		},
		{
			name:     "out of stock without variant title",
			event:    models.ChangeEvent{Kind: models.KindOut, ProductTitle: "PLA"},
			expected: "Out of stock: PLA",
		},
		{
			name:     "price up",
			event:    priceEvent(models.KindPriceUp, "50", "65", "15", "30"),
			expected: "Price up: PETG - Blue 50.00 -> 65.00 (+15.00, 30.0%)",
		},
		{
			name:     "price down",
			event:    priceEvent(models.KindPriceDown, "80", "60", "20", "25"),
			expected: "Price down: PETG - Blue 80.00 -> 60.00 (-20.00, 25.0%)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, notifier.Describe(tc.event))
		})
	}
}

func TestMulti_FanOut(t *testing.T) {
	ctx := t.Context()
	first := mocks.NewCollaborator(t)
	second := mocks.NewCollaborator(t)

	event := models.ChangeEvent{ID: "e1", Kind: models.KindIn, Timestamp: time.Now()}
	stats := models.Stats{InStock: 1, Total: 1}
	cycleErr := errors.New("boom")

	for _, c := range []*mocks.Collaborator{first, second} {
		c.On("OnCycleComplete", ctx, mock.Anything, []models.ChangeEvent{event}, stats).Return().Once()
		c.On("OnCycleError", ctx, cycleErr).Return().Once()
		c.On("Notify", ctx, event).Return().Once()
	}

	multi := notifier.NewMulti(first)
	multi.Add(second)

	multi.OnCycleComplete(ctx, models.Snapshot{}, []models.ChangeEvent{event}, stats)
	multi.OnCycleError(ctx, cycleErr)
	multi.Notify(ctx, event)
}

func TestMulti_Empty(t *testing.T) {
	multi := notifier.NewMulti()

	assert.NotPanics(t, func() {
		multi.Notify(t.Context(), models.ChangeEvent{})
		multi.OnCycleError(t.Context(), errors.New("x"))
	})
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	console := notifier.NewConsole(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := t.Context()

	in := models.ChangeEvent{Kind: models.KindIn, ProductTitle: "PLA", VariantTitle: "Red", Price: decimal.NewFromInt(1)}
	out := models.ChangeEvent{Kind: models.KindOut, ProductTitle: "ABS"}

	console.OnCycleComplete(ctx, models.Snapshot{}, []models.ChangeEvent{in, out}, models.Stats{InStock: 3, OutOfStock: 1, Total: 4})
	logged := buf.String()
	assert.Contains(t, logged, "Out of stock: ABS")
	assert.NotContains(t, logged, "Back in stock", "in events are left to Notify")
	assert.Contains(t, logged, "in_stock=3")

	buf.Reset()
	console.Notify(ctx, in)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "Back in stock: PLA - Red")

	buf.Reset()
	console.OnCycleError(ctx, errors.New("upstream down"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "upstream down")
}
