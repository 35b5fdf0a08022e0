package checker

import (
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPriceTolerance suppresses price changes of at most one cent.
var DefaultPriceTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Diff compares two snapshots and returns the transitions of keys present in both.
// First sightings and keys that vanished from the catalog produce no events.
// Keys are visited in sorted order; for one key the availability event precedes the price event.
func Diff(previous, current models.Snapshot, tolerance decimal.Decimal, now time.Time) []models.ChangeEvent {
	var events []models.ChangeEvent

	for _, key := range current.Keys() {
		prev, found := previous[key]
		if !found {
			continue
		}
		cur := current[key]

		switch {
		case cur.Available && !prev.Available:
			events = append(events, newEvent(models.KindIn, cur, now))
		case !cur.Available && prev.Available:
			events = append(events, newEvent(models.KindOut, cur, now))
		}

		switch {
		case cur.Price.GreaterThan(prev.Price.Add(tolerance)):
			events = append(events, newPriceEvent(models.KindPriceUp, prev, cur, now))
		case cur.Price.LessThan(prev.Price.Sub(tolerance)):
			events = append(events, newPriceEvent(models.KindPriceDown, prev, cur, now))
		}
	}

	return events
}

func newEvent(kind models.ChangeKind, rec models.VariantRecord, now time.Time) models.ChangeEvent {
	return models.ChangeEvent{
		ID:           uuid.NewString(),
		Kind:         kind,
		ProductID:    rec.ProductID,
		VariantID:    rec.VariantID,
		ProductTitle: rec.ProductTitle,
		VariantTitle: rec.VariantTitle,
		URL:          rec.URL,
		Timestamp:    now,
		Price:        rec.Price,
	}
}

// newPriceEvent records the magnitude of the change; the kind carries its direction.
func newPriceEvent(kind models.ChangeKind, prev, cur models.VariantRecord, now time.Time) models.ChangeEvent {
	delta := cur.Price.Sub(prev.Price).Abs()

	percent := decimal.Zero
	if !prev.Price.IsZero() {
		percent = delta.Mul(hundred).Div(prev.Price)
	}

	e := newEvent(kind, cur, now)
	e.PreviousPrice = decimal.NewNullDecimal(prev.Price)
	e.DeltaAbsolute = decimal.NewNullDecimal(delta)
	e.DeltaPercent = decimal.NewNullDecimal(percent)

	return e
}
