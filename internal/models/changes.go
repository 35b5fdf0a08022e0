package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeKind tags a ChangeEvent.
type ChangeKind string

const (
	KindIn        ChangeKind = "in"         // variant came back in stock
	KindOut       ChangeKind = "out"        // variant went out of stock
	KindPriceUp   ChangeKind = "price_up"   // price increased beyond tolerance
	KindPriceDown ChangeKind = "price_down" // price decreased beyond tolerance
)

// ChangeEvent - a detected transition of one variant between two consecutive snapshots.
// Price fields other than Price are only set for price changes.
type ChangeEvent struct {
	ID            string              `json:"id"`
	Kind          ChangeKind          `json:"type"`
	ProductID     string              `json:"product_id"`
	VariantID     string              `json:"variant_id"`
	ProductTitle  string              `json:"product"`
	VariantTitle  string              `json:"variant"`
	URL           string              `json:"url"`
	Timestamp     time.Time           `json:"time"`
	Price         decimal.Decimal     `json:"price"`
	PreviousPrice decimal.NullDecimal `json:"old_price"`
	DeltaAbsolute decimal.NullDecimal `json:"price_change"`
	DeltaPercent  decimal.NullDecimal `json:"price_change_percent"`
}

// IsAvailability reports whether the event is an in/out transition.
func (e ChangeEvent) IsAvailability() bool {
	return e.Kind == KindIn || e.Kind == KindOut
}

// IsPriceChange reports whether the event is a price transition.
func (e ChangeEvent) IsPriceChange() bool {
	return e.Kind == KindPriceUp || e.Kind == KindPriceDown
}
