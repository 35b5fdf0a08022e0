package models

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultVariantTitle is used when upstream omits a variant title.
const DefaultVariantTitle = "Default"

// VariantRecord is one trackable (product, variant) unit captured at fetch time.
type VariantRecord struct {
	ProductID    string          `json:"product_id"`
	VariantID    string          `json:"variant_id"`
	ProductTitle string          `json:"product"`
	VariantTitle string          `json:"variant"`
	Available    bool            `json:"available"`
	Price        decimal.Decimal `json:"price"`
	URL          string          `json:"url"`
	SKU          string          `json:"sku,omitempty"`
}

// Key returns the snapshot key of the record.
func (r VariantRecord) Key() string {
	return Key(r.ProductID, r.VariantID)
}

// Key builds the stable snapshot key "productId_variantId".
func Key(productID, variantID string) string {
	return productID + "_" + variantID
}

// Snapshot maps Key(productID, variantID) to the record seen at one point in time.
type Snapshot map[string]VariantRecord

// Stats is the availability summary of a snapshot, counted per variant.
type Stats struct {
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_stock"`
	Total      int `json:"total"`
}

// Availability selects records by stock state in Snapshot.Filter.
type Availability string

const (
	AvailabilityAll Availability = ""
	AvailabilityIn  Availability = "in"
	AvailabilityOut Availability = "out"
)

// Keys returns the snapshot keys in ascending order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Stats counts in-stock and out-of-stock variants.
func (s Snapshot) Stats() Stats {
	var st Stats
	for _, r := range s {
		if r.Available {
			st.InStock++
		} else {
			st.OutOfStock++
		}
	}
	st.Total = len(s)

	return st
}

// Clone returns a shallow copy; records are values so the copy shares nothing mutable.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}

	return out
}

// Filter returns the records whose product or variant title contains query
// (case-insensitive) and whose availability matches, ordered by product then variant title.
func (s Snapshot) Filter(query string, availability Availability) []VariantRecord {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]VariantRecord, 0, len(s))
	for _, r := range s {
		if query != "" &&
			!strings.Contains(strings.ToLower(r.ProductTitle), query) &&
			!strings.Contains(strings.ToLower(r.VariantTitle), query) {
			continue
		}
		if availability == AvailabilityIn && !r.Available {
			continue
		}
		if availability == AvailabilityOut && r.Available {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductTitle != out[j].ProductTitle {
			return out[i].ProductTitle < out[j].ProductTitle
		}
		if out[i].VariantTitle != out[j].VariantTitle {
			return out[i].VariantTitle < out[j].VariantTitle
		}
		return out[i].Key() < out[j].Key()
	})

	return out
}

// PriceString renders a price keeping its scale, so "636.00" parses back to the same decimal.
func PriceString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}

	return d.String()
}
