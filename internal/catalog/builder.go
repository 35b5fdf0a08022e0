package catalog

import (
	"bytes"
	"encoding/json"
	"net/url"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/shopspring/decimal"
)

// Builder flattens products into a snapshot of per-variant records.
type Builder struct {
	baseURL string
}

// NewBuilder creates a Builder that links records to <baseURL>/products/<handle>.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: baseURL}
}

// Build returns a fresh snapshot for products. Later duplicates of a key overwrite earlier ones.
func (b *Builder) Build(products []models.RawProduct) models.Snapshot {
	snap := make(models.Snapshot)
	for _, p := range products {
		productURL := b.productURL(p.Handle)
		for _, v := range p.Variants {
			rec := models.VariantRecord{
				ProductID:    p.ID.String(),
				VariantID:    v.ID.String(),
				ProductTitle: p.Title,
				VariantTitle: models.DefaultVariantTitle,
				Price:        parsePrice(v.Price),
				URL:          productURL,
				SKU:          v.SKU,
			}
			if v.Title != nil {
				rec.VariantTitle = *v.Title
			}
			if v.Available != nil {
				rec.Available = *v.Available
			}
			snap[rec.Key()] = rec
		}
	}

	return snap
}

func (b *Builder) productURL(handle string) string {
	u, err := url.JoinPath(b.baseURL, "products", handle)
	if err != nil {
		return b.baseURL + "/products/" + handle
	}

	return u
}

// parsePrice accepts "12.50", 12.5, null or nothing; anything unusable is zero.
func parsePrice(raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	if text == "" {
		return decimal.Zero
	}

	price, err := decimal.NewFromString(text)
	if err != nil || price.IsNegative() {
		return decimal.Zero
	}

	return price
}
