package models

import (
	"encoding/json"
	"strings"
)

// RawProduct is one product as returned by the upstream /products.json listing.
type RawProduct struct {
	ID          json.Number  `json:"id"`
	Title       string       `json:"title"`
	Handle      string       `json:"handle"`
	ProductType string       `json:"product_type"`
	Tags        Tags         `json:"tags"`
	BodyHTML    string       `json:"body_html"`
	Variants    []RawVariant `json:"variants"`
}

// RawVariant is one purchasable option of a RawProduct.
// Pointer and raw fields distinguish "missing" from "zero" so the builder can apply defaults.
type RawVariant struct {
	ID        json.Number     `json:"id"`
	Title     *string         `json:"title"`
	Available *bool           `json:"available"`
	Price     json.RawMessage `json:"price"`
	SKU       string          `json:"sku"`
}

// Tags accepts both a JSON array of strings and a single comma separated string.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}

	*t = nil
	for _, tag := range strings.Split(joined, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			*t = append(*t, tag)
		}
	}

	return nil
}
