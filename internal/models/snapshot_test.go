package models_test

import (
	"testing"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		"1_1": {ProductID: "1", VariantID: "1", ProductTitle: "PLA", VariantTitle: "Red", Available: true},
		"1_2": {ProductID: "1", VariantID: "2", ProductTitle: "PLA", VariantTitle: "Blue", Available: false},
		"2_1": {ProductID: "2", VariantID: "1", ProductTitle: "PETG", VariantTitle: "Red", Available: true},
		"3_1": {ProductID: "3", VariantID: "1", ProductTitle: "Silk PLA", VariantTitle: "Gold", Available: false},
	}
}

func TestSnapshot_Stats(t *testing.T) {
	assert.Equal(t, models.Stats{InStock: 2, OutOfStock: 2, Total: 4}, testSnapshot().Stats())
	assert.Equal(t, models.Stats{}, models.Snapshot{}.Stats())
}

func TestSnapshot_Clone(t *testing.T) {
	original := testSnapshot()
	clone := original.Clone()

	delete(clone, "1_1")
	rec := clone["1_2"]
	rec.Available = true
	clone["1_2"] = rec

	assert.Len(t, original, 4)
	assert.False(t, original["1_2"].Available)
}

func TestSnapshot_Filter(t *testing.T) {
	snap := testSnapshot()

	testCases := []struct {
		name         string
		query        string
		availability models.Availability
		expected     []string
	}{
		{name: "everything", expected: []string{"2_1", "1_2", "1_1", "3_1"}},
		{name: "in stock", availability: models.AvailabilityIn, expected: []string{"2_1", "1_1"}},
		{name: "out of stock", availability: models.AvailabilityOut, expected: []string{"1_2", "3_1"}},
		{name: "query matches product, case insensitive", query: " pla ", expected: []string{"1_2", "1_1", "3_1"}},
		{name: "query matches variant", query: "RED", expected: []string{"2_1", "1_1"}},
		{name: "query and availability", query: "pla", availability: models.AvailabilityOut, expected: []string{"1_2", "3_1"}},
		{name: "no match", query: "nylon", expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := make([]string, 0)
			for _, r := range snap.Filter(tc.query, tc.availability) {
				got = append(got, r.Key())
			}

			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestPriceString(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "636.00", expected: "636.00"},
		{in: "12.5", expected: "12.5"},
		{in: "0", expected: "0"},
		{in: "100", expected: "100"},
		{in: "0.10", expected: "0.10"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, models.PriceString(decimal.RequireFromString(tc.in)))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "10_20", models.Key("10", "20"))
	assert.Equal(t, "10_20", models.VariantRecord{ProductID: "10", VariantID: "20"}.Key())
}

func TestChangeEvent_Kinds(t *testing.T) {
	assert.True(t, models.ChangeEvent{Kind: models.KindIn}.IsAvailability())
	assert.True(t, models.ChangeEvent{Kind: models.KindOut}.IsAvailability())
	assert.False(t, models.ChangeEvent{Kind: models.KindOut}.IsPriceChange())
	assert.True(t, models.ChangeEvent{Kind: models.KindPriceUp}.IsPriceChange())
	assert.True(t, models.ChangeEvent{Kind: models.KindPriceDown}.IsPriceChange())
}
