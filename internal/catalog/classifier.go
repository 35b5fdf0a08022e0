package catalog

import (
	"log/slog"
	"strings"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// DefaultKeywords are the material names that mark a product as filament.
// Short keywords such as "pa" match broadly; that is accepted.
func DefaultKeywords() []string {
	return []string{"filament", "pla", "abs", "petg", "tpu", "asa", "flex", "nylon", "pa", "silk", "rainbow"}
}

// Classifier keeps the products relevant to tracking.
type Classifier struct {
	log              *slog.Logger
	keywords         []string
	matchDescription bool
}

// NewClassifier creates a Classifier. An empty keyword list falls back to DefaultKeywords.
// When matchDescription is set the plain text of body_html is searched as well.
func NewClassifier(log *slog.Logger, keywords []string, matchDescription bool) *Classifier {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			normalized = append(normalized, kw)
		}
	}
	if len(normalized) == 0 {
		normalized = DefaultKeywords()
	}

	return &Classifier{log: log, keywords: normalized, matchDescription: matchDescription}
}

// Keywords returns a copy of the active keyword set.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// Classify returns the subsequence of products matching any keyword, preserving order.
func (c *Classifier) Classify(products []models.RawProduct) []models.RawProduct {
	kept := make([]models.RawProduct, 0, len(products))
	for _, p := range products {
		if c.matches(p) {
			kept = append(kept, p)
		}
	}

	return kept
}

func (c *Classifier) matches(p models.RawProduct) bool {
	fields := []string{
		strings.ToLower(p.Title),
		strings.ToLower(p.ProductType),
		strings.ToLower(strings.Join(p.Tags, " ")),
	}
	if c.matchDescription && p.BodyHTML != "" {
		fields = append(fields, strings.ToLower(c.descriptionText(p)))
	}

	for _, kw := range c.keywords {
		for _, field := range fields {
			if strings.Contains(field, kw) {
				return true
			}
		}
	}

	return false
}

// descriptionText strips markup from the product description.
func (c *Classifier) descriptionText(p models.RawProduct) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.BodyHTML))
	if err != nil {
		c.log.Warn("product description cannot be parsed as HTML", "product_id", p.ID.String(), "error", err)
		return ""
	}

	return doc.Text()
}
