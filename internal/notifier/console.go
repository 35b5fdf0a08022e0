package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/stockwatch/internal/models"
)

// Console reports through the application logger. It stands in for desktop alerts.
type Console struct {
	log *slog.Logger
}

// NewConsole creates a Console collaborator.
func NewConsole(log *slog.Logger) *Console {
	return &Console{log: log}
}

// OnCycleComplete logs the stock summary and every non-alert transition.
func (c *Console) OnCycleComplete(ctx context.Context, _ models.Snapshot, events []models.ChangeEvent, stats models.Stats) {
	for _, e := range events {
		if e.Kind == models.KindIn {
			continue // reported by Notify
		}
		c.log.InfoContext(ctx, Describe(e), "type", string(e.Kind), "url", e.URL)
	}

	c.log.InfoContext(ctx, "Stock summary",
		"in_stock", stats.InStock, "out_of_stock", stats.OutOfStock, "total", stats.Total, "changes", len(events))
}

// OnCycleError logs the failure.
func (c *Console) OnCycleError(ctx context.Context, err error) {
	c.log.ErrorContext(ctx, "Stock check failed", "error", err)
}

// Notify logs the alert at warn level so it survives the production log level.
func (c *Console) Notify(ctx context.Context, event models.ChangeEvent) {
	c.log.WarnContext(ctx, Describe(event), "type", string(event.Kind), "url", event.URL)
}

// Describe renders a one-line, human readable summary of an event.
func Describe(e models.ChangeEvent) string {
	name := e.ProductTitle
	if e.VariantTitle != "" {
		name += " - " + e.VariantTitle
	}

	switch e.Kind {
	case models.KindIn:
		return fmt.Sprintf("Back in stock: %s (%s)", name, e.Price.StringFixed(2))
	case models.KindOut:
		return "Out of stock: " + name
	case models.KindPriceUp:
		return fmt.Sprintf("Price up: %s %s -> %s (+%s, %s%%)", name,
			e.PreviousPrice.Decimal.StringFixed(2), e.Price.StringFixed(2),
			e.DeltaAbsolute.Decimal.StringFixed(2), e.DeltaPercent.Decimal.StringFixed(1))
	case models.KindPriceDown:
		return fmt.Sprintf("Price down: %s %s -> %s (-%s, %s%%)", name,
			e.PreviousPrice.Decimal.StringFixed(2), e.Price.StringFixed(2),
			e.DeltaAbsolute.Decimal.StringFixed(2), e.DeltaPercent.Decimal.StringFixed(1))
	default:
		return "Change: " + name
	}
}
