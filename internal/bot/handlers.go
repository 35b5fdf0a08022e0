package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Houeta/stockwatch/internal/notifier"
	"gopkg.in/telebot.v4"
)

const (
	changesShown   = 10
	refreshTimeout = 5 * time.Minute
	storeTimeout   = 10 * time.Second
)

// startHandler process command /start.
func (b *Bot) startHandler(ctx telebot.Context) error {
	b.log.Info("User started the bot", "username", ctx.Sender().Username)

	reqCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	added, err := b.repo.SubscribeChat(reqCtx, ctx.Chat().ID)
	if err != nil {
		b.log.Error("Failed to subscribe chat", "chat_id", ctx.Chat().ID, "error", err)
		return ctx.Send("Sorry, I could not subscribe this chat. Please try again later.")
	}

	msg := "You are already subscribed to stock alerts."
	if added {
		msg = "Hello! You will get a message when tracked filament is back in stock. Send /stop to unsubscribe."
	}

	if err = ctx.Send(msg); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// stopHandler process command /stop.
func (b *Bot) stopHandler(ctx telebot.Context) error {
	reqCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	removed, err := b.repo.UnsubscribeChat(reqCtx, ctx.Chat().ID)
	if err != nil {
		b.log.Error("Failed to unsubscribe chat", "chat_id", ctx.Chat().ID, "error", err)
		return ctx.Send("Sorry, I could not unsubscribe this chat. Please try again later.")
	}

	msg := "This chat was not subscribed."
	if removed {
		msg = "Unsubscribed. Send /start to get alerts again."
	}

	if err = ctx.Send(msg); err != nil {
		return fmt.Errorf("failed to send unsubscribe message: %w", err)
	}

	return nil
}

// statusHandler process command /status.
func (b *Bot) statusHandler(ctx telebot.Context) error {
	stats := b.engine.Stats()

	msg := fmt.Sprintf("In stock: %d\nOut of stock: %d\nTotal variants: %d",
		stats.InStock, stats.OutOfStock, stats.Total)
	if err := ctx.Send(msg); err != nil {
		return fmt.Errorf("failed to send status message: %w", err)
	}

	return nil
}

// changesHandler process command /changes.
func (b *Bot) changesHandler(ctx telebot.Context) error {
	changes := b.engine.Changes()
	if len(changes) == 0 {
		return ctx.Send("No changes detected yet.")
	}
	if len(changes) > changesShown {
		changes = changes[:changesShown]
	}

	lines := make([]string, 0, len(changes))
	for _, e := range changes {
		lines = append(lines, e.Timestamp.Format("02.01 15:04")+" "+notifier.Describe(e))
	}

	if err := ctx.Send(strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to send changes message: %w", err)
	}

	return nil
}

// refreshHandler process command /refresh. It runs a cycle outside the schedule.
func (b *Bot) refreshHandler(ctx telebot.Context) error {
	reqCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	result, err := b.engine.RunOnce(reqCtx)
	if err != nil {
		b.log.Error("Manual refresh failed", "chat_id", ctx.Chat().ID, "error", err)
		return ctx.Send("Refresh failed, the shop could not be reached.")
	}

	msg := fmt.Sprintf("Checked %d variants: %d in stock, %d out of stock, %d changes.",
		result.Stats.Total, result.Stats.InStock, result.Stats.OutOfStock, len(result.Events))
	if err = ctx.Send(msg); err != nil {
		return fmt.Errorf("failed to send refresh message: %w", err)
	}

	return nil
}
