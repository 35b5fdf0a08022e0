package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/notifier"
	"github.com/Houeta/stockwatch/internal/repository"
	"gopkg.in/telebot.v4"
)

// ErrEmptyToken is returned by NewBot when no token was configured.
var ErrEmptyToken = errors.New("telegram token is not specified")

// sendTimeout bounds one alert fan-out to all subscribers.
const sendTimeout = 30 * time.Second

// Bot contains the bot API instance and other information.
// It implements notifier.Collaborator: alerts are sent to every subscribed chat.
type Bot struct {
	bot    API
	log    *slog.Logger
	repo   repository.SubscriptionRepository
	engine Engine
}

func NewBot(
	log *slog.Logger,
	token string,
	poller time.Duration,
	repo repository.SubscriptionRepository,
	engine Engine,
) (*Bot, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	botInstance := &Bot{bot: bot, log: log, repo: repo, engine: engine}

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	// Public routes.
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/stop", b.stopHandler)
	b.bot.Handle("/status", b.statusHandler)
	b.bot.Handle("/changes", b.changesHandler)
	b.bot.Handle("/refresh", b.refreshHandler)
}

// OnCycleComplete implements notifier.Collaborator. Chats only receive alerts.
func (b *Bot) OnCycleComplete(ctx context.Context, _ models.Snapshot, events []models.ChangeEvent, _ models.Stats) {
	b.log.DebugContext(ctx, "Cycle complete", "op", "bot.OnCycleComplete", "events", len(events))
}

// OnCycleError implements notifier.Collaborator. Failures are not pushed to chats.
func (b *Bot) OnCycleError(ctx context.Context, err error) {
	b.log.DebugContext(ctx, "Cycle failed", "op", "bot.OnCycleError", "error", err)
}

// Notify sends the event to every subscribed chat. Chats that blocked the bot are unsubscribed.
func (b *Bot) Notify(ctx context.Context, event models.ChangeEvent) {
	const opn = "bot.Notify"
	log := b.log.With("op", opn)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	chats, err := b.repo.GetSubscribedChats(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to get subscribed chats", "error", err)
		return
	}

	text := FormatEvent(event)
	for _, chatID := range chats {
		_, err = b.bot.Send(&telebot.Chat{ID: chatID}, text, telebot.ModeHTML)
		switch {
		case err == nil:
			log.DebugContext(ctx, "Alert sent", "chat_id", chatID, "type", string(event.Kind))
		case errors.Is(err, telebot.ErrBlockedByUser), errors.Is(err, telebot.ErrChatNotFound):
			log.InfoContext(ctx, "Chat is unreachable, unsubscribing", "chat_id", chatID, "error", err)
			if _, err = b.repo.UnsubscribeChat(ctx, chatID); err != nil {
				log.ErrorContext(ctx, "Failed to unsubscribe chat", "chat_id", chatID, "error", err)
			}
		default:
			log.ErrorContext(ctx, "Failed to send alert", "chat_id", chatID, "error", err)
		}
	}
}

// FormatEvent renders an event as a Telegram HTML message.
func FormatEvent(e models.ChangeEvent) string {
	name := e.ProductTitle
	if e.VariantTitle != "" {
		name += " - " + e.VariantTitle
	}

	link := html.EscapeString(name)
	if e.URL != "" {
		link = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(e.URL), link)
	}

	var sb strings.Builder
	switch e.Kind {
	case models.KindIn:
		sb.WriteString("✅ <b>Back in stock</b>\n")
	case models.KindOut:
		sb.WriteString("❌ <b>Out of stock</b>\n")
	case models.KindPriceUp:
		sb.WriteString("📈 <b>Price up</b>\n")
	case models.KindPriceDown:
		sb.WriteString("📉 <b>Price down</b>\n")
	}
	sb.WriteString(link)
	sb.WriteString("\n")

	if e.IsPriceChange() {
		fmt.Fprintf(&sb, "Price: %s → %s (%s%%)",
			e.PreviousPrice.Decimal.StringFixed(2), e.Price.StringFixed(2), e.DeltaPercent.Decimal.StringFixed(1))
	} else {
		fmt.Fprintf(&sb, "Price: %s", e.Price.StringFixed(2))
	}

	return sb.String()
}

var _ notifier.Collaborator = (*Bot)(nil)
