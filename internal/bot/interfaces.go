package bot

import (
	"context"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/services/checker"
	"gopkg.in/telebot.v4"
)

type API interface {
	// Handle lets you set the handler for some command name or one of the supported endpoints. It also applies middleware if such passed to the function.
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
	// Start brings bot into motion by consuming incoming updates (see Bot.Updates channel).
	Start()
	// Stop gracefully shuts the poller down.
	Stop()

	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Engine is the part of the stock checker the bot commands use.
type Engine interface {
	RunOnce(ctx context.Context) (*checker.CycleResult, error)
	Stats() models.Stats
	Changes() []models.ChangeEvent
}
