package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Houeta/stockwatch/internal/bot"
	"github.com/Houeta/stockwatch/internal/catalog"
	"github.com/Houeta/stockwatch/internal/config"
	"github.com/Houeta/stockwatch/internal/notifier"
	"github.com/Houeta/stockwatch/internal/repository"
	"github.com/Houeta/stockwatch/internal/repository/jsonfile"
	"github.com/Houeta/stockwatch/internal/repository/sqlite"
	"github.com/Houeta/stockwatch/internal/scheduler"
	"github.com/Houeta/stockwatch/internal/server"
	"github.com/Houeta/stockwatch/internal/services/checker"
)

// app is the wired engine shared by the commands.
type app struct {
	log       *slog.Logger
	checker   *checker.Checker
	notifiers *notifier.Multi
	store     repository.SnapshotStore
	sqliteDB  *sqlite.Repository
	closers   []func() error
}

// newApp builds the engine. An unusable snapshot location fails here, before any cycle runs.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	const opn = "main.newApp"

	a := &app{log: log, notifiers: notifier.NewMulti(notifier.NewConsole(log))}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		repo, err := sqlite.NewRepository(ctx, log, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open snapshot database: %w", opn, err)
		}
		a.store = repo
		a.sqliteDB = repo
		a.closers = append(a.closers, repo.Close)
	default:
		store, err := jsonfile.NewStore(log, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open snapshot file: %w", opn, err)
		}
		a.store = store
	}

	fetcher := catalog.NewFetcher(log, cfg.BaseURL, catalog.Options{
		PageSize:       cfg.Fetch.PageSize,
		PageDelay:      cfg.Fetch.PageDelay,
		RequestTimeout: cfg.Fetch.RequestTimeout,
		MaxPages:       cfg.Fetch.MaxPages,
	})

	a.checker = checker.NewChecker(
		log,
		fetcher,
		catalog.NewClassifier(log, cfg.Keywords, cfg.MatchDescription),
		catalog.NewBuilder(cfg.BaseURL),
		a.store,
		a.notifiers,
		checker.Options{
			PriceTolerance:     cfg.PriceTolerance,
			LogCapacity:        cfg.LogCapacity,
			NotifyPriceChanges: cfg.NotifyPrices,
		},
	)

	return a, nil
}

// subscriptions returns the chat store: the snapshot database when there is one,
// a dedicated sqlite file otherwise.
func (a *app) subscriptions(ctx context.Context, path string) (repository.SubscriptionRepository, error) {
	if a.sqliteDB != nil {
		return a.sqliteDB, nil
	}

	repo, err := sqlite.NewRepository(ctx, a.log, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriptions database: %w", err)
	}
	a.closers = append(a.closers, repo.Close)

	return repo, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("Failed to close resource", "error", err)
		}
	}
}

// runWatch runs the monitor until ctx is canceled.
func runWatch(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(log, func(ctx context.Context) error {
		_, err := a.checker.RunOnce(ctx)
		return err
	})

	if cfg.Tg.Token != "" {
		subs, err := a.subscriptions(ctx, cfg.Tg.DBPath)
		if err != nil {
			return err
		}
		tgBot, err := bot.NewBot(log, cfg.Tg.Token, cfg.Tg.Timeout, subs, a.checker)
		if err != nil {
			return err
		}
		a.notifiers.Add(tgBot)

		// Start the bot in a goroutine to allow main to listen for signals.
		go tgBot.Start()
		defer tgBot.Stop()
	}

	serverErr := make(chan error, 1)
	serving := cfg.HTTPAddr != ""
	if serving {
		srv := server.New(log, cfg.HTTPAddr, a.checker, sched)
		a.notifiers.Add(srv.Hub())
		go func() { serverErr <- srv.Run(ctx) }()
	}

	log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.",
		"baseline", a.checker.LoadBaseline(ctx), "interval", cfg.PollInterval.String())

	if _, err = a.checker.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "Initial check failed, monitoring continues", "error", err)
	}

	sched.Start(ctx, cfg.PollInterval)

	var runErr error
	select {
	case <-ctx.Done():
		log.InfoContext(ctx, "Shutdown signal received. Stopping application...")
		if serving {
			runErr = <-serverErr
		}
	case runErr = <-serverErr:
		log.ErrorContext(ctx, "HTTP server failed, stopping", "error", runErr)
	}

	sched.Stop()
	sched.Wait()

	log.InfoContext(ctx, "Application stopped gracefully.")

	return runErr
}
