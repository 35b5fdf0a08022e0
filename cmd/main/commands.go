package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Houeta/stockwatch/internal/config"
	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/notifier"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli holds the state shared by the commands once PersistentPreRunE has run.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	log        *slog.Logger
}

// newRootCommand creates the root cobra command.
func newRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "stockwatch",
		Short: "stockwatch - filament stock and price monitor",
		Long: `stockwatch samples a Shopify catalog, keeps the filament products, and reports
variants that come back in stock, go out of stock, or change price since the last check.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
	}

	cmd.PersistentFlags().StringVar(&c.configFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("env", "", "Environment: local, development, production")
	cmd.PersistentFlags().String("base-url", "", "Shop root URL")
	cmd.PersistentFlags().String("data-file", "", "Snapshot file (json) or database (sqlite)")
	cmd.PersistentFlags().String("storage", "", "Snapshot storage driver: json or sqlite")
	c.bind(cmd, config.KeyEnv, "env")
	c.bind(cmd, config.KeyBaseURL, "base-url")
	c.bind(cmd, config.KeySnapshotPath, "data-file")
	c.bind(cmd, config.KeyStorageDriver, "storage")

	cmd.AddCommand(c.newWatchCommand())
	cmd.AddCommand(c.newCheckCommand())

	return cmd
}

func (c *cli) bind(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if err := c.v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func (c *cli) init() error {
	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}

	out, err := logOutput(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	c.cfg = cfg
	c.log = setupLogger(cfg.Env, out)

	return nil
}

// newWatchCommand creates the long running monitor.
func (c *cli) newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check the catalog on an interval and send alerts",
		Long: `Run a check now, then every --interval until interrupted.

Alerts go to the log, to subscribed Telegram chats when a token is configured,
and to web socket clients when --http-addr is set.

Examples:
  stockwatch watch --interval 5m
  SW_TELEGRAM_TOKEN=... stockwatch watch --http-addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), c.cfg, c.log)
		},
	}

	cmd.Flags().Duration("interval", 0, "Polling interval, at least 1s (default 5m)")
	cmd.Flags().String("http-addr", "", "Serve the web API and socket on this address")
	c.bind(cmd, config.KeyPollInterval, "interval")
	c.bind(cmd, config.KeyHTTPAddr, "http-addr")

	return cmd
}

// newCheckCommand creates the one-shot check.
func (c *cli) newCheckCommand() *cobra.Command {
	var listIn, listOut bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single check and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.close()

			a.checker.LoadBaseline(cmd.Context())
			result, err := a.checker.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), result.Snapshot, result.Events, result.SaveErr, listIn, listOut)
		},
	}

	cmd.Flags().BoolVar(&listIn, "list-in", false, "List in-stock variants")
	cmd.Flags().BoolVar(&listOut, "list-out", false, "List out-of-stock variants")

	return cmd
}

func printResult(
	w io.Writer,
	snap models.Snapshot,
	events []models.ChangeEvent,
	saveErr error,
	listIn, listOut bool,
) error {
	var errs []error
	write := func(format string, args ...any) {
		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			errs = append(errs, err)
		}
	}

	stats := snap.Stats()
	write("%s  in stock: %d  out of stock: %d  total: %d  changes: %d\n",
		time.Now().Format(time.TimeOnly), stats.InStock, stats.OutOfStock, stats.Total, len(events))
	for _, e := range events {
		write("  %s\n", notifier.Describe(e))
	}

	lists := []struct {
		enabled      bool
		title        string
		availability models.Availability
	}{
		{listIn, "In stock", models.AvailabilityIn},
		{listOut, "Out of stock", models.AvailabilityOut},
	}
	for _, l := range lists {
		if !l.enabled {
			continue
		}
		records := snap.Filter("", l.availability)
		write("\n%s (%d):\n", l.title, len(records))
		for _, r := range records {
			write("  %s - %s  %s\n", r.ProductTitle, r.VariantTitle, models.PriceString(r.Price))
		}
	}

	if saveErr != nil {
		write("warning: snapshot was not saved: %v\n", saveErr)
	}

	return errors.Join(errs...)
}
