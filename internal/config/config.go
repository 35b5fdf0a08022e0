package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Houeta/stockwatch/internal/catalog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Keys shared with the command line flags.
const (
	KeyEnv              = "env"
	KeyBaseURL          = "base_url"
	KeyPollInterval     = "poll_interval"
	KeyStorageDriver    = "storage_driver"
	KeySnapshotPath     = "snapshot_path"
	KeyKeywords         = "keywords"
	KeyMatchDescription = "match_description"
	KeyPriceTolerance   = "price_tolerance"
	KeyLogCapacity      = "log_capacity"
	KeyNotifyPrices     = "notify.price_changes"
	KeyLogOutputFile    = "log.output_file"
	KeyTelegramToken    = "telegram.token"
	KeyTelegramTimeout  = "telegram.timeout"
	KeyTelegramDBPath   = "telegram.db_path"
	KeyHTTPAddr         = "http_addr"
	KeyFetchPageSize    = "fetch.page_size"
	KeyFetchPageDelay   = "fetch.page_delay"
	KeyFetchTimeout     = "fetch.request_timeout"
	KeyFetchMaxPages    = "fetch.max_pages"
)

const (
	minimumPollInterval   = time.Second
	defaultPollInterval   = 5 * time.Minute
	defaultSnapshotPath   = "stock_data.json"
	defaultBaseURL        = "https://shop.example.com"
	defaultPriceTolerance = "0.01"
)

type Config struct {
	Env              string // Env is the current environment: local, development, production.
	BaseURL          string // BaseURL is the shop root; the catalog lives at <BaseURL>/products.json.
	PollInterval     time.Duration
	Storage          Storage
	Keywords         []string
	MatchDescription bool
	PriceTolerance   decimal.Decimal
	LogCapacity      int
	NotifyPrices     bool
	LogFile          string // LogFile is an optional rotating log file next to stdout.
	Fetch            Fetch
	Tg               Telegram
	HTTPAddr         string // HTTPAddr enables the web front end when set, e.g. ":8080".
}

type Storage struct {
	Driver string // Driver is json or sqlite.
	Path   string
}

type Fetch struct {
	PageSize       int
	PageDelay      time.Duration
	RequestTimeout time.Duration
	MaxPages       int
}

type Telegram struct {
	Token   string        // Token is an unique telegram bot token; the bot is disabled when empty.
	Timeout time.Duration // Timeout is a poller timeout duration.
	DBPath  string        // DBPath holds chat subscriptions when snapshots are stored as JSON.
}

// SetDefaults registers the default of every key and binds SW_ prefixed environment variables.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix("SW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyEnv, "production")
	v.SetDefault(KeyBaseURL, defaultBaseURL)
	v.SetDefault(KeyPollInterval, defaultPollInterval)
	v.SetDefault(KeyStorageDriver, DriverJSON)
	v.SetDefault(KeySnapshotPath, defaultSnapshotPath)
	v.SetDefault(KeyKeywords, []string{})
	v.SetDefault(KeyMatchDescription, false)
	v.SetDefault(KeyPriceTolerance, defaultPriceTolerance)
	v.SetDefault(KeyLogCapacity, 50)
	v.SetDefault(KeyNotifyPrices, false)
	v.SetDefault(KeyLogOutputFile, "")
	v.SetDefault(KeyTelegramToken, "")
	v.SetDefault(KeyTelegramTimeout, "15s")
	v.SetDefault(KeyTelegramDBPath, "subscriptions.db")
	v.SetDefault(KeyHTTPAddr, "")
	v.SetDefault(KeyFetchPageSize, 250)
	v.SetDefault(KeyFetchPageDelay, "500ms")
	v.SetDefault(KeyFetchTimeout, "30s")
	v.SetDefault(KeyFetchMaxPages, 100)
}

// Load reads the configuration from v: defaults, then the config file if one was set with
// SetConfigFile, then SW_ environment variables and bound flags. The result is validated.
func Load(v *viper.Viper) (*Config, error) {
	const opn = "config.Load"

	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%s: failed to read config file %q: %w", opn, v.ConfigFileUsed(), err)
		}
	}

	tolerance, err := decimal.NewFromString(strings.TrimSpace(v.GetString(KeyPriceTolerance)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: price_tolerance %q: %w", opn, ErrInvalidConfig, v.GetString(KeyPriceTolerance), err)
	}

	cfg := &Config{
		Env:          v.GetString(KeyEnv),
		BaseURL:      strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		PollInterval: seconds(v, KeyPollInterval),
		Storage: Storage{
			Driver: strings.ToLower(v.GetString(KeyStorageDriver)),
			Path:   v.GetString(KeySnapshotPath),
		},
		Keywords:         splitList(v.GetStringSlice(KeyKeywords)),
		MatchDescription: v.GetBool(KeyMatchDescription),
		PriceTolerance:   tolerance,
		LogCapacity:      v.GetInt(KeyLogCapacity),
		NotifyPrices:     v.GetBool(KeyNotifyPrices),
		LogFile:          v.GetString(KeyLogOutputFile),
		Fetch: Fetch{
			PageSize:       v.GetInt(KeyFetchPageSize),
			PageDelay:      v.GetDuration(KeyFetchPageDelay),
			RequestTimeout: v.GetDuration(KeyFetchTimeout),
			MaxPages:       v.GetInt(KeyFetchMaxPages),
		},
		Tg: Telegram{
			Token:   v.GetString(KeyTelegramToken),
			Timeout: v.GetDuration(KeyTelegramTimeout),
			DBPath:  v.GetString(KeyTelegramDBPath),
		},
		HTTPAddr: v.GetString(KeyHTTPAddr),
	}

	if len(cfg.Keywords) == 0 {
		cfg.Keywords = catalog.DefaultKeywords()
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return cfg, nil
}

// MustLoad loads the configuration from the environment and panics when it is invalid.
func MustLoad() *Config {
	cfg, err := Load(viper.New())
	if err != nil {
		panic(err)
	}

	return cfg
}

// Validate checks the values that would otherwise fail only once monitoring is running.
func (c *Config) Validate() error {
	var errs []error

	if c.PollInterval < minimumPollInterval {
		errs = append(errs, fmt.Errorf("%w: poll_interval %s is below %s", ErrInvalidConfig, c.PollInterval, minimumPollInterval))
	}
	if c.Storage.Driver != DriverJSON && c.Storage.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.Storage.Driver))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: snapshot_path is empty", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, fmt.Errorf("%w: base_url is empty", ErrInvalidConfig))
	}
	if c.PriceTolerance.IsNegative() {
		errs = append(errs, fmt.Errorf("%w: price_tolerance must not be negative", ErrInvalidConfig))
	}
	if c.LogCapacity < 1 {
		errs = append(errs, fmt.Errorf("%w: log_capacity must be positive", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// seconds reads a duration setting where a bare integer such as 300 counts as seconds.
func seconds(v *viper.Viper, key string) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return time.Duration(n) * time.Second
	}

	return v.GetDuration(key)
}

// splitList accepts both a real list and a single comma separated value from the environment.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
