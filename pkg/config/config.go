// Package config loads the runtime configuration from the environment, a .env file and an optional YAML file
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

const (
	EnvPrefix  = "PRICEWATCH"
	DotEnvFile = ".env"

	ProviderCoinGecko = "coingecko"
	ProviderBinance   = "binance"

	StoreMemory = "memory"
	StoreBuntDB = "buntdb"

	BackendZerolog = "zerolog"
	BackendLogrus  = "logrus"
)

// Config holds the application configuration
type Config struct {
	Interval    time.Duration
	Concurrency int
	Coalesce    bool
	Store       string
	Duplicate   core.DuplicatePolicy

	Price      PriceConfig
	Thresholds ThresholdConfig
	Telegram   core.TelegramSettings
	Log        LogConfig
}

// PriceConfig selects and tunes the price provider
type PriceConfig struct {
	Provider string
	BaseURL  string
	Currency string
	APIKey   string
	Timeout  time.Duration
}

// ThresholdConfig describes the levels assigned to new records
type ThresholdConfig struct {
	Step float64
	Max  float64
}

// LogConfig selects the logging backend and its options
type LogConfig struct {
	Backend string
	logger.Options
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", "60s")
	v.SetDefault("concurrency", 4)
	v.SetDefault("coalesce", false)
	v.SetDefault("store", StoreMemory)
	v.SetDefault("duplicate_policy", string(core.PolicyReject))

	v.SetDefault("price.provider", ProviderCoinGecko)
	v.SetDefault("price.base_url", "")
	v.SetDefault("price.currency", "usd")
	v.SetDefault("price.api_key", "")
	v.SetDefault("price.timeout", "10s")

	v.SetDefault("thresholds.step", 5)
	v.SetDefault("thresholds.max", 100)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.users", "")

	v.SetDefault("log.backend", BackendZerolog)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.time_format", time.DateTime)
	v.SetDefault("log.color", true)
	v.SetDefault("log.json", false)
}

// Load reads .env if present, then the YAML file at path (optional) and the PRICEWATCH_* environment.
// Environment values take precedence over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	interval, err := duration(v, "interval")
	if err != nil {
		return nil, err
	}

	timeout, err := duration(v, "price.timeout")
	if err != nil {
		return nil, err
	}

	users, err := parseUsers(v.Get("telegram.users"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Interval:    interval,
		Concurrency: v.GetInt("concurrency"),
		Coalesce:    v.GetBool("coalesce"),
		Store:       strings.ToLower(v.GetString("store")),
		Duplicate:   core.DuplicatePolicy(strings.ToLower(v.GetString("duplicate_policy"))),
		Price: PriceConfig{
			Provider: strings.ToLower(v.GetString("price.provider")),
			BaseURL:  v.GetString("price.base_url"),
			Currency: strings.ToLower(v.GetString("price.currency")),
			APIKey:   v.GetString("price.api_key"),
			Timeout:  timeout,
		},
		Thresholds: ThresholdConfig{
			Step: v.GetFloat64("thresholds.step"),
			Max:  v.GetFloat64("thresholds.max"),
		},
		Telegram: core.TelegramSettings{
			Enabled: v.GetBool("telegram.enabled"),
			Token:   v.GetString("telegram.token"),
			Users:   users,
		},
		Log: LogConfig{
			Backend: strings.ToLower(v.GetString("log.backend")),
			Options: logger.Options{
				Level:      v.GetString("log.level"),
				TimeFormat: v.GetString("log.time_format"),
				Colored:    v.GetBool("log.color"),
				JSON:       v.GetBool("log.json"),
			},
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	case c.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	case c.Price.Timeout <= 0:
		return fmt.Errorf("price.timeout must be positive, got %s", c.Price.Timeout)
	case c.Price.Provider != ProviderCoinGecko && c.Price.Provider != ProviderBinance:
		return fmt.Errorf("unknown price.provider %q", c.Price.Provider)
	case c.Store != StoreMemory && c.Store != StoreBuntDB:
		return fmt.Errorf("unknown store %q", c.Store)
	case !c.Duplicate.Valid():
		return fmt.Errorf("unknown duplicate_policy %q", c.Duplicate)
	case len(c.Thresholds.Levels()) == 0:
		return fmt.Errorf("thresholds step %v and max %v produce no levels", c.Thresholds.Step, c.Thresholds.Max)
	case c.Telegram.Enabled && c.Telegram.Token == "":
		return errors.New("telegram.token is required when telegram is enabled")
	case c.Log.Backend != BackendZerolog && c.Log.Backend != BackendLogrus:
		return fmt.Errorf("unknown log.backend %q", c.Log.Backend)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Levels returns the thresholds assigned to new records
func (t ThresholdConfig) Levels() core.Thresholds {
	return core.StepThresholds(t.Step, t.Max)
}

// Settings returns the settings shared by the command service and the bot
func (c *Config) Settings() core.Settings {
	return core.Settings{
		Thresholds: c.Thresholds.Levels(),
		Duplicate:  c.Duplicate,
		Telegram:   c.Telegram,
	}
}

// duration accepts Go durations plus day and week units, e.g. "90s", "1d"
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	value, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

// parseUsers accepts a YAML list or a comma or space separated string of user ids
func parseUsers(raw any) ([]int64, error) {
	var fields []string
	switch value := raw.(type) {
	case nil:
	case string:
		fields = strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' ' || r == ';'
		})
	case []any:
		for _, item := range value {
			fields = append(fields, fmt.Sprint(item))
		}
	case []int:
		for _, item := range value {
			fields = append(fields, strconv.Itoa(item))
		}
	default:
		fields = []string{fmt.Sprint(value)}
	}

	users := make([]int64, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", field, err)
		}
		users = append(users, id)
	}
	return users, nil
}
