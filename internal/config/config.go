package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppName     = "catalog-feed-import"
	EnvFileName = "config.env"
)

// Config is read from the environment. Command line flags override it.
type Config struct {
	FeedPath      string `envconfig:"FEED_PATH"`
	SeedOutput    string `envconfig:"SEED_OUTPUT"`
	SeedDBPath    string `envconfig:"SEED_DB_PATH"`
	ReferenceTime string `envconfig:"REFERENCE_TIME"`

	DefaultCurrency string   `envconfig:"DEFAULT_CURRENCY" default:"EUR"`
	ShippingProfile string   `envconfig:"SHIPPING_PROFILE" default:"Default Shipping Profile"`
	SalesChannels   []string `envconfig:"SALES_CHANNELS" default:"Default Sales Channel"`
	KeywordsFile    string   `envconfig:"KEYWORDS_FILE"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from a local .env. Errors are ignored since the files
// may not exist. Variables already set are never overridden.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load(".env")
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment config: %w", err)
	}
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	cfg.SalesChannels = trimAll(cfg.SalesChannels)
	return cfg, nil
}

// IsProduction reports whether APP_ENV selects production output.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// ParseReferenceTime parses an RFC 3339 instant or a YYYY-MM-DD date (UTC
// midnight). An empty value yields now.
func ParseReferenceTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid reference time %q: want RFC 3339 or YYYY-MM-DD", raw)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
