package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/logging"
)

// Config holds all application configuration.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Validate ValidateConfig `mapstructure:"validate"`
	Store    StoreConfig    `mapstructure:"store"`
	Diag     DiagConfig     `mapstructure:"diag"`
	Logging  logging.Config `mapstructure:"logging"`
}

// SourceConfig identifies the page to scrape and the fetch policy.
type SourceConfig struct {
	// URL is the silver rate page.
	URL string `mapstructure:"url"`

	// Timeout bounds one fetch attempt end to end (navigation + render wait).
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries is the number of additional fetch attempts after the first,
	// taken only for transient failures.
	MaxRetries int `mapstructure:"max_retries"`

	// RetryBackoff is the minimum spacing between fetch attempts.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// BrowserConfig controls the headless browser session.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox"`

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `mapstructure:"bin"`

	Proxy     string `mapstructure:"proxy"`
	UserAgent string `mapstructure:"user_agent"`

	WindowWidth  int `mapstructure:"window_width"`
	WindowHeight int `mapstructure:"window_height"`

	// WaitSelector, when set, is the content region waited for after
	// navigation instead of DOM stability.
	WaitSelector string `mapstructure:"wait_selector"`
}

// EngineConfig controls the fallback fetch engine used when the browser
// cannot be launched.
type EngineConfig struct {
	HTTPFallback bool          `mapstructure:"http_fallback"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

// ExtractConfig carries optional CSS selectors tried before the built-in
// locator strategies.
type ExtractConfig struct {
	RateSelector string `mapstructure:"rate_selector"`
	DateSelector string `mapstructure:"date_selector"`
}

// ValidateConfig is the plausibility band for extracted rates.
type ValidateConfig struct {
	RateMin float64 `mapstructure:"rate_min"`
	RateMax float64 `mapstructure:"rate_max"`
}

// StoreConfig controls the CSV dataset.
type StoreConfig struct {
	CSVPath string `mapstructure:"csv_path"`

	// DailyFiles appends the run date to the file name
	// (smm_silver_prices_20250724.csv) instead of one continuous file.
	DailyFiles bool `mapstructure:"daily_files"`

	// AuditFailedRows writes EXTRACTION_FAILED/VALIDATION_FAILED rows to the
	// dataset for audit continuity. FETCH_FAILED runs never produce a row.
	AuditFailedRows bool `mapstructure:"audit_failed_rows"`

	// LockTimeout bounds the wait for the cross-process append lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// DiagConfig controls run artifacts.
type DiagConfig struct {
	ScreenshotDir string `mapstructure:"screenshot_dir"`
	LogDir        string `mapstructure:"log_dir"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SILVERSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", "https://metal.com/Silver/20110225392")
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("source.max_retries", 2)
	v.SetDefault("source.retry_backoff", "5s")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.user_agent", defaultUserAgent)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	v.SetDefault("engine.http_fallback", true)
	v.SetDefault("engine.http_timeout", "10s")

	v.SetDefault("validate.rate_min", 1.0)
	v.SetDefault("validate.rate_max", 1000000.0)

	v.SetDefault("store.csv_path", "csv/smm_silver_prices.csv")
	v.SetDefault("store.daily_files", true)
	v.SetDefault("store.audit_failed_rows", true)
	v.SetDefault("store.lock_timeout", "10s")

	v.SetDefault("diag.screenshot_dir", "screenshots")
	v.SetDefault("diag.log_dir", "logs")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// ValidateConfig performs basic sanity checks on the configuration values.
func (c *Config) ValidateConfig() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than zero")
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("source.max_retries cannot be negative")
	}
	if c.Source.RetryBackoff <= 0 {
		return fmt.Errorf("source.retry_backoff must be greater than zero")
	}
	if c.Validate.RateMin < 0 {
		return fmt.Errorf("validate.rate_min cannot be negative")
	}
	if c.Validate.RateMax <= c.Validate.RateMin {
		return fmt.Errorf("validate.rate_max must exceed validate.rate_min")
	}
	if c.Store.CSVPath == "" {
		return fmt.Errorf("store.csv_path is required")
	}
	if c.Diag.ScreenshotDir == "" {
		return fmt.Errorf("diag.screenshot_dir is required")
	}
	if c.Diag.LogDir == "" {
		return fmt.Errorf("diag.log_dir is required")
	}
	return nil
}
