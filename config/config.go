package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable, e.g. HARVEST_SOURCE_LOCATION
const EnvPrefix = "HARVEST"

// Missing-hometown grouping policies for imputation
const (
	MissingHometownIsolated = "isolated"
	MissingHometownShared   = "shared"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application-level configuration
type Config struct {
	// Source
	SourceLocation  string `yaml:"source_location" envconfig:"SOURCE_LOCATION"`
	RowSelector     string `yaml:"row_selector" envconfig:"ROW_SELECTOR"`
	NextButtonXPath string `yaml:"next_button_xpath" envconfig:"NEXT_BUTTON_XPATH"`
	Headless        bool   `yaml:"headless" envconfig:"HEADLESS"`
	PageSizeHint    int    `yaml:"page_size_hint" envconfig:"PAGE_SIZE_HINT"`

	// Harvest timing
	SettleDelay   time.Duration `yaml:"settle_delay" envconfig:"SETTLE_DELAY"`
	RenderTimeout time.Duration `yaml:"render_timeout" envconfig:"RENDER_TIMEOUT"`
	RunTimeout    time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
	MaxPages      int           `yaml:"max_pages" envconfig:"MAX_PAGES"`
	StaleRetries  int           `yaml:"stale_retries" envconfig:"STALE_RETRIES"`

	// Cleaning
	MissingHometown string `yaml:"missing_hometown" envconfig:"MISSING_HOMETOWN"`

	// Output
	OutputDirectory string `yaml:"output_directory" envconfig:"OUTPUT_DIRECTORY"`

	// Optional downstream sinks
	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`
	SQLitePath  string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	MaxRetries  int    `yaml:"max_retries" envconfig:"MAX_RETRIES"`

	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		SourceLocation:  "http://localhost:5173",
		RowSelector:     "table tbody tr",
		NextButtonXPath: "//button[contains(text(), 'Next')]",
		Headless:        true,
		PageSizeHint:    10,
		SettleDelay:     1500 * time.Millisecond,
		RenderTimeout:   20 * time.Second,
		RunTimeout:      25 * time.Minute,
		MaxPages:        1000,
		StaleRetries:    2,
		MissingHometown: MissingHometownIsolated,
		OutputDirectory: "output",
		MaxRetries:      3,
		LogLevel:        "info",
	}
}

// Load layers defaults, an optional YAML file and HARVEST_* environment
// variables, in that order of increasing precedence. An empty path skips
// the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// envconfig only touches fields whose variable is set
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks option ranges and enumerations
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SourceLocation) == "" {
		problems = append(problems, "source_location is required")
	}
	if strings.TrimSpace(c.OutputDirectory) == "" {
		problems = append(problems, "output_directory is required")
	}
	if c.SettleDelay < 0 {
		problems = append(problems, "settle_delay must not be negative")
	}
	if c.RenderTimeout <= 0 {
		problems = append(problems, "render_timeout must be positive")
	}
	if c.RunTimeout < 0 {
		problems = append(problems, "run_timeout must not be negative")
	}
	if c.MaxPages < 1 {
		problems = append(problems, "max_pages must be at least 1")
	}
	if c.StaleRetries < 0 {
		problems = append(problems, "stale_retries must not be negative")
	}
	switch c.MissingHometown {
	case MissingHometownIsolated, MissingHometownShared:
	default:
		problems = append(problems, fmt.Sprintf("missing_hometown must be %q or %q, got %q",
			MissingHometownIsolated, MissingHometownShared, c.MissingHometown))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
