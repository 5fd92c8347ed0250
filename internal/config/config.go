// Package config loads and persists the YAML configuration for the
// feed generator.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// APIConfig points the transport layer at Bookster.
type APIConfig struct {
	// BaseURL is the API root.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// BookingsPath is the bookings endpoint relative to BaseURL.
	BookingsPath string `yaml:"bookings_path" validate:"required"`
	// Key is the API key. Left empty in the file, it is taken from the
	// BOOKSTER_API_KEY environment variable at load time.
	Key string `yaml:"key"`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=0,max=300"`
	// MaxRetries is extra tries per query attempt on transient errors.
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=10"`
}

// PropertyConfig is one feed target.
type PropertyConfig struct {
	// ID is the Bookster property (entry) ID; also the feed filename.
	ID string `yaml:"id" validate:"required"`
	// Name overrides the property display name from the API.
	Name string `yaml:"name"`
	// Code is the short title suffix used in split-day mode. Empty
	// falls back to the first two letters of the property name.
	Code string `yaml:"code"`
}

// FeedConfig controls rendering and output.
type FeedConfig struct {
	// OutDir receives the .ics files.
	OutDir string `yaml:"out_dir" validate:"required"`
	// RefreshCron schedules regeneration when running as a daemon.
	RefreshCron string `yaml:"refresh"`
	// SplitDays emits one event per stay day instead of one per stay.
	SplitDays bool `yaml:"split_days"`
	// WriteEmptyOnError replaces an existing feed with an empty valid
	// document on fetch failure instead of keeping the stale one.
	WriteEmptyOnError bool `yaml:"write_empty_on_error"`
	// WriteIndex emits an index.html linking the feeds.
	WriteIndex bool `yaml:"write_index"`
	// BookingLink is a fmt template (one %s, the booking reference)
	// for deep links back to the upstream booking. Empty disables.
	BookingLink string `yaml:"booking_link"`
}

// NormalizeConfig carries the booking-normalization policy knobs.
type NormalizeConfig struct {
	// MissingBalanceIsZero treats an absent balance as fully paid
	// (amount paid = value) instead of unknown.
	MissingBalanceIsZero bool `yaml:"missing_balance_is_zero"`
	// ExtrasAllowList restricts extras to labels containing one of
	// these terms. Empty emits extras untouched.
	ExtrasAllowList []string `yaml:"extras_allow_list"`
}

// BasicAuthConfig protects the feed server when set.
type BasicAuthConfig struct {
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the optional feed-server address; empty disables the
	// HTTP server.
	Listen string `yaml:"listen"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	API        APIConfig        `yaml:"api"`
	Feeds      FeedConfig       `yaml:"feeds"`
	Normalizer NormalizeConfig  `yaml:"normalize"`
	Properties []PropertyConfig `yaml:"properties" validate:"min=1,dive"`
	BasicAuth  *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

var validate = validator.New()

// DefaultConfig returns the in-memory defaults written on first run.
// It is a template: Validate fails until at least one property is
// configured.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		API: APIConfig{
			BaseURL:        "https://api.booksterhq.com/system/api/v1",
			BookingsPath:   "booking/bookings.json",
			TimeoutSeconds: 30,
			MaxRetries:     2,
		},
		Feeds: FeedConfig{
			OutDir:      "public",
			RefreshCron: "*/30 * * * *",
			WriteIndex:  true,
		},
		Properties: []PropertyConfig{},
	}
}

// Normalize fills missing values with defaults so partially-written
// configs still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.BookingsPath == "" {
		c.API.BookingsPath = d.API.BookingsPath
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = d.API.TimeoutSeconds
	}
	if c.API.MaxRetries <= 0 {
		c.API.MaxRetries = d.API.MaxRetries
	}
	if c.Feeds.OutDir == "" {
		c.Feeds.OutDir = d.Feeds.OutDir
	}
	if c.Feeds.RefreshCron == "" {
		c.Feeds.RefreshCron = d.Feeds.RefreshCron
	}
	if c.Properties == nil {
		c.Properties = []PropertyConfig{}
	}
}

// Validate reports configuration the generator cannot run with. Kept
// separate from Load so a freshly created template file can be written
// and then reported as incomplete.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config: field %s fails %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.API.Key == "" {
		return errors.New("config: API key missing (set api.key or BOOKSTER_API_KEY)")
	}
	return nil
}

// Timeout converts TimeoutSeconds for the HTTP client.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PropertyCodes builds the name->code table for split-day titles from
// whichever properties configure both.
func (c *Config) PropertyCodes() map[string]string {
	codes := make(map[string]string)
	for _, p := range c.Properties {
		if p.Name != "" && p.Code != "" {
			codes[p.Name] = p.Code
		}
	}
	return codes
}

// Load reads configuration from the given YAML path. A missing file is
// created from DefaultConfig (0600, parent dirs as needed) and
// returned; the caller decides whether the template is usable via
// Validate. The API key is overridden from BOOKSTER_API_KEY when the
// file leaves it empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv("BOOKSTER_API_KEY")
	}
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions; the file may hold the API key.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bookcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
