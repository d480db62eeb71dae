package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	appLog "voccal/internal/log"
	"voccal/internal/schedule"
)

// EnvPrefix marks environment variables that override file values.
// VOCCAL_FEED_URL sets feed.url, VOCCAL_OUTPUT_DIR sets output.dir.
const EnvPrefix = "VOCCAL_"

// FeedConfig describes the remote JSON feed input.
type FeedConfig struct {
	// URL of the feed. Mutually exclusive with Config.Document.
	URL string `koanf:"url" yaml:"url"`
	// Key is the top-level object holding the events.
	Key string `koanf:"key" yaml:"key"`
	// Cache is the bbolt file used for conditional requests. Empty disables it.
	Cache string `koanf:"cache" yaml:"cache"`
	// Timeout is the HTTP timeout in seconds.
	Timeout int `koanf:"timeout" yaml:"timeout"`
}

// OutputConfig controls file names and optional artifacts.
type OutputConfig struct {
	Dir string `koanf:"dir" yaml:"dir"`
	// File is the yearly output name.
	File string `koanf:"file" yaml:"file"`
	// Prefix and Suffix frame the month number of monthly outputs.
	Prefix string `koanf:"prefix" yaml:"prefix"`
	Suffix string `koanf:"suffix" yaml:"suffix"`
	PNG    bool   `koanf:"png" yaml:"png"`
	ICS    bool   `koanf:"ics" yaml:"ics"`
}

// CasesConfig tunes case token normalization.
type CasesConfig struct {
	// Digits is "paired" (S<n> and A<n>) or "room" (S<n> only).
	Digits string `koanf:"digits" yaml:"digits"`
	// Ranges expands tokens like "3-5".
	Ranges bool `koanf:"ranges" yaml:"ranges"`
}

type RenderConfig struct {
	DayWidth   int    `koanf:"daywidth" yaml:"daywidth"`
	RowHeight  int    `koanf:"rowheight" yaml:"rowheight"`
	FontSize   int    `koanf:"fontsize" yaml:"fontsize"`
	FontFamily string `koanf:"fontfamily" yaml:"fontfamily"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the watch server.
// Auth is enabled when Username is set.
type BasicAuthConfig struct {
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Document is the YAML event document. Mutually exclusive with Feed.URL.
	Document string     `koanf:"document" yaml:"document"`
	Feed     FeedConfig `koanf:"feed" yaml:"feed"`

	// Year selects the calendar year; 0 means the current year.
	Year    int  `koanf:"year" yaml:"year"`
	Monthly bool `koanf:"monthly" yaml:"monthly"`
	// Sort is "date" or "resource"; empty picks date for yearly and
	// resource for monthly runs.
	Sort string `koanf:"sort" yaml:"sort"`

	Output OutputConfig `koanf:"output" yaml:"output"`
	Cases  CasesConfig  `koanf:"cases" yaml:"cases"`
	Render RenderConfig `koanf:"render" yaml:"render"`

	// Palette overrides the event colors, as "#rrggbb" strings.
	Palette []string `koanf:"palette" yaml:"palette,omitempty"`

	// Refresh is the cron schedule of the watch command.
	Refresh string `koanf:"refresh" yaml:"refresh"`
	// Listen is the HTTP address of the watch server; empty disables it.
	Listen    string          `koanf:"listen" yaml:"listen"`
	BasicAuth BasicAuthConfig `koanf:"basicauth" yaml:"basicauth"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			Key:     "voc_events",
			Timeout: 30,
		},
		Output: OutputConfig{
			Dir:    ".",
			File:   "calendar.svg",
			Prefix: "calendar-",
			Suffix: ".svg",
		},
		Cases: CasesConfig{
			Digits: schedule.DigitsPaired.String(),
			Ranges: true,
		},
		Refresh: "*/15 * * * *",
		Listen:  "127.0.0.1:8080",
	}
}

// Normalize fills in missing values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Feed.Key == "" {
		c.Feed.Key = def.Feed.Key
	}
	if c.Feed.Timeout <= 0 {
		c.Feed.Timeout = def.Feed.Timeout
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Output.File == "" {
		c.Output.File = def.Output.File
	}
	if p, err := schedule.ParseDigitPolicy(c.Cases.Digits); err != nil {
		c.Cases.Digits = def.Cases.Digits
	} else {
		c.Cases.Digits = p.String()
	}
	if c.Refresh == "" {
		c.Refresh = def.Refresh
	}
	if c.Year < 0 {
		c.Year = 0
	}
	if len(c.Palette) == 0 {
		c.Palette = nil
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Sort != "" {
		if _, err := schedule.ParseSortMode(c.Sort); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if _, err := schedule.ParsePalette(c.Palette); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.BasicAuth.Password != "" && c.BasicAuth.Username == "" {
		return errors.New("config: basicauth password set without username")
	}
	return nil
}

// Load layers struct defaults, the optional YAML file at path and
// VOCCAL_* environment variables, in that order. A missing file is not an
// error; an empty path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(*DefaultConfig(), "koanf"), nil); err != nil {
		appLog.Error("error loading config defaults", err)
		return nil, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				appLog.Error("error loading config from YAML", err, "path", path)
				return nil, err
			}
			appLog.Info("config file not found, using defaults and environment", "path", path)
		} else {
			appLog.Info("loaded configuration from file", "path", path)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
			if k == "palette" {
				return k, strings.Split(v, ",")
			}
			return k, v
		},
	}), nil)
	if err != nil {
		appLog.Error("error loading config from envs", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file and rename) with 0600
// permissions, creating the parent directory if needed.
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

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".voccal-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
