// Package config loads and validates mashup settings.
//
// Settings come from, highest priority first: environment variables
// (MASHUP_*), the YAML config file, and Default. The decoded Config is
// checked against an embedded CUE schema before use.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mashup/internal/chain"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MASHUP"

// Range is a named date range as written in the config file.
// Dates are "YYYY-MM-DD" or "YYYY-DDD"; End is exclusive.
type Range struct {
	Start string `json:"start" yaml:"start" mapstructure:"start"`
	End   string `json:"end" yaml:"end" mapstructure:"end"`
}

// Config holds all settings.
type Config struct {
	Database    string `json:"database" yaml:"database" mapstructure:"database"`
	MinWords    int    `json:"min_words" yaml:"min_words" mapstructure:"min_words"`
	MaxWords    int    `json:"max_words" yaml:"max_words" mapstructure:"max_words"`
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// FoldCase lowercases prompts before they are parsed.
	FoldCase bool `json:"fold_case" yaml:"fold_case" mapstructure:"fold_case"`

	// Fallback replaces the output when generation is exhausted.
	Fallback string `json:"fallback" yaml:"fallback" mapstructure:"fallback"`

	// CacheTTL is how long a prepared query stays cached, as a Go duration.
	CacheTTL string `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// RateLimit caps prompts per second in the REPL. Zero disables it.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Names maps message-dump short names to source patterns.
	Names map[string]string `json:"names" yaml:"names" mapstructure:"names"`

	// Ranges are date ranges addressable by name in prompts.
	Ranges map[string]Range `json:"ranges" yaml:"ranges" mapstructure:"ranges"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database:    "mashup.db",
		MinWords:    15,
		MaxWords:    40,
		MaxAttempts: 100,
		Fallback:    `¯\_(ツ)_/¯`,
		CacheTTL:    "10m",
		RateLimit:   2,
		Names:       map[string]string{},
		Ranges:      map[string]Range{},
	}
}

// Dir returns the per-user config directory, ~/.mashup.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".mashup"), nil
}

// Load reads settings. With an empty path the file is looked up as
// ~/.mashup/config.yaml and a missing file is not an error; an explicit
// path must exist.
func Load(path string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, "", err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database", d.Database)
	v.SetDefault("min_words", d.MinWords)
	v.SetDefault("max_words", d.MaxWords)
	v.SetDefault("max_attempts", d.MaxAttempts)
	v.SetDefault("fold_case", d.FoldCase)
	v.SetDefault("fallback", d.Fallback)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("names", d.Names)
	v.SetDefault("ranges", d.Ranges)
}

// Validate checks the config against the CUE schema, then parses the
// duration and date fields.
func (c *Config) Validate() error {
	if c.Names == nil {
		c.Names = map[string]string{}
	}
	if c.Ranges == nil {
		c.Ranges = map[string]Range{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(c)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.TTL(); err != nil {
		return err
	}
	if _, err := c.DateRanges(); err != nil {
		return err
	}
	return nil
}

// TTL returns CacheTTL as a duration. An empty string means no expiry.
func (c *Config) TTL() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid config: cache_ttl: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid config: cache_ttl: negative duration %s", d)
	}
	return d, nil
}

// DateRanges parses Ranges. Each range must have Start before End.
func (c *Config) DateRanges() (map[string]chain.DateRange, error) {
	out := make(map[string]chain.DateRange, len(c.Ranges))
	for name, r := range c.Ranges {
		start, err := chain.ParseDatestamp(r.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid config: range %q start: %w", name, err)
		}
		end, err := chain.ParseDatestamp(r.End)
		if err != nil {
			return nil, fmt.Errorf("invalid config: range %q end: %w", name, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("invalid config: range %q: start %s is not before end %s", name, start, end)
		}
		out[name] = chain.DateRange{Start: start, End: end}
	}
	return out, nil
}

// RangeNames returns the configured range names, sorted.
func (c *Config) RangeNames() []string {
	names := make([]string, 0, len(c.Ranges))
	for name := range c.Ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// WriteFile writes c to path as YAML, creating parent directories.
// It refuses to overwrite an existing file.
func WriteFile(path string, c *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	header := "# mashup configuration\n" +
		"# Environment variables (" + EnvPrefix + "_*) override values in this file.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
