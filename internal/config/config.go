// CLAUDE:SUMMARY Defines waybackscan config, parses an optional YAML file, applies env overrides and defaults.
// Package config handles waybackscan configuration from a YAML file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level waybackscan configuration.
type Config struct {
	Addr   string       `yaml:"addr"`
	Log    LogConfig    `yaml:"log"`
	Index  IndexConfig  `yaml:"index"`
	Replay ReplayConfig `yaml:"replay"`
	Scan   ScanConfig   `yaml:"scan"`
	MCP    MCPConfig    `yaml:"mcp"`
	Fetch  FetchConfig  `yaml:"fetch"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// IndexConfig points at the snapshot index.
type IndexConfig struct {
	Endpoint string `yaml:"endpoint"`
	Strict   bool   `yaml:"strict"` // surface index failures instead of "no snapshots"
}

// ReplayConfig points at the replay host.
type ReplayConfig struct {
	Base string `yaml:"base"`
}

// ScanConfig controls per-scan pacing and bounds.
type ScanConfig struct {
	DelayMin     time.Duration `yaml:"delay_min"`
	DelayMax     time.Duration `yaml:"delay_max"`
	DefaultLimit int           `yaml:"default_limit"`
	MaxLimit     int           `yaml:"max_limit"`
}

// FetchConfig controls outbound HTTP.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Referer   string        `yaml:"referer"` // default: replay base with a trailing slash
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// MCPConfig controls the streamable HTTP MCP endpoint of the server.
type MCPConfig struct {
	HTTP bool `yaml:"http"`
}

// Load reads path when non-empty, then applies environment overrides and
// defaults. A missing path is not an error: the environment alone is enough.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("WAYBACKSCAN_ADDR", &c.Addr)
	str("WAYBACKSCAN_ARCHIVE_BASE", &c.Replay.Base)
	str("WAYBACKSCAN_CDX_URL", &c.Index.Endpoint)
	str("WAYBACKSCAN_USER_AGENT", &c.Fetch.UserAgent)
	str("WAYBACKSCAN_REFERER", &c.Fetch.Referer)
	str("LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*time.Duration{
		"WAYBACKSCAN_DELAY_MIN": &c.Scan.DelayMin,
		"WAYBACKSCAN_DELAY_MAX": &c.Scan.DelayMax,
		"WAYBACKSCAN_TIMEOUT":   &c.Fetch.Timeout,
	} {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}

	for key, dst := range map[string]*int{
		"WAYBACKSCAN_DEFAULT_LIMIT": &c.Scan.DefaultLimit,
		"WAYBACKSCAN_MAX_LIMIT":     &c.Scan.MaxLimit,
	} {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = n
		}
	}

	for key, dst := range map[string]*bool{
		"WAYBACKSCAN_STRICT_INDEX": &c.Index.Strict,
		"WAYBACKSCAN_MCP_HTTP":     &c.MCP.HTTP,
	} {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Index.Endpoint == "" {
		c.Index.Endpoint = "https://web.archive.org/cdx/search/cdx"
	}
	if c.Replay.Base == "" {
		c.Replay.Base = "https://web.archive.org"
	}
	// The archive serves replay content only to requests referred by itself.
	if c.Fetch.Referer == "" {
		c.Fetch.Referer = strings.TrimRight(c.Replay.Base, "/") + "/"
	}
	if c.Scan.DelayMin <= 0 && c.Scan.DelayMax <= 0 {
		c.Scan.DelayMin = 500 * time.Millisecond
		c.Scan.DelayMax = time.Second
	}
	if c.Scan.DelayMax == 0 {
		c.Scan.DelayMax = c.Scan.DelayMin
	}
	if c.Scan.DefaultLimit <= 0 {
		c.Scan.DefaultLimit = 100
	}
	if c.Scan.MaxLimit <= 0 {
		c.Scan.MaxLimit = 1000
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 60 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Scan.DelayMin < 0 || c.Scan.DelayMax < c.Scan.DelayMin {
		return fmt.Errorf("config: delay range [%s, %s) is invalid", c.Scan.DelayMin, c.Scan.DelayMax)
	}
	if c.Scan.DefaultLimit > c.Scan.MaxLimit {
		return fmt.Errorf("config: default_limit %d exceeds max_limit %d", c.Scan.DefaultLimit, c.Scan.MaxLimit)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}
