// Package config loads the global ~/.smsterm/config.toml and derives
// the gateway endpoints from it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.smsterm/config.toml. Endpoint URIs
// may be given explicitly; otherwise they are derived from Host, with
// the scheme switching to https/wss when a certificate is configured.
type Config struct {
	Host           string `toml:"host"`
	HTTPURI        string `toml:"http_uri,omitempty"`
	WSURI          string `toml:"ws_uri,omitempty"`
	WSEnabled      bool   `toml:"ws_enabled"`
	Auth           string `toml:"auth,omitempty"`
	SSLCertificate string `toml:"ssl_certificate,omitempty"`
	Theme          string `toml:"theme"`

	PartLimitGSM7 int `toml:"part_limit_gsm7"`
	PartLimitUCS2 int `toml:"part_limit_ucs2"`
	PageSize      int `toml:"page_size"`
}

// Default returns the config used when no file exists yet.
func Default() *Config {
	return &Config{
		Host:          "localhost:3000",
		Theme:         "default",
		PartLimitGSM7: 160,
		PartLimitUCS2: 70,
		PageSize:      20,
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate reads the config, writing the defaults first when the
// file does not exist yet.
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// HTTPBaseURL returns the HTTP endpoint, deriving it from Host unless
// an explicit URI was set.
func (c *Config) HTTPBaseURL() string {
	if c.HTTPURI != "" {
		return c.HTTPURI
	}
	return fmt.Sprintf("http%s://%s", c.secure(), c.Host)
}

// WSURL returns the live-connection endpoint, deriving it from Host
// unless an explicit URI was set.
func (c *Config) WSURL() string {
	if c.WSURI != "" {
		return c.WSURI
	}
	return fmt.Sprintf("ws%s://%s/ws", c.secure(), c.Host)
}

func (c *Config) secure() string {
	if c.SSLCertificate != "" {
		return "s"
	}
	return ""
}
