// Package config loads secsearch settings from YAML with built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full secsearch configuration.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	TriePath       string        `yaml:"trie_path"`
	CacheBust      bool          `yaml:"cache_bust"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// FetchRate is the minimum gap between two trie fetches.
	FetchRate    time.Duration `yaml:"fetch_rate"`
	Debounce     time.Duration `yaml:"debounce"`
	DisplayLimit int           `yaml:"display_limit"`
	MaxDepth     int           `yaml:"max_depth"`
	TokenEnv     string        `yaml:"token_env"`
	// TokenFile, when set, is read on every fetch and takes precedence
	// over TokenEnv.
	TokenFile string `yaml:"token_file"`
	LogLevel  int8   `yaml:"log_level"`
	// LogFile receives the JSON log instead of stderr.
	LogFile string `yaml:"log_file"`
	Serve   Serve  `yaml:"serve"`
}

// Serve configures the development trie server.
type Serve struct {
	Addr string `yaml:"addr"`
	Data string `yaml:"data"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:         "http://localhost:8080",
		TriePath:       "/api/securities/trie",
		CacheBust:      true,
		RequestTimeout: 30 * time.Second,
		FetchRate:      time.Second,
		Debounce:       300 * time.Millisecond,
		DisplayLimit:   10,
		MaxDepth:       32,
		TokenEnv:       "SECSEARCH_API_TOKEN",
		Serve: Serve{
			Addr: ":8080",
			Data: "data/securities.csv",
		},
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url %q must be an absolute URL", c.APIURL))
	}
	if c.TriePath == "" {
		errs = append(errs, errors.New("trie_path must not be empty"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce must not be negative"))
	}
	if c.FetchRate < 0 {
		errs = append(errs, errors.New("fetch_rate must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.DisplayLimit <= 0 {
		errs = append(errs, errors.New("display_limit must be positive"))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, errors.New("max_depth must be positive"))
	}
	if c.Serve.Addr == "" {
		errs = append(errs, errors.New("serve.addr must not be empty"))
	}
	return errors.Join(errs...)
}
