// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Session SessionConfig `toml:"session" json:"session"`
	Log     LogConfig     `toml:"log" json:"log"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ServerConfig describes how to reach the chat service.
type ServerConfig struct {
	// BaseURL is the root of the chat service API
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs bounds a single request, including the model reply
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// RequestsPerSecond throttles outgoing requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `toml:"burst" json:"burst"`
}

// AuthConfig holds login defaults. The password is never read from or
// written to the config file.
type AuthConfig struct {
	Email    string `toml:"email" json:"email"`
	Password string `toml:"-" json:"-"`
}

// ChatConfig controls conversation behavior.
type ChatConfig struct {
	// TitleLength is the number of characters kept from the first message
	TitleLength int `toml:"title_length" json:"title_length"`

	// PlaybackEnabled turns the word-by-word reveal of replies on or off
	PlaybackEnabled bool `toml:"playback_enabled" json:"playback_enabled"`

	// PlaybackIntervalMs is the delay between revealed words
	PlaybackIntervalMs int `toml:"playback_interval_ms" json:"playback_interval_ms"`

	// EventBuffer is the capacity of the background event channel
	EventBuffer int `toml:"event_buffer" json:"event_buffer"`
}

// SessionConfig controls the idle timeout.
type SessionConfig struct {
	// IdleTimeoutMins logs out after this much inactivity (0 = never)
	IdleTimeoutMins int `toml:"idle_timeout_mins" json:"idle_timeout_mins"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Addr    string `toml:"addr" json:"addr"`
}

// UIConfig contains UI preferences.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown"`
	WordWrap bool   `toml:"word_wrap" json:"word_wrap"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           "http://localhost:8000",
			TimeoutSecs:       120,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Chat: ChatConfig{
			TitleLength:        30,
			PlaybackEnabled:    true,
			PlaybackIntervalMs: 30,
			EventBuffer:        32,
		},
		Session: SessionConfig{
			IdleTimeoutMins: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			WordWrap: true,
		},
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// PlaybackInterval returns the reveal interval as a duration.
func (c *Config) PlaybackInterval() time.Duration {
	return time.Duration(c.Chat.PlaybackIntervalMs) * time.Millisecond
}

// IdleTimeout returns the session idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMins) * time.Minute
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.rigchat/config.toml if it exists, then a .env file in the
// working directory, then RIGCHAT_* environment variables.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path with full validation. A
// missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg. Keys absent from the file keep
// their default values; unknown keys are an error.
func LoadTOML(cfg *Config, path string) error {
	*cfg = *Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. An empty path means ".env"; a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// fillDefaults fills in values that must never be empty.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.TimeoutSecs == 0 {
		cfg.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if cfg.Chat.TitleLength == 0 {
		cfg.Chat.TitleLength = defaults.Chat.TitleLength
	}
	if cfg.Chat.PlaybackIntervalMs == 0 {
		cfg.Chat.PlaybackIntervalMs = defaults.Chat.PlaybackIntervalMs
	}
	if cfg.Chat.EventBuffer == 0 {
		cfg.Chat.EventBuffer = defaults.Chat.EventBuffer
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = defaults.Metrics.Addr
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	return nil
}

// SetDefaults normalizes values after overrides are applied.
func (c *Config) SetDefaults() {
	_ = fillDefaults(c)
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	if c.Server.RequestsPerSecond > 0 && c.Server.Burst < 1 {
		c.Server.Burst = 1
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration file\n")
	buf.WriteString("# The password is read from RIGCHAT_PASSWORD and never stored here.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	validFormats = map[string]bool{"auto": true, "json": true, "console": true}
	validThemes  = map[string]bool{"dark": true, "light": true, "auto": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Host == "" {
		add("server.base_url", "invalid URL '%s'", c.Server.BaseURL)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("server.base_url", "scheme must be http or https, got '%s'", u.Scheme)
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 3600 {
		add("server.timeout_secs", "must be between 1 and 3600, got %d", c.Server.TimeoutSecs)
	}
	if c.Server.RequestsPerSecond < 0 {
		add("server.requests_per_second", "must not be negative")
	}
	if c.Server.Burst < 0 {
		add("server.burst", "must not be negative")
	}

	// Chat
	if c.Chat.TitleLength < 1 || c.Chat.TitleLength > 200 {
		add("chat.title_length", "must be between 1 and 200, got %d", c.Chat.TitleLength)
	}
	if c.Chat.PlaybackIntervalMs < 1 || c.Chat.PlaybackIntervalMs > 5000 {
		add("chat.playback_interval_ms", "must be between 1 and 5000, got %d", c.Chat.PlaybackIntervalMs)
	}
	if c.Chat.EventBuffer < 1 {
		add("chat.event_buffer", "must be at least 1")
	}

	// Session
	if c.Session.IdleTimeoutMins < 0 {
		add("session.idle_timeout_mins", "must not be negative")
	}

	// Log
	if !validLevels[c.Log.Level] {
		add("log.level", "invalid level '%s'", c.Log.Level)
	}
	if !validFormats[c.Log.Format] {
		add("log.format", "invalid format '%s', must be one of: auto, json, console", c.Log.Format)
	}

	// Metrics
	if c.Metrics.Enabled && !strings.Contains(c.Metrics.Addr, ":") {
		add("metrics.addr", "must be host:port, got '%s'", c.Metrics.Addr)
	}

	// UI
	if !validThemes[c.UI.Theme] {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies RIGCHAT_* environment variables.
//
// Supported environment variables:
//   - RIGCHAT_BASE_URL: overrides server.base_url
//   - RIGCHAT_TIMEOUT: overrides server.timeout_secs
//   - RIGCHAT_EMAIL: overrides auth.email
//   - RIGCHAT_PASSWORD: sets the login password
//   - RIGCHAT_PLAYBACK: "0" or "false" disables reply playback
//   - RIGCHAT_PLAYBACK_INTERVAL_MS: overrides chat.playback_interval_ms
//   - RIGCHAT_IDLE_TIMEOUT_MINS: overrides session.idle_timeout_mins
//   - RIGCHAT_LOG_LEVEL, RIGCHAT_LOG_FORMAT, RIGCHAT_LOG_FILE
//   - RIGCHAT_METRICS_ADDR: enables metrics on the given address
//   - NO_COLOR: selects the auto theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGCHAT_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v, ok := envInt("RIGCHAT_TIMEOUT"); ok {
		c.Server.TimeoutSecs = v
	}
	if v := os.Getenv("RIGCHAT_EMAIL"); v != "" {
		c.Auth.Email = v
	}
	if v := os.Getenv("RIGCHAT_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv("RIGCHAT_PLAYBACK"); v != "" {
		c.Chat.PlaybackEnabled = parseBool(v)
	}
	if v, ok := envInt("RIGCHAT_PLAYBACK_INTERVAL_MS"); ok {
		c.Chat.PlaybackIntervalMs = v
	}
	if v, ok := envInt("RIGCHAT_IDLE_TIMEOUT_MINS"); ok {
		c.Session.IdleTimeoutMins = v
	}
	if v := os.Getenv("RIGCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RIGCHAT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("RIGCHAT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("RIGCHAT_METRICS_ADDR"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.Theme = "auto"
	}
}

// envInt reads an integer variable. Unparseable values are ignored.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// UTILITIES
// =============================================================================

// Clone returns a copy of the config. All fields are values.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// String returns the config as indented JSON. The password is never included.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
