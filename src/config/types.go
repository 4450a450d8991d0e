package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the complete chatportal configuration
type Config struct {
	// Version of the configuration schema
	Version string `json:"version"`

	// API configuration for the chat portal backend
	API APIConfig `json:"api"`

	// Chat controls conversation behaviour
	Chat ChatConfig `json:"chat"`

	// Storage configuration for the local session database
	Storage StorageConfig `json:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Display controls how conversations are drawn
	Display DisplayConfig `json:"display"`

	// Token and Username override the stored session. They are only ever
	// set from the environment or flags and never written to disk.
	Token    string `json:"-"`
	Username string `json:"-"`
}

// APIConfig holds the REST API connection settings
type APIConfig struct {
	// BaseURL of the API, e.g. http://127.0.0.1:8000/api/
	BaseURL string `json:"base_url" validate:"required,url"`

	// Timeout for a single request
	Timeout Duration `json:"timeout,omitempty" validate:"min=0"`

	// RetryCount is the number of retries for idempotent requests
	RetryCount int `json:"retry_count" validate:"min=0,max=10"`

	// RetryDelay between retries
	RetryDelay Duration `json:"retry_delay,omitempty" validate:"min=0"`
}

// ChatConfig holds conversation settings
type ChatConfig struct {
	// DefaultTitle for conversations created without one
	DefaultTitle string `json:"default_title"`

	// TitleLimit bounds the title derived from a first message
	TitleLimit int `json:"title_limit" validate:"min=1,max=255"`

	// BotSender is the sender name the backend uses for replies
	BotSender string `json:"bot_sender"`

	// ReloadDelay before the list is refetched after a create.
	// Negative disables the reload.
	ReloadDelay Duration `json:"reload_delay,omitempty"`
}

// StorageConfig holds local persistence settings
type StorageConfig struct {
	// DatabasePath of the sqlite database. ":memory:" keeps nothing.
	DatabasePath string `json:"database_path" validate:"required"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `json:"level" validate:"log_level"`
	Format string `json:"format" validate:"log_format"`
}

// DisplayConfig holds rendering settings
type DisplayConfig struct {
	Theme          string `json:"theme" validate:"theme"`
	Markdown       bool   `json:"markdown"`
	Highlight      bool   `json:"highlight"`
	HighlightStyle string `json:"highlight_style,omitempty"`
	Width          int    `json:"width,omitempty" validate:"min=0"`
}

// Duration is a time.Duration that reads and writes as "1s" style strings.
// Plain numbers are taken as milliseconds.
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)

// ConfigLocation is a configuration file that took part in a load
type ConfigLocation struct {
	Path   string
	Source ConfigSource
}
