package config

import (
	"time"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000/api/"
	DefaultConversation   = "New Conversation"
	DefaultBotSender      = "ai-bot"
	DefaultTitleLimit     = 40
	DefaultHighlightStyle = "monokai"
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			Timeout:    Duration(30 * time.Second),
			RetryCount: 2,
			RetryDelay: Duration(time.Second),
		},
		Chat: ChatConfig{
			DefaultTitle: DefaultConversation,
			TitleLimit:   DefaultTitleLimit,
			BotSender:    DefaultBotSender,
			ReloadDelay:  Duration(time.Second),
		},
		Storage: StorageConfig{
			DatabasePath: GetDefaultStoragePaths().DatabasePath,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Display: DisplayConfig{
			Theme:          "dark",
			Markdown:       true,
			Highlight:      true,
			HighlightStyle: DefaultHighlightStyle,
		},
	}
}
