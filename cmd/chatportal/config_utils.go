package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/elee1766/chatportal/src/chat"
	"github.com/elee1766/chatportal/src/config"
	"github.com/elee1766/chatportal/src/portal"
	"github.com/elee1766/chatportal/src/portalapi"
	"github.com/elee1766/chatportal/src/render"
	"github.com/elee1766/chatportal/src/theme"
)

// loadConfig loads the layered configuration and applies CLI flags on top
func (cli *CLI) loadConfig() (*config.Manager, error) {
	precedence := config.GetConfigPaths()
	if cli.ConfigFile != "" {
		// Override with specific path
		precedence.UserConfig = cli.ConfigFile
	}

	manager, err := config.NewManagerWithLoader(config.NewLoader(nil, precedence))
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := manager.Update(func(cfg *config.Config) { overrideConfigFromCLI(cfg, cli) }); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return manager, nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.Database != "" {
		cfg.Storage.DatabasePath = cli.Database
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.Theme != "" {
		cfg.Display.Theme = cli.Theme
	}
}

// cmdEnv bundles what a command needs to talk to the portal
type cmdEnv struct {
	Config   *config.Config
	Manager  *config.Manager
	Logger   *slog.Logger
	App      *portal.App
	Renderer *render.Renderer
	Out      io.Writer
}

// startOptions tunes runtime creation per command
type startOptions struct {
	// FileLog sends logs to the state directory instead of stderr
	FileLog      bool
	Callbacks    chat.Callbacks
	OnListChange func(convs []portalapi.Conversation, active portalapi.ID)
}

// start loads configuration, opens the session database and builds the app
func (cli *CLI) start(ctx context.Context, opts startOptions) (*cmdEnv, error) {
	manager, err := cli.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()

	logger := createLogger(cfg.Logging)
	if opts.FileLog {
		logger = createChatLogger(cfg.Logging.Level)
	}

	if err := theme.SetTheme(cfg.Display.Theme); err != nil {
		return nil, &ConfigError{Err: err}
	}

	app, err := portal.New(ctx, portal.AppConfig{
		BaseURL:      cfg.API.BaseURL,
		DatabasePath: cfg.Storage.DatabasePath,
		Timeout:      cfg.API.Timeout.Std(),
		RetryCount:   cfg.API.RetryCount,
		RetryDelay:   cfg.API.RetryDelay.Std(),
		DefaultTitle: cfg.Chat.DefaultTitle,
		TitleLimit:   cfg.Chat.TitleLimit,
		ReloadDelay:  cfg.Chat.ReloadDelay.Std(),
		Token:        cfg.Token,
		Username:     cfg.Username,
		Logger:       logger,
		Callbacks:    opts.Callbacks,
		OnListChange: opts.OnListChange,
	})
	if err != nil {
		return nil, err
	}

	return &cmdEnv{
		Config:   cfg,
		Manager:  manager,
		Logger:   logger,
		App:      app,
		Renderer: newRenderer(cfg.Display, cfg.Chat.BotSender),
		Out:      os.Stdout,
	}, nil
}

// Close releases the app
func (rt *cmdEnv) Close() error {
	return rt.App.Close()
}

// self is the name messages of the current user are shown under
func (rt *cmdEnv) self() string {
	return rt.App.Session.Username()
}

func newRenderer(display config.DisplayConfig, botName string) *render.Renderer {
	return render.New(render.Options{
		Width:          terminalWidth(display.Width),
		Markdown:       display.Markdown,
		Highlight:      display.Highlight,
		HighlightStyle: display.HighlightStyle,
		BotName:        botName,
		Theme:          theme.CurrentTheme,
	})
}
