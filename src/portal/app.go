package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/elee1766/chatportal/src/chat"
	"github.com/elee1766/chatportal/src/portalapi"
	"github.com/elee1766/chatportal/src/session"
	"github.com/elee1766/chatportal/src/storage"
)

// App wires the session, the conversation list and the message thread to
// the portal API and local storage.
type App struct {
	Client        *portalapi.Client
	Store         *storage.DB
	Sessions      *session.Store
	Session       *session.Session
	Conversations *chat.List
	Thread        *chat.Thread
	Logger        *slog.Logger
	Config        *AppConfig
}

// AppConfig holds configuration for creating a new App instance
type AppConfig struct {
	BaseURL      string
	DatabasePath string
	Timeout      time.Duration
	RetryCount   int
	RetryDelay   time.Duration
	HTTPClient   *http.Client

	DefaultTitle string
	TitleLimit   int
	ReloadDelay  time.Duration

	// Token and Username override the saved session when set
	Token    string
	Username string

	Logger       *slog.Logger
	Callbacks    chat.Callbacks
	OnListChange func(convs []portalapi.Conversation, active portalapi.ID)
}

// New creates a new App instance with all services initialized
func New(ctx context.Context, cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = ":memory:"
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	server := portalapi.NormalizeBaseURL(cfg.BaseURL)
	sessions := session.NewStore(store, logger)
	sess, err := sessions.Load(ctx, server)
	if err != nil {
		store.Close()
		return nil, err
	}
	if cfg.Token != "" {
		sess.SetToken(cfg.Token)
	}
	if cfg.Username != "" {
		sess.SetUsername(cfg.Username)
	}

	client := portalapi.NewClient(portalapi.Config{
		BaseURL:    server,
		Tokens:     sess,
		Logger:     logger,
		Timeout:    cfg.Timeout,
		RetryCount: cfg.RetryCount,
		RetryDelay: cfg.RetryDelay,
		HTTPClient: cfg.HTTPClient,
	})

	list := chat.NewList(client, chat.ListOptions{
		Logger:       logger,
		DefaultTitle: cfg.DefaultTitle,
		ReloadDelay:  cfg.ReloadDelay,
		Cache:        &conversationCache{db: store, server: server, session: sess},
		OnChange:     cfg.OnListChange,
	})
	thread := chat.NewThread(client, list, sess, chat.ThreadOptions{
		Logger:     logger,
		TitleLimit: cfg.TitleLimit,
		Callbacks:  cfg.Callbacks,
	})

	return &App{
		Client:        client,
		Store:         store,
		Sessions:      sessions,
		Session:       sess,
		Conversations: list,
		Thread:        thread,
		Logger:        logger.With("component", "portal"),
		Config:        &cfg,
	}, nil
}

// Close stops background work and closes all resources held by the app
func (a *App) Close() error {
	a.Conversations.Close()
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Login signs in and persists the new session
func (a *App) Login(ctx context.Context, username, password string) error {
	resp, err := a.Client.Login(ctx, portalapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	return a.adopt(ctx, resp)
}

// Register creates an account, signs in and persists the session
func (a *App) Register(ctx context.Context, req portalapi.RegisterRequest) error {
	resp, err := a.Client.Register(ctx, req)
	if err != nil {
		return err
	}
	return a.adopt(ctx, resp)
}

func (a *App) adopt(ctx context.Context, resp *portalapi.AuthResponse) error {
	a.Session.SetAuth(resp)
	if err := a.Thread.Select(ctx, ""); err != nil {
		return err
	}
	a.Logger.Info("signed in", "user", resp.User.Username)
	return a.Sessions.Save(ctx, a.Session)
}

// Guest starts an unauthenticated session under a display name
func (a *App) Guest(ctx context.Context, name string) error {
	if err := a.Session.SetGuest(name); err != nil {
		return &chat.ValidationError{Field: "name", Message: err.Error()}
	}
	if err := a.Thread.Select(ctx, ""); err != nil {
		return err
	}
	return a.Sessions.Save(ctx, a.Session)
}

// Logout forgets the session and its cached conversation list
func (a *App) Logout(ctx context.Context) error {
	user := a.Session.Username()
	a.Session.Clear()
	if err := a.Thread.Select(ctx, ""); err != nil {
		return err
	}
	if err := a.Sessions.Clear(ctx, a.Session.Server()); err != nil {
		return err
	}
	a.Logger.Info("signed out", "user", user)
	return nil
}

// Restore seeds the list from the offline cache and returns the saved
// active conversation, which is not loaded yet.
func (a *App) Restore(ctx context.Context) portalapi.ID {
	if n, err := a.Conversations.Restore(ctx); err != nil {
		a.Logger.Warn("failed to restore cached conversations", "error", err)
	} else if n > 0 {
		a.Logger.Debug("restored cached conversations", "count", n)
	}
	return portalapi.ID(a.Session.ActiveConversation())
}

// Refresh reloads the conversation list
func (a *App) Refresh(ctx context.Context) ([]portalapi.Conversation, error) {
	return a.Conversations.List(ctx)
}

// Open makes id the active conversation and loads its messages
func (a *App) Open(ctx context.Context, id portalapi.ID) error {
	a.Conversations.Select(id)
	a.remember(ctx, id)
	return a.Thread.Select(ctx, id)
}

// NewChat creates a conversation and opens it
func (a *App) NewChat(ctx context.Context, title string) (portalapi.Conversation, error) {
	conv, err := a.Conversations.Create(ctx, title)
	if err != nil {
		return portalapi.Conversation{}, err
	}
	a.remember(ctx, conv.ID)
	if err := a.Thread.Select(ctx, conv.ID); err != nil {
		return conv, err
	}
	return conv, nil
}

// Send posts a message in the active conversation, creating one if needed
func (a *App) Send(ctx context.Context, text string) (*chat.Exchange, error) {
	ex, err := a.Thread.Send(ctx, text)
	if ex != nil && ex.Created && ex.ConversationID == a.Thread.ConversationID() {
		a.remember(ctx, ex.ConversationID)
	}
	return ex, err
}

// Dispatch runs a conversation command. Deleting the open conversation
// unloads the thread.
func (a *App) Dispatch(ctx context.Context, cmd chat.Command) error {
	if err := a.Conversations.Dispatch(ctx, cmd); err != nil {
		return err
	}
	if _, ok := cmd.(chat.DeleteCommand); ok && a.Thread.ConversationID() == cmd.Target() {
		a.remember(ctx, "")
		return a.Thread.Select(ctx, "")
	}
	return nil
}

// Rename renames a conversation
func (a *App) Rename(ctx context.Context, id portalapi.ID, title string) error {
	return a.Dispatch(ctx, chat.RenameCommand{ID: id, Title: title})
}

// Delete deletes a conversation
func (a *App) Delete(ctx context.Context, id portalapi.ID) error {
	return a.Dispatch(ctx, chat.DeleteCommand{ID: id})
}

// remember persists the active conversation; failures only get logged
func (a *App) remember(ctx context.Context, id portalapi.ID) {
	a.Session.SetActiveConversation(id.String())
	if !a.Session.IsSignedIn() {
		return
	}
	if err := a.Sessions.SaveActive(ctx, a.Session); err != nil {
		a.Logger.Warn("failed to save active conversation", "error", err)
	}
}
