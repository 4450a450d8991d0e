package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elee1766/chatportal/src/portalapi"
	"github.com/elee1766/chatportal/src/storage"
)

// Store persists sessions in the local database, one per server.
type Store struct {
	db     *storage.DB
	logger *slog.Logger
}

// NewStore creates a session store backed by db
func NewStore(db *storage.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Load returns the saved session for server, or an anonymous session when
// none has been saved.
func (st *Store) Load(ctx context.Context, server string) (*Session, error) {
	s := New(server, st.logger)
	rec, err := storage.GetSession(ctx, st.db.DB(), server)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec == nil {
		return s, nil
	}

	s.user = portalapi.User{Username: rec.Username, Email: rec.Email}
	s.tokens = portalapi.Tokens{Access: rec.AccessToken, Refresh: rec.RefreshToken}
	s.guest = rec.Guest
	if rec.ActiveConversationID != nil {
		s.active = *rec.ActiveConversationID
	}
	return s, nil
}

// Save writes the session. An anonymous session removes any saved record.
func (st *Store) Save(ctx context.Context, s *Session) error {
	if !s.IsSignedIn() {
		return st.Clear(ctx, s.Server())
	}

	s.mu.RLock()
	rec := &storage.Session{
		Server:       s.server,
		Username:     s.user.Username,
		Email:        s.user.Email,
		AccessToken:  s.tokens.Access,
		RefreshToken: s.tokens.Refresh,
		Guest:        s.guest,
	}
	if s.active != "" {
		active := s.active
		rec.ActiveConversationID = &active
	}
	s.mu.RUnlock()

	if err := storage.SaveSession(ctx, st.db.DB(), rec); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveActive records only the active conversation of an existing session
func (st *Store) SaveActive(ctx context.Context, s *Session) error {
	var active *string
	if id := s.ActiveConversation(); id != "" {
		active = &id
	}
	if err := storage.SetActiveConversation(ctx, st.db.DB(), s.Server(), active); err != nil {
		return fmt.Errorf("failed to save active conversation: %w", err)
	}
	return nil
}

// Clear deletes the saved session and cached list for server
func (st *Store) Clear(ctx context.Context, server string) error {
	if err := storage.DeleteSession(ctx, st.db.DB(), server); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
