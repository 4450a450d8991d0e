package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// GetSession retrieves the saved session for a server
func GetSession(ctx context.Context, db Conn, server string) (*Session, error) {
	query := `SELECT server, username, email, access_token, refresh_token, guest, active_conversation_id, created_at, updated_at FROM sessions WHERE server = ?`
	var s Session
	err := sqlscan.Get(ctx, db, &s, query, server)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &s, nil
}

// SaveSession inserts or replaces the session for session.Server
func SaveSession(ctx context.Context, db Conn, session *Session) error {
	if session.Server == "" {
		return fmt.Errorf("session server is required")
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query := `INSERT INTO sessions (server, username, email, access_token, refresh_token, guest, active_conversation_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(server) DO UPDATE SET
		username = excluded.username,
		email = excluded.email,
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		guest = excluded.guest,
		active_conversation_id = excluded.active_conversation_id,
		updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		session.Server, session.Username, session.Email,
		session.AccessToken, session.RefreshToken, session.Guest,
		session.ActiveConversationID, session.CreatedAt, session.UpdatedAt)
	return err
}

// SetActiveConversation records which conversation was last open
func SetActiveConversation(ctx context.Context, db Conn, server string, conversationID *string) error {
	query := `UPDATE sessions SET active_conversation_id = ?, updated_at = ? WHERE server = ?`
	_, err := db.ExecContext(ctx, query, conversationID, time.Now(), server)
	return err
}

// DeleteSession removes the session for a server along with its cached
// conversation list
func DeleteSession(ctx context.Context, db TxStarter, server string) error {
	return InTx(ctx, db, func(tx Conn) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_conversations WHERE server = ?`, server); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE server = ?`, server)
		return err
	})
}

// ListCachedConversations returns the cached conversation list for a user,
// in the order it was saved
func ListCachedConversations(ctx context.Context, db Conn, server, username string) ([]CachedConversation, error) {
	query := `SELECT server, username, conversation_id, position, title, payload, cached_at FROM cached_conversations WHERE server = ? AND username = ? ORDER BY position`
	var convs []CachedConversation
	err := sqlscan.Select(ctx, db, &convs, query, server, username)
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// ReplaceCachedConversations swaps the cached list for a user in a single
// transaction. Positions are assigned from slice order.
func ReplaceCachedConversations(ctx context.Context, db TxStarter, server, username string, convs []CachedConversation) error {
	return InTx(ctx, db, func(tx Conn) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_conversations WHERE server = ? AND username = ?`, server, username); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		now := time.Now()
		query := `INSERT INTO cached_conversations (server, username, conversation_id, position, title, payload, cached_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(server, username, conversation_id) DO NOTHING`
		for i := range convs {
			c := &convs[i]
			c.Server = server
			c.Username = username
			c.Position = i
			c.CachedAt = now
			if _, err := tx.ExecContext(ctx, query, c.Server, c.Username, c.ConversationID, c.Position, c.Title, c.Payload, c.CachedAt); err != nil {
				return fmt.Errorf("failed to cache conversation %s: %w", c.ConversationID, err)
			}
		}
		return nil
	})
}
