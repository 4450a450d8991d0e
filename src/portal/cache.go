package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elee1766/chatportal/src/portalapi"
	"github.com/elee1766/chatportal/src/session"
	"github.com/elee1766/chatportal/src/storage"
)

// conversationCache stores the last fetched list per server and user
type conversationCache struct {
	db      *storage.DB
	server  string
	session *session.Session
}

func (c *conversationCache) LoadConversations(ctx context.Context) ([]portalapi.Conversation, error) {
	user := c.session.Username()
	if user == "" {
		return nil, nil
	}
	rows, err := storage.ListCachedConversations(ctx, c.db.DB(), c.server, user)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation cache: %w", err)
	}
	convs := make([]portalapi.Conversation, 0, len(rows))
	for _, row := range rows {
		var conv portalapi.Conversation
		if err := json.Unmarshal(row.Payload, &conv); err != nil {
			return nil, fmt.Errorf("failed to decode cached conversation %s: %w", row.ConversationID, err)
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (c *conversationCache) SaveConversations(ctx context.Context, convs []portalapi.Conversation) error {
	user := c.session.Username()
	if user == "" {
		return nil
	}
	rows := make([]storage.CachedConversation, 0, len(convs))
	for _, conv := range convs {
		conv.Messages = nil
		payload, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		rows = append(rows, storage.CachedConversation{
			ConversationID: conv.ID.String(),
			Title:          conv.Title,
			Payload:        storage.JSONText(payload),
		})
	}
	return storage.ReplaceCachedConversations(ctx, c.db.DB(), c.server, user, rows)
}

// CachedConversations returns the offline list without contacting the store
func (a *App) CachedConversations(ctx context.Context) ([]portalapi.Conversation, error) {
	cache := &conversationCache{db: a.Store, server: a.Session.Server(), session: a.Session}
	return cache.LoadConversations(ctx)
}
