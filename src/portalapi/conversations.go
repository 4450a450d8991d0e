package portalapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func conversationPath(id ID, suffix string) string {
	return "conversations/" + url.PathEscape(id.String()) + "/" + suffix
}

// ListConversations returns all conversations of the current session,
// newest first as ordered by the store.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	if err := c.do(ctx, http.MethodGet, "conversations/", nil, &conversations, true); err != nil {
		return nil, err
	}
	if conversations == nil {
		conversations = []Conversation{}
	}
	return conversations, nil
}

// CreateConversation creates a conversation with the given title
func (c *Client) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "conversations/", titleRequest{Title: title}, &conv, true); err != nil {
		return nil, err
	}
	if conv.ID.IsZero() {
		return nil, fmt.Errorf("create conversation: %w", ErrMissingID)
	}
	return &conv, nil
}

// GetConversation returns a conversation including its full message history
func (c *Client) GetConversation(ctx context.Context, id ID) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, conversationPath(id, ""), nil, &conv, true); err != nil {
		return nil, err
	}
	return &conv, nil
}

// AddMessage submits a message to a conversation. The response carries the
// persisted message and the automated reply generated by the store.
func (c *Client) AddMessage(ctx context.Context, id ID, msg NewMessage) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	if err := c.do(ctx, http.MethodPost, conversationPath(id, "messages/"), msg, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenameConversation changes the title of a conversation
func (c *Client) RenameConversation(ctx context.Context, id ID, title string) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodPatch, conversationPath(id, "rename/"), titleRequest{Title: title}, &conv, true); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation deletes a conversation
func (c *Client) DeleteConversation(ctx context.Context, id ID) error {
	return c.do(ctx, http.MethodDelete, conversationPath(id, "delete/"), nil, nil, true)
}
