package chat

import (
	"context"

	"github.com/elee1766/chatportal/src/portalapi"
)

// ConversationStore is the part of the remote store the list uses.
// *portalapi.Client implements it.
type ConversationStore interface {
	ListConversations(ctx context.Context) ([]portalapi.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*portalapi.Conversation, error)
	RenameConversation(ctx context.Context, id portalapi.ID, title string) (*portalapi.Conversation, error)
	DeleteConversation(ctx context.Context, id portalapi.ID) error
}

// MessageStore is the part of the remote store the thread uses.
// *portalapi.Client implements it.
type MessageStore interface {
	GetConversation(ctx context.Context, id portalapi.ID) (*portalapi.Conversation, error)
	AddMessage(ctx context.Context, id portalapi.ID, msg portalapi.NewMessage) (*portalapi.SendMessageResponse, error)
}

// Creator creates a conversation on behalf of a thread that has none.
// Add must not change the selection; the thread calls Select once it knows
// the conversation is still wanted. *List implements it.
type Creator interface {
	Add(ctx context.Context, titleHint string) (portalapi.Conversation, error)
	Select(id portalapi.ID)
}

// Identity names the human sender of outgoing messages
type Identity interface {
	Username() string
}

// ListCache keeps the last successfully fetched list between runs
type ListCache interface {
	LoadConversations(ctx context.Context) ([]portalapi.Conversation, error)
	SaveConversations(ctx context.Context, convs []portalapi.Conversation) error
}
