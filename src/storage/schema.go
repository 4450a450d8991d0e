package storage

import "time"

// Session is the persisted login state for one server
type Session struct {
	Server               string    `json:"server" db:"server"`
	Username             string    `json:"username" db:"username"`
	Email                string    `json:"email" db:"email"`
	AccessToken          string    `json:"access_token" db:"access_token"`
	RefreshToken         string    `json:"refresh_token" db:"refresh_token"`
	Guest                bool      `json:"guest" db:"guest"`
	ActiveConversationID *string   `json:"active_conversation_id,omitempty" db:"active_conversation_id"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// CachedConversation is one entry of the last successfully fetched
// conversation list. Payload holds the store's JSON for the conversation.
type CachedConversation struct {
	Server         string    `json:"server" db:"server"`
	Username       string    `json:"username" db:"username"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Position       int       `json:"position" db:"position"`
	Title          string    `json:"title" db:"title"`
	Payload        JSONText  `json:"payload" db:"payload"`
	CachedAt       time.Time `json:"cached_at" db:"cached_at"`
}
