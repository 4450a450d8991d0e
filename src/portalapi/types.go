package portalapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BotSender is the sender value the store uses for automated replies.
const BotSender = "ai-bot"

// ID is an opaque identifier assigned by the store. The backend emits
// integer ids; ID accepts JSON numbers and strings alike.
type ID string

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a string
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset
func (id ID) IsZero() bool {
	return id == ""
}

// Conversation is a chat conversation as returned by the store.
// Status, timestamps, summary and metadata are owned by the store and only
// passed through.
type Conversation struct {
	ID        ID              `json:"id"`
	Title     string          `json:"title"`
	Status    string          `json:"status,omitempty"`
	StartedAt string          `json:"started_at,omitempty"`
	EndedAt   *string         `json:"ended_at,omitempty"`
	Summary   *string         `json:"summary,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	Messages  []Message       `json:"messages,omitempty"`
}

// Message is a single message in a conversation
type Message struct {
	ID        ID     `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// IsBot reports whether the message was produced by the automated responder
func (m Message) IsBot() bool {
	return m.Sender == BotSender
}

// NewMessage is the body of a message submission
type NewMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// SendMessageResponse is the store's answer to a message submission: the
// persisted human message plus the automated reply.
type SendMessageResponse struct {
	Message
	BotMessage *Message `json:"bot_message,omitempty"`
}

// User identifies an account on the store
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Tokens carries the JWT pair issued on login or registration
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// AuthResponse is returned by the login and register endpoints
type AuthResponse struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
	Tokens  Tokens `json:"tokens"`
}

// LoginRequest is the body of a login call
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of a registration call
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=1"`
}

type titleRequest struct {
	Title string `json:"title"`
}
