package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/elee1766/chatportal/src/portalapi"
)

// GuestName is the display name used when a guest does not pick one
const GuestName = "Guest"

// Claims are the fields read from a simplejwt access token. The signature
// is never verified here; only the store can do that.
type Claims struct {
	TokenType string `json:"token_type,omitempty"`
	UserID    any    `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Session holds the current identity and tokens. It is passed explicitly
// to the API client (as a portalapi.TokenSource) and to the chat
// controllers (as a chat.Identity). Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	server  string
	user    portalapi.User
	tokens  portalapi.Tokens
	guest   bool
	active  string
	warned  bool
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New returns an anonymous session for server
func New(server string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		server:  server,
		logger:  logger.With("component", "session"),
		nowFunc: time.Now,
	}
}

// Server is the API base URL this session belongs to
func (s *Session) Server() string {
	return s.server
}

// AccessToken implements portalapi.TokenSource. An expired token is still
// returned so the store can reject it; a warning is logged once.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.tokens.Access
	if token == "" || s.warned {
		return token
	}
	if exp, ok := expiresAt(token); ok && !exp.After(s.nowFunc()) {
		s.warned = true
		s.logger.Warn("access token expired, requests will be rejected until you log in again",
			"user", s.user.Username, "expired_at", exp)
	}
	return token
}

// Username implements chat.Identity
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Username
}

// User returns the signed in user
func (s *Session) User() portalapi.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Tokens returns the current token pair
func (s *Session) Tokens() portalapi.Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// IsGuest reports whether the session was started without credentials
func (s *Session) IsGuest() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guest
}

// IsAuthenticated reports whether a bearer token is available
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}

// IsSignedIn reports whether there is any identity at all, guest or not
func (s *Session) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Username != ""
}

// SetAuth adopts the identity and tokens from a login or register response
func (s *Session) SetAuth(resp *portalapi.AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = resp.User
	s.tokens = resp.Tokens
	s.guest = false
	s.warned = false
	s.active = ""
}

// SetToken sets the access token directly, keeping the current user
func (s *Session) SetToken(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = portalapi.Tokens{Access: access}
	s.warned = false
}

// SetUsername overrides the sender name without touching tokens
func (s *Session) SetUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.Username = name
}

// SetGuest switches to a guest session with no token
func (s *Session) SetGuest(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = GuestName
	}
	if len(name) > 150 {
		return fmt.Errorf("guest name too long")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = portalapi.User{Username: name}
	s.tokens = portalapi.Tokens{}
	s.guest = true
	s.warned = false
	s.active = ""
	return nil
}

// Clear forgets identity, tokens and the active conversation
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = portalapi.User{}
	s.tokens = portalapi.Tokens{}
	s.guest = false
	s.warned = false
	s.active = ""
}

// ActiveConversation returns the id of the last opened conversation
func (s *Session) ActiveConversation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActiveConversation remembers the open conversation, "" for none
func (s *Session) SetActiveConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

// ExpiresAt returns the access token expiry if the token carries one
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return expiresAt(s.tokens.Access)
}

// Expired reports whether the access token is past its expiry
func (s *Session) Expired() bool {
	exp, ok := s.ExpiresAt()
	if !ok {
		return false
	}
	return !exp.After(s.nowFunc())
}

// ParseClaims decodes the claims of a JWT without verifying its signature
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

func expiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
