package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

type backendConversation struct {
	ID       int              `json:"id"`
	Title    string           `json:"title"`
	Status   string           `json:"status"`
	Messages []backendMessage `json:"messages"`
	owner    string
}

type backendMessage struct {
	ID      int    `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// backend emulates the chat portal REST API for a set of users
type backend struct {
	mu       sync.Mutex
	nextID   int
	tokens   map[string]string // access token -> username
	users    map[string]string // username -> password
	convs    []*backendConversation
	requests int

	// createHook runs after a conversation is stored and before the
	// response is written
	createHook func()
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{
		tokens: make(map[string]string),
		users:  map[string]string{"alice": "secret"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login/", b.login)
	mux.HandleFunc("POST /api/users/register/", b.register)
	mux.HandleFunc("GET /api/users/me/", b.authed(b.me))
	mux.HandleFunc("GET /api/conversations/{$}", b.authed(b.list))
	mux.HandleFunc("POST /api/conversations/{$}", b.authed(b.create))
	mux.HandleFunc("GET /api/conversations/{id}/", b.authed(b.get))
	mux.HandleFunc("POST /api/conversations/{id}/messages/", b.authed(b.addMessage))
	mux.HandleFunc("PATCH /api/conversations/{id}/rename/", b.authed(b.rename))
	mux.HandleFunc("DELETE /api/conversations/{id}/delete/", b.authed(b.remove))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return b, server
}

func (b *backend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *backend) authed(next func(w http.ResponseWriter, r *http.Request, user string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		user, ok := b.tokens[token]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next(w, r, user)
	}
}

func (b *backend) issue(user string) map[string]interface{} {
	b.nextID++
	access := fmt.Sprintf("access-%d", b.nextID)
	b.tokens[access] = user
	return map[string]interface{}{
		"user":   map[string]string{"username": user},
		"tokens": map[string]string{"access": access, "refresh": "refresh-" + access},
	}
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.users[body["username"]]; !ok || pw != body["password"] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}
	writeJSON(w, http.StatusOK, b.issue(body["username"]))
}

func (b *backend) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[body["username"]]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	b.users[body["username"]] = body["password"]
	writeJSON(w, http.StatusCreated, b.issue(body["username"]))
}

func (b *backend) me(w http.ResponseWriter, r *http.Request, user string) {
	writeJSON(w, http.StatusOK, map[string]string{"username": user, "email": user + "@example.com"})
}

func (b *backend) find(r *http.Request, user string) *backendConversation {
	for _, c := range b.convs {
		if fmt.Sprint(c.ID) == r.PathValue("id") && c.owner == user {
			return c
		}
	}
	return nil
}

func (b *backend) list(w http.ResponseWriter, r *http.Request, user string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]interface{}{}
	for _, c := range slices.Backward(b.convs) {
		if c.owner == user {
			out = append(out, map[string]interface{}{"id": c.ID, "title": c.Title, "status": c.Status})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *backend) create(w http.ResponseWriter, r *http.Request, user string) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.nextID++
	title := body["title"]
	if title == "" {
		title = "New Chat"
	}
	c := &backendConversation{ID: b.nextID, Title: title, Status: "active", Messages: []backendMessage{}, owner: user}
	b.convs = append(b.convs, c)
	out := *c
	hook := b.createHook
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
	writeJSON(w, http.StatusCreated, out)
}

func (b *backend) get(w http.ResponseWriter, r *http.Request, user string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.find(r, user)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *backend) addMessage(w http.ResponseWriter, r *http.Request, user string) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.find(r, user)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}
	content := body["content"]
	if content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message content is required"})
		return
	}
	b.nextID++
	human := backendMessage{ID: b.nextID, Sender: user, Content: content}
	b.nextID++
	bot := backendMessage{ID: b.nextID, Sender: "ai-bot", Content: "<p>You said <b>" + content + "</b></p>"}
	c.Messages = append(c.Messages, human, bot)
	if strings.EqualFold(c.Title, "new conversation") {
		short := content
		if len(short) > 40 {
			short = strings.TrimSpace(short[:40]) + "..."
		}
		c.Title = short
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id": human.ID, "sender": human.Sender, "content": human.Content, "bot_message": bot,
	})
}

func (b *backend) rename(w http.ResponseWriter, r *http.Request, user string) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.find(r, user)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}
	c.Title = body["title"]
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": c.ID, "title": c.Title})
}

func (b *backend) remove(w http.ResponseWriter, r *http.Request, user string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.find(r, user)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}
	b.convs = slices.DeleteFunc(b.convs, func(x *backendConversation) bool { return x == c })
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted"})
}
