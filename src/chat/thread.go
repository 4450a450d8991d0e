package chat

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/elee1766/chatportal/src/portalapi"
)

const (
	// DefaultTitleLimit is how many characters of a first message become
	// the title of the conversation it creates.
	DefaultTitleLimit = 40

	// LocalIDPrefix marks message ids generated on this side
	LocalIDPrefix = "local-"

	anonymousSender = "Guest"
)

// State of a Thread
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateSending
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// Callbacks receive thread updates. Every field is optional. They are
// invoked outside the thread lock and only for the current conversation.
type Callbacks struct {
	// OnReset is called when the displayed thread is replaced wholesale
	OnReset func(conversationID portalapi.ID, messages []portalapi.Message)
	// OnMessage is called for each appended message
	OnMessage func(conversationID portalapi.ID, msg portalapi.Message)
	// OnReplace is called when an optimistic message is confirmed
	OnReplace func(conversationID portalapi.ID, localID portalapi.ID, msg portalapi.Message)
	// OnPending is called when the automated reply starts or stops pending
	OnPending func(conversationID portalapi.ID, pending bool)
}

func (c *Callbacks) reset(id portalapi.ID, msgs []portalapi.Message) {
	if c.OnReset != nil {
		c.OnReset(id, msgs)
	}
}

func (c *Callbacks) message(id portalapi.ID, msg portalapi.Message) {
	if c.OnMessage != nil {
		c.OnMessage(id, msg)
	}
}

func (c *Callbacks) replace(id, localID portalapi.ID, msg portalapi.Message) {
	if c.OnReplace != nil {
		c.OnReplace(id, localID, msg)
	}
}

func (c *Callbacks) pending(id portalapi.ID, pending bool) {
	if c.OnPending != nil {
		c.OnPending(id, pending)
	}
}

// ThreadOptions configures a Thread
type ThreadOptions struct {
	Logger     *slog.Logger
	TitleLimit int
	Callbacks  Callbacks
}

// Exchange is the outcome of a successful Send
type Exchange struct {
	ConversationID portalapi.ID
	// Human is the confirmed copy of the sent message, or the optimistic
	// one when the store did not return an id for it.
	Human portalapi.Message
	// Reply is the automated response, nil if the store sent none
	Reply *portalapi.Message
	// Created is set when the send created the conversation
	Created bool
}

// Thread holds the messages of the active conversation and sends new ones.
// Safe for concurrent use.
type Thread struct {
	store      MessageStore
	creator    Creator
	identity   Identity
	logger     *slog.Logger
	titleLimit int
	callbacks  Callbacks

	mu       sync.Mutex
	convID   portalapi.ID
	gen      uint64
	state    State
	messages []portalapi.Message
	resolved map[portalapi.ID]portalapi.ID
	loadErr  error
}

// NewThread creates a thread controller. creator is used when a message
// is sent with no conversation selected.
func NewThread(store MessageStore, creator Creator, identity Identity, opts ThreadOptions) *Thread {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.TitleLimit
	if limit <= 0 {
		limit = DefaultTitleLimit
	}
	return &Thread{
		store:      store,
		creator:    creator,
		identity:   identity,
		logger:     logger.With("component", "message_thread"),
		titleLimit: limit,
		callbacks:  opts.Callbacks,
		resolved:   make(map[portalapi.ID]portalapi.ID),
	}
}

// ConversationID returns the active conversation, empty for none
func (t *Thread) ConversationID() portalapi.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.convID
}

// State returns the current state
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Pending reports whether an automated reply is awaited
func (t *Thread) Pending() bool {
	return t.State() == StateSending
}

// Messages returns a snapshot of the displayed messages in insertion order
func (t *Thread) Messages() []portalapi.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// LoadError returns the error of the last load, if it failed
func (t *Thread) LoadError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadErr
}

// ResolveID maps an optimistic message id to the id the store assigned
func (t *Thread) ResolveID(localID portalapi.ID) (portalapi.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.resolved[localID]
	return id, ok
}

// Select switches the thread to id and loads its history. An empty id
// unloads the thread. Results of loads or sends started for an earlier
// selection are dropped. A failed load leaves the thread Ready with no
// messages and returns a *FetchError.
func (t *Thread) Select(ctx context.Context, id portalapi.ID) error {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.convID = id
	t.messages = nil
	t.loadErr = nil
	clear(t.resolved)
	if id.IsZero() {
		t.state = StateUnloaded
	} else {
		t.state = StateLoading
	}
	t.mu.Unlock()

	t.callbacks.reset(id, nil)
	if id.IsZero() {
		return nil
	}

	conv, err := t.store.GetConversation(ctx, id)

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		t.logger.Debug("discarding stale conversation load", "id", id)
		return nil
	}
	t.state = StateReady
	if err != nil {
		loadErr := fetchError("load conversation", id, err)
		t.loadErr = loadErr
		t.mu.Unlock()
		t.logger.Warn("failed to load conversation", "id", id, "error", err)
		return loadErr
	}
	t.messages = slices.Clone(conv.Messages)
	msgs := slices.Clone(t.messages)
	t.mu.Unlock()

	t.logger.Debug("conversation loaded", "id", id, "messages", len(msgs))
	t.callbacks.reset(id, msgs)
	return nil
}

// Reload fetches the active conversation again
func (t *Thread) Reload(ctx context.Context) error {
	return t.Select(ctx, t.ConversationID())
}

// Send posts text as the current user. The message is appended before any
// request is made. With no active conversation one is created first, titled
// after the start of text. On failure the optimistic message stays in the
// thread and the error is returned; nothing is retried.
func (t *Thread) Send(ctx context.Context, text string) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "content", Message: "message cannot be empty"}
	}

	sender := ""
	if t.identity != nil {
		sender = t.identity.Username()
	}
	if sender == "" {
		sender = anonymousSender
	}

	t.mu.Lock()
	switch t.state {
	case StateSending:
		t.mu.Unlock()
		return nil, ErrSendInFlight
	case StateLoading:
		t.mu.Unlock()
		return nil, ErrThreadLoading
	}
	gen := t.gen
	convID := t.convID
	local := portalapi.Message{
		ID:      portalapi.ID(LocalIDPrefix + uuid.NewString()),
		Sender:  sender,
		Content: text,
	}
	t.messages = append(t.messages, local)
	t.state = StateSending
	t.mu.Unlock()

	t.callbacks.message(convID, local)
	t.callbacks.pending(convID, true)

	exchange := &Exchange{ConversationID: convID, Human: local}

	if convID.IsZero() {
		conv, err := t.creator.Add(ctx, t.titleHint(text))
		if err != nil {
			t.finishSend(gen, convID)
			return nil, err
		}
		convID = conv.ID
		exchange.ConversationID = convID
		exchange.Created = true

		t.mu.Lock()
		current := t.gen == gen
		if current {
			t.convID = convID
		}
		t.mu.Unlock()
		if current {
			t.creator.Select(convID)
		}
	}

	resp, err := t.store.AddMessage(ctx, convID, portalapi.NewMessage{Sender: sender, Content: text})
	if err != nil {
		t.finishSend(gen, convID)
		t.logger.Warn("failed to send message", "conversation", convID, "error", err)
		return nil, fetchError("send message", convID, err)
	}

	confirmed := local
	if !resp.ID.IsZero() {
		confirmed = resp.Message
		if confirmed.Sender == "" {
			confirmed.Sender = local.Sender
		}
		if confirmed.Content == "" {
			confirmed.Content = local.Content
		}
	}
	exchange.Human = confirmed
	if resp.BotMessage != nil {
		reply := *resp.BotMessage
		exchange.Reply = &reply
	}

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		t.logger.Debug("discarding reply for abandoned conversation", "conversation", convID)
		return exchange, nil
	}
	replaced := false
	if confirmed.ID != local.ID {
		if i := slices.IndexFunc(t.messages, func(m portalapi.Message) bool { return m.ID == local.ID }); i >= 0 {
			t.messages[i] = confirmed
			t.resolved[local.ID] = confirmed.ID
			replaced = true
		}
	}
	if exchange.Reply != nil {
		t.messages = append(t.messages, *exchange.Reply)
	}
	t.state = StateReady
	t.mu.Unlock()

	if replaced {
		t.callbacks.replace(convID, local.ID, confirmed)
	}
	if exchange.Reply != nil {
		t.callbacks.message(convID, *exchange.Reply)
	}
	t.callbacks.pending(convID, false)
	return exchange, nil
}

// finishSend clears the pending state after a failed send if the thread
// still shows the conversation the send was for
func (t *Thread) finishSend(gen uint64, convID portalapi.ID) {
	t.mu.Lock()
	current := t.gen == gen
	if current {
		t.state = StateReady
	}
	t.mu.Unlock()
	if current {
		t.callbacks.pending(convID, false)
	}
}

func (t *Thread) titleHint(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > t.titleLimit {
		runes = runes[:t.titleLimit]
	}
	return strings.TrimSpace(string(runes))
}
