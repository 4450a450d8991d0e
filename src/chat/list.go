package chat

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/elee1766/chatportal/src/portalapi"
)

const (
	// DefaultTitle is used when a conversation is created without a hint
	DefaultTitle = "New Conversation"

	// DefaultReloadDelay is how long after a create the list is refetched
	// to pick up titles normalized by the store.
	DefaultReloadDelay = time.Second

	reloadTimeout = 30 * time.Second
)

// ListOptions configures a List
type ListOptions struct {
	Logger       *slog.Logger
	DefaultTitle string
	// ReloadDelay of zero means DefaultReloadDelay; negative disables the
	// reload after create.
	ReloadDelay time.Duration
	Cache       ListCache
	// OnChange is called with a snapshot after every applied change
	OnChange func(convs []portalapi.Conversation, active portalapi.ID)
}

type mutationKind int

const (
	mutationCreate mutationKind = iota
	mutationRename
	mutationDelete
)

// mutation is a confirmed local change, kept until a list fetch started
// after it has been applied
type mutation struct {
	seq  uint64
	kind mutationKind
	conv portalapi.Conversation
}

// List holds the ordered conversation list and the active selection.
// It only changes on confirmed store responses. Safe for concurrent use.
type List struct {
	store        ConversationStore
	cache        ListCache
	logger       *slog.Logger
	defaultTitle string
	reloadDelay  time.Duration
	onChange     func([]portalapi.Conversation, portalapi.ID)

	mu      sync.Mutex
	convs   []portalapi.Conversation
	active  portalapi.ID
	seq     uint64
	applied uint64
	overlay []mutation
	timer   *time.Timer
	closed  bool
}

// NewList creates a conversation list controller
func NewList(store ConversationStore, opts ListOptions) *List {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	title := opts.DefaultTitle
	if title == "" {
		title = DefaultTitle
	}
	delay := opts.ReloadDelay
	if delay == 0 {
		delay = DefaultReloadDelay
	}
	return &List{
		store:        store,
		cache:        opts.Cache,
		logger:       logger.With("component", "conversation_list"),
		defaultTitle: title,
		reloadDelay:  delay,
		onChange:     opts.OnChange,
	}
}

// Conversations returns a snapshot of the list in display order
func (l *List) Conversations() []portalapi.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.convs)
}

// Active returns the selected conversation id, empty for none
func (l *List) Active() portalapi.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Find returns the conversation with id
func (l *List) Find(id portalapi.ID) (portalapi.Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := indexOf(l.convs, id); i >= 0 {
		return l.convs[i], true
	}
	return portalapi.Conversation{}, false
}

// Select marks id as the active conversation. The id does not have to be
// in the list yet, a restored selection may precede the first fetch.
func (l *List) Select(id portalapi.ID) {
	l.mu.Lock()
	l.active = id
	convs, active := slices.Clone(l.convs), l.active
	l.mu.Unlock()
	l.notify(convs, active)
}

// Restore seeds an empty list from the cache. It returns the number of
// conversations restored.
func (l *List) Restore(ctx context.Context) (int, error) {
	if l.cache == nil {
		return 0, nil
	}
	cached, err := l.cache.LoadConversations(ctx)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	if l.applied > 0 || len(l.convs) > 0 {
		l.mu.Unlock()
		return 0, nil
	}
	l.convs = cached
	convs, active := slices.Clone(l.convs), l.active
	l.mu.Unlock()

	l.notify(convs, active)
	return len(cached), nil
}

// List fetches all conversations from the store. On failure the previous
// list is kept and a *FetchError is returned.
func (l *List) List(ctx context.Context) ([]portalapi.Conversation, error) {
	l.mu.Lock()
	l.seq++
	start := l.seq
	l.mu.Unlock()

	fetched, err := l.store.ListConversations(ctx)
	if err != nil {
		return nil, fetchError("list conversations", "", err)
	}

	l.mu.Lock()
	if start < l.applied {
		// a newer fetch already landed
		convs, applied := slices.Clone(l.convs), l.applied
		l.mu.Unlock()
		l.logger.Debug("discarding stale conversation list", "fetch", start, "applied", applied)
		return convs, nil
	}

	merged := slices.Clone(fetched)
	kept := l.overlay[:0]
	for _, m := range l.overlay {
		if m.seq > start {
			merged = applyMutation(merged, m)
			kept = append(kept, m)
		}
	}
	l.overlay = kept
	l.applied = start
	l.convs = merged
	convs, active := slices.Clone(l.convs), l.active
	l.mu.Unlock()

	l.logger.Debug("conversation list loaded", "count", len(convs))
	if l.cache != nil {
		if err := l.cache.SaveConversations(ctx, convs); err != nil {
			l.logger.Warn("failed to cache conversation list", "error", err)
		}
	}
	l.notify(convs, active)
	return convs, nil
}

// Create creates a conversation, prepends it and makes it active. An empty
// hint uses the default title. A reload is scheduled so titles normalized
// by the store show up.
func (l *List) Create(ctx context.Context, titleHint string) (portalapi.Conversation, error) {
	return l.create(ctx, titleHint, true)
}

// Add creates a conversation and prepends it like Create but leaves the
// selection alone. Callers that may have been abandoned while the request
// was in flight select the result themselves.
func (l *List) Add(ctx context.Context, titleHint string) (portalapi.Conversation, error) {
	return l.create(ctx, titleHint, false)
}

func (l *List) create(ctx context.Context, titleHint string, activate bool) (portalapi.Conversation, error) {
	title := strings.TrimSpace(titleHint)
	if title == "" {
		title = l.defaultTitle
	}

	conv, err := l.store.CreateConversation(ctx, title)
	if err != nil {
		return portalapi.Conversation{}, fetchError("create conversation", "", err)
	}
	created := *conv
	created.Messages = nil

	l.mu.Lock()
	l.record(mutation{kind: mutationCreate, conv: created})
	if activate {
		l.active = created.ID
	}
	l.scheduleReload()
	convs, active := slices.Clone(l.convs), l.active
	l.mu.Unlock()

	l.logger.Info("conversation created", "id", created.ID, "title", created.Title)
	l.notify(convs, active)
	return created, nil
}

// Rename changes the title of id. Blank titles are rejected before any
// request is made.
func (l *List) Rename(ctx context.Context, id portalapi.ID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Message: "title cannot be empty"}
	}

	conv, err := l.store.RenameConversation(ctx, id, title)
	if err != nil {
		return fetchError("rename conversation", id, err)
	}
	if conv != nil && conv.Title != "" {
		title = conv.Title
	}

	l.mu.Lock()
	l.record(mutation{kind: mutationRename, conv: portalapi.Conversation{ID: id, Title: title}})
	convs, active := slices.Clone(l.convs), l.active
	l.mu.Unlock()

	l.logger.Info("conversation renamed", "id", id, "title", title)
	l.notify(convs, active)
	return nil
}

// Delete removes id from the store and the list. Deleting the active
// conversation clears the selection.
func (l *List) Delete(ctx context.Context, id portalapi.ID) error {
	if err := l.store.DeleteConversation(ctx, id); err != nil {
		return fetchError("delete conversation", id, err)
	}

	l.mu.Lock()
	l.record(mutation{kind: mutationDelete, conv: portalapi.Conversation{ID: id}})
	if l.active == id {
		l.active = ""
	}
	convs, active := slices.Clone(l.convs), l.active
	l.mu.Unlock()

	l.logger.Info("conversation deleted", "id", id)
	l.notify(convs, active)
	return nil
}

// Close stops a pending scheduled reload
func (l *List) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// record applies a confirmed mutation and keeps it for fetches already in
// flight. Must be called with l.mu held.
func (l *List) record(m mutation) {
	l.seq++
	m.seq = l.seq
	l.convs = applyMutation(l.convs, m)
	l.overlay = append(l.overlay, m)
}

// scheduleReload (re)arms the reload timer. Must be called with l.mu held.
func (l *List) scheduleReload() {
	if l.closed || l.reloadDelay < 0 {
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.reloadDelay, l.reload)
}

func (l *List) reload() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.timer = nil
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if _, err := l.List(ctx); err != nil {
		l.logger.Warn("scheduled conversation reload failed", "error", err)
	}
}

func (l *List) notify(convs []portalapi.Conversation, active portalapi.ID) {
	if l.onChange != nil {
		l.onChange(convs, active)
	}
}

func applyMutation(convs []portalapi.Conversation, m mutation) []portalapi.Conversation {
	switch m.kind {
	case mutationCreate:
		out := make([]portalapi.Conversation, 0, len(convs)+1)
		out = append(out, m.conv)
		for _, c := range convs {
			if c.ID != m.conv.ID {
				out = append(out, c)
			}
		}
		return out
	case mutationRename:
		if i := indexOf(convs, m.conv.ID); i >= 0 {
			out := slices.Clone(convs)
			out[i].Title = m.conv.Title
			return out
		}
	case mutationDelete:
		if i := indexOf(convs, m.conv.ID); i >= 0 {
			return slices.Delete(slices.Clone(convs), i, i+1)
		}
	}
	return convs
}

func indexOf(convs []portalapi.Conversation, id portalapi.ID) int {
	return slices.IndexFunc(convs, func(c portalapi.Conversation) bool {
		return c.ID == id
	})
}
