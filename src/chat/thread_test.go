package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/chatportal/src/portalapi"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnReset:   func(id portalapi.ID, msgs []portalapi.Message) { r.add("reset") },
		OnMessage: func(id portalapi.ID, msg portalapi.Message) { r.add("message:" + msg.Sender) },
		OnReplace: func(id, localID portalapi.ID, msg portalapi.Message) { r.add("replace") },
		OnPending: func(id portalapi.ID, pending bool) {
			if pending {
				r.add("pending")
			} else {
				r.add("done")
			}
		},
	}
}

func newTestThread(store *fakeStore, opts ThreadOptions) (*Thread, *List) {
	list := newTestList(store, ListOptions{})
	return NewThread(store, list, staticUser("alice"), opts), list
}

func TestSendCreatesConversation(t *testing.T) {
	store := newFakeStore()
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()

	ex, err := thread.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.True(t, ex.Created)
	require.NotNil(t, ex.Reply)

	convs := list.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "Hello", convs[0].Title)
	assert.Equal(t, convs[0].ID, list.Active())
	assert.Equal(t, convs[0].ID, thread.ConversationID())
	assert.Equal(t, convs[0].ID, ex.ConversationID)

	msgs := thread.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].Sender)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.True(t, msgs[1].IsBot())
	assert.Equal(t, StateReady, thread.State())

	// the next send reuses the conversation
	_, err = thread.Send(context.Background(), "Again")
	require.NoError(t, err)
	assert.Len(t, list.Conversations(), 1)
	assert.Len(t, thread.Messages(), 4)
}

func TestSendTitleHintIsBounded(t *testing.T) {
	store := newFakeStore()
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()

	text := "  " + strings.Repeat("ü", 50) + "  "
	_, err := thread.Send(context.Background(), text)
	require.NoError(t, err)

	convs := list.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, strings.Repeat("ü", DefaultTitleLimit), convs[0].Title)
	assert.Equal(t, text, thread.Messages()[0].Content)
}

func TestSendToExistingConversation(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat",
		portalapi.Message{Sender: "alice", Content: "Hi"},
		portalapi.Message{Sender: portalapi.BotSender, Content: "Hello!"},
	)
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()

	require.NoError(t, thread.Select(ctx, id))
	require.Len(t, thread.Messages(), 2)

	ex, err := thread.Send(ctx, "Thanks")
	require.NoError(t, err)
	assert.False(t, ex.Created)
	assert.Equal(t, id, ex.ConversationID)

	msgs := thread.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Hi", msgs[0].Content)
	assert.Equal(t, "Hello!", msgs[1].Content)
	assert.Equal(t, "Thanks", msgs[2].Content)
	assert.Equal(t, "echo: Thanks", msgs[3].Content)
	assert.Equal(t, id, thread.ConversationID())
	assert.Empty(t, list.Conversations(), "sending must not touch the list")
}

func TestSendRejectsBlankText(t *testing.T) {
	store := newFakeStore()
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := thread.Send(context.Background(), text)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), "text %q", text)
		assert.Equal(t, "content", vErr.Field)
	}
	assert.Zero(t, store.requests.Load())
	assert.Empty(t, thread.Messages())
	assert.Equal(t, StateUnloaded, thread.State())
}

func TestSendShowsHumanMessageBeforeReply(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat")
	rec := &recorder{}
	thread, list := newTestThread(store, ThreadOptions{Callbacks: rec.callbacks()})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, id))

	inFlight := make(chan []portalapi.Message, 1)
	store.addHook = func(portalapi.ID) {
		inFlight <- thread.Messages()
	}

	_, err := thread.Send(ctx, "ping")
	require.NoError(t, err)

	during := <-inFlight
	require.Len(t, during, 1)
	assert.Equal(t, "ping", during[0].Content)
	assert.True(t, strings.HasPrefix(during[0].ID.String(), LocalIDPrefix))
	assert.Empty(t, during[0].CreatedAt)

	assert.Equal(t, []string{"reset", "reset", "message:alice", "pending", "replace", "message:ai-bot", "done"}, rec.snapshot())
}

func TestSendReconcilesOptimisticMessage(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat")
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, id))

	var localID portalapi.ID
	store.addHook = func(portalapi.ID) {
		localID = thread.Messages()[0].ID
	}
	ex, err := thread.Send(ctx, "ping")
	require.NoError(t, err)

	msgs := thread.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ex.Human.ID, msgs[0].ID)
	assert.False(t, strings.HasPrefix(msgs[0].ID.String(), LocalIDPrefix))
	assert.NotEmpty(t, msgs[0].CreatedAt)

	resolved, ok := thread.ResolveID(localID)
	require.True(t, ok)
	assert.Equal(t, msgs[0].ID, resolved)
}

func TestSendKeepsOptimisticWithoutConfirmedID(t *testing.T) {
	store := newFakeStore()
	store.noHumanID = true
	id := store.seed("Chat")
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, id))

	ex, err := thread.Send(ctx, "ping")
	require.NoError(t, err)
	msgs := thread.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0].ID.String(), LocalIDPrefix))
	assert.Equal(t, msgs[0].ID, ex.Human.ID)
	_, ok := thread.ResolveID(msgs[0].ID)
	assert.False(t, ok)
}

func TestSendWithoutReply(t *testing.T) {
	store := newFakeStore()
	store.reply = nil
	id := store.seed("Chat")
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, id))

	ex, err := thread.Send(ctx, "ping")
	require.NoError(t, err)
	assert.Nil(t, ex.Reply)
	assert.Len(t, thread.Messages(), 1)
	assert.Equal(t, StateReady, thread.State())
}

func TestSendFailureKeepsOptimisticMessage(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat")
	rec := &recorder{}
	thread, list := newTestThread(store, ThreadOptions{Callbacks: rec.callbacks()})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, id))

	store.addErr = &portalapi.APIError{StatusCode: 503, Message: "unavailable"}
	ex, err := thread.Send(ctx, "lost?")
	require.Error(t, err)
	assert.Nil(t, ex)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, id, fetchErr.ConversationID)
	assert.Equal(t, "send message", fetchErr.Op)

	msgs := thread.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "lost?", msgs[0].Content)
	assert.False(t, thread.Pending())
	assert.Contains(t, rec.snapshot(), "done")

	// a later send goes through
	store.addErr = nil
	_, err = thread.Send(ctx, "retry")
	require.NoError(t, err)
	assert.Len(t, thread.Messages(), 3)
}

func TestSendCreateFailure(t *testing.T) {
	store := newFakeStore()
	store.createErr = &portalapi.APIError{StatusCode: 401}
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()

	_, err := thread.Send(context.Background(), "Hello")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Len(t, thread.Messages(), 1)
	assert.True(t, thread.ConversationID().IsZero())
	assert.False(t, thread.Pending())
}

func TestSendWhileSending(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat")
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, id))

	started := make(chan struct{})
	release := make(chan struct{})
	store.addHook = func(portalapi.ID) {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := thread.Send(ctx, "first")
		done <- err
	}()
	<-started

	assert.True(t, thread.Pending())
	_, err := thread.Send(ctx, "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	require.NoError(t, <-done)
	msgs := thread.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestSendWhileLoading(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat")
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	store.getHook = func(portalapi.ID) {
		close(started)
		<-release
	}
	done := make(chan error, 1)
	go func() { done <- thread.Select(ctx, id) }()
	<-started

	assert.Equal(t, StateLoading, thread.State())
	_, err := thread.Send(ctx, "too early")
	assert.ErrorIs(t, err, ErrThreadLoading)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, thread.State())
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	store := newFakeStore()
	slow := store.seed("Slow", portalapi.Message{Sender: "alice", Content: "from slow"})
	fast := store.seed("Fast", portalapi.Message{Sender: "alice", Content: "from fast"})
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	store.getHook = func(id portalapi.ID) {
		if id == slow {
			close(started)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- thread.Select(ctx, slow) }()
	<-started

	require.NoError(t, thread.Select(ctx, fast))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, fast, thread.ConversationID())
	msgs := thread.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "from fast", msgs[0].Content)
}

func TestReplyForAbandonedConversationIsDiscarded(t *testing.T) {
	store := newFakeStore()
	first := store.seed("First")
	second := store.seed("Second", portalapi.Message{Sender: "alice", Content: "old"})
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()
	require.NoError(t, thread.Select(ctx, first))

	started := make(chan struct{})
	release := make(chan struct{})
	store.addHook = func(portalapi.ID) {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := thread.Send(ctx, "to first")
		done <- err
	}()
	<-started

	require.NoError(t, thread.Select(ctx, second))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, second, thread.ConversationID())
	msgs := thread.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "old", msgs[0].Content)
	assert.Equal(t, StateReady, thread.State())
}

func TestConversationCreatedForAbandonedSendIsNotSelected(t *testing.T) {
	store := newFakeStore()
	other := store.seed("Other", portalapi.Message{Sender: "alice", Content: "old"})
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()
	_, err := list.List(ctx)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	store.createHook = func(string) {
		close(started)
		<-release
	}

	done := make(chan *Exchange, 1)
	go func() {
		ex, err := thread.Send(ctx, "Hello")
		assert.NoError(t, err)
		done <- ex
	}()
	<-started

	list.Select(other)
	require.NoError(t, thread.Select(ctx, other))
	close(release)
	ex := <-done

	require.NotNil(t, ex)
	assert.True(t, ex.Created)
	assert.NotEqual(t, other, ex.ConversationID)
	assert.Equal(t, other, thread.ConversationID())
	assert.Equal(t, other, list.Active())
	_, ok := list.Find(ex.ConversationID)
	assert.True(t, ok)
	msgs := thread.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "old", msgs[0].Content)
}

func TestAddLeavesSelectionAlone(t *testing.T) {
	store := newFakeStore()
	existing := store.seed("Existing")
	list := newTestList(store, ListOptions{})
	defer list.Close()
	list.Select(existing)

	conv, err := list.Add(context.Background(), "Side")
	require.NoError(t, err)
	assert.Equal(t, existing, list.Active())
	assert.Equal(t, "Side", conv.Title)
	assert.Equal(t, conv.ID, list.Conversations()[0].ID)
}

func TestSelectNone(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat", portalapi.Message{Sender: "alice", Content: "hi"})
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()
	ctx := context.Background()

	require.NoError(t, thread.Select(ctx, id))
	require.Len(t, thread.Messages(), 1)
	before := store.requests.Load()

	require.NoError(t, thread.Select(ctx, ""))
	assert.Equal(t, StateUnloaded, thread.State())
	assert.Empty(t, thread.Messages())
	assert.Equal(t, before, store.requests.Load())
}

func TestLoadFailure(t *testing.T) {
	store := newFakeStore()
	thread, list := newTestThread(store, ThreadOptions{})
	defer list.Close()

	err := thread.Select(context.Background(), "404")
	require.Error(t, err)
	var apiErr *portalapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, StateReady, thread.State())
	assert.Empty(t, thread.Messages())
	assert.Equal(t, err, thread.LoadError())
}

func TestSendUsesGuestSenderWithoutIdentity(t *testing.T) {
	store := newFakeStore()
	id := store.seed("Chat")
	list := newTestList(store, ListOptions{})
	defer list.Close()
	thread := NewThread(store, list, staticUser(""), ThreadOptions{})
	require.NoError(t, thread.Select(context.Background(), id))

	ex, err := thread.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Guest", ex.Human.Sender)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unloaded", StateUnloaded.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "sending", StateSending.String())
}
