package chat

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/elee1766/chatportal/src/portalapi"
)

type staticUser string

func (u staticUser) Username() string { return string(u) }

// fakeStore emulates the conversation REST contract in memory. Hooks run
// after the response has been computed and before it is returned, so a
// blocking hook simulates a slow network.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	convs    []portalapi.Conversation
	messages map[portalapi.ID][]portalapi.Message
	requests atomic.Int32

	listErr   error
	createErr error
	renameErr error
	deleteErr error
	getErr    error
	addErr    error

	// reply builds the automated answer, nil means no bot_message
	reply     func(content string) string
	noHumanID bool

	listHook   func(call int)
	getHook    func(id portalapi.ID)
	addHook    func(id portalapi.ID)
	createHook func(title string)
	listCall   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: make(map[portalapi.ID][]portalapi.Message),
		reply:    func(content string) string { return "echo: " + content },
	}
}

// seed adds a conversation with existing messages, newest first
func (f *fakeStore) seed(title string, msgs ...portalapi.Message) portalapi.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := portalapi.ID(fmt.Sprint(f.nextID))
	f.convs = append([]portalapi.Conversation{{ID: id, Title: title, Status: "active"}}, f.convs...)
	for _, m := range msgs {
		f.nextID++
		m.ID = portalapi.ID(fmt.Sprint(f.nextID))
		f.messages[id] = append(f.messages[id], m)
	}
	return id
}

func (f *fakeStore) retitle(id portalapi.ID, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := indexOf(f.convs, id); i >= 0 {
		f.convs[i].Title = title
	}
}

func (f *fakeStore) ListConversations(ctx context.Context) ([]portalapi.Conversation, error) {
	f.requests.Add(1)
	f.mu.Lock()
	f.listCall++
	call := f.listCall
	out := slices.Clone(f.convs)
	err := f.listErr
	hook := f.listHook
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeStore) CreateConversation(ctx context.Context, title string) (*portalapi.Conversation, error) {
	f.requests.Add(1)
	f.mu.Lock()
	if f.createErr != nil {
		err := f.createErr
		f.mu.Unlock()
		return nil, err
	}
	f.nextID++
	conv := portalapi.Conversation{ID: portalapi.ID(fmt.Sprint(f.nextID)), Title: title, Status: "active"}
	f.convs = append([]portalapi.Conversation{conv}, f.convs...)
	hook := f.createHook
	f.mu.Unlock()
	if hook != nil {
		hook(title)
	}
	return &conv, nil
}

func (f *fakeStore) RenameConversation(ctx context.Context, id portalapi.ID, title string) (*portalapi.Conversation, error) {
	f.requests.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return nil, f.renameErr
	}
	i := indexOf(f.convs, id)
	if i < 0 {
		return nil, &portalapi.APIError{StatusCode: 404, Message: "Conversation not found"}
	}
	f.convs[i].Title = title
	conv := f.convs[i]
	return &conv, nil
}

func (f *fakeStore) DeleteConversation(ctx context.Context, id portalapi.ID) error {
	f.requests.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	i := indexOf(f.convs, id)
	if i < 0 {
		return &portalapi.APIError{StatusCode: 404, Message: "Conversation not found"}
	}
	f.convs = slices.Delete(f.convs, i, i+1)
	delete(f.messages, id)
	return nil
}

func (f *fakeStore) GetConversation(ctx context.Context, id portalapi.ID) (*portalapi.Conversation, error) {
	f.requests.Add(1)
	f.mu.Lock()
	var conv *portalapi.Conversation
	if i := indexOf(f.convs, id); i >= 0 {
		c := f.convs[i]
		c.Messages = slices.Clone(f.messages[id])
		conv = &c
	}
	err := f.getErr
	hook := f.getHook
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, &portalapi.APIError{StatusCode: 404, Message: "Conversation not found"}
	}
	return conv, nil
}

func (f *fakeStore) AddMessage(ctx context.Context, id portalapi.ID, msg portalapi.NewMessage) (*portalapi.SendMessageResponse, error) {
	f.requests.Add(1)
	f.mu.Lock()
	err := f.addErr
	hook := f.addHook
	var resp *portalapi.SendMessageResponse
	if err == nil && indexOf(f.convs, id) >= 0 {
		f.nextID++
		human := portalapi.Message{ID: portalapi.ID(fmt.Sprint(f.nextID)), Sender: msg.Sender, Content: msg.Content, CreatedAt: "2025-01-01T00:00:00Z"}
		f.messages[id] = append(f.messages[id], human)
		resp = &portalapi.SendMessageResponse{Message: human}
		if f.noHumanID {
			resp.Message.ID = ""
		}
		if f.reply != nil {
			f.nextID++
			bot := portalapi.Message{ID: portalapi.ID(fmt.Sprint(f.nextID)), Sender: portalapi.BotSender, Content: f.reply(msg.Content)}
			f.messages[id] = append(f.messages[id], bot)
			resp.BotMessage = &bot
		}
	}
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &portalapi.APIError{StatusCode: 404, Message: "Conversation not found"}
	}
	return resp, nil
}

type memoryCache struct {
	mu    sync.Mutex
	convs []portalapi.Conversation
	saves int
}

func (c *memoryCache) LoadConversations(ctx context.Context) ([]portalapi.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.convs), nil
}

func (c *memoryCache) SaveConversations(ctx context.Context, convs []portalapi.Conversation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.convs = slices.Clone(convs)
	c.saves++
	return nil
}

func titles(convs []portalapi.Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.Title
	}
	return out
}
