// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gatewaytest provides an in-memory chat service for tests.
//
// Fake implements the same operations as gateway.Client and can be told to
// fail or to block individual operations, which is how tests drive the sync
// engine through its failure and race paths.
package gatewaytest

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/model"
)

// Op names a gateway operation.
type Op string

const (
	OpCreate   Op = "create_conversation"
	OpList     Op = "list_conversations"
	OpGet      Op = "get_conversation"
	OpDelete   Op = "delete_conversation"
	OpSend     Op = "send_message"
	OpRegister Op = "register"
	OpLogin    Op = "login"
	OpLogout   Op = "logout"
	OpMe       Op = "me"
)

// Fake is an in-memory chat service.
type Fake struct {
	mu sync.Mutex

	convs    map[int64]*model.Conversation
	nextConv int64
	nextMsg  int64

	accounts map[string]string
	users    map[string]model.User
	nextUser int64
	current  *model.User

	reply   func(content string) string
	errs    map[Op]error
	gates   map[Op]chan struct{}
	calls   map[Op]int
	entered chan Op
}

// New returns an empty fake whose replies echo the user message.
func New() *Fake {
	return &Fake{
		convs:    make(map[int64]*model.Conversation),
		accounts: make(map[string]string),
		users:    make(map[string]model.User),
		reply:    func(content string) string { return "Echo: " + content },
		errs:     make(map[Op]error),
		gates:    make(map[Op]chan struct{}),
		calls:    make(map[Op]int),
		entered:  make(chan Op, 64),
	}
}

// SetReply sets the function that generates assistant replies.
func (f *Fake) SetReply(fn func(content string) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = fn
}

// FailWith makes every call of op return err. A nil err clears the failure.
func (f *Fake) FailWith(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Block holds every call of op until release is called or the call's
// context ends. Entered reports each held call.
func (f *Fake) Block(op Op) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gates[op] == gate {
				delete(f.gates, op)
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Entered receives op each time a blocked call starts waiting.
func (f *Fake) Entered() <-chan Op {
	return f.entered
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Seed stores a conversation with the given message contents, alternating
// user and assistant roles.
func (f *Fake) Seed(title string, contents ...string) model.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv := f.newConversation(title)
	for i, content := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		conv.Messages = append(conv.Messages, f.newMessage(conv.ID, role, content))
	}
	return conv.Clone()
}

// AddUser creates an account.
func (f *Fake) AddUser(email, password string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUser(email, password)
}

// Conversation returns the stored state of a conversation.
func (f *Fake) Conversation(id model.ID) (model.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := id.Int64()
	conv, ok := f.convs[n]
	if !ok {
		return model.Conversation{}, false
	}
	return conv.Clone(), true
}

// =============================================================================
// CALL PLUMBING
// =============================================================================

// enter records the call, waits on a gate and returns the injected failure.
func (f *Fake) enter(ctx context.Context, op Op) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	f.mu.Unlock()

	if gate != nil {
		select {
		case f.entered <- op:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *Fake) newConversation(title string) *model.Conversation {
	f.nextConv++
	conv := &model.Conversation{
		ID:        model.CanonicalID(f.nextConv),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		Messages:  []model.Message{},
	}
	f.convs[f.nextConv] = conv
	return conv
}

func (f *Fake) newMessage(convID model.ID, role model.Role, content string) model.Message {
	f.nextMsg++
	return model.Message{
		ID:             model.CanonicalID(f.nextMsg),
		ConversationID: convID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}

func (f *Fake) addUser(email, password string) model.User {
	email = model.NormalizeEmail(email)
	f.nextUser++
	u := model.User{ID: f.nextUser, Email: email, CreatedAt: time.Now().UTC()}
	f.accounts[email] = password
	f.users[email] = u
	return u
}

func (f *Fake) lookup(id model.ID) (*model.Conversation, error) {
	n, ok := id.Int64()
	if !ok {
		return nil, gateway.ErrInvalidID
	}
	conv, ok := f.convs[n]
	if !ok {
		return nil, &gateway.APIError{Status: http.StatusNotFound, Detail: "conversation not found"}
	}
	return conv, nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation creates an empty conversation.
func (f *Fake) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	if err := f.enter(ctx, OpCreate); err != nil {
		return model.Conversation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv := f.newConversation(title)
	return model.Conversation{ID: conv.ID, Title: conv.Title, CreatedAt: conv.CreatedAt}, nil
}

// ListConversations returns all conversations without messages, newest first.
func (f *Fake) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	if err := f.enter(ctx, OpList); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int64, 0, len(f.convs))
	for id := range f.convs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	out := make([]model.Conversation, 0, len(ids))
	for _, id := range ids {
		c := f.convs[id]
		out = append(out, model.Conversation{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

// GetConversation returns a conversation with its messages.
func (f *Fake) GetConversation(ctx context.Context, id model.ID) (model.Conversation, error) {
	if err := f.enter(ctx, OpGet); err != nil {
		return model.Conversation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, err := f.lookup(id)
	if err != nil {
		return model.Conversation{}, err
	}
	return conv.Clone(), nil
}

// DeleteConversation removes a conversation.
func (f *Fake) DeleteConversation(ctx context.Context, id model.ID) error {
	if err := f.enter(ctx, OpDelete); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.lookup(id); err != nil {
		return err
	}
	n, _ := id.Int64()
	delete(f.convs, n)
	return nil
}

// SendMessage stores the user message and a generated reply.
func (f *Fake) SendMessage(ctx context.Context, conversationID model.ID, content string) (model.Reply, error) {
	if err := f.enter(ctx, OpSend); err != nil {
		return model.Reply{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, err := f.lookup(conversationID)
	if err != nil {
		return model.Reply{}, err
	}
	user := f.newMessage(conv.ID, model.RoleUser, content)
	assistant := f.newMessage(conv.ID, model.RoleAssistant, f.reply(content))
	conv.Messages = append(conv.Messages, user, assistant)
	return model.Reply{User: user, Assistant: assistant}, nil
}

// =============================================================================
// AUTH
// =============================================================================

// Register creates an account.
func (f *Fake) Register(ctx context.Context, email, password string) (model.User, error) {
	if err := f.enter(ctx, OpRegister); err != nil {
		return model.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[model.NormalizeEmail(email)]; exists {
		return model.User{}, &gateway.APIError{Status: http.StatusBadRequest, Detail: "email already registered"}
	}
	return f.addUser(email, password), nil
}

// Login starts a session.
func (f *Fake) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := f.enter(ctx, OpLogin); err != nil {
		return model.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email = model.NormalizeEmail(email)
	if pw, ok := f.accounts[email]; !ok || pw != password {
		return model.User{}, &gateway.APIError{Status: http.StatusUnauthorized, Detail: "Incorrect email or password"}
	}
	u := f.users[email]
	f.current = &u
	return u, nil
}

// Logout ends the session.
func (f *Fake) Logout(ctx context.Context) error {
	err := f.enter(ctx, OpLogout)
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
	return err
}

// Me returns the session user.
func (f *Fake) Me(ctx context.Context) (model.User, error) {
	if err := f.enter(ctx, OpMe); err != nil {
		return model.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return model.User{}, &gateway.APIError{Status: http.StatusUnauthorized, Detail: "Not authenticated"}
	}
	return *f.current, nil
}
