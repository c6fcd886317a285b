// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/metrics"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/playback"
	"github.com/jeranaias/rigchat/internal/store"
)

// DefaultEventBuffer is the capacity of the Events channel.
const DefaultEventBuffer = 32

// Gateway is the subset of the chat service the engine needs.
type Gateway interface {
	CreateConversation(ctx context.Context, title string) (model.Conversation, error)
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	GetConversation(ctx context.Context, id model.ID) (model.Conversation, error)
	DeleteConversation(ctx context.Context, id model.ID) error
	SendMessage(ctx context.Context, conversationID model.ID, content string) (model.Reply, error)
}

// Identity reports whether a user is logged in.
type Identity interface {
	Authenticated() bool
	Subscribe(fn func(authenticated bool)) (unsubscribe func())
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures an Engine.
type Option func(*Engine)

// WithIdentity ties the engine to a login session. Without one the engine
// behaves as if always logged in.
func WithIdentity(id Identity) Option {
	return func(e *Engine) { e.identity = id }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records send and conversation counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTitleLength sets how many characters of the first message become
// the conversation title.
func WithTitleLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.titleLength = n
		}
	}
}

// WithPlayback enables or disables incremental reveal of replies.
func WithPlayback(enabled bool) Option {
	return func(e *Engine) { e.playbackEnabled = enabled }
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.eventBuffer = n
		}
	}
}

// WithFailureHandler is called for every EventSendFailed and
// EventDeleteFailed, in addition to the Events channel.
func WithFailureHandler(fn func(Event)) Option {
	return func(e *Engine) { e.onFailure = fn }
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the send workflow and the conversation lifecycle.
type Engine struct {
	store    *store.Store
	gateway  Gateway
	playback *playback.Scheduler
	identity Identity
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	titleLength     int
	playbackEnabled bool
	eventBuffer     int
	onFailure       func(Event)

	events      chan Event
	wg          sync.WaitGroup
	unsubscribe func()
	closeOnce   sync.Once
}

// New creates an engine. When an identity is configured, losing it stops
// every playback and clears the store.
func New(st *store.Store, gw Gateway, sched *playback.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		store:           st,
		gateway:         gw,
		playback:        sched,
		logger:          zerolog.Nop(),
		titleLength:     model.DefaultTitleLength,
		playbackEnabled: true,
		eventBuffer:     DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.events = make(chan Event, e.eventBuffer)

	if e.identity != nil {
		e.unsubscribe = e.identity.Subscribe(func(authenticated bool) {
			if !authenticated {
				e.teardown()
			}
		})
	}
	return e
}

// Store returns the store the engine writes to.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Events delivers outcomes of background work. Events are dropped, and
// logged, when nobody drains the channel.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Wait blocks until every background send has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close detaches from the identity, stops playback and waits for
// background sends.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
		e.playback.StopAll()
		e.wg.Wait()
	})
}

func (e *Engine) authenticated() bool {
	return e.identity == nil || e.identity.Authenticated()
}

// teardown drops all session state.
func (e *Engine) teardown() {
	stopped := e.playback.StopAll()
	e.store.Clear()
	e.logger.Info().Int("playbacks_stopped", stopped).Msg("session ended, conversation state cleared")
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn().Stringer("kind", ev.Kind).Stringer("conversation", ev.ConversationID).
			Msg("event channel full, dropping event")
	}
	if e.onFailure != nil && (ev.Kind == EventSendFailed || ev.Kind == EventDeleteFailed) {
		e.onFailure(ev)
	}
}

// =============================================================================
// SEND WORKFLOW
// =============================================================================

// pendingSend is one send between its provisional insert and its resolution.
type pendingSend struct {
	conversationID model.ID
	tempUser       model.ID
	tempAssistant  model.ID
	content        string
}

// SendMessage sends content to a conversation. A zero conversationID creates
// a new conversation titled after the content.
//
// For an existing conversation the call returns once the send has been
// reconciled or rolled back. For a new conversation it returns the new ID
// right after the send has started; the outcome arrives on Events.
func (e *Engine) SendMessage(ctx context.Context, content string, conversationID model.ID) (model.ID, error) {
	if strings.TrimSpace(content) == "" {
		return model.ID{}, ErrEmptyContent
	}
	if !e.authenticated() {
		return model.ID{}, ErrNoIdentity
	}

	isNew := conversationID.IsZero()
	if isNew {
		conv, err := e.createConversation(ctx, model.DeriveTitle(content, e.titleLength))
		if err != nil {
			return model.ID{}, fmt.Errorf("%w: %w", ErrCreateConversation, err)
		}
		conversationID = conv.ID
	}

	now := time.Now()
	p := pendingSend{
		conversationID: conversationID,
		tempUser:       model.NewProvisionalID(),
		tempAssistant:  model.NewProvisionalID(),
		content:        content,
	}
	e.store.AppendProvisional(conversationID, model.Message{
		ID:        p.tempUser,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: now,
	})
	e.store.AppendProvisional(conversationID, model.Message{
		ID:        p.tempAssistant,
		Role:      model.RoleAssistant,
		CreatedAt: now,
	})

	if isNew {
		// The caller may cancel its context once it has the new ID.
		bg := context.WithoutCancel(ctx)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.complete(bg, p, true)
		}()
		return conversationID, nil
	}

	return conversationID, e.complete(ctx, p, false)
}

// complete performs the remote send and reconciles or rolls back.
func (e *Engine) complete(ctx context.Context, p pendingSend, background bool) error {
	log := e.logger.With().Stringer("conversation", p.conversationID).Logger()

	reply, err := e.gateway.SendMessage(ctx, p.conversationID, p.content)
	if err != nil {
		removed := e.store.RollbackProvisional(p.conversationID, p.tempUser, p.tempAssistant)
		e.metrics.SendFailed()
		err = fmt.Errorf("%w: %w", ErrSendFailed, err)
		log.Warn().Err(err).Int("rolled_back", removed).Bool("background", background).Msg("send failed")
		if background {
			e.emit(Event{
				Kind:           EventSendFailed,
				ConversationID: p.conversationID,
				Content:        p.content,
				Err:            err,
			})
		}
		return err
	}
	e.metrics.SendSucceeded()

	assistant := reply.Assistant
	if e.playbackEnabled {
		assistant.Playback = &model.Playback{Playing: true}
	}
	if !e.store.Reconcile(p.conversationID, p.tempUser, p.tempAssistant, reply.User, assistant) {
		log.Debug().Stringer("message", assistant.ID).Msg("reply arrived for removed state, dropped")
		if background {
			// A zero MessageID tells waiters the reply has nowhere to go.
			e.emit(Event{Kind: EventReplyReady, ConversationID: p.conversationID})
		}
		return nil
	}
	if e.playbackEnabled {
		e.playback.Play(assistant.Content, p.conversationID, assistant.ID)
	}

	log.Debug().Stringer("message", assistant.ID).Msg("reply reconciled")
	if background {
		e.emit(Event{Kind: EventReplyReady, ConversationID: p.conversationID, MessageID: assistant.ID})
	}
	return nil
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

func (e *Engine) createConversation(ctx context.Context, title string) (model.Conversation, error) {
	conv, err := e.gateway.CreateConversation(ctx, title)
	if err != nil {
		return model.Conversation{}, err
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	e.store.InsertConversation(conv)
	e.store.SetActive(conv.ID)
	e.metrics.ConversationCreated()
	e.logger.Info().Stringer("conversation", conv.ID).Str("title", conv.Title).Msg("conversation created")
	return conv, nil
}

// NewConversation creates an empty conversation and focuses it.
func (e *Engine) NewConversation(ctx context.Context, title string) (model.Conversation, error) {
	if !e.authenticated() {
		return model.Conversation{}, ErrNoIdentity
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultTitle
	}
	conv, err := e.createConversation(ctx, title)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("%w: %w", ErrCreateConversation, err)
	}
	return conv, nil
}

// DeleteConversation stops the conversation's playback, removes it locally
// and then deletes it on the service. The local removal stands even when
// the service refuses.
func (e *Engine) DeleteConversation(ctx context.Context, id model.ID) error {
	if !e.authenticated() {
		return ErrNoIdentity
	}

	e.playback.StopConversation(id)
	e.store.RemoveConversation(id)

	err := e.gateway.DeleteConversation(ctx, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		err = fmt.Errorf("delete conversation %s: %w", id, err)
		e.logger.Warn().Err(err).Msg("remote delete failed")
		e.emit(Event{Kind: EventDeleteFailed, ConversationID: id, Err: err})
		return err
	}
	e.metrics.ConversationDeleted()
	e.logger.Info().Stringer("conversation", id).Msg("conversation deleted")
	return nil
}

// SkipPlayback reveals every reply still being played back in a
// conversation and returns how many there were.
func (e *Engine) SkipPlayback(id model.ID) int {
	return e.playback.FinishConversation(id)
}

// LoadConversations replaces the local list with the service's. Messages
// already loaded for conversations that still exist are kept.
func (e *Engine) LoadConversations(ctx context.Context) error {
	if !e.authenticated() {
		return ErrNoIdentity
	}
	convs, err := e.gateway.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	e.applyList(convs)
	return nil
}

func (e *Engine) applyList(convs []model.Conversation) {
	for i := range convs {
		if local, ok := e.store.Get(convs[i].ID); ok && convs[i].Messages == nil {
			convs[i].Messages = local.Messages
		}
	}
	e.store.ReplaceAll(convs)
}

// OpenConversation loads a conversation's messages and focuses it.
// A conversation the service no longer knows is removed locally.
func (e *Engine) OpenConversation(ctx context.Context, id model.ID) error {
	if !e.authenticated() {
		return ErrNoIdentity
	}
	conv, err := e.gateway.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			e.playback.StopConversation(id)
			e.store.RemoveConversation(id)
		}
		return fmt.Errorf("open conversation %s: %w", id, err)
	}
	e.applyConversation(conv)
	e.store.SetActive(id)
	return nil
}

// applyConversation stores the service's view of a conversation while
// keeping local provisional messages and running playbacks.
func (e *Engine) applyConversation(conv model.Conversation) {
	local, ok := e.store.Get(conv.ID)
	if !ok {
		e.store.InsertConversation(conv)
		return
	}

	msgs := make([]model.Message, 0, len(conv.Messages)+2)
	for _, m := range conv.Messages {
		if i := local.IndexOf(m.ID); i >= 0 && local.Messages[i].Playback != nil {
			m.Playback = local.Messages[i].Playback
		}
		msgs = append(msgs, m)
	}
	for _, m := range local.Messages {
		if m.IsProvisional() {
			msgs = append(msgs, m)
		}
	}
	e.store.SetMessages(conv.ID, msgs)
}

// Refresh reloads the conversation list and the focused conversation
// concurrently.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.authenticated() {
		return ErrNoIdentity
	}
	active, hasActive := e.store.Active()

	var (
		convs []model.Conversation
		conv  model.Conversation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		convs, err = e.gateway.ListConversations(gctx)
		if err != nil {
			return fmt.Errorf("load conversations: %w", err)
		}
		return nil
	})
	if hasActive {
		g.Go(func() error {
			var err error
			conv, err = e.gateway.GetConversation(gctx, active)
			if err != nil && !errors.Is(err, gateway.ErrNotFound) {
				return fmt.Errorf("open conversation %s: %w", active, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.applyList(convs)
	if hasActive && !conv.ID.IsZero() {
		if _, ok := e.store.Get(conv.ID); ok {
			e.applyConversation(conv)
			e.store.SetActive(conv.ID)
		}
	}
	return nil
}
