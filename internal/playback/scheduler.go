// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/metrics"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/util"
)

// DefaultInterval is the delay between two revealed tokens.
const DefaultInterval = 30 * time.Millisecond

// Target receives playback progress. Returning false stops the playback.
type Target interface {
	UpdatePlayback(conversationID, messageID model.ID, revealed string, playing bool) bool
}

// =============================================================================
// HANDLE
// =============================================================================

type taskKey struct {
	conv model.ID
	msg  model.ID
}

// Handle controls one running playback.
type Handle struct {
	key    taskKey
	text   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the playback. Safe to call more than once.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed once the playback goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ConversationID returns the conversation the playback belongs to.
func (h *Handle) ConversationID() model.ID { return h.key.conv }

// MessageID returns the message being revealed.
func (h *Handle) MessageID() model.ID { return h.key.msg }

// =============================================================================
// SCHEDULER
// =============================================================================

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics records playback counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler runs and tracks playbacks.
type Scheduler struct {
	target  Target
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	interval time.Duration
	tasks    map[taskKey]*Handle
}

// NewScheduler creates a scheduler that reports progress to target.
func NewScheduler(target Target, opts ...Option) *Scheduler {
	s := &Scheduler{
		target:   target,
		logger:   zerolog.Nop(),
		interval: DefaultInterval,
		tasks:    make(map[taskKey]*Handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetInterval changes the tick interval for playbacks started afterwards.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
}

// Interval returns the current tick interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Play starts revealing text on the given message. A playback already
// running for the same message is stopped first.
//
// Each tick reveals one more whitespace-delimited token; the revealed text is
// always a prefix of text so separators and markdown survive. The tick that
// reveals the last token also clears the playback state, so a text of N
// tokens finishes after N intervals. Text without tokens finishes at once.
func (s *Scheduler) Play(text string, conversationID, messageID model.ID) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		key:    taskKey{conv: conversationID, msg: messageID},
		text:   text,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	prev := s.tasks[h.key]
	s.tasks[h.key] = h
	interval := s.interval
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	spans := util.Tokens(text)
	s.metrics.PlaybackStarted()
	if len(spans) == 0 {
		s.target.UpdatePlayback(conversationID, messageID, text, false)
		s.finish(h, true)
		return h
	}

	s.logger.Debug().
		Stringer("conversation", conversationID).
		Stringer("message", messageID).
		Int("tokens", len(spans)).
		Dur("interval", interval).
		Msg("playback started")

	go s.run(ctx, h, text, spans, interval)
	return h
}

func (s *Scheduler) run(ctx context.Context, h *Handle, text string, spans []util.Span, interval time.Duration) {
	completed := false
	defer func() { s.finish(h, completed) }()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	conv, msg := h.key.conv, h.key.msg
	for i, span := range spans {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		last := i == len(spans)-1
		revealed := text[:span.End]
		if last {
			revealed = text
		}
		if !s.target.UpdatePlayback(conv, msg, revealed, true) {
			s.logger.Debug().Stringer("message", msg).Int("token", i).Msg("playback target gone")
			return
		}
		if last {
			s.target.UpdatePlayback(conv, msg, text, false)
			completed = true
			return
		}
	}
}

// finish releases the handle and removes it from the task table.
func (s *Scheduler) finish(h *Handle, completed bool) {
	h.cancel()

	s.mu.Lock()
	if s.tasks[h.key] == h {
		delete(s.tasks, h.key)
	}
	s.mu.Unlock()

	s.metrics.PlaybackFinished(completed)
	close(h.done)
}

// Stop cancels the playback of one message, if any.
func (s *Scheduler) Stop(conversationID, messageID model.ID) bool {
	s.mu.Lock()
	h := s.tasks[taskKey{conv: conversationID, msg: messageID}]
	s.mu.Unlock()

	if h == nil {
		return false
	}
	h.Stop()
	return true
}

// Finish stops the playback of one message and reveals its full text at
// once. It waits for the playback goroutine so no partial update follows.
func (s *Scheduler) Finish(conversationID, messageID model.ID) bool {
	s.mu.Lock()
	h := s.tasks[taskKey{conv: conversationID, msg: messageID}]
	s.mu.Unlock()

	if h == nil {
		return false
	}
	s.finishNow(h)
	return true
}

// FinishConversation reveals every running playback of a conversation.
func (s *Scheduler) FinishConversation(conversationID model.ID) int {
	s.mu.Lock()
	var handles []*Handle
	for k, h := range s.tasks {
		if k.conv == conversationID {
			handles = append(handles, h)
		}
	}
	s.mu.Unlock()

	for _, h := range handles {
		s.finishNow(h)
	}
	return len(handles)
}

func (s *Scheduler) finishNow(h *Handle) {
	h.Stop()
	<-h.done
	s.target.UpdatePlayback(h.key.conv, h.key.msg, h.text, false)
}

// StopConversation cancels every playback of a conversation and returns
// how many were stopped.
func (s *Scheduler) StopConversation(conversationID model.ID) int {
	return s.stopWhere(func(k taskKey) bool { return k.conv == conversationID })
}

// StopAll cancels every playback.
func (s *Scheduler) StopAll() int {
	return s.stopWhere(func(taskKey) bool { return true })
}

func (s *Scheduler) stopWhere(match func(taskKey) bool) int {
	s.mu.Lock()
	var handles []*Handle
	for k, h := range s.tasks {
		if match(k) {
			handles = append(handles, h)
		}
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
	return len(handles)
}

// Active returns the number of running playbacks.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
