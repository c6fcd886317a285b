// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
)

// errReplyDropped is returned when the conversation disappeared while its
// reply was in flight.
var errReplyDropped = errors.New("conversation was removed before the reply arrived")

// sendAndWait sends content and blocks until the reply has been reconciled
// into the store or the send was rolled back. A zero convID starts a new
// conversation. It returns the conversation and the reply message.
func sendAndWait(ctx context.Context, eng *chatsync.Engine, convID model.ID, content string) (model.ID, model.ID, error) {
	isNew := convID.IsZero()
	id, err := eng.SendMessage(ctx, content, convID)
	if err != nil {
		return id, model.ID{}, err
	}

	if !isNew {
		conv, ok := eng.Store().Get(id)
		if !ok {
			return id, model.ID{}, errReplyDropped
		}
		last, ok := conv.LastMessage()
		if !ok || last.Role != model.RoleAssistant || last.IsProvisional() {
			return id, model.ID{}, errReplyDropped
		}
		return id, last.ID, nil
	}

	// New conversations finish in the background; their outcome arrives
	// as an event.
	for {
		select {
		case <-ctx.Done():
			return id, model.ID{}, ctx.Err()
		case ev := <-eng.Events():
			if ev.ConversationID != id {
				continue
			}
			switch ev.Kind {
			case chatsync.EventReplyReady:
				if ev.MessageID.IsZero() {
					return id, model.ID{}, errReplyDropped
				}
				return id, ev.MessageID, nil
			case chatsync.EventSendFailed:
				return id, model.ID{}, ev.Err
			}
		}
	}
}

// findMessage looks a message up in the store.
func findMessage(st *store.Store, convID, msgID model.ID) (model.Message, bool) {
	conv, ok := st.Get(convID)
	if !ok {
		return model.Message{}, false
	}
	i := conv.IndexOf(msgID)
	if i < 0 {
		return model.Message{}, false
	}
	return conv.Messages[i], true
}

// streamReply prints a reply as its playback reveals it and returns the
// text printed. When ctx ends first, skip is called and the rest of the
// reply is printed at once.
func streamReply(ctx context.Context, st *store.Store, convID, msgID model.ID, w io.Writer, skip func()) string {
	changes := make(chan struct{}, 1)
	unsubscribe := st.Subscribe(func(store.Change) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	printed := ""
	done := ctx.Done()
	for {
		msg, ok := findMessage(st, convID, msgID)
		if !ok {
			break
		}
		text := msg.DisplayContent()
		if strings.HasPrefix(text, printed) {
			printf(w, "%s", text[len(printed):])
		} else {
			printf(w, "\n%s", text)
		}
		printed = text
		if !msg.IsPlaying() {
			break
		}

		select {
		case <-done:
			skip()
			done = nil
		case <-changes:
		}
	}
	printf(w, "\n")
	return printed
}
