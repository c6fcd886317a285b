// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatsync keeps the local conversation store in step with the chat
// service.
//
// A send is optimistic: the user message and an empty assistant placeholder
// are shown under provisional IDs before the service answers. On success the
// provisional pair is swapped for the canonical one and the reply is played
// back token by token; on failure the pair is removed and the error surfaced.
//
// Sending to a new conversation returns as soon as the conversation exists so
// the display can switch to it; the rest of the send finishes in the
// background and reports failures on the Events channel.
//
// # Usage
//
//	eng := chatsync.New(st, client, sched, chatsync.WithIdentity(sess))
//	defer eng.Close()
//
//	convID, err := eng.SendMessage(ctx, "Hello", model.ID{})
package chatsync
