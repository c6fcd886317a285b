// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation state of a rigchat session.
//
// The Store is the only shared mutable state in the client. Every mutation
// goes through one of its methods, each of which is atomic with respect to
// every other call. Mutations addressed to a conversation or message that no
// longer exists are silent no-ops, so late network responses and cancelled
// playbacks never resurrect deleted state.
//
// # Usage
//
//	s := store.New()
//	unsubscribe := s.Subscribe(func(c store.Change) { redraw() })
//	defer unsubscribe()
//
//	s.InsertConversation(conv)
//	s.AppendProvisional(conv.ID, tempUser)
//	s.Reconcile(conv.ID, tempUser.ID, tempAssistant.ID, reply.User, reply.Assistant)
package store
