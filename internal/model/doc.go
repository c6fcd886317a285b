// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the store, the sync engine,
// the playback scheduler and the remote gateway.
//
// # Key Types
//
//   - ID: Tagged identifier, either provisional (client-minted) or canonical (server-issued)
//   - Message: Single message with role, content, timestamp and optional playback state
//   - Conversation: Titled, ordered list of messages
//   - Reply: The canonical user/assistant pair returned by a send
//
// # Usage
//
// Mint a provisional message before the server has answered:
//
//	msg := model.Message{
//	    ID:      model.NewProvisionalID(),
//	    Role:    model.RoleUser,
//	    Content: "Hello!",
//	}
//
// Derive a conversation title from the first message:
//
//	title := model.DeriveTitle(content, model.DefaultTitleLength)
package model
