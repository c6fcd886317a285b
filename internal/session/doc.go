// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the login state of a rigchat client.
//
// The Manager authenticates against the chat service, tells subscribers when
// the user logs in or out, and logs an idle session out after a configurable
// period of inactivity. The sync engine subscribes to it so the conversation
// store never outlives the login it belongs to.
//
// # Key Types
//
//   - Manager: Login state, subscribers and idle timeout
//   - TickMsg, TimeoutWarningMsg, TimeoutMsg: Bubble Tea messages for the idle timer
//
// # Usage
//
//	mgr := session.NewManager(client, session.DefaultConfig())
//	if _, err := mgr.Login(ctx, email, password); err != nil {
//	    return err
//	}
//
// Reset the idle timer on user activity:
//
//	mgr.RecordActivity()
package session
