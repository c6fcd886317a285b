// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatsync

import "errors"

var (
	// ErrEmptyContent rejects a send with no visible text.
	ErrEmptyContent = errors.New("message is empty")

	// ErrNoIdentity rejects operations while logged out.
	ErrNoIdentity = errors.New("not logged in")

	// ErrCreateConversation wraps a failure to create the conversation of a
	// first send. Nothing was changed locally.
	ErrCreateConversation = errors.New("could not create conversation")

	// ErrSendFailed wraps a failed send. The provisional messages were removed.
	ErrSendFailed = errors.New("message not sent")
)
