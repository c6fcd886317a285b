// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package playback reveals a completed assistant reply one token per tick so
// it reads like a live stream.
//
// Every playback is a goroutine with its own ticker and cancel function and is
// addressed by an explicit Handle. A playback ends when it has revealed the
// whole text, when it is stopped through its Handle or the Scheduler, or when
// its Target rejects an update because the message or its conversation is gone.
//
// # Usage
//
//	sched := playback.NewScheduler(st, playback.WithInterval(30*time.Millisecond))
//	h := sched.Play(reply.Content, conv.ID, reply.ID)
//	<-h.Done()
package playback
