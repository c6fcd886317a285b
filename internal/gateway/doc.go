// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the HTTP client for the remote chat service.
//
// The service owns conversations, messages and accounts. Authentication is a
// cookie session: Login stores the HttpOnly session cookie in the client's
// cookie jar and every later request carries it.
//
// Errors returned by the service are reported as *APIError, which matches the
// package sentinels through errors.Is:
//
//	reply, err := c.SendMessage(ctx, convID, "Hello")
//	if errors.Is(err, gateway.ErrQuotaExceeded) {
//	    // daily token quota used up
//	}
//
// The client never retries. A failed send is rolled back by the caller.
package gateway
