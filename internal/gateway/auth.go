// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"net/http"

	"github.com/jeranaias/rigchat/internal/model"
)

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password string) (model.User, error) {
	var out userDTO
	err := c.do(ctx, "register", http.MethodPost, "/auth/register",
		credentials{Email: model.NormalizeEmail(email), Password: password}, &out)
	if err != nil {
		return model.User{}, err
	}
	return out.toModel(), nil
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var out loginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login",
		credentials{Email: model.NormalizeEmail(email), Password: password}, &out)
	if err != nil {
		return model.User{}, err
	}
	return out.User.toModel(), nil
}

// Logout ends the server session and forgets the local cookie even when
// the request fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil)
	c.ResetSession()
	return err
}

// Me returns the user of the current session.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out userDTO
	if err := c.do(ctx, "me", http.MethodGet, "/auth/me", nil, &out); err != nil {
		return model.User{}, err
	}
	return out.toModel(), nil
}
