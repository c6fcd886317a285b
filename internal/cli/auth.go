// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/model"
)

var errPasswordMismatch = errors.New("passwords do not match")

func (rt *runtime) newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account",
		Long: `Create an account on the chat service.

The password must be at least 8 characters and contain a digit, an
upper-case letter and one of ` + model.PasswordSpecials + `. It is read from
RIGCHAT_PASSWORD or prompted for twice.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.newApp(ctx, logStderr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			email := a.cfg.Auth.Email
			if len(args) == 1 {
				email = args[0]
			}
			if email == "" {
				if email, err = askEmail(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			password := a.cfg.Auth.Password
			if password == "" {
				if password, err = rt.readPassword("Password: "); err != nil {
					return err
				}
				confirm, err := rt.readPassword("Repeat password: ")
				if err != nil {
					return err
				}
				if confirm != password {
					return errPasswordMismatch
				}
			}

			u, err := a.session.Register(ctx, email, password)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Registered %s\n", u.Email)
			return nil
		},
	}
}
