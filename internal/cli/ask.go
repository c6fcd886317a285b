// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Examples:
//   rigchat ask "What is a goroutine?"
//   rigchat ask -C 42 "And a channel?"
//   git diff | rigchat ask

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func (rt *runtime) newAskCommand() *cobra.Command {
	var (
		conversation string
		raw          bool
	)
	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message and print the reply",
		Long: `Send one message and print the reply.

Without --conversation a new conversation is created, titled after the
message. With no arguments the message is read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := askContent(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			convID, err := parseOptionalID(conversation)
			if err != nil {
				return err
			}

			// The whole reply is printed at once.
			rt.noPlayback = true
			ctx := cmd.Context()
			a, err := rt.newApp(ctx, logStderr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			if !convID.IsZero() {
				if err := a.engine.OpenConversation(ctx, convID); err != nil {
					return err
				}
			}
			convID, msgID, err := sendAndWait(ctx, a.engine, convID, content)
			if err != nil {
				return err
			}
			msg, ok := findMessage(a.store, convID, msgID)
			if !ok {
				return errReplyDropped
			}

			out := newMarkdownWriter(cmd.OutOrStdout(), styles.NewTheme(a.cfg.UI.Theme), a.cfg.UI.Markdown && !raw)
			out.Print(msg.Content)
			if conversation == "" {
				printf(cmd.ErrOrStderr(), "(conversation %s)\n", convID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&conversation, "conversation", "C", "", "continue the conversation with this id")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

// askContent joins the arguments, or reads stdin when there are none.
func askContent(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isTerminal(in) {
		return "", &UsageError{Arg: "message", Reason: "nothing to send"}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	return string(b), nil
}

// parseOptionalID parses a conversation id; "" yields the zero ID.
func parseOptionalID(s string) (model.ID, error) {
	if s == "" {
		return model.ID{}, nil
	}
	id, err := model.ParseID(s)
	if err != nil || !id.IsCanonical() {
		return model.ID{}, &UsageError{Arg: "conversation id", Reason: fmt.Sprintf("%q is not a conversation id", s)}
	}
	return id, nil
}
