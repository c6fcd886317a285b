// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func (rt *runtime) newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runTUI(cmd)
		},
	}
}

// runTUI logs in on the plain terminal, then hands the screen to the
// chat view until the user quits or the session times out.
func (rt *runtime) runTUI(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := rt.newApp(ctx, logFileOnly, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
		return err
	}
	path, err := rt.watchPath()
	if err == nil {
		a.watchConfig(ctx, path)
	}

	theme := styles.NewTheme(a.cfg.UI.Theme)
	view := chat.New(a.engine, theme,
		chat.WithSession(a.session),
		chat.WithLogger(a.logger.With().Str("component", "ui").Logger()),
		chat.WithMarkdown(a.cfg.UI.Markdown, a.cfg.UI.WordWrap),
	)

	p := tea.NewProgram(view,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := p.Run()
	if m, ok := final.(chat.Model); ok {
		m.Close()
	} else {
		view.Close()
	}
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run chat view: %w", err)
	}

	if !a.session.Authenticated() {
		printf(cmd.ErrOrStderr(), "Session ended after %s of inactivity.\n", a.cfg.IdleTimeout())
	}
	return nil
}
