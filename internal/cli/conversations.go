// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - list, show, export and delete commands.

package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// titleColumn is the display width of the title column in list output.
const titleColumn = 40

func (rt *runtime) newListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := rt.newApp(ctx, logStderr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := a.engine.LoadConversations(ctx); err != nil {
				return err
			}

			convs := a.store.List()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), convs)
			}
			printConversations(cmd.OutOrStdout(), convs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printConversations(w io.Writer, convs []model.Conversation) {
	if len(convs) == 0 {
		printf(w, "No conversations yet.\n")
		return
	}
	printf(w, "%-8s  %-*s  %s\n", "ID", titleColumn, "TITLE", "CREATED")
	for _, c := range convs {
		title := util.TruncateWidth(c.Title, titleColumn)
		pad := titleColumn - util.StringWidth(title)
		if pad < 0 {
			pad = 0
		}
		printf(w, "%-8s  %s%*s  %s\n", c.ID, title, pad, "", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (rt *runtime) newShowCommand() *cobra.Command {
	var (
		asJSON bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOptionalID(args[0])
			if err != nil {
				return err
			}
			if id.IsZero() {
				return &UsageError{Arg: "conversation id", Reason: "must not be empty"}
			}

			ctx := cmd.Context()
			a, err := rt.newApp(ctx, logStderr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := a.engine.OpenConversation(ctx, id); err != nil {
				return err
			}
			conv, ok := a.store.Get(id)
			if !ok {
				return errors.New("conversation vanished while loading")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), conv)
			}

			theme := styles.NewTheme(a.cfg.UI.Theme)
			out := newMarkdownWriter(cmd.OutOrStdout(), theme, a.cfg.UI.Markdown && !raw)
			printf(cmd.OutOrStdout(), "%s\n\n", theme.HeaderBrand.Render(conv.Title))
			for _, m := range conv.Messages {
				printf(cmd.OutOrStdout(), "%s\n", theme.RoleLabel.Render(m.Role.DisplayName()+":"))
				out.Print(m.Content)
				printf(cmd.OutOrStdout(), "\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print replies without markdown rendering")
	return cmd
}

func (rt *runtime) newExportCommand() *cobra.Command {
	var (
		format    string
		outputDir string
		noMeta    bool
	)
	cmd := &cobra.Command{
		Use:   "export <conversation-id>",
		Short: "Save a conversation as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOptionalID(args[0])
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			opts.IncludeMetadata = !noMeta
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return &UsageError{Arg: "format", Reason: err.Error()}
			}

			ctx := cmd.Context()
			a, err := rt.newApp(ctx, logStderr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := a.engine.OpenConversation(ctx, id); err != nil {
				return err
			}
			conv, ok := a.store.Get(id)
			if !ok {
				return errors.New("conversation vanished while loading")
			}
			path, err := export.ToFile(&conv, exporter, opts)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory to write to")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit the front matter block")
	return cmd
}

func (rt *runtime) newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <conversation-id>...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]model.ID, 0, len(args))
			for _, arg := range args {
				id, err := parseOptionalID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			ctx := cmd.Context()
			a, err := rt.newApp(ctx, logStderr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}

			var errs []error
			for _, id := range ids {
				if err := a.engine.DeleteConversation(ctx, id); err != nil {
					errs = append(errs, err)
					continue
				}
				printf(cmd.OutOrStdout(), "Deleted conversation %s\n", id)
			}
			return errors.Join(errs...)
		},
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
