// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line-mode chat.
//
// Interactive Commands:
//   /help, /h           Show available commands
//   /new, /n            Start a new conversation with the next message
//   /list, /ls          List conversations
//   /open ID            Continue a conversation
//   /history            Reprint the current conversation
//   /delete [ID]        Delete a conversation (default: the current one)
//   /refresh            Reload the list and the current conversation
//   /status             Show the session
//   /quit, /q           Exit
//   Ctrl+C              Cancel a send, or reveal the rest of a reply
//   Ctrl+D              Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor provides input history and line editing.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	e := &lineEditor{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// ReadInput reads one line, adding it to the history when not blank.
func (e *lineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists the history with owner-only permissions.
func (e *lineEditor) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = e.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (e *lineEditor) Close() {
	e.SaveHistory()
	_ = e.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func (rt *runtime) newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"chat"},
		Short:   "Chat line by line without the full-screen view",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Ctrl+C belongs to the current send, not to the process.
			ctx := context.WithoutCancel(cmd.Context())
			a, err := rt.newApp(ctx, logFileOnly, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticate(ctx, rt, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			if path, err := rt.watchPath(); err == nil {
				a.watchConfig(ctx, path)
			}

			r := newREPL(a, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return r.run(ctx)
		},
	}
}

// =============================================================================
// REPL
// =============================================================================

// repl is one line-mode chat session.
type repl struct {
	a      *app
	out    io.Writer
	errOut io.Writer
	theme  *styles.Theme
	md     *markdownWriter

	promptStyle lipgloss.Style

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newREPL(a *app, out, errOut io.Writer) *repl {
	theme := styles.NewTheme(a.cfg.UI.Theme)
	return &repl{
		a:           a,
		out:         out,
		errOut:      errOut,
		theme:       theme,
		md:          newMarkdownWriter(out, theme, a.cfg.UI.Markdown),
		promptStyle: lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true),
	}
}

// errQuit ends the loop.
var errQuit = errors.New("quit")

func (r *repl) run(ctx context.Context) error {
	editor := newLineEditor()
	defer editor.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer func() {
		signal.Stop(sigs)
		close(sigs)
	}()
	go func() {
		for range sigs {
			r.interrupt()
		}
	}()

	if u, ok := r.a.session.User(); ok {
		printf(r.out, "%s\n", r.theme.HeaderBrand.Render("rigchat")+" "+r.theme.HeaderUser.Render(u.Email))
	}
	printf(r.out, "Type a message, or /help for commands.\n\n")
	if err := r.a.engine.LoadConversations(ctx); err != nil {
		r.printError(err)
	}

	for {
		input, err := editor.ReadInput(r.prompt())
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal
			printf(r.out, "\n")
			return nil
		}
		if !r.a.session.Check(ctx) {
			printf(r.errOut, "%s\n", styles.RenderWarning("Session timed out."))
			return nil
		}
		r.a.session.RecordActivity()

		if err := r.handle(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			r.printError(err)
		}
	}
}

// prompt shows the current conversation's title.
func (r *repl) prompt() string {
	label := "new"
	if id, ok := r.a.store.Active(); ok {
		if conv, ok := r.a.store.Get(id); ok {
			label = util.TruncateWidth(conv.Title, 24)
		}
	}
	return r.promptStyle.Render("["+label+"]") + " > "
}

// interrupt cancels the running operation, if any.
func (r *repl) interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// begin starts a cancellable operation.
func (r *repl) begin(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	return opCtx, func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}
}

func (r *repl) printError(err error) {
	printf(r.errOut, "%s\n", styles.RenderError(describe(err)))
}

// handle runs one line of input.
func (r *repl) handle(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if !strings.HasPrefix(input, "/") {
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return errQuit
		}
		return r.send(ctx, input)
	}

	fields := strings.Fields(input)
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "/help", "/h", "/?":
		r.printHelp()
		return nil
	case "/quit", "/q", "/exit":
		return errQuit
	case "/new", "/n":
		r.a.store.ClearActive()
		printf(r.out, "Your next message starts a new conversation.\n")
		return nil
	case "/list", "/ls":
		if err := r.a.engine.LoadConversations(ctx); err != nil {
			return err
		}
		printConversations(r.out, r.a.store.List())
		return nil
	case "/open", "/o":
		if len(args) != 1 {
			return &UsageError{Arg: "arguments", Reason: "usage: /open ID"}
		}
		id, err := parseOptionalID(args[0])
		if err != nil {
			return err
		}
		if err := r.a.engine.OpenConversation(ctx, id); err != nil {
			return err
		}
		r.printHistory()
		return nil
	case "/history":
		r.printHistory()
		return nil
	case "/delete", "/rm":
		return r.delete(ctx, args)
	case "/refresh":
		if err := r.a.engine.Refresh(ctx); err != nil {
			return err
		}
		printf(r.out, "%d conversations\n", r.a.store.Len())
		return nil
	case "/status":
		r.printStatus()
		return nil
	default:
		return &UsageError{Arg: "command", Reason: fmt.Sprintf("unknown command %s (try /help)", cmd)}
	}
}

// send delivers a message to the current conversation, or a new one, and
// prints the reply as it is revealed.
func (r *repl) send(ctx context.Context, content string) error {
	active, _ := r.a.store.Active()
	opCtx, done := r.begin(ctx)
	convID, msgID, err := sendAndWait(opCtx, r.a.engine, active, content)
	done()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("send cancelled")
		}
		return err
	}

	msg, ok := findMessage(r.a.store, convID, msgID)
	if !ok {
		return errReplyDropped
	}
	if !msg.IsPlaying() {
		r.md.Print(msg.Content)
		return nil
	}

	opCtx, done = r.begin(ctx)
	defer done()
	streamReply(opCtx, r.a.store, convID, msgID, r.out, func() {
		r.a.engine.SkipPlayback(convID)
	})
	return nil
}

// delete removes the named conversation, or the current one.
func (r *repl) delete(ctx context.Context, args []string) error {
	var id model.ID
	switch len(args) {
	case 0:
		active, ok := r.a.store.Active()
		if !ok {
			return &UsageError{Arg: "arguments", Reason: "no current conversation; usage: /delete ID"}
		}
		id = active
	case 1:
		parsed, err := parseOptionalID(args[0])
		if err != nil {
			return err
		}
		id = parsed
	default:
		return &UsageError{Arg: "arguments", Reason: "usage: /delete [ID]"}
	}
	if err := r.a.engine.DeleteConversation(ctx, id); err != nil {
		return err
	}
	printf(r.out, "%s\n", styles.RenderSuccess("Deleted conversation "+id.String()))
	return nil
}

// printHistory prints the current conversation.
func (r *repl) printHistory() {
	id, ok := r.a.store.Active()
	if !ok {
		printf(r.out, "No conversation selected.\n")
		return
	}
	conv, ok := r.a.store.Get(id)
	if !ok {
		return
	}
	printf(r.out, "%s\n\n", r.theme.HeaderBrand.Render(conv.Title))
	for _, m := range conv.Messages {
		printf(r.out, "%s\n", r.theme.RoleLabel.Render(m.Role.DisplayName()+":"))
		r.md.Print(m.DisplayContent())
	}
}

// printStatus shows who is logged in and how long until the idle timeout.
func (r *repl) printStatus() {
	st := r.a.session.GetStatus()
	if !st.Authenticated {
		printf(r.out, "Not logged in.\n")
		return
	}
	printf(r.out, "User:      %s\n", st.Email)
	printf(r.out, "Session:   %s\n", st.SessionID)
	printf(r.out, "Duration:  %s\n", st.Duration.Round(time.Second))
	if st.RemainingTime < 0 {
		printf(r.out, "Timeout:   disabled\n")
	} else {
		printf(r.out, "Timeout:   in %s\n", st.RemainingTime.Round(time.Second))
	}
	printf(r.out, "Playing:   %d\n", r.a.sched.Active())
}

func (r *repl) printHelp() {
	rows := [][2]string{
		{"/new", "start a new conversation with the next message"},
		{"/list", "list conversations"},
		{"/open ID", "continue a conversation"},
		{"/history", "reprint the current conversation"},
		{"/delete [ID]", "delete a conversation"},
		{"/refresh", "reload from the service"},
		{"/status", "show the session"},
		{"/quit", "exit"},
		{"Ctrl+C", "cancel a send or reveal the rest of a reply"},
	}
	for _, row := range rows {
		printf(r.out, "  %-14s %s\n", row[0], row[1])
	}
}
