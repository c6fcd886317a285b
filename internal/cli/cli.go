// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// Option customises the command tree. Used by tests to swap the backend,
// the configuration and the password prompt.
type Option func(*runtime)

// WithBackend makes every command talk to b instead of the HTTP client.
func WithBackend(b Backend) Option {
	return func(r *runtime) { r.backend = b }
}

// WithConfig uses cfg instead of loading one from disk.
func WithConfig(cfg *config.Config) Option {
	return func(r *runtime) { r.cfg = cfg }
}

// WithPasswordPrompt replaces the terminal password prompt.
func WithPasswordPrompt(fn func(prompt string) (string, error)) Option {
	return func(r *runtime) { r.readPassword = fn }
}

// runtime carries the global flags and the injectable collaborators.
type runtime struct {
	cfg          *config.Config
	backend      Backend
	readPassword func(prompt string) (string, error)

	configPath string
	baseURL    string
	email      string
	logLevel   string
	noPlayback bool
	verbose    bool
}

// NewRootCommand builds the rigchat command tree. Without a subcommand it
// starts the full-screen chat.
func NewRootCommand(opts ...Option) *cobra.Command {
	rt := &runtime{readPassword: promptPassword}
	for _, opt := range opts {
		opt(rt)
	}

	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Terminal client for the rigchat service",
		Long: `rigchat keeps a local view of your conversations, sends messages
optimistically and plays replies back as they arrive.

Run without a subcommand to open the full-screen chat.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runTUI(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&rt.configPath, "config", "c", "", "config file path (default is $HOME/.rigchat/config.toml)")
	pf.StringVar(&rt.baseURL, "base-url", "", "chat service URL (overrides server.base_url)")
	pf.StringVarP(&rt.email, "email", "e", "", "account e-mail (overrides auth.email)")
	pf.StringVar(&rt.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	pf.BoolVar(&rt.noPlayback, "no-playback", false, "show replies at once instead of revealing them")
	pf.BoolVarP(&rt.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		rt.newTUICommand(),
		rt.newREPLCommand(),
		rt.newAskCommand(),
		rt.newListCommand(),
		rt.newShowCommand(),
		rt.newExportCommand(),
		rt.newDeleteCommand(),
		rt.newRegisterCommand(),
		rt.newConfigCommand(),
	)
	return root
}

// Execute runs the command line and exits with a status derived from the
// error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

// loadConfig resolves the configuration: an injected one, or the file
// named by --config, or the default location. Flags override both.
func (rt *runtime) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case rt.cfg != nil:
		cfg = rt.cfg.Clone()
	case rt.configPath != "":
		c, err := config.LoadFromPath(rt.configPath)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		cfg = c
	default:
		c, err := config.Load()
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		cfg = c
	}

	if rt.baseURL != "" {
		cfg.Server.BaseURL = rt.baseURL
	}
	if rt.email != "" {
		cfg.Auth.Email = rt.email
	}
	if rt.logLevel != "" {
		cfg.Log.Level = rt.logLevel
	}
	if rt.verbose {
		cfg.Log.Level = "debug"
	}
	if rt.noPlayback {
		cfg.Chat.PlaybackEnabled = false
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// watchPath is the file hot reload follows, or "" when configuration was
// injected.
func (rt *runtime) watchPath() (string, error) {
	if rt.cfg != nil {
		return "", nil
	}
	if rt.configPath != "" {
		return rt.configPath, nil
	}
	return config.ConfigPathTOML()
}

// printf writes to w, ignoring errors the way fmt.Printf does.
func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
