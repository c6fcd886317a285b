// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/metrics"
	"github.com/jeranaias/rigchat/internal/playback"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/store"
)

// Backend is the chat service as the commands use it. gateway.Client
// satisfies it, and so does gatewaytest.Fake.
type Backend interface {
	chatsync.Gateway
	session.Authenticator
}

var errNoCredentials = errors.New("no credentials: set auth.email and RIGCHAT_PASSWORD, or run in a terminal")

// logMode selects where an app writes its log.
type logMode int

const (
	// logStderr logs to stderr, for one-shot commands.
	logStderr logMode = iota
	// logFileOnly keeps the terminal clean for interactive commands.
	logFileOnly
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app is everything one command invocation runs on.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	closeLog logging.Closer
	metrics  *metrics.Metrics

	backend Backend
	store   *store.Store
	sched   *playback.Scheduler
	engine  *chatsync.Engine
	session *session.Manager

	watcher     *config.Watcher
	stopMetrics context.CancelFunc
	metricsDone chan struct{}
}

// newApp wires configuration, logging, metrics, the gateway, the store,
// the playback scheduler, the session and the engine.
func (rt *runtime) newApp(ctx context.Context, mode logMode, errOut io.Writer) (*app, error) {
	cfg, err := rt.loadConfig()
	if err != nil {
		return nil, err
	}

	var (
		logger   zerolog.Logger
		closeLog logging.Closer
	)
	if mode == logFileOnly {
		logger, closeLog, err = logging.ForTUI(cfg.Log)
	} else {
		logger, closeLog, err = logging.New(cfg.Log, errOut)
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	a := &app{cfg: cfg, logger: logger, closeLog: closeLog}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopMetrics = cancel
		a.metricsDone = make(chan struct{})
		go func() {
			defer close(a.metricsDone)
			if err := a.metrics.Serve(mctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Warn().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint stopped")
			}
		}()
	}

	a.backend = rt.backend
	if a.backend == nil {
		a.backend = gateway.NewClient(cfg.Server.BaseURL).
			WithTimeout(cfg.Timeout()).
			WithRateLimit(cfg.Server.RequestsPerSecond, cfg.Server.Burst).
			WithUserAgent("rigchat/" + Version).
			WithLogger(logger.With().Str("component", "gateway").Logger()).
			WithMetrics(a.metrics)
	}

	a.store = store.New()
	a.sched = playback.NewScheduler(a.store,
		playback.WithInterval(cfg.PlaybackInterval()),
		playback.WithLogger(logger.With().Str("component", "playback").Logger()),
		playback.WithMetrics(a.metrics),
	)
	a.session = session.NewManager(a.backend, session.Config{
		IdleTimeout:   cfg.IdleTimeout(),
		WarningBefore: session.DefaultConfig().WarningBefore,
	}).WithLogger(logger.With().Str("component", "session").Logger())
	a.session.SetWarningCallback(func(remaining time.Duration) {
		logger.Info().Dur("remaining", remaining).Msg("session idle timeout approaching")
	})

	a.engine = chatsync.New(a.store, a.backend, a.sched,
		chatsync.WithIdentity(a.session),
		chatsync.WithLogger(logger.With().Str("component", "engine").Logger()),
		chatsync.WithMetrics(a.metrics),
		chatsync.WithTitleLength(cfg.Chat.TitleLength),
		chatsync.WithPlayback(cfg.Chat.PlaybackEnabled),
		chatsync.WithEventBuffer(cfg.Chat.EventBuffer),
		chatsync.WithFailureHandler(func(ev chatsync.Event) {
			logger.Warn().Err(ev.Err).
				Str("event", ev.Kind.String()).
				Str("conversation_id", ev.ConversationID.String()).
				Msg("background operation failed")
		}),
	)
	return a, nil
}

// watchConfig applies edits of the config file while the app runs. Only
// the playback interval and the idle timeout take effect without restart.
func (a *app) watchConfig(ctx context.Context, path string) {
	if path == "" {
		return
	}
	w, err := config.Watch(ctx, path, func(cfg *config.Config) {
		a.sched.SetInterval(cfg.PlaybackInterval())
		a.session.SetTimeout(cfg.IdleTimeout())
		a.logger.Info().
			Dur("playback_interval", cfg.PlaybackInterval()).
			Dur("idle_timeout", cfg.IdleTimeout()).
			Msg("configuration reloaded")
	}, func(err error) {
		a.logger.Warn().Err(err).Msg("configuration reload failed")
	})
	if err != nil {
		a.logger.Debug().Err(err).Str("path", path).Msg("config watch unavailable")
		return
	}
	a.watcher = w
}

// Close stops background work and flushes the log.
func (a *app) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	a.engine.Close()
	if a.stopMetrics != nil {
		a.stopMetrics()
		<-a.metricsDone
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// authenticate restores an existing session or logs in with the configured
// e-mail. The password comes from RIGCHAT_PASSWORD or, on a terminal, a
// prompt.
func (a *app) authenticate(ctx context.Context, rt *runtime, in io.Reader, out io.Writer) error {
	ok, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	email := a.cfg.Auth.Email
	if email == "" {
		email, err = askEmail(in, out)
		if err != nil {
			return err
		}
	}
	password := a.cfg.Auth.Password
	if password == "" {
		password, err = rt.readPassword(fmt.Sprintf("Password for %s: ", email))
		if err != nil {
			return err
		}
	}

	if _, err := a.session.Login(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// askEmail prompts for an e-mail address on an interactive terminal.
func askEmail(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errNoCredentials
	}
	printf(out, "E-mail: ")
	var email string
	if _, err := fmt.Fscanln(in, &email); err != nil {
		return "", fmt.Errorf("read e-mail: %w", err)
	}
	return strings.TrimSpace(email), nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoCredentials
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
