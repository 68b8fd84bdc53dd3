package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/port-experimental/dispatch-cli/internal/api"
	"github.com/port-experimental/dispatch-cli/internal/authapi"
	"github.com/port-experimental/dispatch-cli/internal/config"
	"github.com/port-experimental/dispatch-cli/internal/output"
	"github.com/port-experimental/dispatch-cli/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// env is everything a command needs to talk to the API as the logged-in
// user.
type env struct {
	cfg          *config.Config
	profile      *config.ProfileConfig
	profileName  string
	identityPath string
	logger       *slog.Logger

	auth    *authapi.Client
	session *session.Manager
	client  *api.Client

	closeStore  func() error
	unsubscribe func()

	// renewals counts calls that reached the auth service.
	renewals atomic.Int64
}

// newEnv loads configuration, opens the session store and restores any
// stored session.
func newEnv(cmd *cobra.Command) (*env, error) {
	return openEnv(cmd, true)
}

// openEnv is newEnv with the restore step optional. Login skips it so an old
// stored session is never renewed while it is being replaced.
func openEnv(cmd *cobra.Command, resume bool) (*env, error) {
	flags := GetGlobalFlags(cmd.Context())
	configManager := config.NewConfigManager(flags.ConfigFile)

	cfg, profile, err := configManager.LoadWithOverrides(config.Overrides{
		Profile: flags.Profile,
		APIURL:  flags.APIURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	profileName := flags.Profile
	if profileName == "" {
		profileName = os.Getenv("DISPATCH_PROFILE")
	}
	if profileName == "" {
		profileName = cfg.DefaultProfile
	}

	logger := newLogger(flags)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	rt := &env{
		cfg:          cfg,
		profile:      profile,
		profileName:  profileName,
		identityPath: config.DefaultIdentityPath(),
		logger:       logger,
		auth:         authapi.NewClient(profile.APIURL, cfg.HTTPTimeout()),
		closeStore:   closeStore,
	}

	renewer := session.RenewerFunc(func(ctx context.Context, refreshToken string) (session.Grant, error) {
		rt.renewals.Add(1)
		return rt.auth.Renew(ctx, refreshToken)
	})

	rt.session = session.NewManager(renewer, store,
		session.WithLogger(logger.With("component", "session", "profile", profileName)),
		session.WithExpiryBuffer(cfg.ExpiryBuffer()),
		session.WithRenewAt(cfg.Session.RenewAt),
	)
	rt.unsubscribe = rt.session.OnSessionEnded(rt.sessionEnded)
	rt.client = api.NewClient(rt.session, profile.APIURL, cfg.HTTPTimeout())

	if resume {
		rt.session.Resume(cmd.Context())
	}

	return rt, nil
}

// sessionEnded reacts to the session being terminated while a command runs.
func (rt *env) sessionEnded(ev session.EndEvent) {
	if ev.Reason != session.EndRejected {
		return
	}
	output.WarningPrintln("Session ended: the server no longer accepts your credentials. Run `dispatch login` to sign in again.")
	if err := config.ClearIdentity(rt.identityPath); err != nil {
		rt.logger.Warn("failed to clear identity", "error", err)
	}
}

// requireSession fails fast when no session could be restored.
func (rt *env) requireSession() error {
	switch rt.session.State() {
	case session.Active, session.Refreshing:
		return nil
	default:
		return session.ErrNoSession
	}
}

// Close stops background renewal and releases connections.
func (rt *env) Close() {
	rt.unsubscribe()
	rt.session.Close()
	rt.client.Close()
	if err := rt.closeStore(); err != nil {
		rt.logger.Debug("failed to close session store", "error", err)
	}
}

// openStore builds the configured credential store.
func openStore(cfg *config.Config) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Session.Store {
	case config.StoreMemory:
		return session.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		return session.NewRedisStore(rdb, cfg.Session.RedisKey), rdb.Close, nil
	case config.StoreFile, "":
		return session.NewFileStore(cfg.SessionPath()), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store '%s'", cfg.Session.Store)
	}
}

// newLogger builds the structured logger for core packages. Output goes to
// stderr so it never mixes with command results.
func newLogger(flags GlobalFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case flags.Debug:
		level = slog.LevelDebug
	case flags.Verbose:
		level = slog.LevelInfo
	case flags.Quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
