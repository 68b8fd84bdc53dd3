package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a session.
type State int

const (
	NoSession State = iota
	Active
	Refreshing
	Terminated
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no-session"
	case Active:
		return "active"
	case Refreshing:
		return "refreshing"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Renewer exchanges a refresh token for a new grant. Errors wrapping
// ErrCredentialRejected or ErrMalformedGrant end the session; anything else
// is treated as transient.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (Grant, error)
}

// RenewerFunc adapts a function to Renewer.
type RenewerFunc func(ctx context.Context, refreshToken string) (Grant, error)

func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (Grant, error) {
	return f(ctx, refreshToken)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for expiry checks and the renewal timer.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithExpiryBuffer sets how long before expiry a token counts as near expiry.
func WithExpiryBuffer(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.buffer = d
		}
	}
}

// WithRenewAt sets the fraction of the lifetime after which proactive
// renewal fires. Values outside (0, 1) are ignored.
func WithRenewAt(f float64) Option {
	return func(m *Manager) {
		if f > 0 && f < 1 {
			m.renewAt = f
		}
	}
}

// Manager owns the credential pair of one session. It is the only writer of
// the pair, the session state and the store, and it coalesces concurrent
// renewals into a single call to the Renewer.
type Manager struct {
	renewer   Renewer
	store     Store
	clock     clockwork.Clock
	logger    *slog.Logger
	buffer    time.Duration
	renewAt   float64
	scheduler *Scheduler
	flights   singleflight.Group

	mu    sync.Mutex
	pair  CredentialPair
	state State
	// epoch changes on every login and logout so a renewal that outlives
	// its session cannot install its result.
	epoch uint64

	subsMu  sync.Mutex
	subs    map[uint64]func(EndEvent)
	nextSub uint64
}

// NewManager creates a manager with no session. Call Login or Resume to
// establish one.
func NewManager(renewer Renewer, store Store, opts ...Option) *Manager {
	m := &Manager{
		renewer: renewer,
		store:   store,
		clock:   clockwork.NewRealClock(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		buffer:  DefaultExpiryBuffer,
		renewAt: DefaultRenewAt,
		subs:    make(map[uint64]func(EndEvent)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.scheduler = NewScheduler(m.clock)
	return m
}

// Login installs the pair from a login grant and arms proactive renewal.
func (m *Manager) Login(ctx context.Context, grant Grant) error {
	now := m.clock.Now()
	pair, err := grant.Pair(now)
	if err == nil {
		err = pair.validate()
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.install(ctx, pair, now)
	m.logger.Info("session established", "expires_at", pair.ExpiresAt)
	return nil
}

// Resume restores the pair from the store, for example after a restart.
// It returns false when the store holds no usable pair; store failures are
// logged and reported the same way.
func (m *Manager) Resume(ctx context.Context) bool {
	m.mu.Lock()
	if m.state == Active || m.state == Refreshing {
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	pair, ok, err := m.store.Read(ctx)
	if err != nil {
		m.logger.Warn("session store unreadable, starting without session", "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := pair.validate(); err != nil {
		m.logger.Warn("stored session is incomplete, ignoring it", "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Active || m.state == Refreshing {
		return true
	}
	m.epoch++
	m.pair = pair
	m.state = Active
	m.armLocked(m.clock.Now(), pair)
	m.logger.Debug("session resumed", "expires_at", pair.ExpiresAt)
	return true
}

// Logout terminates the session synchronously: the pair and the store are
// cleared and the renewal timer is cancelled. Subscribers are notified if a
// session was live. The returned error only reports a store failure; the
// session is terminated regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	live := m.state == Active || m.state == Refreshing
	m.epoch++
	m.pair = CredentialPair{}
	m.state = Terminated
	m.scheduler.Cancel()
	err := m.store.Clear(ctx)
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("failed to clear session store", "error", err)
	}
	if live {
		m.logger.Info("session ended", "reason", EndLogout)
		m.notify(EndEvent{Reason: EndLogout})
	}
	return err
}

// Close stops proactive renewal without ending the session.
func (m *Manager) Close() {
	m.scheduler.Cancel()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pair returns a copy of the current credential pair.
func (m *Manager) Pair() CredentialPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair
}

// AccessToken returns the current access token, or false without a session.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair.AccessToken == "" {
		return "", false
	}
	return m.pair.AccessToken, true
}

// IsExpiredOrNear reports whether the current pair needs renewal. It is true
// when there is no session.
func (m *Manager) IsExpiredOrNear() bool {
	m.mu.Lock()
	pair := m.pair
	m.mu.Unlock()
	return IsExpiredOrNear(pair, m.clock.Now(), m.buffer)
}

// RenewalScheduled reports whether a proactive renewal timer is live.
func (m *Manager) RenewalScheduled() bool {
	return m.scheduler.Live()
}

// OnSessionEnded registers fn to run once per termination. The returned
// function removes the subscription.
func (m *Manager) OnSessionEnded(fn func(EndEvent)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}

// Refresh renews the access token. Concurrent calls share one renewal and
// all observe its outcome. If ctx ends first the caller stops waiting, but
// the renewal itself runs to completion.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.renew(ctx, "")
}

// renew is Refresh with a double check: when stale is set and the current
// access token already differs from it, another caller has renewed and the
// current token is returned without a network call.
func (m *Manager) renew(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	switch m.state {
	case NoSession:
		m.mu.Unlock()
		return "", ErrNoSession
	case Terminated:
		m.mu.Unlock()
		return "", ErrSessionEnded
	}
	if stale != "" && m.state == Active && m.pair.AccessToken != stale {
		token := m.pair.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	epoch := m.epoch
	m.mu.Unlock()

	flightCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		return m.runRenewal(flightCtx, epoch, stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRenewal performs one renewal for the session identified by epoch and
// always leaves the Refreshing state before returning. A renewal that
// completed after the caller saw stale satisfies it without a network call.
func (m *Manager) runRenewal(ctx context.Context, epoch uint64, stale string) (string, error) {
	m.mu.Lock()
	if m.epoch != epoch || m.state != Active {
		state := m.state
		m.mu.Unlock()
		if state == NoSession {
			return "", ErrNoSession
		}
		return "", ErrSessionEnded
	}
	if stale != "" && m.pair.AccessToken != stale {
		token := m.pair.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	previous := m.pair
	m.state = Refreshing
	m.mu.Unlock()

	m.logger.Debug("renewing access token")
	started := m.clock.Now()
	grant, err := m.callRenewer(ctx, previous.RefreshToken)

	now := m.clock.Now()
	var pair CredentialPair
	if err == nil {
		pair, err = grant.Pair(now)
		if err == nil && pair.RefreshToken == "" {
			pair.RefreshToken = previous.RefreshToken
		}
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debug("discarding renewal result for a replaced session")
		return "", ErrSessionEnded
	}

	switch {
	case err == nil:
		m.install(ctx, pair, now)
		m.mu.Unlock()
		m.logger.Info("access token renewed",
			"expires_at", pair.ExpiresAt,
			"took", now.Sub(started))
		return pair.AccessToken, nil

	case isFatal(err):
		m.pair = CredentialPair{}
		m.state = Terminated
		m.scheduler.Cancel()
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to clear session store", "error", clearErr)
		}
		m.mu.Unlock()
		m.logger.Warn("session ended", "reason", EndRejected, "error", err)
		m.notify(EndEvent{Reason: EndRejected, Err: err})
		return "", fmt.Errorf("%w: %w", ErrSessionEnded, err)

	default:
		m.state = Active
		m.mu.Unlock()
		m.logger.Warn("renewal failed, keeping current credentials", "error", err)
		var te *TransientError
		if !errors.As(err, &te) {
			err = &TransientError{Err: err}
		}
		return "", err
	}
}

// callRenewer converts a panicking Renewer into a transient failure so the
// Refreshing state is always left.
func (m *Manager) callRenewer(ctx context.Context, refreshToken string) (grant Grant, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TransientError{Err: fmt.Errorf("renewer panicked: %v", r)}
		}
	}()
	return m.renewer.Renew(ctx, refreshToken)
}

// install replaces the pair, persists it and re-arms the timer. m.mu held.
func (m *Manager) install(ctx context.Context, pair CredentialPair, issuedAt time.Time) {
	m.pair = pair
	m.state = Active
	if err := m.store.Save(ctx, pair); err != nil {
		m.logger.Warn("failed to persist session, keeping it in memory", "error", err)
	}
	m.armLocked(issuedAt, pair)
}

// armLocked schedules proactive renewal at renewAt of the remaining lifetime
// measured from issuedAt. m.mu held.
func (m *Manager) armLocked(issuedAt time.Time, pair CredentialPair) {
	lifetime := pair.ExpiresAt.Sub(issuedAt)
	delay := time.Duration(float64(lifetime) * m.renewAt)
	epoch := m.epoch
	m.scheduler.Arm(delay, func() { m.onTimer(epoch) })
	m.logger.Debug("proactive renewal scheduled", "in", delay)
}

func (m *Manager) onTimer(epoch uint64) {
	m.mu.Lock()
	current := m.epoch == epoch
	m.mu.Unlock()
	if !current {
		return
	}
	if _, err := m.Refresh(context.Background()); err != nil {
		m.logger.Warn("proactive renewal failed", "error", err)
	}
}

func (m *Manager) notify(ev EndEvent) {
	m.subsMu.Lock()
	fns := make([]func(EndEvent), 0, len(m.subs))
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, m.subs[id])
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
