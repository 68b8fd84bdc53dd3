package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRejected401 = fmt.Errorf("API request failed: 401 Unauthorized: %w", ErrUnauthorized)

func TestExecute_RetriesOnceAfterRejection(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer(grantOK("A2", time.Hour))
	m, _, _ := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(time.Hour)))

	var seen []string
	got, err := Execute(ctx, m, func(_ context.Context, token string) (int, error) {
		seen = append(seen, token)
		if token == "A1" {
			return 0, errRejected401
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []string{"A1", "A2"}, seen)
	assert.Equal(t, 1, r.Calls())
}

func TestExecute_BoundedRetry(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer(grantOK("A2", time.Hour))
	m, _, rec := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(time.Hour)))

	attempts := 0
	err := m.ExecuteWithRefresh(ctx, func(context.Context, string) error {
		attempts++
		return errRejected401
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, r.Calls(), "no renewal after the second rejection")
	assert.Equal(t, Active, m.State(), "retry exhaustion is not a session event")
	assert.Empty(t, rec.Events())
}

func TestExecute_OtherErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer()
	m, _, _ := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(time.Hour)))

	boom := errors.New("500 Internal Server Error")
	attempts := 0
	err := m.ExecuteWithRefresh(ctx, func(context.Context, string) error {
		attempts++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, r.Calls())
}

func TestExecute_RejectionWithFatalRenewal(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer(grantErr(fmt.Errorf("refresh: %w", ErrCredentialRejected)))
	m, _, rec := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(time.Hour)))

	attempts := 0
	err := m.ExecuteWithRefresh(ctx, func(context.Context, string) error {
		attempts++
		return errRejected401
	})

	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, 1, attempts)
	assert.Len(t, rec.Events(), 1)
}

func TestExecute_NoSession(t *testing.T) {
	m, _, _ := newTestManager(t, newFakeRenewer(), NewMemoryStore())

	err := m.ExecuteWithRefresh(context.Background(), func(context.Context, string) error {
		t.Error("operation must not run without a session")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestExecute_TransientInsideBufferUsesCurrentToken(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer(grantErr(errors.New("timeout")))
	m, _, _ := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(30*time.Second)))

	var used string
	err := m.ExecuteWithRefresh(ctx, func(_ context.Context, token string) error {
		used = token
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", used)
	assert.Equal(t, 1, r.Calls())
}

func TestExecute_TransientAfterExpiryFails(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer(grantErr(errors.New("timeout")))
	m, clock, _ := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(30*time.Second)))
	m.Close()
	clock.Advance(time.Minute)

	err := m.ExecuteWithRefresh(ctx, func(context.Context, string) error {
		t.Error("operation must not run with an expired token")
		return nil
	})
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, Active, m.State())
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	r := newFakeRenewer(grantOK("A2", time.Hour))
	m, _, _ := newTestManager(t, r, NewMemoryStore())
	require.NoError(t, m.Login(ctx, loginGrant(30*time.Second)))

	tok, err := m.TokenSource(ctx).Token()
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.Expiry.Equal(m.Pair().ExpiresAt))

	require.NoError(t, m.Logout(ctx))
	_, err = m.TokenSource(ctx).Token()
	assert.ErrorIs(t, err, ErrSessionEnded)
}
