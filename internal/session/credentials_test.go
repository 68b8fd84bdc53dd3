package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrant_Pair(t *testing.T) {
	absolute := testEpoch.Add(90 * time.Minute)

	tests := []struct {
		name    string
		grant   Grant
		want    time.Time
		wantErr bool
	}{
		{
			name:  "lifetime",
			grant: Grant{AccessToken: "a", RefreshToken: "r", ExpiresIn: time.Hour},
			want:  testEpoch.Add(time.Hour),
		},
		{
			name:  "absolute expiry",
			grant: Grant{AccessToken: "a", RefreshToken: "r", ExpiresAt: absolute},
			want:  absolute,
		},
		{
			name:  "absolute wins over lifetime",
			grant: Grant{AccessToken: "a", ExpiresIn: time.Minute, ExpiresAt: absolute},
			want:  absolute,
		},
		{
			name:    "missing access token",
			grant:   Grant{RefreshToken: "r", ExpiresIn: time.Hour},
			wantErr: true,
		},
		{
			name:    "no expiry information",
			grant:   Grant{AccessToken: "a", RefreshToken: "r"},
			wantErr: true,
		},
		{
			name:    "negative lifetime",
			grant:   Grant{AccessToken: "a", ExpiresIn: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := tt.grant.Pair(testEpoch)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedGrant))
				return
			}
			require.NoError(t, err)
			assert.True(t, pair.ExpiresAt.Equal(tt.want), "expiresAt = %v, want %v", pair.ExpiresAt, tt.want)
			assert.Equal(t, tt.grant.AccessToken, pair.AccessToken)
		})
	}
}

func TestIsExpiredOrNear(t *testing.T) {
	pair := CredentialPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: testEpoch.Add(time.Hour)}

	tests := []struct {
		name string
		pair CredentialPair
		now  time.Time
		want bool
	}{
		{"fresh", pair, testEpoch, false},
		{"just outside buffer", pair, testEpoch.Add(58 * time.Minute), false},
		{"at buffer edge", pair, testEpoch.Add(59 * time.Minute), true},
		{"inside buffer", pair, testEpoch.Add(59*time.Minute + 30*time.Second), true},
		{"expired", pair, testEpoch.Add(2 * time.Hour), true},
		{"empty pair", CredentialPair{}, testEpoch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpiredOrNear(tt.pair, tt.now, DefaultExpiryBuffer))
		})
	}
}

func TestTransientError_Is(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&TransientError{Err: cause})

	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, isFatal(err))
	assert.True(t, isFatal(ErrCredentialRejected))
	assert.True(t, isFatal(ErrMalformedGrant))
	assert.False(t, isFatal(cause))
}
