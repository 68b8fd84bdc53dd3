package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when no credential pair has been established.
	ErrNoSession = errors.New("no active session")

	// ErrSessionEnded is returned once the session has been terminated, either
	// by logout or by an irrecoverable renewal failure.
	ErrSessionEnded = errors.New("session ended")

	// ErrCredentialRejected marks a renewal that the server refused because the
	// refresh token is invalid or revoked. It terminates the session.
	ErrCredentialRejected = errors.New("credential rejected")

	// ErrMalformedGrant marks a login or renewal response that cannot be turned
	// into a credential pair. Renewal treats it like ErrCredentialRejected.
	ErrMalformedGrant = errors.New("malformed grant")

	// ErrUnauthorized is matched (via errors.Is) against failures returned by
	// guarded operations to detect a rejected access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRetryExhausted is returned when a guarded operation is rejected again
	// after its single renewal and retry.
	ErrRetryExhausted = errors.New("retry exhausted")

	// ErrTransient matches every *TransientError.
	ErrTransient = errors.New("transient renewal failure")
)

// TransientError wraps a renewal failure that leaves the session intact,
// typically a network error or timeout. Callers may retry later.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return ErrTransient.Error()
	}
	return fmt.Sprintf("%s: %v", ErrTransient, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Is reports ErrTransient as a match so callers need not use errors.As.
func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// isFatal reports whether a renewal failure must terminate the session.
func isFatal(err error) bool {
	if errors.Is(err, ErrTransient) {
		return false
	}
	return errors.Is(err, ErrCredentialRejected) || errors.Is(err, ErrMalformedGrant)
}

// EndReason describes why a session was terminated.
type EndReason int

const (
	// EndLogout is an explicit logout by the hosting application.
	EndLogout EndReason = iota
	// EndRejected is an irrecoverable renewal failure.
	EndRejected
)

func (r EndReason) String() string {
	switch r {
	case EndLogout:
		return "logout"
	case EndRejected:
		return "rejected"
	default:
		return fmt.Sprintf("EndReason(%d)", int(r))
	}
}

// EndEvent is delivered to OnSessionEnded subscribers.
type EndEvent struct {
	Reason EndReason
	// Err is the renewal failure for EndRejected, nil for EndLogout.
	Err error
}
