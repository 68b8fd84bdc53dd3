package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var testEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type renewResult struct {
	grant Grant
	err   error
	panic any
}

// fakeRenewer records every call. Queued results are returned in order;
// once the queue is empty each call yields a fresh one-hour grant.
type fakeRenewer struct {
	mu      sync.Mutex
	calls   int
	tokens  []string
	results []renewResult
	gate    chan struct{}
	entered chan struct{}
}

func newFakeRenewer(results ...renewResult) *fakeRenewer {
	return &fakeRenewer{results: results, entered: make(chan struct{}, 64)}
}

// hold makes Renew block until release is called.
func (f *fakeRenewer) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeRenewer) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeRenewer) Renew(_ context.Context, refreshToken string) (Grant, error) {
	f.mu.Lock()
	f.calls++
	f.tokens = append(f.tokens, refreshToken)
	res := renewResult{grant: Grant{
		AccessToken: fmt.Sprintf("renewed-%d", f.calls),
		ExpiresIn:   time.Hour,
	}}
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	}
	gate := f.gate
	f.mu.Unlock()

	f.entered <- struct{}{}
	if gate != nil {
		<-gate
	}
	if res.panic != nil {
		panic(res.panic)
	}
	return res.grant, res.err
}

func (f *fakeRenewer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRenewer) RefreshTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func grantOK(access string, lifetime time.Duration) renewResult {
	return renewResult{grant: Grant{AccessToken: access, ExpiresIn: lifetime}}
}

func grantErr(err error) renewResult {
	return renewResult{err: err}
}

func loginGrant(lifetime time.Duration) Grant {
	return Grant{AccessToken: "A1", RefreshToken: "R1", ExpiresIn: lifetime}
}

// endRecorder collects OnSessionEnded events.
type endRecorder struct {
	mu     sync.Mutex
	events []EndEvent
}

func (r *endRecorder) record(ev EndEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *endRecorder) Events() []EndEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EndEvent(nil), r.events...)
}
