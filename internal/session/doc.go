// Package session manages the lifecycle of an authenticated session: the
// access/refresh credential pair, its persistence, proactive renewal before
// expiry, single-flight renewal under concurrency, and a guarded executor
// that retries an operation once after its token is rejected.
//
// A Manager is created once per session and handed to every component that
// makes authenticated calls:
//
//	mgr := session.NewManager(authClient, session.NewFileStore(path))
//	if !mgr.Resume(ctx) {
//		_ = mgr.Login(ctx, grant)
//	}
//	err := mgr.ExecuteWithRefresh(ctx, func(ctx context.Context, token string) error {
//		return call(ctx, token)
//	})
package session
