// Package authapi implements the login and token refresh calls against the
// platform API and classifies their failures for the session package.
package authapi
