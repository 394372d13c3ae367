// Package credential keeps the authentication token issued by the remote user API in
// storage scoped to the browser that made the request.
//
// Presence of a stored token is the only signal of "authenticated". The token is opaque:
// it is never parsed, verified or refreshed here.
package credential

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Key is the fixed storage key of the token.
const Key = "x-auth-token"

// ErrUnavailable wraps failures of the underlying storage medium.
var ErrUnavailable = errors.New("credential storage unavailable")

// Store is the credential storage of a single browser partition.
type Store interface {
	// Write persists token under Key, overwriting any previous value.
	Write(ctx context.Context, token string, opts ...WriteOption) error
	// Read returns the stored token. An empty or missing token is reported as absent.
	Read(ctx context.Context) (string, bool)
	// Clear removes the stored token.
	Clear(ctx context.Context) error
}

// Medium opens the Store of the browser that issued r.
type Medium interface {
	Open(w http.ResponseWriter, r *http.Request) Store
}

// Present reports whether store holds a non-empty token.
func Present(ctx context.Context, store Store) bool {
	token, ok := store.Read(ctx)
	return ok && token != ""
}

type writeOptions struct {
	remember bool
}

// WriteOption tunes a single Write.
type WriteOption func(*writeOptions)

// Remember makes the token outlive the browser session when on is true.
func Remember(on bool) WriteOption {
	return func(o *writeOptions) {
		o.remember = on
	}
}

func newWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CookieOptions describes the cookies a Medium sets on the browser.
type CookieOptions struct {
	// Secure restricts the cookie to HTTPS.
	Secure bool
	// RememberFor is the lifetime of remembered cookies. Other cookies last for the
	// browser session.
	RememberFor time.Duration
}

func (o CookieOptions) cookie(name, value string, remember bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember && o.RememberFor > 0 {
		c.MaxAge = int(o.RememberFor / time.Second)
		c.Expires = time.Now().Add(o.RememberFor)
	}
	return c
}

func (o CookieOptions) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}
