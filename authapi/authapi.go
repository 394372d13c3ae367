// Package authapi talks to the remote user-management API on behalf of the auth forms.
//
// Every call is a single attempt. The outcome is either a Success, whose token may be
// absent, or a *Failure carrying a message safe to show to the user.
package authapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Generic messages used when the remote API gives no structured error.
const (
	RegisterFallback = "Registration failed. Please check your input."
	LoginFallback    = "Login failed. Please check your username and password."
)

// RegisterRequest carries the chosen identity and password of a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest carries the credentials of an existing account.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Success is a completed call. Token is empty when the API did not return one.
type Success struct {
	Token string
}

// HasToken reports whether the API issued a token.
func (s Success) HasToken() bool { return s.Token != "" }

// Failure is a failed call. Message is shown to the user; Cause is for logs only.
type Failure struct {
	Message string
	// Status is the HTTP status of the response, zero on transport errors.
	Status int
	Cause  error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Cause }

// AsFailure extracts the *Failure from err, or wraps err with fallback as the message.
func AsFailure(err error, fallback string) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Message: fallback, Cause: err}
}

// Authenticator registers and logs in users against the remote API.
type Authenticator interface {
	Register(ctx context.Context, req RegisterRequest) (Success, error)
	Login(ctx context.Context, req LoginRequest) (Success, error)
}

// Backend kinds accepted by New.
const (
	KindREST   = "rest"
	KindKratos = "kratos"
)

// Options configures the Authenticator built by New.
type Options struct {
	Kind    string
	BaseURL string
	Timeout time.Duration
}

// New builds the Authenticator selected by opts.Kind.
func New(opts Options, logger *zap.Logger) (Authenticator, error) {
	switch opts.Kind {
	case KindREST, "":
		return NewRESTClient(opts.BaseURL, opts.Timeout, logger), nil
	case KindKratos:
		return NewKratosClient(opts.BaseURL, opts.Timeout, logger), nil
	}
	return nil, fmt.Errorf("authapi: unknown backend %q", opts.Kind)
}
