package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"woorkroom-web/authapi"
	"woorkroom-web/credential"
	"woorkroom-web/delivery"
	"woorkroom-web/form"
)

// App holds the application's dependencies: the remote API client, the credential
// medium and the router serving the pages.
type App struct {
	Options       *Options
	Logger        *zap.Logger
	Authenticator authapi.Authenticator
	Credentials   credential.Medium
	Submitter     *form.Submitter
	Router        http.Handler

	limiter *ipLimiter
	closers []func() error
}

// New wires an App from opts, connecting to the configured backends.
func New(ctx context.Context, opts *Options, logger *zap.Logger) (*App, error) {
	authenticator, err := authapi.New(authapi.Options{
		Kind:    opts.API.Kind,
		BaseURL: opts.API.BaseURL,
		Timeout: opts.API.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	medium, closer, err := newMedium(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	app, err := NewWith(opts, logger, authenticator, medium)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	logger.Info("application configured",
		zap.String("api.kind", opts.API.Kind),
		zap.String("api.base-url", opts.API.BaseURL),
		zap.String("credential.medium", opts.Credential.Medium),
		zap.String("guard.entry-point", opts.Guard.EntryPoint),
	)
	return app, nil
}

// NewWith wires an App around already-built collaborators.
func NewWith(opts *Options, logger *zap.Logger, authenticator authapi.Authenticator, medium credential.Medium) (*App, error) {
	if err := delivery.ParseAllTemplates(); err != nil {
		return nil, err
	}

	app := &App{
		Options:       opts,
		Logger:        logger,
		Authenticator: authenticator,
		Credentials:   medium,
		Submitter:     form.NewSubmitter(logger),
		limiter:       newIPLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst),
	}
	app.Router = delivery.NewRouter(app)
	return app, nil
}

func newMedium(ctx context.Context, opts *Options, logger *zap.Logger) (credential.Medium, func() error, error) {
	cookies := credential.CookieOptions{
		Secure:      opts.Credential.Secure,
		RememberFor: opts.Credential.RememberFor,
	}

	switch opts.Credential.Medium {
	case MediumCookie:
		return credential.NewCookieMedium(cookies), nil, nil
	case MediumMemory:
		return credential.NewKVMedium(credential.NewMemoryKV(), cookies, logger), nil, nil
	case MediumRedis:
		client, err := credential.DialRedis(ctx, opts.Redis.URL, logger)
		if err != nil {
			return nil, nil, err
		}
		return credential.NewKVMedium(credential.NewRedisKV(client), cookies, logger), client.Close, nil
	}
	return nil, nil, fmt.Errorf("credential.medium: %w %q", ErrUnknownMedium, opts.Credential.Medium)
}

// Start serves the router on the configured address until ctx is done, then shuts down
// gracefully.
func (a *App) Start(ctx context.Context) error {
	return serve(ctx, a.Logger, a.Options.Server.Addr, a.Router, a.Options.Server.ShutdownTimeout)
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func serve(ctx context.Context, logger *zap.Logger, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}

// GetAuthenticator provides the remote user API client.
func (a *App) GetAuthenticator() authapi.Authenticator {
	return a.Authenticator
}

// GetCredentialMedium provides the credential storage of browsers.
func (a *App) GetCredentialMedium() credential.Medium {
	return a.Credentials
}

func (a *App) GetSubmitter() *form.Submitter {
	return a.Submitter
}

func (a *App) GetLogger() *zap.Logger {
	return a.Logger
}

// EntryPoint is the unauthenticated landing route.
func (a *App) EntryPoint() string {
	return a.Options.Guard.EntryPoint
}
