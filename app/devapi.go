package app

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"woorkroom-web/devapi"
)

// RunDevAPI serves the development user API until ctx is done.
func RunDevAPI(ctx context.Context, opts *Options, logger *zap.Logger) error {
	server, err := devapi.New(devapi.Config{
		IssueTokens: opts.DevAPI.IssueTokens,
		SigningKeys: opts.DevAPI.SigningKeys,
	}, logger.Named("devapi"))
	if err != nil {
		return err
	}

	router := server.Router(
		middleware.RequestID,
		requestLogger(logger.Named("devapi")),
		middleware.Recoverer,
	)
	return serve(ctx, logger, opts.DevAPI.Addr, router, opts.Server.ShutdownTimeout)
}
