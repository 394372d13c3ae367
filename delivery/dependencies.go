package delivery

import (
	"net/http"

	"go.uber.org/zap"

	"woorkroom-web/authapi"
	"woorkroom-web/credential"
	"woorkroom-web/form"
)

// AppDependencies defines the contract that the delivery layer (HTTP handlers)
// expects from the core application layer.
type AppDependencies interface {
	// GetAuthenticator provides the remote user API client.
	GetAuthenticator() authapi.Authenticator
	// GetCredentialMedium provides the per-browser token storage.
	GetCredentialMedium() credential.Medium
	GetSubmitter() *form.Submitter
	GetLogger() *zap.Logger

	// EntryPoint is where unauthenticated visitors land.
	EntryPoint() string

	// GuardMiddleware protects routes that need a stored token.
	GuardMiddleware(next http.Handler) http.Handler
	RateLimitMiddleware(next http.Handler) http.Handler
	RequestLoggerMiddleware(next http.Handler) http.Handler
}
