package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Endpoints of the remote user API.
const (
	RegisterPath = "/api/users/"
	LoginPath    = "/api/auth/"
)

// maxLoggedBody bounds how much of an error body ends up in the logs.
const maxLoggedBody = 512

// RESTClient is the Authenticator for the JSON user API.
type RESTClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewRESTClient returns a client for the API at baseURL. A zero timeout leaves the
// transport default in place.
func NewRESTClient(baseURL string, timeout time.Duration, logger *zap.Logger) *RESTClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(logger.Sugar())
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &RESTClient{http: client, logger: logger}
}

// Register creates an account. The token in the response is optional: account creation
// without a token still succeeds.
func (c *RESTClient) Register(ctx context.Context, req RegisterRequest) (Success, error) {
	return c.post(ctx, RegisterPath, req, RegisterFallback)
}

// Login exchanges credentials for a token.
func (c *RESTClient) Login(ctx context.Context, req LoginRequest) (Success, error) {
	return c.post(ctx, LoginPath, req, LoginFallback)
}

type tokenBody struct {
	Token any `json:"token"`
}

type errorBody struct {
	Error any `json:"error"`
}

func (c *RESTClient) post(ctx context.Context, path string, body any, fallback string) (Success, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		c.logger.Error("auth api request failed", zap.String("path", path), zap.Error(err))
		return Success{}, &Failure{Message: fallback, Cause: err}
	}

	if !resp.IsSuccess() {
		raw := resp.Body()
		cause := fmt.Errorf("%s %s: status %d: %s", resp.Request.Method, path, resp.StatusCode(), truncate(raw))
		c.logger.Warn("auth api rejected request", zap.String("path", path),
			zap.Int("status", resp.StatusCode()), zap.Error(cause))
		return Success{}, &Failure{
			Message: messageOr(raw, fallback),
			Status:  resp.StatusCode(),
			Cause:   cause,
		}
	}

	return Success{Token: tokenOf(resp.Body())}, nil
}

// tokenOf extracts a non-empty string token. Anything else counts as absent.
func tokenOf(raw []byte) string {
	var b tokenBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return ""
	}
	token, _ := b.Token.(string)
	return token
}

// messageOr returns the server-provided error string, or fallback.
func messageOr(raw []byte, fallback string) string {
	var b errorBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return fallback
	}
	if msg, ok := b.Error.(string); ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	return fallback
}

func truncate(raw []byte) string {
	if len(raw) > maxLoggedBody {
		return string(raw[:maxLoggedBody]) + "..."
	}
	return string(raw)
}
