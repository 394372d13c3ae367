package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	ory "github.com/ory/client-go"
	"go.uber.org/zap"
)

// KratosClient is the Authenticator for an Ory Kratos public API, using the native
// (API client) self-service flows. The issued session token is the credential token.
type KratosClient struct {
	ory    *ory.APIClient
	logger *zap.Logger
}

// NewKratosClient returns a client for the Kratos public API at baseURL.
func NewKratosClient(baseURL string, timeout time.Duration, logger *zap.Logger) *KratosClient {
	conf := ory.NewConfiguration()
	conf.Servers = ory.ServerConfigurations{
		{URL: strings.TrimRight(baseURL, "/")},
	}
	conf.HTTPClient = &http.Client{Timeout: timeout}
	return &KratosClient{ory: ory.NewAPIClient(conf), logger: logger}
}

// Register runs a native registration flow with the password method. The identity
// schema is expected to carry username and name traits.
func (k *KratosClient) Register(ctx context.Context, req RegisterRequest) (Success, error) {
	flow, resp, err := k.ory.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return Success{}, k.failure("create registration flow", err, resp, RegisterFallback)
	}

	updateBody := &ory.UpdateRegistrationFlowWithPasswordMethod{
		Method:   "password",
		Password: req.Password,
		Traits: map[string]interface{}{
			"username": req.Username,
			"name":     req.Name,
		},
	}
	result, resp, err := k.ory.FrontendAPI.UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(ory.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(updateBody)).
		Execute()
	if err != nil {
		return Success{}, k.failure("update registration flow", err, resp, RegisterFallback)
	}

	k.logger.Info("identity registered", zap.String("identity", result.Identity.Id))
	return Success{Token: result.GetSessionToken()}, nil
}

// Login runs a native login flow with the password method.
func (k *KratosClient) Login(ctx context.Context, req LoginRequest) (Success, error) {
	flow, resp, err := k.ory.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return Success{}, k.failure("create login flow", err, resp, LoginFallback)
	}

	updateBody := &ory.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: req.Username,
		Password:   req.Password,
	}
	result, resp, err := k.ory.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(ory.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(updateBody)).
		Execute()
	if err != nil {
		return Success{}, k.failure("update login flow", err, resp, LoginFallback)
	}

	return Success{Token: result.GetSessionToken()}, nil
}

func (k *KratosClient) failure(step string, err error, resp *http.Response, fallback string) *Failure {
	f := &Failure{Message: fallback, Cause: err}
	if resp != nil {
		f.Status = resp.StatusCode
	}

	var apiErr *ory.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		if msg := kratosMessage(apiErr.Model()); msg != "" {
			f.Message = msg
		}
	}

	k.logger.Warn("kratos flow failed", zap.String("step", step), zap.Int("status", f.Status), zap.Error(err))
	return f
}

// kratosMessage picks the first message of a returned flow, or the generic error message.
func kratosMessage(model interface{}) string {
	switch m := model.(type) {
	case ory.RegistrationFlow:
		return uiMessage(m.Ui)
	case *ory.RegistrationFlow:
		return uiMessage(m.Ui)
	case ory.LoginFlow:
		return uiMessage(m.Ui)
	case *ory.LoginFlow:
		return uiMessage(m.Ui)
	case ory.ErrorGeneric:
		return m.Error.GetMessage()
	case *ory.ErrorGeneric:
		return m.Error.GetMessage()
	}
	return ""
}

func uiMessage(ui ory.UiContainer) string {
	for _, msg := range ui.Messages {
		if msg.Text != "" {
			return msg.Text
		}
	}
	for _, node := range ui.Nodes {
		for _, msg := range node.Messages {
			if msg.Text != "" {
				return msg.Text
			}
		}
	}
	return ""
}
