package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"woorkroom-web/authapi"
	"woorkroom-web/devapi"
)

var ada = authapi.RegisterRequest{Name: "Ada Lovelace", Username: "adalovelace", Password: "secret1"}

// stubAPI answers every request with status and body and records what it received.
func stubAPI(t *testing.T, status int, body string) (*httptest.Server, *int32, *map[string]string) {
	t.Helper()
	var calls int32
	received := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&received)
		received["path"] = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &received
}

func TestRESTClient_Register(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantErr   string
	}{
		{"token_returned", http.StatusCreated, `{"token":"abc"}`, "abc", ""},
		{"no_token_still_success", http.StatusOK, `{"id":"42"}`, "", ""},
		{"non_json_success", http.StatusOK, `created`, "", ""},
		{"structured_error", http.StatusConflict, `{"error":"Username taken"}`, "", "Username taken"},
		{"unstructured_error", http.StatusInternalServerError, `<html>oops</html>`, "", authapi.RegisterFallback},
		{"blank_error_field", http.StatusBadRequest, `{"error":"  "}`, "", authapi.RegisterFallback},
		{"non_string_error_field", http.StatusBadRequest, `{"error":{"code":1}}`, "", authapi.RegisterFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls, received := stubAPI(t, tt.status, tt.body)
			client := authapi.NewRESTClient(srv.URL, time.Second, zap.NewNop())

			res, err := client.Register(context.Background(), ada)

			assert.EqualValues(t, 1, atomic.LoadInt32(calls), "single attempt, no retries")
			assert.Equal(t, authapi.RegisterPath, (*received)["path"])
			assert.Equal(t, "Ada Lovelace", (*received)["name"])
			assert.Equal(t, "adalovelace", (*received)["username"])
			assert.Equal(t, "secret1", (*received)["password"])

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, res.Token)
				assert.Equal(t, tt.wantToken != "", res.HasToken())
				return
			}
			var failure *authapi.Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.wantErr, failure.Message)
			assert.Equal(t, tt.status, failure.Status)
			assert.Error(t, failure.Cause)
		})
	}
}

func TestRESTClient_Login(t *testing.T) {
	srv, _, received := stubAPI(t, http.StatusUnauthorized, `{}`)
	client := authapi.NewRESTClient(srv.URL+"/", time.Second, zap.NewNop())

	_, err := client.Login(context.Background(), authapi.LoginRequest{Username: "adalovelace", Password: "secret1"})

	assert.Equal(t, authapi.LoginPath, (*received)["path"])
	assert.NotContains(t, *received, "name")
	var failure *authapi.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, authapi.LoginFallback, failure.Message)
}

func TestRESTClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := authapi.NewRESTClient(url, time.Second, zap.NewNop())
	_, err := client.Register(context.Background(), ada)

	var failure *authapi.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, authapi.RegisterFallback, failure.Message)
	assert.Zero(t, failure.Status)
	assert.NotNil(t, failure.Cause)
}

func TestRESTClient_AgainstDevAPI(t *testing.T) {
	api, err := devapi.New(devapi.Config{IssueTokens: true, BcryptCost: bcrypt.MinCost, SigningKeys: 1}, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	client := authapi.NewRESTClient(srv.URL, time.Second, zap.NewNop())
	ctx := context.Background()

	res, err := client.Register(ctx, ada)
	require.NoError(t, err)
	assert.True(t, res.HasToken())

	_, err = client.Register(ctx, ada)
	var failure *authapi.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Username taken", failure.Message)

	res, err = client.Login(ctx, authapi.LoginRequest{Username: ada.Username, Password: ada.Password})
	require.NoError(t, err)
	assert.True(t, res.HasToken())
}

func TestNew(t *testing.T) {
	a, err := authapi.New(authapi.Options{Kind: authapi.KindREST, BaseURL: "http://localhost"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &authapi.RESTClient{}, a)

	a, err = authapi.New(authapi.Options{Kind: authapi.KindKratos, BaseURL: "http://localhost"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &authapi.KratosClient{}, a)

	_, err = authapi.New(authapi.Options{Kind: "soap"}, zap.NewNop())
	assert.Error(t, err)
}

func TestAsFailure(t *testing.T) {
	f := authapi.AsFailure(context.DeadlineExceeded, authapi.LoginFallback)
	assert.Equal(t, authapi.LoginFallback, f.Message)
	assert.ErrorIs(t, f, context.DeadlineExceeded)

	orig := &authapi.Failure{Message: "Username taken"}
	assert.Same(t, orig, authapi.AsFailure(orig, authapi.RegisterFallback))
}
