package devapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"woorkroom-web/devapi"
)

func newServer(t *testing.T, issueTokens bool) *httptest.Server {
	t.Helper()
	s, err := devapi.New(devapi.Config{IssueTokens: issueTokens, BcryptCost: bcrypt.MinCost, SigningKeys: 2}, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, map[string]string) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const adaJSON = `{"name":"Ada Lovelace","username":"adalovelace","password":"secret1"}`

func TestRegister(t *testing.T) {
	srv := newServer(t, true)

	status, body := post(t, srv, "/api/users/", adaJSON)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["token"])

	status, body = post(t, srv, "/api/users/", adaJSON)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Username taken", body["error"])
}

func TestRegister_Validation(t *testing.T) {
	srv := newServer(t, true)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"short_username", `{"name":"Ada Lovelace","username":"ada","password":"secret1"}`, "username must be at least 6 characters"},
		{"missing_password", `{"name":"Ada Lovelace","username":"adalovelace"}`, "password is required"},
		{"not_json", `nope`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, srv, "/api/users/", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestRegister_WithoutTokens(t *testing.T) {
	srv := newServer(t, false)

	status, body := post(t, srv, "/api/users/", adaJSON)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, body, "token")
}

func TestLogin(t *testing.T) {
	srv := newServer(t, true)
	status, _ := post(t, srv, "/api/users/", adaJSON)
	require.Equal(t, http.StatusCreated, status)

	status, body := post(t, srv, "/api/auth/", `{"username":"adalovelace","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, body = post(t, srv, "/api/auth/", `{"username":"adalovelace","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid username or password", body["error"])

	status, _ = post(t, srv, "/api/auth/", `{"username":"nobody-here","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTokensVerifyAgainstJWKS(t *testing.T) {
	srv := newServer(t, true)
	_, body := post(t, srv, "/api/users/", adaJSON)

	resp, err := http.Get(srv.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	set, err := jwk.ParseReader(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	// Consecutive tokens rotate through the keys.
	_, second := post(t, srv, "/api/auth/", `{"username":"adalovelace","password":"secret1"}`)
	kids := map[string]bool{}

	for _, raw := range []string{body["token"], second["token"]} {
		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			kid, _ := token.Header["kid"].(string)
			key, found := set.LookupKeyID(kid)
			if !found {
				return nil, fmt.Errorf("unknown kid %q", kid)
			}
			var pub interface{}
			if err := key.Raw(&pub); err != nil {
				return nil, err
			}
			return pub, nil
		})
		require.NoError(t, err)
		require.True(t, token.Valid)
		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, "adalovelace", claims["sub"])
		kids[token.Header["kid"].(string)] = true
	}
	assert.Len(t, kids, 2)
}
