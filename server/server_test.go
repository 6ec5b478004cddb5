package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-session-lifecycle/auth"
	fakeclientrepo "github.com/jrsteele09/go-session-lifecycle/clients/fakerepo"
	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/jrsteele09/go-session-lifecycle/oauthmodel"
	"github.com/jrsteele09/go-session-lifecycle/server"
	"github.com/jrsteele09/go-session-lifecycle/token"
	refreshrepofake "github.com/jrsteele09/go-session-lifecycle/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-session-lifecycle/users/repofake"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("CLIENT_ID", "management-ui")
	t.Setenv("CLIENT_SECRET", "ui-secret")
	t.Setenv("SIGNING_SECRET", "test-signing-secret")
	t.Setenv("SIGNING_ALG", "HS256")
	t.Setenv("SEED_PASSWORD", "seed-pass")

	s, err := server.New(config.New(), auth.Repos{
		Users:   fakeuserrepo.NewFakeUserRepo(),
		Clients: fakeclientrepo.NewFakeClientRepo(),
	}, refreshrepofake.NewFakeRefreshTokenRepo())
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func postForm(t *testing.T, ts *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func passwordForm(username, password string) url.Values {
	return url.Values{
		"grant_type":    {"password"},
		"client_id":     {"management-ui"},
		"client_secret": {"ui-secret"},
		"username":      {username},
		"password":      {password},
	}
}

func TestDiscovery(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + server.RouteWellKnownOpenIDConfig)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Equal(t, ts.URL, doc["issuer"])
	require.Equal(t, ts.URL+server.RouteOAuth2Token, doc["token_endpoint"])
}

func TestToken_SeededUsersCanLogIn(t *testing.T) {
	ts := newTestServer(t)

	for _, seed := range server.SeedUsers {
		resp := postForm(t, ts, server.RouteOAuth2Token, passwordForm(seed.Username, "seed-pass"))
		require.Equal(t, http.StatusOK, resp.StatusCode, seed.Username)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		var tr oauthmodel.TokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
		require.Equal(t, seed.ID, tr.ID)
		require.Equal(t, string(seed.Role), tr.Role)
		require.NotEmpty(t, tr.RefreshToken)

		claims, err := token.ParseClaims(tr.AccessToken)
		require.NoError(t, err)
		require.Equal(t, seed.ID, claims.Subject)
	}
}

func TestToken_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]struct {
		form   url.Values
		status int
		code   string
	}{
		"wrong password": {
			form: passwordForm("admin", "nope"), status: http.StatusBadRequest, code: "invalid_grant",
		},
		"unknown client": {
			form:   url.Values{"grant_type": {"password"}, "client_id": {"other"}, "username": {"admin"}, "password": {"seed-pass"}},
			status: http.StatusUnauthorized, code: "invalid_client",
		},
		"unsupported grant": {
			form:   url.Values{"grant_type": {"client_credentials"}, "client_id": {"management-ui"}, "client_secret": {"ui-secret"}},
			status: http.StatusBadRequest, code: "unsupported_grant_type",
		},
		"unknown refresh token": {
			form:   url.Values{"grant_type": {"refresh_token"}, "client_id": {"management-ui"}, "client_secret": {"ui-secret"}, "refresh_token": {"bogus"}},
			status: http.StatusBadRequest, code: "invalid_grant",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resp := postForm(t, ts, server.RouteOAuth2Token, tc.form)
			require.Equal(t, tc.status, resp.StatusCode)

			var er oauthmodel.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
			require.Equal(t, tc.code, er.Error)
		})
	}
}

func TestToken_BasicAuthAndRefreshRotation(t *testing.T) {
	ts := newTestServer(t)

	login := postForm(t, ts, server.RouteOAuth2Token, passwordForm("employee", "seed-pass"))
	require.Equal(t, http.StatusOK, login.StatusCode)
	var first oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(login.Body).Decode(&first))

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {first.RefreshToken}}
	req, err := http.NewRequest(http.MethodPost, ts.URL+server.RouteOAuth2Token, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("management-ui", "ui-secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, "employee", second.Username)
}

func TestRevoke(t *testing.T) {
	ts := newTestServer(t)

	login := postForm(t, ts, server.RouteOAuth2Token, passwordForm("analyst", "seed-pass"))
	var tr oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(login.Body).Decode(&tr))

	resp := postForm(t, ts, server.RouteOAuth2Revoke, url.Values{"token": {tr.RefreshToken}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postForm(t, ts, server.RouteOAuth2Token, url.Values{
		"grant_type": {"refresh_token"}, "client_id": {"management-ui"}, "client_secret": {"ui-secret"}, "refresh_token": {tr.RefreshToken},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postForm(t, ts, server.RouteOAuth2Revoke, url.Values{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChainMiddleware_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}
	h := server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, mw("first"), mw("second"))

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestJWKS_RS256(t *testing.T) {
	t.Setenv("SIGNING_ALG", "")
	ts := newTestServer(t)
	t.Setenv("SIGNING_ALG", "RS256")
	s, err := server.New(config.New(), auth.Repos{
		Users:   fakeuserrepo.NewFakeUserRepo(),
		Clients: fakeclientrepo.NewFakeClientRepo(),
	}, refreshrepofake.NewFakeRefreshTokenRepo())
	require.NoError(t, err)
	rs := httptest.NewServer(s)
	t.Cleanup(rs.Close)

	resp, err := http.Get(ts.URL + server.RouteWellKnownJWKS)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(rs.URL + server.RouteWellKnownOpenIDConfig)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resp.Body.Close()
	require.Equal(t, rs.URL+server.RouteWellKnownJWKS, doc["jwks_uri"])

	resp, err = http.Get(rs.URL + server.RouteWellKnownJWKS)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jwks token.JWKS
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, token.RS256, jwks.Keys[0].Alg)

	tok := postForm(t, rs, server.RouteOAuth2Token, passwordForm("analyst", "seed-pass"))
	require.Equal(t, http.StatusOK, tok.StatusCode)
	var body oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(tok.Body).Decode(&body))
	_, err = token.ParseExpiry(body.AccessToken)
	require.NoError(t, err)
}
