package localauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credentialsJSON(tokenURL string) string {
	return fmt.Sprintf(`{
		"installed": {
			"client_id": "test-client-id.apps.googleusercontent.com",
			"client_secret": "test-secret",
			"auth_uri": "https://accounts.google.com/o/oauth2/auth",
			"token_uri": %q,
			"redirect_uris": ["http://localhost"]
		}
	}`, tokenURL)
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// browserVisiting simulates the browser following the consent redirect with the given query.
func browserVisiting(t *testing.T, query func(state string) url.Values) Opener {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := u.Query().Get("redirect_uri")
		resp, err := http.Get(redirect + "?" + query(u.Query().Get("state")).Encode())
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

func TestClientFromCredentialsRequestsFourScopes(t *testing.T) {
	cfg, err := clientFromCredentials(strings.NewReader(credentialsJSON("https://oauth2.googleapis.com/token")))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.googleapis.com/auth/gmail.readonly",
		"https://www.googleapis.com/auth/gmail.compose",
		"https://www.googleapis.com/auth/gmail.modify",
		"https://www.googleapis.com/auth/gmail.send",
	}, cfg.Scopes)
}

func TestNewAuthenticatorRejectsInvalidCredentials(t *testing.T) {
	_, err := NewAuthenticator(strings.NewReader(`{"web": 12}`))
	assert.Error(t, err)
}

func TestAuthURLForcesConsent(t *testing.T) {
	auth, err := NewAuthenticator(strings.NewReader(credentialsJSON("https://oauth2.googleapis.com/token")))
	require.NoError(t, err)

	u, err := url.Parse(auth.AuthURL())
	require.NoError(t, err)
	assert.Equal(t, "consent", u.Query().Get("prompt"))
	assert.Equal(t, "offline", u.Query().Get("access_type"))
	assert.Equal(t, auth.State, u.Query().Get("state"))
}

func TestAuthorizeExchangesCallbackCode(t *testing.T) {
	tokenSrv := newTokenServer(t)
	auth, err := NewAuthenticator(strings.NewReader(credentialsJSON(tokenSrv.URL)))
	require.NoError(t, err)

	auth.Open = browserVisiting(t, func(state string) url.Values {
		return url.Values{"code": {"good-code"}, "state": {state}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tok, err := auth.Authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.True(t, strings.HasPrefix(auth.Config().RedirectURL, "http://127.0.0.1:"))
}

func TestAuthorizeUserDenied(t *testing.T) {
	tokenSrv := newTokenServer(t)
	auth, err := NewAuthenticator(strings.NewReader(credentialsJSON(tokenSrv.URL)))
	require.NoError(t, err)

	auth.Open = browserVisiting(t, func(state string) url.Values {
		return url.Values{"error": {"access_denied"}, "state": {state}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = auth.Authorize(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestAuthorizeStateMismatch(t *testing.T) {
	tokenSrv := newTokenServer(t)
	auth, err := NewAuthenticator(strings.NewReader(credentialsJSON(tokenSrv.URL)))
	require.NoError(t, err)

	auth.Open = browserVisiting(t, func(string) url.Values {
		return url.Values{"code": {"good-code"}, "state": {"forged"}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = auth.Authorize(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
}

func TestAuthorizeCancelled(t *testing.T) {
	auth, err := NewAuthenticator(strings.NewReader(credentialsJSON("https://oauth2.googleapis.com/token")))
	require.NoError(t, err)
	auth.Open = func(string) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = auth.Authorize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
