// Copyright (c) 2017 Michele Bertasi
// Licensed under the MIT License
// Adapted from github.com/mbrt/gmailctl

package localauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes are the permissions gwmail asks for: read the inbox, compose, modify and send.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
	gmail.GmailModifyScope,
	gmail.GmailSendScope,
}

// Opener hands the consent URL to the user.
type Opener func(url string) error

// NewAuthenticator creates an Authenticator instance from credentials JSON file contents.
//
// Credentials can be obtained by creating a new OAuth client ID (Desktop app) at the Google API console
// https://console.developers.google.com/apis/credentials.
func NewAuthenticator(credentials io.Reader) (*Authenticator, error) {
	cfg, err := clientFromCredentials(credentials)
	if err != nil {
		return nil, fmt.Errorf("creating config from credentials: %w", err)
	}
	return &Authenticator{
		State: generateOauthState(),
		Open:  BrowserOpener,
		cfg:   cfg,
	}, nil
}

// Authenticator runs the installed-app consent flow for the Gmail API.
type Authenticator struct {
	State string
	Open  Opener
	cfg   *oauth2.Config
}

// Config returns the OAuth2 client configuration, with the redirect URL of the last flow.
func (a *Authenticator) Config() *oauth2.Config {
	return a.cfg
}

type callbackResult struct {
	code string
	err  error
}

// Authorize opens a loopback listener, sends the user to the consent page and waits for
// the browser redirect. Consent is forced on every call.
func (a *Authenticator) Authorize(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listening for OAuth callback: %w", err)
	}
	a.cfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           a.callbackHandler(results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warnf("OAuth callback server: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := a.AuthURL()
	log.Infof("Waiting for OAuth callback on %s", a.cfg.RedirectURL)
	if err := a.Open(authURL); err != nil {
		log.Warnf("Could not open browser: %v", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for consent: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := a.cfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// AuthURL returns the URL the user has to visit to authorize the application.
func (a *Authenticator) AuthURL() string {
	return a.cfg.AuthCodeURL(a.State, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (a *Authenticator) callbackHandler(results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != a.State:
			res.err = fmt.Errorf("authorization callback state mismatch")
		case q.Get("code") == "":
			res.err = fmt.Errorf("authorization callback carried no code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "The authentication flow has completed. You may close this window.")
		}

		// Only the first callback counts.
		select {
		case results <- res:
		default:
		}
	})
}

// BrowserOpener prints the consent URL and tries to launch the platform browser.
func BrowserOpener(url string) error {
	fmt.Printf("Please visit this URL to authorize this application:\n\n%s\n\n", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func clientFromCredentials(credentials io.Reader) (*oauth2.Config, error) {
	credBytes, err := io.ReadAll(credentials)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return google.ConfigFromJSON(credBytes, Scopes...)
}

func generateOauthState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// We can't really afford errors in secure random number generation.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
