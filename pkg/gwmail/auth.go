package gwmail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/wesnick/gwmail/pkg/gwmail/localauth"
)

const (
	// DefaultConfigDir is the default location for gwmail state.
	DefaultConfigDir = "~/.config/gwmail"

	// DefaultCredentialsFile is the client-secret file, relative to the working directory.
	DefaultCredentialsFile = "credentials.json"

	keyringDir = "keyring"
)

// ConfigPaths holds paths to all config files
type ConfigPaths struct {
	Dir         string
	Credentials string
	Keyring     string
}

// GetConfigPaths returns the config paths, expanding ~ if needed
func GetConfigPaths(configDir, credentials string) (*ConfigPaths, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	if credentials == "" {
		credentials = DefaultCredentialsFile
	}

	var err error
	if configDir, err = expandHome(configDir); err != nil {
		return nil, err
	}
	if credentials, err = expandHome(credentials); err != nil {
		return nil, err
	}

	return &ConfigPaths{
		Dir:         configDir,
		Credentials: credentials,
		Keyring:     filepath.Join(configDir, keyringDir),
	}, nil
}

func expandHome(p string) (string, error) {
	if len(p) == 0 || p[0] != '~' {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	return filepath.Join(home, p[1:]), nil
}

// Credentials carry an authorized OAuth client. They are passed explicitly to
// everything that talks to Gmail.
type Credentials struct {
	Config *oauth2.Config
	Token  *oauth2.Token
}

// Valid reports whether the credentials can authorize requests, either directly or
// through a refresh.
func (c *Credentials) Valid() bool {
	if c == nil || c.Config == nil || c.Token == nil {
		return false
	}
	return c.Token.Valid() || c.Token.RefreshToken != ""
}

// AuthOptions controls how Authorize obtains a token.
type AuthOptions struct {
	// Store, when set, receives the token after a consent flow.
	Store *TokenStore
	// Reuse loads a token from Store before falling back to the consent flow.
	Reuse bool
	// Open presents the consent URL. Defaults to localauth.BrowserOpener.
	Open localauth.Opener
}

// Authorize loads the client secret from paths.Credentials and returns credentials,
// running the browser consent flow unless a stored token can be reused.
func Authorize(ctx context.Context, paths *ConfigPaths, opts AuthOptions) (*Credentials, error) {
	credFile, err := os.Open(paths.Credentials)
	if err != nil {
		return nil, fmt.Errorf(`credentials not found at %s

To set up authentication:
1. Go to https://console.developers.google.com
2. Create a new project (or select existing)
3. Enable Gmail API
4. Create OAuth 2.0 Client ID (Desktop app)
5. Download the credentials JSON file
6. Save it to: %s (or pass --credentials)
7. Run 'gwmail auth login' to authorize

Scopes requested:
- https://www.googleapis.com/auth/gmail.readonly
- https://www.googleapis.com/auth/gmail.compose
- https://www.googleapis.com/auth/gmail.modify
- https://www.googleapis.com/auth/gmail.send
`, paths.Credentials, paths.Credentials)
	}
	defer credFile.Close()

	auth, err := localauth.NewAuthenticator(credFile)
	if err != nil {
		return nil, errors.Wrap(err, "creating authenticator")
	}
	if opts.Open != nil {
		auth.Open = opts.Open
	}

	if opts.Store != nil && opts.Reuse {
		tok, err := opts.Store.Load()
		switch {
		case err == nil:
			creds := &Credentials{Config: auth.Config(), Token: tok}
			if creds.Valid() {
				log.Infof("Using stored token")
				return creds, nil
			}
			log.Infof("Stored token is unusable, starting consent flow")
		case errors.Is(err, ErrNoToken):
			log.Infof("No stored token, starting consent flow")
		default:
			return nil, err
		}
	}

	tok, err := auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	creds := &Credentials{Config: auth.Config(), Token: tok}

	if opts.Store != nil {
		if err := opts.Store.Save(tok); err != nil {
			return nil, err
		}
	}
	return creds, nil
}
