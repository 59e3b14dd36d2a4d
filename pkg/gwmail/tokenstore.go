package gwmail

import (
	"encoding/json"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	serviceName = "gwmail"
	tokenKey    = "oauth-token"
)

// ErrNoToken is returned by TokenStore.Load when nothing is stored.
var ErrNoToken = errors.New("no stored token")

// TokenStore keeps the OAuth token in the OS keyring.
type TokenStore struct {
	ring keyring.Keyring
}

// OpenTokenStore opens the system keyring, falling back to an encrypted file under dir.
func OpenTokenStore(dir string) (*TokenStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.TerminalPrompt,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}
	return NewTokenStore(ring), nil
}

// NewTokenStore wraps an already opened keyring.
func NewTokenStore(ring keyring.Keyring) *TokenStore {
	return &TokenStore{ring: ring}
}

func (s *TokenStore) Load() (*oauth2.Token, error) {
	item, err := s.ring.Get(tokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading stored token")
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(item.Data, tok); err != nil {
		return nil, errors.Wrap(err, "decoding stored token")
	}
	return tok, nil
}

func (s *TokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "encoding token")
	}
	err = s.ring.Set(keyring.Item{
		Key:         tokenKey,
		Data:        data,
		Label:       "gwmail OAuth token",
		Description: "Gmail API token",
	})
	return errors.Wrap(err, "storing token")
}

// Delete removes the stored token. Deleting a missing token is not an error.
func (s *TokenStore) Delete() error {
	err := s.ring.Remove(tokenKey)
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return errors.Wrap(err, "removing stored token")
}
