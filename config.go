package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wesnick/gwmail/pkg/gwmail"
)

const configFile = "~/.config/gwmail/config.yaml"

// yamlConfig lets flags be preset in a YAML file. Keys are flag names, for example
//
//	credentials: ~/secrets/client.json
//	keyring: true
func yamlConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]interface{}{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parsing config file")
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, errors.Wrap(err, "converting config file")
	}
	return kong.JSON(bytes.NewReader(b))
}

// authorize obtains credentials. With --keyring a stored token is reused (when reuse is
// set) and a fresh one is stored; save stores it regardless.
func authorize(ctx context.Context, cli *CLI, reuse, save bool) (*gwmail.Credentials, error) {
	paths, err := gwmail.GetConfigPaths(cli.ConfigDir, cli.Credentials)
	if err != nil {
		return nil, err
	}

	opts := gwmail.AuthOptions{Reuse: cli.Keyring && reuse}
	if cli.Keyring || save {
		if opts.Store, err = gwmail.OpenTokenStore(paths.Keyring); err != nil {
			return nil, err
		}
	}
	return gwmail.Authorize(ctx, paths, opts)
}

// getConnection authorizes and connects to Gmail.
func getConnection(ctx context.Context, cli *CLI) (*gwmail.Conn, error) {
	creds, err := authorize(ctx, cli, true, false)
	if err != nil {
		return nil, err
	}
	conn, err := gwmail.New(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gmail connection")
	}
	return conn, nil
}
