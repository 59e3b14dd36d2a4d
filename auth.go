package main

import (
	"context"

	"github.com/wesnick/gwmail/pkg/gwmail"
)

type profileOutput struct {
	EmailAddress string `json:"emailAddress"`
}

func runAuthLogin(ctx context.Context, cli *CLI, save bool, out *outputWriter) error {
	creds, err := authorize(ctx, cli, false, save)
	if err != nil {
		return err
	}
	conn, err := gwmail.New(ctx, creds)
	if err != nil {
		return err
	}
	addr, err := conn.ProfileAddress(ctx)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(profileOutput{EmailAddress: addr})
	}
	out.writeSuccess("Authorized as " + addr)
	if save || cli.Keyring {
		out.writeMessage("Token saved to the keyring.")
	}
	return nil
}

func runAuthLogout(cli *CLI, out *outputWriter) error {
	paths, err := gwmail.GetConfigPaths(cli.ConfigDir, cli.Credentials)
	if err != nil {
		return err
	}
	store, err := gwmail.OpenTokenStore(paths.Keyring)
	if err != nil {
		return err
	}
	if err := store.Delete(); err != nil {
		return err
	}
	out.writeSuccess("Stored token removed.")
	return nil
}

// runProfile prints the account address and returns it.
func runProfile(ctx context.Context, conn *gwmail.Conn, out *outputWriter) (string, error) {
	addr, err := conn.ProfileAddress(ctx)
	if err != nil {
		return "", err
	}
	if out.json {
		return addr, out.writeJSON(profileOutput{EmailAddress: addr})
	}
	out.writeMessage("Authenticated as: " + addr)
	return addr, nil
}
