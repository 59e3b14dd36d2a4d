package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/wesnick/gwmail/pkg/gwmail"
)

var version = "dev"

type CLI struct {
	Credentials string `help:"OAuth client secret JSON" default:"credentials.json" type:"path"`
	ConfigDir   string `help:"Config directory path" name:"config-dir" default:"~/.config/gwmail" type:"path"`
	JSON        bool   `help:"JSON output format"`
	Verbose     bool   `help:"Verbose logging"`
	NoColor     bool   `help:"Disable colored output"`
	LogRPC      bool   `help:"Log every Gmail RPC" name:"log-rpc"`
	Keyring     bool   `help:"Reuse and store the OAuth token in the system keyring"`

	Version struct{} `cmd:"" help:"Show version"`

	Auth struct {
		Login struct {
			Save bool `help:"Store the token in the system keyring"`
		} `cmd:"" help:"Authorize gwmail in the browser"`

		Logout struct{} `cmd:"" help:"Remove the stored token"`
	} `cmd:"" help:"Authentication operations"`

	Profile struct{} `cmd:"" help:"Show the authenticated account address"`

	Messages struct {
		List struct {
			Start    string `required:"" help:"Start date (YYYY-MM-DD)"`
			End      string `required:"" help:"End date (YYYY-MM-DD, exclusive)"`
			Label    string `help:"Label to list" default:"INBOX"`
			AllPages bool   `help:"Follow every result page" name:"all-pages"`
		} `cmd:"" help:"List messages in a date range"`

		Reply struct {
			MessageID string `arg:"" required:"" help:"Message ID"`
			Body      string `help:"Reply body (or read from stdin)"`
		} `cmd:"" help:"Reply to a message on its thread"`

		Send struct {
			To      string `required:"" help:"Recipient"`
			Subject string `required:"" help:"Subject line"`
			Body    string `help:"Message body (or read from stdin)"`
			Attach  string `required:"" help:"File to attach" type:"existingfile"`
			From    string `help:"Sender (default: the account address)"`
		} `cmd:"" help:"Send a message with an attachment"`
	} `cmd:"" help:"Message operations"`

	Run struct {
		Start     string `required:"" help:"Start date (YYYY-MM-DD)"`
		End       string `required:"" help:"End date (YYYY-MM-DD, exclusive)"`
		MessageID string `required:"" help:"Message to reply to" name:"message-id"`
		ReplyBody string `required:"" help:"Reply body" name:"reply-body"`
		To        string `required:"" help:"Recipient of the attachment"`
		Subject   string `required:"" help:"Subject of the attachment message"`
		Body      string `help:"Body of the attachment message"`
		Attach    string `required:"" help:"File to attach" type:"path"`
		From      string `help:"Sender (default: the account address)"`
	} `cmd:"" help:"List, reply, look up the profile and send an attachment in one go"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("gwmail"),
		kong.Description("Command-line Gmail client"),
		kong.UsageOnError(),
		kong.Configuration(yamlConfig, configFile),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	log.SetLevel(log.WarnLevel)
	if cli.Verbose {
		log.SetLevel(log.InfoLevel)
	}
	gwmail.Version = version
	gwmail.SetLogRPC(cli.LogRPC)

	out := newOutputWriter(cli.JSON, cli.NoColor, cli.Verbose)

	cmdCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch ctx.Command() {
	case "version":
		fmt.Printf("gwmail %s\n", version)

	case "auth login":
		if err := runAuthLogin(cmdCtx, &cli, cli.Auth.Login.Save, out); err != nil {
			out.writeError(err)
			os.Exit(3)
		}

	case "auth logout":
		if err := runAuthLogout(&cli, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "profile":
		conn, err := getConnection(cmdCtx, &cli)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if _, err := runProfile(cmdCtx, conn, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "messages list":
		rng, err := gwmail.ParseDateRange(cli.Messages.List.Start, cli.Messages.List.End)
		if err != nil {
			out.writeError(err)
			os.Exit(2)
		}
		conn, err := getConnection(cmdCtx, &cli)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runMessagesList(cmdCtx, conn, rng, cli.Messages.List.Label, cli.Messages.List.AllPages, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "messages reply <message-id>":
		body := cli.Messages.Reply.Body
		if body == "" {
			var err error
			if body, err = readBody(os.Stdin); err != nil {
				out.writeError(err)
				os.Exit(2)
			}
		}
		conn, err := getConnection(cmdCtx, &cli)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runMessagesReply(cmdCtx, conn, cli.Messages.Reply.MessageID, body, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "messages send":
		opts := sendOptions{
			from:    cli.Messages.Send.From,
			to:      cli.Messages.Send.To,
			subject: cli.Messages.Send.Subject,
			body:    cli.Messages.Send.Body,
			attach:  cli.Messages.Send.Attach,
		}
		if opts.body == "" {
			var err error
			if opts.body, err = readBody(os.Stdin); err != nil {
				out.writeError(err)
				os.Exit(2)
			}
		}
		conn, err := getConnection(cmdCtx, &cli)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if opts.from, err = resolveSender(cmdCtx, conn, opts.from); err != nil {
			out.writeError(err)
			os.Exit(2)
		}
		if err := runMessagesSend(cmdCtx, conn, opts, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "run":
		conn, err := getConnection(cmdCtx, &cli)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		opts := pipelineOptions{
			start:     cli.Run.Start,
			end:       cli.Run.End,
			messageID: cli.Run.MessageID,
			replyBody: cli.Run.ReplyBody,
			send: sendOptions{
				from:    cli.Run.From,
				to:      cli.Run.To,
				subject: cli.Run.Subject,
				body:    cli.Run.Body,
				attach:  cli.Run.Attach,
			},
		}
		if err := runPipeline(cmdCtx, conn, opts, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", ctx.Command())
		os.Exit(1)
	}
}
