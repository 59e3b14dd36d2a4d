package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/gmail/v1"

	"github.com/wesnick/gwmail/pkg/gwmail"
)

// sentOutput is JSON output format for a sent message
type sentOutput struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId,omitempty"`
}

func newSentOutput(m *gmail.Message) sentOutput {
	if m == nil {
		return sentOutput{}
	}
	return sentOutput{ID: m.Id, ThreadID: m.ThreadId}
}

func runMessagesList(ctx context.Context, conn *gwmail.Conn, rng gwmail.DateRange, label string, allPages bool, out *outputWriter) error {
	out.writeVerbose("Query: %s (label %s)", rng.Query(), label)

	res, err := conn.ListRange(ctx, rng, label, allPages)
	if err != nil {
		// Whatever was fetched before the failure is still shown.
		if res != nil && len(res.Summaries) > 0 {
			_ = writeSummaries(res, out)
		}
		return err
	}
	if err := writeSummaries(res, out); err != nil {
		return err
	}

	if res.More {
		out.writeNotice("More messages match this range; only the first page is shown. Use --all-pages to list them all.")
	}
	return nil
}

func writeSummaries(res *gwmail.ListResult, out *outputWriter) error {
	if out.json {
		summaries := res.Summaries
		if summaries == nil {
			summaries = []gwmail.Summary{}
		}
		return out.writeJSON(summaries)
	}

	if len(res.Summaries) == 0 {
		out.writeMessage("No emails found within the specified date range.")
		return nil
	}
	out.writeMessage("Emails within the date range:")
	for _, s := range res.Summaries {
		out.writeMessage(fmt.Sprintf("- EmailID: %s - Subject: %s - From: %s", s.ID, s.Subject, s.From))
	}
	return nil
}

func runMessagesReply(ctx context.Context, conn *gwmail.Conn, messageID, body string, out *outputWriter) error {
	sent, err := conn.Reply(ctx, messageID, body)
	if err != nil {
		return err
	}
	out.writeVerbose("Reply %s on thread %s", sent.Id, sent.ThreadId)

	if out.json {
		return out.writeJSON(newSentOutput(sent))
	}
	out.writeSuccess("Reply sent successfully.")
	return nil
}

// sendOptions describes a new message carrying one attachment.
type sendOptions struct {
	from    string
	to      string
	subject string
	body    string
	attach  string
}

func runMessagesSend(ctx context.Context, conn *gwmail.Conn, opts sendOptions, out *outputWriter) error {
	msg, err := gwmail.NewAttachmentMessage(opts.from, opts.to, opts.subject, opts.body, opts.attach)
	if err != nil {
		return err
	}
	out.writeVerbose("Attaching %s (%s, %d bytes)", msg.Attachment.Filename, msg.Attachment.ContentType, len(msg.Attachment.Data))

	sent, err := conn.SendMessage(ctx, msg)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(newSentOutput(sent))
	}
	out.writeSuccess("File attached and email sent successfully.")
	return nil
}

// resolveSender returns from, or the account address when from is empty.
func resolveSender(ctx context.Context, conn *gwmail.Conn, from string) (string, error) {
	if from != "" {
		return from, nil
	}
	addr, err := conn.ProfileAddress(ctx)
	if err != nil {
		return "", errors.Wrap(err, "looking up sender address (pass --from to skip)")
	}
	return addr, nil
}

// readBody reads a message body from r when none was given on the command line.
func readBody(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "error reading body from stdin")
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
