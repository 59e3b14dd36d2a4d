package main

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/wesnick/gwmail/pkg/gwmail"
)

// pipelineOptions holds the inputs of every step of a run.
type pipelineOptions struct {
	start, end string
	messageID  string
	replyBody  string
	send       sendOptions
}

// pipeline runs steps in order. Gmail failures are reported and the run moves on;
// any other failure stops it.
type pipeline struct {
	out       *outputWriter
	total     int
	completed int
	failed    *multierror.Error
}

func newPipeline(out *outputWriter) *pipeline {
	return &pipeline{out: out}
}

// step runs fn and returns only errors that must stop the run.
func (p *pipeline) step(name string, fn func() error) error {
	p.total++
	p.out.writeVerbose("Step %d: %s", p.total, name)

	err := fn()
	if err == nil {
		p.completed++
		return nil
	}
	if !gwmail.IsAPIError(err) {
		return errors.Wrap(err, name)
	}
	p.out.writeAPIError(err)
	p.failed = multierror.Append(p.failed, errors.Wrap(err, name))
	return nil
}

// report prints how many steps succeeded and, in verbose mode, what failed.
func (p *pipeline) report() {
	w := p.out.stderr()
	fmt.Fprintf(w, "Completed %d/%d steps\n", p.completed, p.total)
	if p.failed == nil {
		return
	}
	fmt.Fprintf(w, "Errors: %d\n", len(p.failed.Errors))
	if p.out.verbose {
		for _, err := range p.failed.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}
}

// runPipeline lists the date range, replies to a message, looks up the account address
// and sends a message with an attachment from it.
func runPipeline(ctx context.Context, conn *gwmail.Conn, opts pipelineOptions, out *outputWriter) error {
	rng, err := gwmail.ParseDateRange(opts.start, opts.end)
	if err != nil {
		return err
	}

	p := newPipeline(out)
	defer p.report()

	if err := p.step("list messages", func() error {
		return runMessagesList(ctx, conn, rng, gwmail.Inbox, false, out)
	}); err != nil {
		return err
	}

	if err := p.step("reply", func() error {
		return runMessagesReply(ctx, conn, opts.messageID, opts.replyBody, out)
	}); err != nil {
		return err
	}

	// Without a profile the sender stays empty and Gmail fills it in.
	send := opts.send
	if err := p.step("profile", func() error {
		if send.from != "" {
			return nil
		}
		addr, err := runProfile(ctx, conn, out)
		send.from = addr
		return err
	}); err != nil {
		return err
	}

	return p.step("send attachment", func() error {
		return runMessagesSend(ctx, conn, send, out)
	})
}
