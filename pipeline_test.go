package main

import (
	"bytes"
	"context"
	"net/http"
	netmail "net/mail"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesnick/gwmail/pkg/gwmail"
)

func pipelineFixture(t *testing.T) pipelineOptions {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))
	return pipelineOptions{
		start:     "2024-01-01",
		end:       "2024-02-01",
		messageID: "m1",
		replyBody: "Thanks!",
		send: sendOptions{
			to:      "you@y.com",
			subject: "Report",
			body:    "See attached.",
			attach:  path,
		},
	}
}

func TestRunPipeline(t *testing.T) {
	fake := newFakeGmail()
	out, stdout, stderr := testOutput(false)

	require.NoError(t, runPipeline(context.Background(), fake.conn(t), pipelineFixture(t), out))
	assert.Equal(t, "Emails within the date range:\n"+
		"- EmailID: m1 - Subject: Hello - From: jane@x.com\n"+
		"Reply sent successfully.\n"+
		"Authenticated as: me@x.com\n"+
		"File attached and email sent successfully.\n", stdout.String())
	assert.Equal(t, "Completed 4/4 steps\n", stderr.String())

	require.Len(t, fake.sent, 2)
	raw, err := (&gwmail.Envelope{Raw: fake.sent[1].Raw}).Decode()
	require.NoError(t, err)
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "me@x.com", msg.Header.Get("From"))
}

func TestRunPipelineContinuesPastAPIErrors(t *testing.T) {
	fake := newFakeGmail()
	fake.profileDown = true
	opts := pipelineFixture(t)
	opts.messageID = "gone"
	out, stdout, stderr := testOutput(false)

	require.NoError(t, runPipeline(context.Background(), fake.conn(t), opts, out))
	assert.Contains(t, stdout.String(), "File attached and email sent successfully.")
	assert.NotContains(t, stdout.String(), "Reply sent successfully.")
	assert.Contains(t, stderr.String(), "An error occurred:")
	assert.Contains(t, stderr.String(), "Completed 2/4 steps")
	assert.Contains(t, stderr.String(), "Errors: 2")

	// Only the attachment went out, without a sender.
	require.Len(t, fake.sent, 1)
	raw, err := (&gwmail.Envelope{Raw: fake.sent[0].Raw}).Decode()
	require.NoError(t, err)
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Empty(t, msg.Header.Get("From"))
	assert.Equal(t, "you@y.com", msg.Header.Get("To"))
}

func TestRunPipelineStopsOnUnreadableAttachment(t *testing.T) {
	fake := newFakeGmail()
	opts := pipelineFixture(t)
	opts.send.attach = filepath.Join(t.TempDir(), "missing.pdf")
	out, _, stderr := testOutput(false)

	err := runPipeline(context.Background(), fake.conn(t), opts, out)
	require.Error(t, err)
	assert.False(t, gwmail.IsAPIError(err))
	assert.Contains(t, err.Error(), "send attachment")
	assert.Contains(t, stderr.String(), "Completed 3/4 steps")
	assert.Len(t, fake.sent, 1)
}

func TestRunPipelineRejectsBadDates(t *testing.T) {
	fake := newFakeGmail()
	opts := pipelineFixture(t)
	opts.end = "2024-13-01"
	out, stdout, _ := testOutput(false)

	require.Error(t, runPipeline(context.Background(), fake.conn(t), opts, out))
	assert.Empty(t, stdout.String())
	assert.Equal(t, 0, fake.requests)
}

func TestRunPipelineSkipsProfileWithSender(t *testing.T) {
	fake := newFakeGmail()
	fake.profileDown = true
	opts := pipelineFixture(t)
	opts.send.from = "given@x.com"
	out, stdout, stderr := testOutput(false)

	require.NoError(t, runPipeline(context.Background(), fake.conn(t), opts, out))
	assert.NotContains(t, stdout.String(), "Authenticated as")
	assert.Equal(t, "Completed 4/4 steps\n", stderr.String())
}

func TestRunPipelineStopsWhenCanceled(t *testing.T) {
	conn, err := gwmail.NewFake(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, context.Canceled
	})})
	require.NoError(t, err)
	out, stdout, stderr := testOutput(false)

	err = runPipeline(context.Background(), conn, pipelineFixture(t), out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "list messages")
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Completed 0/1 steps\n", stderr.String())
}
