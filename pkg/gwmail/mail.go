package gwmail

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/api/gmail/v1"
)

var replyHeaders = []string{HeaderTo, HeaderFrom, HeaderSubject, HeaderMessageID}

// ListResult holds the summaries of a date-range listing.
type ListResult struct {
	Summaries []Summary
	// More is set when pages were left unread.
	More bool
}

// ListRange lists messages under label within r, fetching the From and Subject of
// each one individually. Only the first page is read unless allPages is set. On error
// the summaries gathered so far are returned along with it.
func (c *Conn) ListRange(ctx context.Context, r DateRange, label string, allPages bool) (*ListResult, error) {
	res := &ListResult{}

	labelID, err := c.ResolveLabel(ctx, label)
	if err != nil {
		return res, err
	}

	query := r.Query()
	token := ""
	for {
		page, err := c.ListMessages(ctx, labelID, query, token)
		if err != nil {
			return res, err
		}
		for _, id := range page.MessageIDs {
			msg, err := c.GetMessageHeaders(ctx, id, HeaderSubject, HeaderFrom)
			if err != nil {
				return res, err
			}
			res.Summaries = append(res.Summaries, Summarize(msg))
		}

		token = page.NextPageToken
		if token == "" {
			return res, nil
		}
		if !allPages {
			res.More = true
			return res, nil
		}
	}
}

// BuildReply derives the reply envelope for orig, which must carry the To, From,
// Subject and Message-ID headers.
//
// The reply goes from the original recipient to the original sender; the
// authenticated account is not consulted.
func BuildReply(orig *gmail.Message, body string) (*Envelope, error) {
	h := Headers(orig)
	messageID := header(h, HeaderMessageID)

	out := &OutgoingMessage{
		From:       ExtractAddress(header(h, HeaderTo)),
		To:         ExtractAddress(header(h, HeaderFrom)),
		Subject:    "Re: " + header(h, HeaderSubject),
		Body:       body,
		InReplyTo:  messageID,
		References: messageID,
	}
	raw, err := out.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "encoding reply")
	}

	threadID := orig.ThreadId
	if threadID == "" {
		threadID = orig.Id
	}
	return NewEnvelope(raw, threadID, Inbox), nil
}

// Reply fetches messageID and sends body as a threaded reply to it.
func (c *Conn) Reply(ctx context.Context, messageID, body string) (*gmail.Message, error) {
	orig, err := c.GetMessageHeaders(ctx, messageID, replyHeaders...)
	if err != nil {
		return nil, err
	}
	env, err := BuildReply(orig, body)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, env)
}

// NewAttachmentMessage builds a message carrying the file at path.
func NewAttachmentMessage(from, to, subject, body, path string) (*OutgoingMessage, error) {
	a, err := LoadAttachment(path)
	if err != nil {
		return nil, err
	}
	return &OutgoingMessage{
		From:       from,
		To:         to,
		Subject:    subject,
		Body:       body,
		Attachment: a,
	}, nil
}

// SendMessage encodes m and sends it as a new conversation.
func (c *Conn) SendMessage(ctx context.Context, m *OutgoingMessage) (*gmail.Message, error) {
	raw, err := m.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "encoding message")
	}
	return c.Send(ctx, NewEnvelope(raw, ""))
}

// ProfileAddress returns the authenticated account's primary address.
func (c *Conn) ProfileAddress(ctx context.Context) (string, error) {
	p, err := c.GetProfile(ctx)
	if err != nil {
		return "", err
	}
	return p.EmailAddress, nil
}
