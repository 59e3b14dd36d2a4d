package gwmail

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	pageSize = 100

	email = "me"
)

var (
	// Version is the app version as reported in RPCs.
	Version = "unspecified"

	shouldLogRPC bool

	// Gmail built-ins, usable by id without a lookup.
	systemLabels = map[string]bool{
		"INBOX":               true,
		"TRASH":               true,
		"UNREAD":              true,
		"STARRED":             true,
		"SENT":                true,
		"DRAFT":               true,
		"SPAM":                true,
		"IMPORTANT":           true,
		"CATEGORY_PERSONAL":   true,
		"CATEGORY_SOCIAL":     true,
		"CATEGORY_PROMOTIONS": true,
		"CATEGORY_UPDATES":    true,
		"CATEGORY_FORUMS":     true,
	}
)

// SetLogRPC turns per-RPC logging on or off.
func SetLogRPC(on bool) {
	shouldLogRPC = on
}

// Conn is an authorized Gmail connection. It can only be built from credentials, so
// every RPC it makes is authorized.
type Conn struct {
	m            sync.RWMutex
	authedClient *http.Client
	gmail        *gmail.Service
	labelIDs     map[string]string // lower-case name -> id
}

func userAgent() string {
	return "gwmail " + Version
}

// New creates a connection from credentials.
func New(ctx context.Context, creds *Credentials) (*Conn, error) {
	if !creds.Valid() {
		return nil, errors.New("credentials are not valid; authorize first")
	}
	conn := &Conn{
		authedClient: creds.Config.Client(ctx, creds.Token),
	}
	return conn, conn.setupClients(ctx)
}

// NewFake creates a connection over an arbitrary client, used for testing.
func NewFake(client *http.Client) (*Conn, error) {
	conn := &Conn{
		authedClient: client,
	}
	return conn, conn.setupClients(context.Background())
}

func (c *Conn) setupClients(ctx context.Context) error {
	var err error
	c.gmail, err = gmail.NewService(ctx, option.WithHTTPClient(c.authedClient))
	if err != nil {
		return errors.Wrap(err, "creating GMail client")
	}
	c.gmail.UserAgent = userAgent()
	return nil
}

func wrapLogRPC(fn string, cb func() error, af string, args ...interface{}) error {
	st := time.Now()
	err := cb()
	logRPC(st, err, fmt.Sprintf("%s(%s)", fn, af), args...)
	return err
}

func logRPC(st time.Time, err error, s string, args ...interface{}) {
	if shouldLogRPC {
		log.Infof("RPC> %s => %v %v", fmt.Sprintf(s, args...), err, time.Since(st))
	}
}

// Page is one page of a message listing.
type Page struct {
	MessageIDs    []string
	NextPageToken string
}

// ListMessages lists messages in a given label matching query, with optional page token.
func (c *Conn) ListMessages(ctx context.Context, label, query, token string) (*Page, error) {
	const fields = "messages(id),resultSizeEstimate,nextPageToken"

	q := c.gmail.Users.Messages.List(email).
		MaxResults(pageSize).
		Context(ctx).
		Fields(fields)
	if token != "" {
		q = q.PageToken(token)
	}
	if query != "" {
		q = q.Q(query)
	}
	if label != "" {
		q = q.LabelIds(label)
	}
	var res *gmail.ListMessagesResponse
	err := wrapLogRPC("gmail.Users.Messages.List", func() (err error) {
		res, err = q.Do()
		return
	}, "email=%q token=%v labelID=%q query=%q size=%d fields=%q", email, token, label, query, pageSize, fields)
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}

	p := &Page{
		NextPageToken: res.NextPageToken,
	}
	for _, m := range res.Messages {
		p.MessageIDs = append(p.MessageIDs, m.Id)
	}
	return p, nil
}

// GetMessageHeaders fetches a message with only the named headers in its payload.
func (c *Conn) GetMessageHeaders(ctx context.Context, id string, headers ...string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := wrapLogRPC("gmail.Users.Messages.Get", func() (err error) {
		msg, err = c.gmail.Users.Messages.Get(email, id).
			Format("metadata").
			MetadataHeaders(headers...).
			Context(ctx).
			Do()
		return
	}, "email=%q id=%q headers=%v", email, id, headers)
	if err != nil {
		return nil, errors.Wrapf(err, "getting message %q", id)
	}
	return msg, nil
}

// GetProfile returns the profile for the current user.
func (c *Conn) GetProfile(ctx context.Context) (*gmail.Profile, error) {
	var ret *gmail.Profile
	err := wrapLogRPC("gmail.Users.GetProfile", func() (err error) {
		ret, err = c.gmail.Users.GetProfile(email).Context(ctx).Do()
		return
	}, "email=%q", email)
	if err != nil {
		return nil, errors.Wrap(err, "getting profile")
	}
	return ret, nil
}

// ResolveLabel maps a label name or id to its id. System ids such as INBOX are
// returned as-is without an RPC; user label names are looked up once per connection.
func (c *Conn) ResolveLabel(ctx context.Context, name string) (string, error) {
	if name == "" || systemLabels[name] {
		return name, nil
	}

	c.m.RLock()
	loaded := c.labelIDs != nil
	id, found := c.labelIDs[strings.ToLower(name)]
	c.m.RUnlock()
	if found {
		return id, nil
	}
	if loaded {
		return "", errors.Errorf("label not found: %s", name)
	}

	var resp *gmail.ListLabelsResponse
	err := wrapLogRPC("gmail.Users.Labels.List", func() (err error) {
		resp, err = c.gmail.Users.Labels.List(email).Context(ctx).Do()
		return
	}, "email=%q", email)
	if err != nil {
		return "", errors.Wrap(err, "listing labels")
	}

	c.m.Lock()
	c.labelIDs = make(map[string]string, len(resp.Labels))
	for _, l := range resp.Labels {
		c.labelIDs[strings.ToLower(l.Name)] = l.Id
		c.labelIDs[strings.ToLower(l.Id)] = l.Id
	}
	id, found = c.labelIDs[strings.ToLower(name)]
	c.m.Unlock()

	if !found {
		return "", errors.Errorf("label not found: %s", name)
	}
	return id, nil
}

// Send posts an envelope to users.messages.send.
func (c *Conn) Send(ctx context.Context, env *Envelope) (*gmail.Message, error) {
	var sent *gmail.Message
	err := wrapLogRPC("gmail.Users.Messages.Send", func() (err error) {
		sent, err = c.gmail.Users.Messages.Send(email, env.Message()).Context(ctx).Do()
		return
	}, "email=%q threadID=%q labels=%v", email, env.ThreadID, env.LabelIDs)
	if err != nil {
		return nil, errors.Wrap(err, "sending message")
	}
	return sent, nil
}
