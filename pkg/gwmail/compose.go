package gwmail

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/pkg/errors"
	"google.golang.org/api/gmail/v1"
)

const (
	// Inbox is the system label id of the primary inbox.
	Inbox = "INBOX"

	defaultContentType = "application/octet-stream"
)

// Suffixes that name a content encoding rather than a type, matched case-sensitively.
// The envelope cannot carry those as-is, so such files go out as octet-stream.
var encodingSuffixes = map[string]bool{
	".gz":   true,
	".Z":    true,
	".z":    true,
	".bz2":  true,
	".xz":   true,
	".br":   true,
	".tgz":  true,
	".taz":  true,
	".tz":   true,
	".tbz2": true,
	".txz":  true,
	".svgz": true,
}

// Attachment is a file carried by an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LoadAttachment reads path and guesses its content type from the extension.
func LoadAttachment(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading attachment")
	}
	return &Attachment{
		Filename:    filepath.Base(path),
		ContentType: ContentTypeFor(path),
		Data:        data,
	}, nil
}

// ContentTypeFor guesses a media type from the file extension, falling back to
// application/octet-stream.
func ContentTypeFor(path string) string {
	ext := filepath.Ext(path)
	if ext == "" || encodingSuffixes[ext] {
		return defaultContentType
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil || !strings.Contains(mediaType, "/") {
		return defaultContentType
	}
	return mediaType
}

// OutgoingMessage is an in-memory message, discarded once sent.
type OutgoingMessage struct {
	From    string
	To      string
	Subject string
	Body    string

	// Thread-linking headers, written only when set.
	InReplyTo  string
	References string

	Attachment *Attachment
}

// Encode serializes the message as RFC 2822. Without an attachment the result holds
// only the caller's headers and the body; with one it is multipart/mixed.
func (m *OutgoingMessage) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if m.Attachment == nil {
		if err := m.encodePlain(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := m.encodeMultipart(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// header fills From/To/Subject. Add prepends, so fields are set bottom-up.
func (m *OutgoingMessage) header(h *mail.Header) {
	h.SetSubject(m.Subject)
	if m.To != "" {
		h.Set(HeaderTo, m.To)
	}
	if m.From != "" {
		h.Set(HeaderFrom, m.From)
	}
}

func (m *OutgoingMessage) encodePlain(w io.Writer) error {
	var h mail.Header
	if m.References != "" {
		h.Set(HeaderReferences, m.References)
	}
	if m.InReplyTo != "" {
		h.Set(HeaderInReplyTo, m.InReplyTo)
	}
	m.header(&h)

	if err := textproto.WriteHeader(w, h.Header.Header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return errors.Wrap(err, "writing body")
	}
	return nil
}

func (m *OutgoingMessage) encodeMultipart(w io.Writer) error {
	var h mail.Header
	if m.References != "" {
		h.Set(HeaderReferences, m.References)
	}
	if m.InReplyTo != "" {
		h.Set(HeaderInReplyTo, m.InReplyTo)
	}
	m.header(&h)

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return errors.Wrap(err, "creating multipart writer")
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return errors.Wrap(err, "creating text part")
	}
	if _, err := io.WriteString(tw, m.Body); err != nil {
		return errors.Wrap(err, "writing text part")
	}
	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "closing text part")
	}

	a := m.Attachment
	var ah mail.AttachmentHeader
	ah.SetContentType(a.ContentType, nil)
	ah.SetFilename(a.Filename)
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return errors.Wrapf(err, "creating attachment part %q", a.Filename)
	}
	if _, err := aw.Write(a.Data); err != nil {
		return errors.Wrapf(err, "writing attachment %q", a.Filename)
	}
	if err := aw.Close(); err != nil {
		return errors.Wrapf(err, "closing attachment %q", a.Filename)
	}

	return errors.Wrap(mw.Close(), "closing multipart")
}

// Envelope is Gmail's send wrapper: the base64url raw message plus routing metadata.
type Envelope struct {
	Raw      string
	ThreadID string
	LabelIDs []string
}

// NewEnvelope wraps an encoded message.
func NewEnvelope(msg []byte, threadID string, labelIDs ...string) *Envelope {
	return &Envelope{
		Raw:      base64.URLEncoding.EncodeToString(msg),
		ThreadID: threadID,
		LabelIDs: labelIDs,
	}
}

// Decode returns the raw RFC 2822 bytes.
func (e *Envelope) Decode() ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(e.Raw)
	return b, errors.Wrap(err, "decoding raw message")
}

// Message returns the API form of the envelope.
func (e *Envelope) Message() *gmail.Message {
	return &gmail.Message{
		Raw:      e.Raw,
		ThreadId: e.ThreadID,
		LabelIds: e.LabelIDs,
	}
}
