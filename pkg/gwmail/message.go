package gwmail

import (
	"strings"

	"google.golang.org/api/gmail/v1"
)

// Header names gwmail reads from or writes to messages.
const (
	HeaderFrom       = "From"
	HeaderTo         = "To"
	HeaderSubject    = "Subject"
	HeaderMessageID  = "Message-ID"
	HeaderInReplyTo  = "In-Reply-To"
	HeaderReferences = "References"
)

// Summary is the display form of a listed message.
type Summary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
}

// ExtractAddress returns the address inside the angle brackets of a
// "Display Name <addr>" header value, or "" when there are none.
func ExtractAddress(value string) string {
	_, rest, found := strings.Cut(value, "<")
	if !found {
		return ""
	}
	addr, _, _ := strings.Cut(rest, ">")
	return strings.TrimSpace(addr)
}

// Headers collects the payload headers of msg keyed by canonical name. Lookups are
// case-insensitive; a repeated header keeps its last value.
func Headers(msg *gmail.Message) map[string]string {
	h := map[string]string{}
	if msg == nil || msg.Payload == nil {
		return h
	}
	for _, hd := range msg.Payload.Headers {
		h[strings.ToLower(hd.Name)] = hd.Value
	}
	return h
}

func header(h map[string]string, name string) string {
	return h[strings.ToLower(name)]
}

// Summarize builds the listing line data for a message fetched with its From and
// Subject headers.
func Summarize(msg *gmail.Message) Summary {
	h := Headers(msg)
	return Summary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  header(h, HeaderSubject),
		From:     ExtractAddress(header(h, HeaderFrom)),
	}
}
