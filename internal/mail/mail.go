// Package mail models the mailbox the assistant reads from and writes to.
package mail

import (
	"context"
	"errors"
	netmail "net/mail"
	"strings"
)

// ErrNotFound is returned when a message id no longer exists.
var ErrNotFound = errors.New("message not found")

// Email is one fetched message. Optional parts are empty when absent.
type Email struct {
	ID          string
	ThreadID    string
	MessageID   string
	References  string
	From        string
	ReplyTo     string
	To          string
	Date        string
	Subject     string
	Body        string
	HTML        string
	Snippet     string
	Attachments []Attachment
}

// Attachment describes a file part without its content.
type Attachment struct {
	Filename string
	MIMEType string
	Size     int64
}

// Service is the mailbox. List operations return newest first and an empty
// slice (or nil Email) when nothing matches.
type Service interface {
	Latest(ctx context.Context) (*Email, error)
	Unread(ctx context.Context, max int) ([]Email, error)
	FromSender(ctx context.Context, address string, max int) ([]Email, error)
	Read(ctx context.Context, max int) ([]Email, error)
	Send(ctx context.Context, to, subject, body string) error
	// Reply answers original on its thread with a derived subject.
	Reply(ctx context.Context, original Email, text string) error
	// Forward sends the full original message to another address.
	Forward(ctx context.Context, original Email, to string) error
	Trash(ctx context.Context, id string) error
}

// SenderName returns the display name from a From header, or the bare
// address when there is none.
func SenderName(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return "an unknown sender"
	}
	addr, err := netmail.ParseAddress(from)
	if err != nil {
		return strings.Trim(from, `"<> `)
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}

// Address extracts the bare address from a header value.
func Address(header string) string {
	addr, err := netmail.ParseAddress(strings.TrimSpace(header))
	if err != nil {
		return strings.Trim(strings.TrimSpace(header), "<>")
	}
	return addr.Address
}

// ReplySubject prefixes "Re: " unless the subject already carries it.
func ReplySubject(subject string) string {
	return prefixOnce(subject, "Re: ", "re:")
}

// ForwardSubject prefixes "Fwd: " unless the subject is already a forward.
func ForwardSubject(subject string) string {
	return prefixOnce(subject, "Fwd: ", "fwd:", "fw:")
}

func prefixOnce(subject, prefix string, existing ...string) string {
	trimmed := strings.TrimSpace(subject)
	lower := strings.ToLower(trimmed)
	for _, e := range existing {
		if strings.HasPrefix(lower, e) {
			return trimmed
		}
	}
	return prefix + trimmed
}
