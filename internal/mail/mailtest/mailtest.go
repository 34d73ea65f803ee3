// Package mailtest provides an in-memory mail.Service.
package mailtest

import (
	"context"
	"strings"
	"sync"

	"github.com/kokistudios/mailvox/internal/mail"
)

// Sent is one outgoing message captured by the fake.
type Sent struct {
	To      string
	Subject string
	Body    string
}

// Reply is one reply captured by the fake.
type Reply struct {
	Original mail.Email
	Text     string
}

// Forward is one forward captured by the fake.
type Forward struct {
	Original mail.Email
	To       string
}

// Mailbox holds messages newest first. Unread and Read are filtered by the
// Unseen set; FromSender matches the address as a substring of From.
type Mailbox struct {
	mu       sync.Mutex
	Messages []mail.Email
	Unseen   map[string]bool
	Sent     []Sent
	Replies  []Reply
	Forwards []Forward
	Trashed  []string
	// Err, when set, fails every call.
	Err error
}

// New returns a mailbox holding msgs, newest first.
func New(msgs ...mail.Email) *Mailbox {
	return &Mailbox{Messages: msgs, Unseen: map[string]bool{}}
}

// MarkUnread flags ids as unread.
func (m *Mailbox) MarkUnread(ids ...string) *Mailbox {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.Unseen[id] = true
	}
	return m
}

func (m *Mailbox) Latest(context.Context) (*mail.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Messages) == 0 {
		return nil, nil
	}
	e := m.Messages[0]
	return &e, nil
}

func (m *Mailbox) Unread(_ context.Context, max int) ([]mail.Email, error) {
	return m.filter(max, func(e mail.Email) bool { return m.Unseen[e.ID] })
}

func (m *Mailbox) FromSender(_ context.Context, address string, max int) ([]mail.Email, error) {
	address = strings.ToLower(address)
	return m.filter(max, func(e mail.Email) bool { return strings.Contains(strings.ToLower(e.From), address) })
}

func (m *Mailbox) Read(_ context.Context, max int) ([]mail.Email, error) {
	return m.filter(max, func(e mail.Email) bool { return !m.Unseen[e.ID] })
}

func (m *Mailbox) filter(max int, keep func(mail.Email) bool) ([]mail.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []mail.Email
	for _, e := range m.Messages {
		if len(out) >= max {
			break
		}
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Mailbox) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Sent{To: to, Subject: subject, Body: body})
	return nil
}

func (m *Mailbox) Reply(_ context.Context, original mail.Email, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Replies = append(m.Replies, Reply{Original: original, Text: text})
	return nil
}

func (m *Mailbox) Forward(_ context.Context, original mail.Email, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Forwards = append(m.Forwards, Forward{Original: original, To: to})
	return nil
}

func (m *Mailbox) Trash(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i, e := range m.Messages {
		if e.ID == id {
			m.Messages = append(m.Messages[:i], m.Messages[i+1:]...)
			m.Trashed = append(m.Trashed, id)
			return nil
		}
	}
	return mail.ErrNotFound
}

var _ mail.Service = (*Mailbox)(nil)
