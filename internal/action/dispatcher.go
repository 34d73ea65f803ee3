// Package action maps resolved intents to the spoken dialogs that carry them
// out against the mailbox.
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/mail"
	"github.com/kokistudios/mailvox/internal/ui"
)

// ErrMailbox marks failures of the mail service. The action that hit it is
// abandoned; whether the session goes on is the caller's call.
var ErrMailbox = errors.New("mailbox unavailable")

// Contacts resolves spoken names to addresses.
type Contacts interface {
	Resolve(name string) (string, bool)
}

// Improver polishes dictated text.
type Improver interface {
	Improve(ctx context.Context, text string) string
}

// Limits bounds list sizes and fills defaults.
type Limits struct {
	Unread         int
	Sender         int
	BulkDelete     int
	DefaultSubject string
}

// DefaultLimits lists ten unread, three per sender and trashes at most 500 at once.
func DefaultLimits() Limits {
	return Limits{Unread: 10, Sender: 3, BulkDelete: 500, DefaultSubject: "Voice Assistant Message"}
}

// Deps are the collaborators every handler may use.
type Deps struct {
	Conversation *dialog.Conversation
	Mail         mail.Service
	Contacts     Contacts
	Improver     Improver
	Limits       Limits
}

// Command is one understood utterance.
type Command struct {
	Utterance string
	Intent    intent.Intent
}

// Outcome tells the session what happened.
type Outcome struct {
	// Continue is false when the user asked to end the session.
	Continue bool
	// Understood is false only for commands that mapped to no action.
	Understood bool
}

var (
	proceed = Outcome{Continue: true, Understood: true}
	stop    = Outcome{Continue: false, Understood: true}
	unknown = Outcome{Continue: true, Understood: false}
)

type handler func(ctx context.Context, cmd Command) (Outcome, error)

// Dispatcher routes commands to handlers.
type Dispatcher struct {
	Deps
	handlers map[intent.Kind]handler
}

// NewDispatcher wires the eight handlers. Zero limits fall back to DefaultLimits.
func NewDispatcher(d Deps) *Dispatcher {
	def := DefaultLimits()
	if d.Limits.Unread <= 0 {
		d.Limits.Unread = def.Unread
	}
	if d.Limits.Sender <= 0 {
		d.Limits.Sender = def.Sender
	}
	if d.Limits.BulkDelete <= 0 {
		d.Limits.BulkDelete = def.BulkDelete
	}
	if strings.TrimSpace(d.Limits.DefaultSubject) == "" {
		d.Limits.DefaultSubject = def.DefaultSubject
	}
	x := &Dispatcher{Deps: d}
	x.handlers = map[intent.Kind]handler{
		intent.KindSendEmail:             x.sendEmail,
		intent.KindReadLatestEmail:       x.readLatest,
		intent.KindReadUnreadEmails:      x.readUnread,
		intent.KindReadEmailFromSender:   x.readFromSender,
		intent.KindSummarizeLatestEmail:  x.summarizeLatest,
		intent.KindDeleteLatestEmail:     x.deleteLatest,
		intent.KindDeleteEmailFromSender: x.deleteFromSender,
		intent.KindCancel:                x.cancel,
	}
	return x
}

// Dispatch runs the handler for cmd. Errors are dialog.ErrShutdown, context
// cancellation, or mailbox failures wrapping ErrMailbox.
func (x *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	h, ok := x.handlers[cmd.Intent.Kind]
	if !ok {
		x.say(ctx, "Sorry, I did not understand")
		return unknown, nil
	}
	ui.Logger.Debug("dispatch", "intent", cmd.Intent.Kind)
	return h(ctx, cmd)
}

func (x *Dispatcher) cancel(ctx context.Context, _ Command) (Outcome, error) {
	x.say(ctx, "Okay. Going back to sleep.")
	return stop, nil
}

func (x *Dispatcher) say(ctx context.Context, text string) {
	x.Conversation.Say(ctx, text)
}

func (x *Dispatcher) sayf(ctx context.Context, format string, args ...any) {
	x.Conversation.Sayf(ctx, format, args...)
}

// resolve maps a spoken name to an address through the contact directory.
func (x *Dispatcher) resolve(name string) (string, bool) {
	if x.Contacts == nil {
		return "", false
	}
	return x.Contacts.Resolve(name)
}

func mailboxErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMailbox, op, err)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
