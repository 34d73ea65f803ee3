package action

import (
	"context"
	"strings"

	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/mail"
)

func (x *Dispatcher) readLatest(ctx context.Context, _ Command) (Outcome, error) {
	e, err := x.Mail.Latest(ctx)
	if err != nil {
		return proceed, mailboxErr("latest", err)
	}
	if e == nil {
		x.say(ctx, "Your inbox is empty")
		return proceed, nil
	}
	x.announce(ctx, *e)

	a := mail.Analyze(*e)
	if a.HasHTML {
		x.say(ctx, "This email contains formatted HTML content")
	}
	if a.HasImages {
		x.say(ctx, "This email contains images")
	}
	if a.Attachments > 0 {
		x.sayf(ctx, "This email has %s", plural(a.Attachments, "attachment"))
	}

	ok, err := x.Conversation.Confirm(ctx, "Do you want me to read the email body?", dialog.VerbRead)
	if err != nil {
		return stop, err
	}
	if ok {
		x.readBody(ctx, *e)
	}
	return x.replyOrForward(ctx, *e)
}

func (x *Dispatcher) readBody(ctx context.Context, e mail.Email) {
	text, fromHTML := mail.Readable(e)
	switch {
	case text == "":
		x.say(ctx, "This email does not contain readable text")
	case fromHTML:
		x.say(ctx, "Reading extracted text from HTML email")
		x.say(ctx, text)
	default:
		x.say(ctx, text)
	}
}

func (x *Dispatcher) readUnread(ctx context.Context, _ Command) (Outcome, error) {
	emails, err := x.Mail.Unread(ctx, x.Limits.Unread)
	if err != nil {
		return proceed, mailboxErr("unread", err)
	}
	if len(emails) == 0 {
		x.say(ctx, "You have no unread emails")
		return proceed, nil
	}
	x.sayf(ctx, "You have %s", plural(len(emails), "unread email"))

	e, ok, err := x.pick(ctx, emails, "Which email should I read?")
	if err != nil || !ok {
		return proceed, err
	}
	x.preview(ctx, e)
	if out, err := x.replyOrForward(ctx, e); err != nil {
		return out, err
	}

	trash, err := x.Conversation.Confirm(ctx, "Do you want me to move this email to trash?", dialog.VerbDelete)
	if err != nil {
		return stop, err
	}
	if !trash {
		x.say(ctx, "Okay, keeping it")
		return proceed, nil
	}
	if err := x.Mail.Trash(ctx, e.ID); err != nil {
		return proceed, mailboxErr("trash", err)
	}
	x.say(ctx, "Email moved to trash")
	return proceed, nil
}

func (x *Dispatcher) readFromSender(ctx context.Context, cmd Command) (Outcome, error) {
	emails, who, err := x.fromSender(ctx, cmd.Intent.To)
	if err != nil {
		return proceed, err
	}
	if len(emails) == 0 {
		x.sayf(ctx, "No emails from %s", who)
		return proceed, nil
	}
	e, ok, err := x.pick(ctx, emails, "Which email should I read?")
	if err != nil || !ok {
		return proceed, err
	}
	x.preview(ctx, e)
	return x.replyOrForward(ctx, e)
}

func (x *Dispatcher) summarizeLatest(ctx context.Context, _ Command) (Outcome, error) {
	e, err := x.Mail.Latest(ctx)
	if err != nil {
		return proceed, mailboxErr("latest", err)
	}
	if e == nil {
		x.say(ctx, "No email to summarize")
		return proceed, nil
	}
	x.sayf(ctx, "Latest email subject is %s", e.Subject)
	return proceed, nil
}

// fromSender looks up recent mail from a spoken name. Unknown names are
// searched literally.
func (x *Dispatcher) fromSender(ctx context.Context, name string) ([]mail.Email, string, error) {
	who := strings.TrimSpace(name)
	if who == "" {
		answer, err := x.Conversation.Ask(ctx, "Whose emails?")
		if err != nil {
			return nil, "", err
		}
		who = strings.TrimSpace(answer)
	}
	addr, ok := x.resolve(who)
	if !ok {
		addr = who
	}
	if addr == "" {
		return nil, orSomeone(who), nil
	}
	emails, err := x.Mail.FromSender(ctx, addr, x.Limits.Sender)
	if err != nil {
		return nil, who, mailboxErr("from sender", err)
	}
	return emails, who, nil
}

// pick enumerates emails and asks for one. An unusable answer is reported
// as an invalid choice.
func (x *Dispatcher) pick(ctx context.Context, emails []mail.Email, prompt string) (mail.Email, bool, error) {
	for i, e := range emails {
		x.sayf(ctx, "Email %d from %s. Subject %s", i+1, mail.SenderName(e.From), e.Subject)
	}
	idx, ok, err := x.Conversation.Choose(ctx, prompt, len(emails))
	if err != nil {
		return mail.Email{}, false, err
	}
	if !ok {
		x.say(ctx, "Invalid choice")
		return mail.Email{}, false, nil
	}
	return emails[idx], true, nil
}

func (x *Dispatcher) announce(ctx context.Context, e mail.Email) {
	x.sayf(ctx, "Email from %s", mail.SenderName(e.From))
	x.sayf(ctx, "Subject %s", e.Subject)
}

func (x *Dispatcher) preview(ctx context.Context, e mail.Email) {
	x.announce(ctx, e)
	if s := strings.TrimSpace(e.Snippet); s != "" {
		x.say(ctx, s)
	}
}
