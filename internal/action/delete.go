package action

import (
	"context"
	"regexp"

	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/mail"
	"github.com/kokistudios/mailvox/internal/ui"
)

// bulkMarker turns "delete" into "delete everything already read".
var bulkMarker = regexp.MustCompile(`(?i)\bread\b`)

func (x *Dispatcher) deleteLatest(ctx context.Context, cmd Command) (Outcome, error) {
	if bulkMarker.MatchString(cmd.Utterance) {
		return x.deleteRead(ctx)
	}
	e, err := x.Mail.Latest(ctx)
	if err != nil {
		return proceed, mailboxErr("latest", err)
	}
	if e == nil {
		x.say(ctx, "No email to delete")
		return proceed, nil
	}
	x.announce(ctx, *e)
	return x.confirmTrash(ctx, *e)
}

func (x *Dispatcher) deleteRead(ctx context.Context) (Outcome, error) {
	ok, err := x.Conversation.Confirm(ctx, "Are you sure you want to delete all read emails?", dialog.VerbDelete)
	if err != nil {
		return stop, err
	}
	if !ok {
		x.say(ctx, "Deletion cancelled")
		return proceed, nil
	}
	emails, err := x.Mail.Read(ctx, x.Limits.BulkDelete)
	if err != nil {
		return proceed, mailboxErr("read list", err)
	}
	if len(emails) == 0 {
		x.say(ctx, "There are no read emails to delete")
		return proceed, nil
	}
	deleted, failed := 0, 0
	for _, e := range emails {
		if err := x.Mail.Trash(ctx, e.ID); err != nil {
			if ctx.Err() != nil {
				return stop, ctx.Err()
			}
			ui.Logger.Warn("bulk trash failed", "id", e.ID, "err", err)
			failed++
			continue
		}
		deleted++
	}
	x.sayf(ctx, "Deleted %s", plural(deleted, "read email"))
	if failed > 0 {
		x.sayf(ctx, "I could not delete %s", plural(failed, "email"))
	}
	return proceed, nil
}

func (x *Dispatcher) deleteFromSender(ctx context.Context, cmd Command) (Outcome, error) {
	emails, who, err := x.fromSender(ctx, cmd.Intent.To)
	if err != nil {
		return proceed, err
	}
	if len(emails) == 0 {
		x.sayf(ctx, "No emails from %s", who)
		return proceed, nil
	}
	e, ok, err := x.pick(ctx, emails, "Which email should I delete?")
	if err != nil || !ok {
		return proceed, err
	}
	return x.confirmTrash(ctx, e)
}

func (x *Dispatcher) confirmTrash(ctx context.Context, e mail.Email) (Outcome, error) {
	ok, err := x.Conversation.Confirm(ctx, "Are you sure you want to delete this email?", dialog.VerbDelete)
	if err != nil {
		return stop, err
	}
	if !ok {
		x.say(ctx, "Deletion cancelled")
		return proceed, nil
	}
	if err := x.Mail.Trash(ctx, e.ID); err != nil {
		return proceed, mailboxErr("trash", err)
	}
	x.say(ctx, "Email deleted")
	return proceed, nil
}
