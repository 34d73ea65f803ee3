package action

import (
	"context"
	"strings"

	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/mail"
)

// replyOrForward offers the follow-up for a message that was just read. An
// answer naming neither is a silent no-op.
func (x *Dispatcher) replyOrForward(ctx context.Context, e mail.Email) (Outcome, error) {
	answer, err := x.Conversation.Ask(ctx, "Do you want to reply or forward this email?")
	if err != nil {
		return stop, err
	}
	answer = strings.ToLower(answer)
	switch {
	case strings.Contains(answer, dialog.VerbReply):
		return x.reply(ctx, e)
	case strings.Contains(answer, dialog.VerbForward):
		return x.forward(ctx, e)
	}
	return proceed, nil
}

func (x *Dispatcher) reply(ctx context.Context, e mail.Email) (Outcome, error) {
	text, err := x.Conversation.Dictate(ctx, "What should the reply say?")
	if err != nil {
		return stop, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		x.say(ctx, "I did not catch the reply. Reply cancelled")
		return proceed, nil
	}
	ok, err := x.Conversation.Confirm(ctx, "Should I send the reply?", dialog.VerbReply)
	if err != nil {
		return stop, err
	}
	if !ok {
		x.say(ctx, "Reply cancelled")
		return proceed, nil
	}
	if err := x.Mail.Reply(ctx, e, text); err != nil {
		return proceed, mailboxErr("reply", err)
	}
	x.say(ctx, "Reply sent")
	return proceed, nil
}

func (x *Dispatcher) forward(ctx context.Context, e mail.Email) (Outcome, error) {
	name, err := x.Conversation.Ask(ctx, "Who should I forward it to?")
	if err != nil {
		return stop, err
	}
	name = strings.TrimSpace(name)
	to, ok := x.resolve(name)
	if !ok {
		x.sayf(ctx, "Sorry, I could not find a contact named %s", orSomeone(name))
		return proceed, nil
	}
	ok, err = x.Conversation.Confirm(ctx, "Forward this email to "+name+"?", dialog.VerbForward)
	if err != nil {
		return stop, err
	}
	if !ok {
		x.say(ctx, "Forward cancelled")
		return proceed, nil
	}
	if err := x.Mail.Forward(ctx, e, to); err != nil {
		return proceed, mailboxErr("forward", err)
	}
	x.say(ctx, "Email forwarded")
	return proceed, nil
}
