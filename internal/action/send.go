package action

import (
	"context"
	"strings"

	"github.com/kokistudios/mailvox/internal/dialog"
)

func (x *Dispatcher) sendEmail(ctx context.Context, cmd Command) (Outcome, error) {
	name := cmd.Intent.To
	if name == "" {
		answer, err := x.Conversation.Ask(ctx, "Who should I send it to?")
		if err != nil {
			return stop, err
		}
		name = strings.TrimSpace(answer)
	}
	to, ok := x.resolve(name)
	if !ok {
		x.sayf(ctx, "Sorry, I could not find a contact named %s", orSomeone(name))
		return proceed, nil
	}

	subject := cmd.Intent.Subject
	if subject == "" {
		answer, err := x.Conversation.Ask(ctx, "What is the subject?")
		if err != nil {
			return stop, err
		}
		subject = strings.TrimSpace(answer)
	}
	if subject == "" {
		subject = x.Limits.DefaultSubject
	}

	body := cmd.Intent.Body
	if body == "" {
		answer, err := x.Conversation.Dictate(ctx, "What should the email say?")
		if err != nil {
			return stop, err
		}
		body = strings.TrimSpace(answer)
	}
	if body == "" {
		x.say(ctx, "I did not catch the message. Email cancelled")
		return proceed, nil
	}
	if x.Improver != nil {
		body = x.Improver.Improve(ctx, body)
	}

	x.sayf(ctx, "Sending to %s", name)
	x.sayf(ctx, "Subject %s", subject)
	x.sayf(ctx, "Message %s", body)
	ok, err := x.Conversation.Confirm(ctx, "Should I send it?", dialog.VerbSend)
	if err != nil {
		return stop, err
	}
	if !ok {
		x.say(ctx, "Email cancelled")
		return proceed, nil
	}
	if err := x.Mail.Send(ctx, to, subject, body); err != nil {
		return proceed, mailboxErr("send", err)
	}
	x.say(ctx, "Email sent")
	return proceed, nil
}

func orSomeone(name string) string {
	if strings.TrimSpace(name) == "" {
		return "nobody"
	}
	return name
}
