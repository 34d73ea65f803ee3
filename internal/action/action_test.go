package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokistudios/mailvox/internal/contacts"
	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/mail"
	"github.com/kokistudios/mailvox/internal/mail/mailtest"
	"github.com/kokistudios/mailvox/internal/voice/voicetest"
)

type prefixImprover struct{ calls []string }

func (c *prefixImprover) Improve(_ context.Context, text string) string {
	c.calls = append(c.calls, text)
	return "Improved: " + text
}

type fixture struct {
	d        *Dispatcher
	script   *voicetest.Script
	box      *mailtest.Mailbox
	improver *prefixImprover
}

func setup(t *testing.T, box *mailtest.Mailbox, replies ...string) fixture {
	t.Helper()
	script := voicetest.New(replies...)
	imp := &prefixImprover{}
	d := NewDispatcher(Deps{
		Conversation: dialog.New(script.Kit(), dialog.WithAudioDir(t.TempDir())),
		Mail:         box,
		Contacts: contacts.New(
			contacts.Contact{Name: "Bob Stone", Email: "bob@example.com"},
			contacts.Contact{Name: "Alice Wong", Email: "alice@example.com"},
		),
		Improver: imp,
	})
	return fixture{d: d, script: script, box: box, improver: imp}
}

func cmd(kind intent.Kind, utterance string) Command {
	return Command{Utterance: utterance, Intent: intent.Intent{Kind: kind}}
}

func lunch() mail.Email {
	return mail.Email{ID: "m1", ThreadID: "t1", From: "Bob Stone <bob@example.com>", Subject: "Lunch", Body: "See you at noon", Snippet: "See you at noon"}
}

func threeFromBob() *mailtest.Mailbox {
	return mailtest.New(
		mail.Email{ID: "b1", From: "Bob Stone <bob@example.com>", Subject: "One", Snippet: "first"},
		mail.Email{ID: "b2", From: "Bob Stone <bob@example.com>", Subject: "Two", Snippet: "second"},
		mail.Email{ID: "b3", From: "Bob Stone <bob@example.com>", Subject: "Three", Snippet: "third"},
	)
}

func TestSend_ConfirmedFlow(t *testing.T) {
	f := setup(t, mailtest.New(), "Lunch plans", "yes")
	out, err := f.d.Dispatch(context.Background(), Command{
		Utterance: "send an email to bob saying hello",
		Intent:    intent.Intent{Kind: intent.KindSendEmail, To: "bob", Body: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Continue: true, Understood: true}, out)

	require.Len(t, f.box.Sent, 1)
	assert.Equal(t, mailtest.Sent{To: "bob@example.com", Subject: "Lunch plans", Body: "Improved: hello"}, f.box.Sent[0])
	assert.Equal(t, []string{"hello"}, f.improver.calls)
	assert.True(t, f.script.Said("Message Improved: hello"))
	assert.Equal(t, "Email sent", f.script.Last())
}

func TestSend_NegativeConfirmationSendsNothing(t *testing.T) {
	for _, answer := range []string{"no", "", "delete"} {
		f := setup(t, mailtest.New(), "Lunch", answer)
		_, err := f.d.Dispatch(context.Background(), Command{
			Intent: intent.Intent{Kind: intent.KindSendEmail, To: "bob", Body: "hello"},
		})
		require.NoError(t, err)
		assert.Empty(t, f.box.Sent, "answer %q", answer)
		assert.Equal(t, "Email cancelled", f.script.Last())
	}
}

func TestSend_ElicitsEverything(t *testing.T) {
	f := setup(t, mailtest.New(), "Alice Wong", "", "running late", "send it")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindSendEmail, "send an email"))
	require.NoError(t, err)

	require.Len(t, f.box.Sent, 1)
	assert.Equal(t, "alice@example.com", f.box.Sent[0].To)
	assert.Equal(t, "Voice Assistant Message", f.box.Sent[0].Subject)
	require.Len(t, f.script.Captures, 4)
	assert.Contains(t, f.script.Captures[2].Path, "body.wav")
}

func TestSend_UnknownRecipientAborts(t *testing.T) {
	f := setup(t, mailtest.New())
	out, err := f.d.Dispatch(context.Background(), Command{
		Intent: intent.Intent{Kind: intent.KindSendEmail, To: "zed", Body: "hello"},
	})
	require.NoError(t, err)
	assert.True(t, out.Continue)
	assert.Equal(t, []string{"Sorry, I could not find a contact named zed"}, f.script.Spoken)
	assert.Empty(t, f.script.Captures)
}

func TestSend_ShutdownMidFlow(t *testing.T) {
	f := setup(t, mailtest.New(), "exit")
	_, err := f.d.Dispatch(context.Background(), Command{
		Intent: intent.Intent{Kind: intent.KindSendEmail, To: "bob", Body: "hello"},
	})
	assert.ErrorIs(t, err, dialog.ErrShutdown)
	assert.Empty(t, f.box.Sent)
	assert.Equal(t, "What is the subject?", f.script.Last())
}

func TestReadLatest_EmptyInbox(t *testing.T) {
	f := setup(t, mailtest.New())
	out, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, "read my email"))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Continue: true, Understood: true}, out)
	assert.Equal(t, []string{"Your inbox is empty"}, f.script.Spoken)
	assert.Empty(t, f.script.Captures)
}

func TestReadLatest_AnnouncesAndReadsHTML(t *testing.T) {
	e := mail.Email{
		ID: "m1", From: "Bob Stone <bob@example.com>", Subject: "Newsletter",
		HTML:        `<p>Big <b>news</b></p><img src="x.png">`,
		Attachments: []mail.Attachment{{Filename: "a.pdf"}, {Filename: "b.pdf"}},
	}
	f := setup(t, mailtest.New(e), "yes", "no thanks")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, "read my email"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Email from Bob Stone",
		"Subject Newsletter",
		"This email contains formatted HTML content",
		"This email contains images",
		"This email has 2 attachments",
		"Do you want me to read the email body?",
		"Reading extracted text from HTML email",
		"Big news",
		"Do you want to reply or forward this email?",
	}, f.script.Spoken)
	assert.Empty(t, f.box.Replies)
	assert.Empty(t, f.box.Forwards)
}

func TestReadLatest_NoReadableText(t *testing.T) {
	f := setup(t, mailtest.New(mail.Email{ID: "m1", From: "bob@example.com", Subject: "Empty"}), "okay", "")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, ""))
	require.NoError(t, err)
	assert.True(t, f.script.Said("This email does not contain readable text"))
}

func TestReadLatest_Reply(t *testing.T) {
	f := setup(t, mailtest.New(lunch()), "sure", "reply", "sounds good", "yes")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, ""))
	require.NoError(t, err)

	assert.True(t, f.script.Said("See you at noon"))
	require.Len(t, f.box.Replies, 1)
	assert.Equal(t, "m1", f.box.Replies[0].Original.ID)
	assert.Equal(t, "sounds good", f.box.Replies[0].Text)
	assert.Equal(t, "Reply sent", f.script.Last())
}

func TestReadLatest_ReplyNeedsConfirmation(t *testing.T) {
	f := setup(t, mailtest.New(lunch()), "no", "reply please", "sounds good", "wait no")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, ""))
	require.NoError(t, err)
	assert.Empty(t, f.box.Replies)
	assert.Equal(t, "Reply cancelled", f.script.Last())
}

func TestReadLatest_Forward(t *testing.T) {
	f := setup(t, mailtest.New(lunch()), "no", "forward it", "alice wong", "yes")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, ""))
	require.NoError(t, err)

	require.Len(t, f.box.Forwards, 1)
	assert.Equal(t, "alice@example.com", f.box.Forwards[0].To)
	assert.True(t, f.script.Said("Forward this email to alice wong?"))
	assert.Equal(t, "Email forwarded", f.script.Last())
}

func TestReadLatest_ForwardUnknownContact(t *testing.T) {
	f := setup(t, mailtest.New(lunch()), "no", "forward", "zed")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, ""))
	require.NoError(t, err)
	assert.Empty(t, f.box.Forwards)
	assert.Equal(t, "Sorry, I could not find a contact named zed", f.script.Last())
	assert.Zero(t, f.script.Remaining())
}

func TestReadUnread_SelectAndTrash(t *testing.T) {
	box := threeFromBob().MarkUnread("b1", "b2", "b3")
	f := setup(t, box, "two", "neither", "yes")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadUnreadEmails, ""))
	require.NoError(t, err)

	assert.True(t, f.script.Said("You have 3 unread emails"))
	assert.True(t, f.script.Said("Email 2 from Bob Stone. Subject Two"))
	assert.True(t, f.script.Said("second"))
	assert.Equal(t, []string{"b2"}, box.Trashed)
	assert.Equal(t, "Email moved to trash", f.script.Last())
}

func TestReadUnread_None(t *testing.T) {
	f := setup(t, threeFromBob())
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadUnreadEmails, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"You have no unread emails"}, f.script.Spoken)
}

func TestReadUnread_LimitsList(t *testing.T) {
	var msgs []mail.Email
	var ids []string
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		msgs = append(msgs, mail.Email{ID: id, From: "x@example.com", Subject: id})
		ids = append(ids, id)
	}
	box := mailtest.New(msgs...).MarkUnread(ids...)
	f := setup(t, box, "eleven")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadUnreadEmails, ""))
	require.NoError(t, err)
	assert.True(t, f.script.Said("You have 10 unread emails"))
	assert.Equal(t, "Invalid choice", f.script.Last())
}

func TestReadFromSender_LiteralFallback(t *testing.T) {
	box := mailtest.New(mail.Email{ID: "c1", From: "Carol <carol@example.com>", Subject: "Hi", Snippet: "hello there"})
	f := setup(t, box, "1", "neither")
	_, err := f.d.Dispatch(context.Background(), Command{Intent: intent.Intent{Kind: intent.KindReadEmailFromSender, To: "Carol"}})
	require.NoError(t, err)
	assert.True(t, f.script.Said("Email from Carol"))
	assert.True(t, f.script.Said("hello there"))
	assert.Empty(t, box.Trashed)
}

func TestReadFromSender_None(t *testing.T) {
	f := setup(t, mailtest.New())
	_, err := f.d.Dispatch(context.Background(), Command{Intent: intent.Intent{Kind: intent.KindReadEmailFromSender, To: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"No emails from bob"}, f.script.Spoken)
}

func TestSummarize(t *testing.T) {
	f := setup(t, mailtest.New(lunch()))
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindSummarizeLatestEmail, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Latest email subject is Lunch"}, f.script.Spoken)

	f = setup(t, mailtest.New())
	_, err = f.d.Dispatch(context.Background(), cmd(intent.KindSummarizeLatestEmail, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"No email to summarize"}, f.script.Spoken)
}

func TestDeleteLatest(t *testing.T) {
	box := mailtest.New(lunch())
	f := setup(t, box, "yes")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindDeleteLatestEmail, "delete my latest email"))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, box.Trashed)
	assert.Equal(t, "Email deleted", f.script.Last())

	box = mailtest.New(lunch())
	f = setup(t, box, "hmm")
	_, err = f.d.Dispatch(context.Background(), cmd(intent.KindDeleteLatestEmail, "delete the unread one"))
	require.NoError(t, err)
	assert.Empty(t, box.Trashed)
	assert.Equal(t, "Deletion cancelled", f.script.Last())

	f = setup(t, mailtest.New())
	_, err = f.d.Dispatch(context.Background(), cmd(intent.KindDeleteLatestEmail, "delete"))
	require.NoError(t, err)
	assert.Equal(t, []string{"No email to delete"}, f.script.Spoken)
}

func TestDeleteLatest_BulkRead(t *testing.T) {
	box := threeFromBob().MarkUnread("b1")
	f := setup(t, box, "yes")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindDeleteLatestEmail, "delete all read emails"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b3"}, box.Trashed)
	assert.Equal(t, "Deleted 2 read emails", f.script.Last())
}

func TestDeleteLatest_BulkNothingToDelete(t *testing.T) {
	box := threeFromBob().MarkUnread("b1", "b2", "b3")
	f := setup(t, box, "yes")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindDeleteLatestEmail, "delete read emails"))
	require.NoError(t, err)
	assert.Empty(t, box.Trashed)
	assert.Equal(t, "There are no read emails to delete", f.script.Last())
}

func TestDeleteLatest_BulkDeclined(t *testing.T) {
	box := threeFromBob()
	f := setup(t, box, "no")
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindDeleteLatestEmail, "delete everything I read"))
	require.NoError(t, err)
	assert.Empty(t, box.Trashed)
	assert.Equal(t, "Deletion cancelled", f.script.Last())
}

func TestDeleteFromSender_InvalidChoice(t *testing.T) {
	box := threeFromBob()
	f := setup(t, box, "five")
	out, err := f.d.Dispatch(context.Background(), Command{Intent: intent.Intent{Kind: intent.KindDeleteEmailFromSender, To: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Continue: true, Understood: true}, out)
	assert.Equal(t, "Invalid choice", f.script.Last())
	assert.Empty(t, box.Trashed)
	assert.Zero(t, f.script.Remaining())
}

func TestDeleteFromSender_Confirmed(t *testing.T) {
	box := threeFromBob()
	f := setup(t, box, "the third", "delete it")
	_, err := f.d.Dispatch(context.Background(), Command{Intent: intent.Intent{Kind: intent.KindDeleteEmailFromSender, To: "Bob Stone"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b3"}, box.Trashed)
}

func TestCancelAndUnknown(t *testing.T) {
	f := setup(t, mailtest.New())
	out, err := f.d.Dispatch(context.Background(), cmd(intent.KindCancel, "cancel"))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Continue: false, Understood: true}, out)
	assert.Equal(t, "Okay. Going back to sleep.", f.script.Last())

	out, err = f.d.Dispatch(context.Background(), Command{Intent: intent.Unknown()})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Continue: true, Understood: false}, out)
	assert.Equal(t, "Sorry, I did not understand", f.script.Last())
}

func TestMailboxFailureIsMarked(t *testing.T) {
	box := mailtest.New(lunch())
	box.Err = errors.New("quota exceeded")
	f := setup(t, box)
	_, err := f.d.Dispatch(context.Background(), cmd(intent.KindReadLatestEmail, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMailbox)
	assert.Contains(t, err.Error(), "quota exceeded")
}
