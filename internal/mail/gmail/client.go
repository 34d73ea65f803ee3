// Package gmail implements mail.Service on the Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kokistudios/mailvox/internal/mail"
	"github.com/kokistudios/mailvox/internal/ui"
)

const inboxLabel = "INBOX"

// Client is a mail.Service backed by one Gmail account.
type Client struct {
	svc  *gmail.Service
	user string
}

// New builds a Client over an authorized HTTP client. opts are appended,
// which lets tests point the service at a local endpoint.
func New(ctx context.Context, hc *http.Client, user string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	if user == "" {
		user = "me"
	}
	return &Client{svc: svc, user: user}, nil
}

// Profile returns the mailbox address, used by doctor as a reachability check.
func (c *Client) Profile(ctx context.Context) (string, error) {
	p, err := c.svc.Users.GetProfile(c.user).Context(ctx).Do()
	if err != nil {
		return "", wrap("profile", err)
	}
	return p.EmailAddress, nil
}

func (c *Client) Latest(ctx context.Context) (*mail.Email, error) {
	list, err := c.list(ctx, 1, "", inboxLabel)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (c *Client) Unread(ctx context.Context, max int) ([]mail.Email, error) {
	return c.list(ctx, max, "is:unread", inboxLabel)
}

func (c *Client) FromSender(ctx context.Context, address string, max int) ([]mail.Email, error) {
	return c.list(ctx, max, "from:"+quoteQuery(address))
}

func (c *Client) Read(ctx context.Context, max int) ([]mail.Email, error) {
	return c.list(ctx, max, "-is:unread", inboxLabel)
}

func (c *Client) list(ctx context.Context, max int, query string, labels ...string) ([]mail.Email, error) {
	if max <= 0 {
		return nil, nil
	}
	call := c.svc.Users.Messages.List(c.user).MaxResults(int64(max)).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if len(labels) > 0 {
		call = call.LabelIds(labels...)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, wrap("listing messages", err)
	}
	out := make([]mail.Email, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		e, err := c.get(ctx, ref.Id)
		if errors.Is(err, mail.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, id string) (mail.Email, error) {
	msg, err := c.svc.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return mail.Email{}, wrap("fetching message "+id, err)
	}
	return toEmail(msg), nil
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	return c.send(ctx, mail.Draft{To: to, Subject: subject, Body: body}, "")
}

func (c *Client) Reply(ctx context.Context, original mail.Email, text string) error {
	return c.send(ctx, mail.ReplyDraft(original, text), original.ThreadID)
}

// Forward attaches the original's full source so attachments and HTML travel
// with it. If the source cannot be fetched the readable text is quoted inline.
func (c *Client) Forward(ctx context.Context, original mail.Email, to string) error {
	raw, err := c.source(ctx, original.ID)
	if err != nil {
		ui.Logger.Warn("forwarding without original source", "id", original.ID, "err", err)
		raw = nil
	}
	return c.send(ctx, mail.ForwardDraft(original, to, raw), "")
}

func (c *Client) source(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, nil
	}
	msg, err := c.svc.Users.Messages.Get(c.user, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, wrap("fetching source of "+id, err)
	}
	return decode(msg.Raw)
}

func (c *Client) send(ctx context.Context, d mail.Draft, threadID string) error {
	raw, err := mail.ComposeMessage(d)
	if err != nil {
		return err
	}
	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw),
		ThreadId: threadID,
	}
	if _, err := c.svc.Users.Messages.Send(c.user, msg).Context(ctx).Do(); err != nil {
		return wrap("sending message", err)
	}
	return nil
}

func (c *Client) Trash(ctx context.Context, id string) error {
	if _, err := c.svc.Users.Messages.Trash(c.user, id).Context(ctx).Do(); err != nil {
		return wrap("trashing message "+id, err)
	}
	return nil
}

func toEmail(msg *gmail.Message) mail.Email {
	e := mail.Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.Payload == nil {
		return e
	}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			e.From = h.Value
		case "reply-to":
			e.ReplyTo = h.Value
		case "to":
			e.To = h.Value
		case "date":
			e.Date = h.Value
		case "subject":
			e.Subject = h.Value
		case "message-id":
			e.MessageID = h.Value
		case "references":
			e.References = h.Value
		}
	}
	walk(msg.Payload, &e)
	return e
}

// walk collects the first text/plain and text/html bodies and every named
// file part.
func walk(part *gmail.MessagePart, e *mail.Email) {
	if part == nil {
		return
	}
	if part.Filename != "" {
		var size int64
		if part.Body != nil {
			size = part.Body.Size
		}
		e.Attachments = append(e.Attachments, mail.Attachment{
			Filename: part.Filename,
			MIMEType: part.MimeType,
			Size:     size,
		})
		return
	}
	if part.Body != nil && part.Body.Data != "" {
		switch {
		case strings.HasPrefix(part.MimeType, "text/plain") && e.Body == "":
			if b, err := decode(part.Body.Data); err == nil {
				e.Body = string(b)
			}
		case strings.HasPrefix(part.MimeType, "text/html") && e.HTML == "":
			if b, err := decode(part.Body.Data); err == nil {
				e.HTML = string(b)
			}
		}
	}
	for _, p := range part.Parts {
		walk(p, e)
	}
}

func decode(data string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("decoding message data: %w", err)
	}
	return b, nil
}

func quoteQuery(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, " \t") {
		return `"` + strings.ReplaceAll(s, `"`, "") + `"`
	}
	return s
}

func wrap(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, mail.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ mail.Service = (*Client)(nil)
