package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"
)

// Draft is an outgoing message before MIME encoding.
type Draft struct {
	To         string
	Subject    string
	Body       string
	InReplyTo  string
	References string
	// Enclosed is a complete RFC 5322 message attached as message/rfc822.
	Enclosed []byte
	Date     time.Time
}

// ReplyDraft derives the reply to original: subject, recipient and
// threading headers.
func ReplyDraft(original Email, text string) Draft {
	to := original.ReplyTo
	if strings.TrimSpace(to) == "" {
		to = original.From
	}
	refs := strings.TrimSpace(strings.TrimSpace(original.References) + " " + original.MessageID)
	return Draft{
		To:         to,
		Subject:    ReplySubject(original.Subject),
		Body:       text,
		InReplyTo:  original.MessageID,
		References: refs,
	}
}

// ForwardDraft wraps original for to. raw is the original's full source when
// the mailbox can supply it; otherwise the readable text is quoted inline.
func ForwardDraft(original Email, to string, raw []byte) Draft {
	var b strings.Builder
	b.WriteString("---------- Forwarded message ---------\n")
	fmt.Fprintf(&b, "From: %s\n", original.From)
	if original.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", original.Date)
	}
	fmt.Fprintf(&b, "Subject: %s\n", original.Subject)
	if original.To != "" {
		fmt.Fprintf(&b, "To: %s\n", original.To)
	}
	if len(raw) == 0 {
		text, _ := Readable(original)
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return Draft{
		To:       to,
		Subject:  ForwardSubject(original.Subject),
		Body:     b.String(),
		Enclosed: raw,
	}
}

// ComposeMessage encodes d as an RFC 5322 message. Plain drafts are a single
// text/plain part; drafts with an enclosure become multipart/mixed.
func ComposeMessage(d Draft) ([]byte, error) {
	if strings.TrimSpace(d.To) == "" {
		return nil, fmt.Errorf("compose: missing recipient")
	}
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	header("To", d.To)
	header("Subject", mime.QEncoding.Encode("utf-8", d.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("In-Reply-To", d.InReplyTo)
	header("References", d.References)
	header("MIME-Version", "1.0")

	if len(d.Enclosed) == 0 {
		header("Content-Type", `text/plain; charset="utf-8"`)
		header("Content-Transfer-Encoding", "8bit")
		buf.WriteString("\r\n")
		buf.WriteString(crlf(d.Body))
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", fmt.Sprintf(`multipart/mixed; boundary="%s"`, mw.Boundary()))
	buf.WriteString("\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/plain; charset="utf-8"`},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, fmt.Errorf("compose text part: %w", err)
	}
	if _, err := text.Write([]byte(crlf(d.Body))); err != nil {
		return nil, fmt.Errorf("compose text part: %w", err)
	}

	enclosed, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":        {"message/rfc822"},
		"Content-Disposition": {`attachment; filename="forwarded.eml"`},
	})
	if err != nil {
		return nil, fmt.Errorf("compose enclosure: %w", err)
	}
	if _, err := enclosed.Write(d.Enclosed); err != nil {
		return nil, fmt.Errorf("compose enclosure: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("compose close: %w", err)
	}
	return buf.Bytes(), nil
}

func crlf(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
