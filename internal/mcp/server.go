package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/mailvox/internal/contacts"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/mail"
)

// Improver polishes a dictated body.
type Improver interface {
	Improve(ctx context.Context, text string) string
}

// Deps are the mailbox collaborators exposed over MCP.
type Deps struct {
	Resolver       *intent.Resolver
	Mail           mail.Service
	Contacts       *contacts.Directory
	Improver       Improver
	DefaultSubject string
	Drafts         *DraftStore
}

// Server wraps the MCP server with the mailbox.
type Server struct {
	Deps
	server *mcp.Server
}

// NewServer creates a new mailvox MCP server.
func NewServer(d Deps, version string) *Server {
	if d.Drafts == nil {
		d.Drafts = NewDraftStore(0)
	}
	if d.Contacts == nil {
		d.Contacts = contacts.New()
	}
	if d.DefaultSubject == "" {
		d.DefaultSubject = "Voice Assistant Message"
	}
	s := &Server{Deps: d}

	impl := &mcp.Implementation{
		Name:    "mailvox",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "mailvox_resolve_intent",
		Description: "Classify a spoken or typed mail command into one of the assistant's intents " +
			"(SEND_EMAIL, READ_LATEST_EMAIL, ...) with its to/subject/body slots. Read-only.",
	}, s.handleResolveIntent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mailvox_latest_email",
		Description: "Show the newest inbox message. Set include_body to get the readable text (HTML is converted).",
	}, s.handleLatestEmail)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mailvox_unread_emails",
		Description: "List unread inbox messages, newest first.",
	}, s.handleUnreadEmails)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mailvox_emails_from",
		Description: "List recent messages from a sender. The sender may be a contact name or an address.",
	}, s.handleEmailsFrom)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mailvox_contacts",
		Description: "List the contact directory used to resolve spoken names.",
	}, s.handleContacts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "mailvox_draft_email",
		Description: "Prepare an email without sending it. Returns a draft_id and the final text. " +
			"Show the draft to the user before calling mailvox_send_draft.",
	}, s.handleDraftEmail)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "mailvox_send_draft",
		Description: "Send a draft created by mailvox_draft_email. " +
			"BEFORE CALLING: show the draft, ask for explicit permission, then call with user_confirmed=true.",
	}, s.handleSendDraft)
}

// =============================================================================
// Output types
// =============================================================================

// IntentResult is a resolved command.
type IntentResult struct {
	Intent  string `json:"intent"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// EmailSummary is a compact message view.
type EmailSummary struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	Date        string `json:"date,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	HasHTML     bool   `json:"has_html,omitempty"`
	HasImages   bool   `json:"has_images,omitempty"`
	Attachments int    `json:"attachments,omitempty"`
	Body        string `json:"body,omitempty"`
}

// EmailList wraps a listing.
type EmailList struct {
	Emails  []EmailSummary `json:"emails"`
	Message string         `json:"message,omitempty"`
}

func summarize(e mail.Email) EmailSummary {
	a := mail.Analyze(e)
	return EmailSummary{
		ID:          e.ID,
		From:        e.From,
		Sender:      mail.SenderName(e.From),
		Subject:     e.Subject,
		Date:        e.Date,
		Snippet:     e.Snippet,
		HasHTML:     a.HasHTML,
		HasImages:   a.HasImages,
		Attachments: a.Attachments,
	}
}

func list(emails []mail.Email, empty string) EmailList {
	out := EmailList{Emails: []EmailSummary{}}
	for _, e := range emails {
		out.Emails = append(out.Emails, summarize(e))
	}
	if len(out.Emails) == 0 {
		out.Message = empty
	}
	return out
}

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > 50 {
		return 50
	}
	return n
}

// =============================================================================
// Handlers
// =============================================================================

// ResolveIntentArgs defines input for mailvox_resolve_intent.
type ResolveIntentArgs struct {
	Utterance string `json:"utterance" jsonschema:"The command as the user would say it"`
}

func (s *Server) handleResolveIntent(ctx context.Context, req *mcp.CallToolRequest, args ResolveIntentArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Utterance) == "" {
		return nil, nil, fmt.Errorf("utterance is required")
	}
	in := s.Resolver.Resolve(ctx, args.Utterance)
	return nil, IntentResult{Intent: string(in.Kind), To: in.To, Subject: in.Subject, Body: in.Body}, nil
}

// LatestEmailArgs defines input for mailvox_latest_email.
type LatestEmailArgs struct {
	IncludeBody bool `json:"include_body,omitempty" jsonschema:"Include the readable message text"`
}

func (s *Server) handleLatestEmail(ctx context.Context, req *mcp.CallToolRequest, args LatestEmailArgs) (*mcp.CallToolResult, any, error) {
	e, err := s.Mail.Latest(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("latest email: %w", err)
	}
	if e == nil {
		return nil, EmailList{Emails: []EmailSummary{}, Message: "The inbox is empty."}, nil
	}
	sum := summarize(*e)
	if args.IncludeBody {
		sum.Body, _ = mail.Readable(*e)
	}
	return nil, EmailList{Emails: []EmailSummary{sum}}, nil
}

// UnreadEmailsArgs defines input for mailvox_unread_emails.
type UnreadEmailsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum messages to return (default 10)"`
}

func (s *Server) handleUnreadEmails(ctx context.Context, req *mcp.CallToolRequest, args UnreadEmailsArgs) (*mcp.CallToolResult, any, error) {
	emails, err := s.Mail.Unread(ctx, clampLimit(args.Limit, 10))
	if err != nil {
		return nil, nil, fmt.Errorf("unread emails: %w", err)
	}
	return nil, list(emails, "No unread emails."), nil
}

// EmailsFromArgs defines input for mailvox_emails_from.
type EmailsFromArgs struct {
	Sender string `json:"sender" jsonschema:"Contact name or email address"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum messages to return (default 3)"`
}

func (s *Server) handleEmailsFrom(ctx context.Context, req *mcp.CallToolRequest, args EmailsFromArgs) (*mcp.CallToolResult, any, error) {
	who := strings.TrimSpace(args.Sender)
	if who == "" {
		return nil, nil, fmt.Errorf("sender is required")
	}
	if addr, ok := s.Contacts.Resolve(who); ok {
		who = addr
	}
	emails, err := s.Mail.FromSender(ctx, who, clampLimit(args.Limit, 3))
	if err != nil {
		return nil, nil, fmt.Errorf("emails from %s: %w", who, err)
	}
	return nil, list(emails, fmt.Sprintf("No emails from %s.", args.Sender)), nil
}

// ContactsArgs defines input for mailvox_contacts.
type ContactsArgs struct{}

// ContactsResult lists the directory.
type ContactsResult struct {
	Contacts []contacts.Contact `json:"contacts"`
}

func (s *Server) handleContacts(ctx context.Context, req *mcp.CallToolRequest, args ContactsArgs) (*mcp.CallToolResult, any, error) {
	out := ContactsResult{Contacts: s.Contacts.List()}
	if out.Contacts == nil {
		out.Contacts = []contacts.Contact{}
	}
	return nil, out, nil
}

// DraftEmailArgs defines input for mailvox_draft_email.
type DraftEmailArgs struct {
	To      string `json:"to" jsonschema:"Contact name or email address"`
	Subject string `json:"subject,omitempty" jsonschema:"Subject line; a default is used when empty"`
	Body    string `json:"body" jsonschema:"Message text as dictated; it is polished before sending"`
}

// DraftResult is a prepared draft.
type DraftResult struct {
	Draft   Draft  `json:"draft"`
	Message string `json:"message"`
}

func (s *Server) handleDraftEmail(ctx context.Context, req *mcp.CallToolRequest, args DraftEmailArgs) (*mcp.CallToolResult, any, error) {
	addr, ok := s.Contacts.Resolve(args.To)
	if !ok {
		return nil, nil, fmt.Errorf("could not find a contact named %q", args.To)
	}
	body := strings.TrimSpace(args.Body)
	if body == "" {
		return nil, nil, fmt.Errorf("body is required")
	}
	if s.Improver != nil {
		body = s.Improver.Improve(ctx, body)
	}
	subject := strings.TrimSpace(args.Subject)
	if subject == "" {
		subject = s.DefaultSubject
	}
	d := &Draft{To: args.To, Address: addr, Subject: subject, Body: body}
	s.Drafts.Create(d)
	return nil, DraftResult{
		Draft:   *d,
		Message: fmt.Sprintf("Draft %s is ready. Show it to the user and ask before sending.", d.ID),
	}, nil
}

// SendDraftArgs defines input for mailvox_send_draft.
type SendDraftArgs struct {
	DraftID       string `json:"draft_id" jsonschema:"ID returned by mailvox_draft_email"`
	UserConfirmed bool   `json:"user_confirmed" jsonschema:"Must be true: the user approved this exact draft"`
}

// SendResult reports a sent draft.
type SendResult struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

func (s *Server) handleSendDraft(ctx context.Context, req *mcp.CallToolRequest, args SendDraftArgs) (*mcp.CallToolResult, any, error) {
	if !args.UserConfirmed {
		return nil, nil, fmt.Errorf("user_confirmed must be true; ask the user first")
	}
	d, err := s.Drafts.Take(args.DraftID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Mail.Send(ctx, d.Address, d.Subject, d.Body); err != nil {
		s.Drafts.Restore(d)
		return nil, nil, fmt.Errorf("send draft: %w", err)
	}
	return nil, SendResult{Sent: true, Message: fmt.Sprintf("Email sent to %s.", d.Address)}, nil
}
