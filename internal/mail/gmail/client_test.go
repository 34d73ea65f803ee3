package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	netmail "net/mail"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/kokistudios/mailvox/internal/mail"
)

type fakeGmail struct {
	mu       sync.Mutex
	queries  []string
	messages map[string]*gmail.Message
	order    []string
	sent     []*gmail.Message
	trashed  []string
}

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func newFakeGmail() *fakeGmail {
	f := &fakeGmail{messages: map[string]*gmail.Message{}}
	f.add(&gmail.Message{
		Id: "m1", ThreadId: "t1", Snippet: "See you at noon",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Bob Stone <bob@example.com>"},
				{Name: "Subject", Value: "Lunch"},
				{Name: "Message-ID", Value: "<m1@example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "multipart/alternative", Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("See you at noon")}},
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>See you at <img src=x>noon</p>")}},
				}},
				{MimeType: "application/pdf", Filename: "menu.pdf", Body: &gmail.MessagePartBody{AttachmentId: "a1", Size: 2048}},
			},
		},
	})
	return f
}

func (f *fakeGmail) add(m *gmail.Message) {
	f.messages[m.Id] = m
	f.order = append(f.order, m.Id)
}

func (f *fakeGmail) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		write(w, &gmail.Profile{EmailAddress: "me@example.com"})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		resp := &gmail.ListMessagesResponse{}
		for _, id := range f.order {
			resp.Messages = append(resp.Messages, &gmail.Message{Id: id, ThreadId: f.messages[id].ThreadId})
		}
		write(w, resp)
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		m, ok := f.messages[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("format") == "raw" {
			write(w, &gmail.Message{Id: m.Id, Raw: b64("From: bob@example.com\r\nSubject: Lunch\r\n\r\nSee you at noon\r\n")})
			return
		}
		write(w, m)
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var m gmail.Message
		_ = json.NewDecoder(r.Body).Decode(&m)
		f.mu.Lock()
		f.sent = append(f.sent, &m)
		f.mu.Unlock()
		write(w, &gmail.Message{Id: "sent1"})
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/{id}/trash", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.messages[id]; !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		f.trashed = append(f.trashed, id)
		write(w, &gmail.Message{Id: id})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeGmail) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), srv.Client(), "", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func sentMessage(t *testing.T, m *gmail.Message) *netmail.Message {
	t.Helper()
	raw, err := decode(m.Raw)
	require.NoError(t, err)
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func TestLatest_ParsesParts(t *testing.T) {
	c := newTestClient(t, newFakeGmail())
	e, err := c.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "m1", e.ID)
	assert.Equal(t, "t1", e.ThreadID)
	assert.Equal(t, "Lunch", e.Subject)
	assert.Equal(t, "See you at noon", e.Body)
	assert.Contains(t, e.HTML, "<img")
	assert.Equal(t, []mail.Attachment{{Filename: "menu.pdf", MIMEType: "application/pdf", Size: 2048}}, e.Attachments)
	assert.Equal(t, mail.Analysis{HasHTML: true, HasImages: true, Attachments: 1}, mail.Analyze(*e))
}

func TestLatest_EmptyInbox(t *testing.T) {
	f := newFakeGmail()
	f.messages = map[string]*gmail.Message{}
	f.order = nil
	c := newTestClient(t, f)

	e, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestListQueries(t *testing.T) {
	f := newFakeGmail()
	c := newTestClient(t, f)
	ctx := context.Background()

	_, err := c.Unread(ctx, 10)
	require.NoError(t, err)
	_, err = c.FromSender(ctx, "bob@example.com", 3)
	require.NoError(t, err)
	_, err = c.FromSender(ctx, "bob stone", 3)
	require.NoError(t, err)
	_, err = c.Read(ctx, 500)
	require.NoError(t, err)

	assert.Equal(t, []string{"is:unread", "from:bob@example.com", `from:"bob stone"`, "-is:unread"}, f.queries)
}

func TestReply_Threads(t *testing.T) {
	f := newFakeGmail()
	c := newTestClient(t, f)
	ctx := context.Background()

	e, err := c.Latest(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Reply(ctx, *e, "Works for me"))

	require.Len(t, f.sent, 1)
	assert.Equal(t, "t1", f.sent[0].ThreadId)
	msg := sentMessage(t, f.sent[0])
	assert.Equal(t, "Re: Lunch", msg.Header.Get("Subject"))
	assert.Equal(t, "<m1@example.com>", msg.Header.Get("In-Reply-To"))
	assert.Equal(t, "Bob Stone <bob@example.com>", msg.Header.Get("To"))
}

func TestForward_EnclosesSource(t *testing.T) {
	f := newFakeGmail()
	c := newTestClient(t, f)
	ctx := context.Background()

	e, err := c.Latest(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Forward(ctx, *e, "alice@example.com"))

	require.Len(t, f.sent, 1)
	assert.Empty(t, f.sent[0].ThreadId)
	msg := sentMessage(t, f.sent[0])
	assert.Equal(t, "alice@example.com", msg.Header.Get("To"))
	assert.Equal(t, "Fwd: Lunch", msg.Header.Get("Subject"))
	assert.Contains(t, msg.Header.Get("Content-Type"), "multipart/mixed")
}

func TestTrash(t *testing.T) {
	f := newFakeGmail()
	c := newTestClient(t, f)

	require.NoError(t, c.Trash(context.Background(), "m1"))
	assert.Equal(t, []string{"m1"}, f.trashed)

	err := c.Trash(context.Background(), "missing")
	assert.ErrorIs(t, err, mail.ErrNotFound)
}

func TestProfile(t *testing.T) {
	c := newTestClient(t, newFakeGmail())
	addr, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", addr)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	_, err := LoadToken(path)
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveToken(path, tok))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"cid","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(creds), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, []string{Scope}, cfg.Scopes)
}
