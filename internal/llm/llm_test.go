package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokistudios/mailvox/internal/intent"
)

type fakeGen struct {
	out     string
	err     error
	prompts []string
	opts    []Options
}

func (f *fakeGen) Generate(_ context.Context, prompt string, opts Options) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.out, f.err
}

func TestImprove_BoundedByTwiceInput(t *testing.T) {
	inputs := []string{"hi", "see you at noon", "héllo wörld", "a"}
	for _, in := range inputs {
		gen := &fakeGen{out: strings.Repeat("verbose ", 100)}
		out := NewImprover(gen).Improve(context.Background(), in)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), 2*utf8.RuneCountInString(in), "input %q", in)
	}
}

func TestImprove_Fallbacks(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", NewImprover(&fakeGen{out: "something"}).Improve(ctx, ""))
	assert.Equal(t, "see you", NewImprover(&fakeGen{err: errors.New("down")}).Improve(ctx, "see you"))
	assert.Equal(t, "see you", NewImprover(&fakeGen{out: "   "}).Improve(ctx, "see you"))
	assert.Equal(t, "see you", NewImprover(nil).Improve(ctx, "see you"))
	var nilImprover *Improver
	assert.Equal(t, "see you", nilImprover.Improve(ctx, "see you"))
}

func TestImprove_PromptAndOptions(t *testing.T) {
	gen := &fakeGen{out: "See you soon."}
	out := NewImprover(gen).Improve(context.Background(), "see you soon")
	assert.Equal(t, "See you soon.", out)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "see you soon")
	assert.Equal(t, Options{Temperature: 0.1, MaxTokens: 200}, gen.opts[0])
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "", truncateRunes("abc", 0))
}

func TestTextOracle(t *testing.T) {
	gen := &fakeGen{out: `{"intent":"SUMMARIZE_LATEST_EMAIL","to":null,"subject":null,"body":null}`}
	p, err := (&TextOracle{Gen: gen}).Infer(context.Background(), "summarize my mail")
	require.NoError(t, err)

	assert.Equal(t, intent.Raw(gen.out), p)
	assert.True(t, gen.opts[0].JSON)
	assert.Equal(t, 150, gen.opts[0].MaxTokens)
	assert.Contains(t, gen.prompts[0], "summarize my mail")

	_, err = (&TextOracle{Gen: &fakeGen{err: errors.New("timeout")}}).Infer(context.Background(), "x")
	assert.Error(t, err)
}

func TestKeywordOracle(t *testing.T) {
	tests := []struct {
		utterance string
		want      intent.Intent
	}{
		{"send an email to bob saying hello", intent.Intent{Kind: intent.KindSendEmail, To: "bob", Body: "hello"}},
		{"write a message to Alice Wong about lunch saying see you at noon", intent.Intent{Kind: intent.KindSendEmail, To: "Alice Wong", Subject: "lunch", Body: "see you at noon"}},
		{"email bob", intent.Intent{Kind: intent.KindSendEmail, To: "bob"}},
		{"email from bob", intent.Intent{Kind: intent.KindReadEmailFromSender, To: "bob"}},
		{"message from alice", intent.Intent{Kind: intent.KindReadEmailFromSender, To: "alice"}},
		{"read my latest email", intent.Intent{Kind: intent.KindReadLatestEmail}},
		{"read the latest email from bob", intent.Intent{Kind: intent.KindReadEmailFromSender, To: "bob"}},
		{"read my unread emails", intent.Intent{Kind: intent.KindReadUnreadEmails}},
		{"summarize my last email", intent.Intent{Kind: intent.KindSummarizeLatestEmail}},
		{"delete the latest email", intent.Intent{Kind: intent.KindDeleteLatestEmail}},
		{"delete all read emails", intent.Intent{Kind: intent.KindDeleteLatestEmail}},
		{"delete the email from Bob Stone.", intent.Intent{Kind: intent.KindDeleteEmailFromSender, To: "Bob Stone"}},
		{"never mind", intent.Intent{Kind: intent.KindCancel}},
		{"what's the weather", intent.Unknown()},
		{"", intent.Unknown()},
	}
	r := intent.NewResolver(KeywordOracle{})
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(context.Background(), tt.utterance), "utterance %q", tt.utterance)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	b, err := New(ctx, Config{Provider: "keywords"})
	require.NoError(t, err)
	assert.IsType(t, KeywordOracle{}, b.Oracle)
	assert.Equal(t, "hi", b.Improver.Improve(ctx, "hi"))

	b, err = New(ctx, Config{Provider: "ollama", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.IsType(t, &TextOracle{}, b.Oracle)

	t.Setenv("MAILVOX_TEST_EMPTY_KEY", "")
	_, err = New(ctx, Config{Provider: "genai", APIKeyEnv: "MAILVOX_TEST_EMPTY_KEY"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Provider: "oracle-of-delphi"})
	assert.Error(t, err)
}
