package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kokistudios/mailvox/internal/ui"
)

const improvePrompt = `You are an email text improver.

STRICT RULES (DO NOT BREAK):
- Improve ONLY grammar, clarity, and logical flow
- DO NOT add names, companies, institutes, greetings, or signatures
- DO NOT invent or assume context
- DO NOT add examples or templates
- Keep the meaning EXACTLY the same
- The improved text must NOT be longer than 2x the original length
- If something is not mentioned, DO NOT add it

Original email body:
%s

Return ONLY the improved email body.
`

// Improver polishes dictated text. Its output is never more than twice the
// input's length in runes, and the input comes back unchanged whenever the
// model fails or returns nothing.
type Improver struct {
	gen Generator
}

// NewImprover wraps gen. A nil generator makes Improve the identity.
func NewImprover(gen Generator) *Improver {
	return &Improver{gen: gen}
}

func (im *Improver) Improve(ctx context.Context, text string) string {
	if im == nil || im.gen == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, err := im.gen.Generate(ctx, fmt.Sprintf(improvePrompt, text), Options{
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		ui.Logger.Warn("body improvement failed", "err", err)
		return text
	}
	improved := truncateRunes(strings.TrimSpace(out), 2*utf8.RuneCountInString(text))
	if improved == "" {
		return text
	}
	return improved
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
