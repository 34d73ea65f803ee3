package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/kokistudios/mailvox/internal/intent"
)

// KeywordOracle classifies with a fixed rule table. It needs no model server
// and always answers with a Structured payload.
type KeywordOracle struct{}

var keywordRules = []struct {
	pattern *regexp.Regexp
	kind    intent.Kind
}{
	{regexp.MustCompile(`(?i)\b(cancel|never\s*mind|forget\s+it)\b`), intent.KindCancel},
	{regexp.MustCompile(`(?i)\b(send|write|compose|draft)\b.*\b(e-?mail|mail|message|note)\b`), intent.KindSendEmail},
	{regexp.MustCompile(`(?i)^\s*(e-?mails?|mails?|messages?)\s+from\b`), intent.KindReadLatestEmail},
	{regexp.MustCompile(`(?i)^\s*(e-?mail|message)\s+\w+`), intent.KindSendEmail},
	{regexp.MustCompile(`(?i)\b(delete|remove|trash|bin)\b`), intent.KindDeleteLatestEmail},
	{regexp.MustCompile(`(?i)\b(summari[sz]e|summary|what'?s\s+the\s+latest)\b`), intent.KindSummarizeLatestEmail},
	{regexp.MustCompile(`(?i)\bunread\b`), intent.KindReadUnreadEmails},
	{regexp.MustCompile(`(?i)\b(read|check|open|show)\b.*\b(e-?mails?|mails?|messages?|inbox)\b`), intent.KindReadLatestEmail},
	{regexp.MustCompile(`(?i)\b(latest|newest|last)\s+(e-?mail|mail|message)\b`), intent.KindReadLatestEmail},
}

var (
	recipientPattern = regexp.MustCompile(`(?i)\bto\s+(.+?)(?:\s+(?:saying|that\s+says|telling|about|with\s+subject|subject)\b|$)`)
	leadingPattern   = regexp.MustCompile(`(?i)^\s*(?:e-?mail|message)\s+(\w+)`)
	senderPattern    = regexp.MustCompile(`(?i)\bfrom\s+(.+?)\s*[.!?]?$`)
	subjectPattern   = regexp.MustCompile(`(?i)\b(?:about|subject)\s+(.+?)(?:\s+(?:saying|that\s+says|telling)\b|$)`)
	bodyPattern      = regexp.MustCompile(`(?i)\b(?:saying|that\s+says|telling\s+(?:him|her|them))\s+(.+)$`)
)

func (KeywordOracle) Infer(_ context.Context, utterance string) (intent.Payload, error) {
	text := strings.TrimSpace(utterance)
	rec := intent.Record{Intent: string(intent.KindUnknown)}
	for _, r := range keywordRules {
		if r.pattern.MatchString(text) {
			rec.Intent = string(r.kind)
			break
		}
	}
	switch intent.Kind(rec.Intent) {
	case intent.KindSendEmail:
		rec.To = firstGroup(recipientPattern, text)
		if rec.To == "" {
			rec.To = firstGroup(leadingPattern, text)
		}
		rec.Subject = firstGroup(subjectPattern, text)
		rec.Body = firstGroup(bodyPattern, text)
	case intent.KindReadLatestEmail, intent.KindDeleteLatestEmail:
		rec.To = firstGroup(senderPattern, text)
	}
	return intent.Structured(rec), nil
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
