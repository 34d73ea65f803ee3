package intent

import (
	"fmt"
	"strings"
)

// Kind is the canonical classification of a spoken command.
type Kind string

const (
	KindSendEmail             Kind = "SEND_EMAIL"
	KindReadLatestEmail       Kind = "READ_LATEST_EMAIL"
	KindReadEmailFromSender   Kind = "READ_EMAIL_FROM_SENDER"
	KindReadUnreadEmails      Kind = "READ_UNREAD_EMAILS"
	KindSummarizeLatestEmail  Kind = "SUMMARIZE_LATEST_EMAIL"
	KindDeleteLatestEmail     Kind = "DELETE_LATEST_EMAIL"
	KindDeleteEmailFromSender Kind = "DELETE_EMAIL_FROM_SENDER"
	KindCancel                Kind = "CANCEL"
	KindUnknown               Kind = "UNKNOWN"
)

// Kinds returns the full vocabulary in the order it is presented to the oracle.
func Kinds() []Kind {
	return []Kind{
		KindSendEmail,
		KindReadLatestEmail,
		KindReadEmailFromSender,
		KindReadUnreadEmails,
		KindSummarizeLatestEmail,
		KindDeleteLatestEmail,
		KindDeleteEmailFromSender,
		KindCancel,
		KindUnknown,
	}
}

var knownKinds = func() map[Kind]bool {
	m := make(map[Kind]bool)
	for _, k := range Kinds() {
		m[k] = true
	}
	return m
}()

// ParseKind maps oracle output onto the vocabulary. Anything outside it is KindUnknown.
func ParseKind(s string) Kind {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if knownKinds[k] {
		return k
	}
	return KindUnknown
}

// Intent is the canonical record produced by normalization.
// An empty slot means the oracle did not extract it; slots are never blank.
type Intent struct {
	Kind    Kind
	To      string
	Subject string
	Body    string
}

// Unknown is the intent substituted whenever classification fails.
func Unknown() Intent {
	return Intent{Kind: KindUnknown}
}

func (i Intent) String() string {
	return fmt.Sprintf("%s(to=%q subject=%q body=%q)", i.Kind, i.To, i.Subject, i.Body)
}

// Upgrade reclassifies "latest" intents that carry a sender into their sender-scoped form.
func Upgrade(i Intent) Intent {
	if i.To == "" {
		return i
	}
	switch i.Kind {
	case KindReadLatestEmail:
		i.Kind = KindReadEmailFromSender
	case KindDeleteLatestEmail:
		i.Kind = KindDeleteEmailFromSender
	}
	return i
}
