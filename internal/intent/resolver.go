package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kokistudios/mailvox/internal/ui"
)

// Oracle classifies a raw utterance.
type Oracle interface {
	Infer(ctx context.Context, utterance string) (Payload, error)
}

// Resolver turns utterances into canonical, upgraded intents.
// It never fails: oracle errors degrade to Unknown.
type Resolver struct {
	oracle Oracle
}

func NewResolver(o Oracle) *Resolver {
	return &Resolver{oracle: o}
}

// Resolve classifies utterance and applies normalization and upgrade rules.
func (r *Resolver) Resolve(ctx context.Context, utterance string) Intent {
	if r.oracle == nil {
		return Unknown()
	}
	p, err := r.oracle.Infer(ctx, utterance)
	if err != nil {
		ui.Logger.Warn("intent oracle failed", "err", err)
		return Unknown()
	}
	if p == nil {
		return Unknown()
	}
	resolved := Upgrade(Normalize(p))
	ui.Logger.Debug("intent resolved", "utterance", utterance, "intent", resolved)
	return resolved
}

// Instruction renders the fixed instruction grammar sent to text oracles.
func Instruction(utterance string) string {
	var b strings.Builder
	b.WriteString("Extract intent from the following voice command.\n\n")
	b.WriteString("Allowed intents:\n")
	for _, k := range Kinds() {
		fmt.Fprintf(&b, "- %s\n", k)
	}
	b.WriteString("\nUse READ_EMAIL_FROM_SENDER or DELETE_EMAIL_FROM_SENDER when the command names a person.\n")
	b.WriteString("Put the person's name in \"to\". Use null for anything not mentioned.\n\n")
	b.WriteString("Voice command:\n")
	b.WriteString(utterance)
	b.WriteString("\n\nReturn JSON with exactly these fields:\nintent, to, subject, body\n")
	return b.String()
}
