package dialog

import (
	"fmt"
	"strings"
)

// Scope decides which action verbs count as a "yes".
type Scope string

const (
	// ScopePrompt accepts only the verb of the action being confirmed.
	ScopePrompt Scope = "prompt"
	// ScopeAny accepts every action verb at every prompt.
	ScopeAny Scope = "any"
)

// ParseScope validates a configured scope. Empty means ScopePrompt.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopePrompt:
		return ScopePrompt, nil
	case ScopeAny:
		return ScopeAny, nil
	default:
		return "", fmt.Errorf("unknown confirm scope %q (want prompt or any)", s)
	}
}

// Action verbs that name what a prompt is confirming.
const (
	VerbRead    = "read"
	VerbDelete  = "delete"
	VerbReply   = "reply"
	VerbForward = "forward"
	VerbSend    = "send"
)

// ActionVerbs lists every verb that can double as a confirmation.
func ActionVerbs() []string {
	return []string{VerbRead, VerbDelete, VerbReply, VerbForward, VerbSend}
}

// DefaultAffirmatives are the generic yes-words.
func DefaultAffirmatives() []string {
	return []string{"yes", "yeah", "sure", "ok", "okay"}
}

// Keywords builds positive-keyword sets per prompt.
type Keywords struct {
	Affirmative []string
	Scope       Scope
}

// For returns the keywords that confirm a prompt about action. An empty
// action yields only the generic affirmatives under ScopePrompt.
func (k Keywords) For(action string) []string {
	words := append([]string(nil), k.Affirmative...)
	if len(words) == 0 {
		words = DefaultAffirmatives()
	}
	if k.Scope == ScopeAny {
		return append(words, ActionVerbs()...)
	}
	if action != "" {
		words = append(words, action)
	}
	return words
}

// DefaultKeywords is the widest set: generic affirmatives plus every action verb.
func DefaultKeywords() []string {
	return Keywords{Scope: ScopeAny}.For("")
}

// IsPositive reports whether reply contains any keyword, case-insensitively.
// Empty replies are never positive.
func IsPositive(reply string, keywords []string) bool {
	return Mentions(reply, keywords)
}

// Mentions reports whether text contains any phrase as a case-insensitive
// substring. Phrases embedded in longer words match too ("stop" in "stopwatch").
func Mentions(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return false
	}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
