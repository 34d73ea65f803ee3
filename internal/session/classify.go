package session

import (
	"strings"

	"github.com/kokistudios/mailvox/internal/dialog"
)

// Vocabulary holds the configured control phrases.
type Vocabulary struct {
	Wake     []string
	Exit     []string
	Shutdown []string
}

// DefaultVocabulary is the English phrase set.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Wake:     []string{"hey assistant", "hello assistant"},
		Exit:     []string{"cancel", "stop", "go to sleep", "sleep"},
		Shutdown: []string{"exit", "shut down", "shutdown"},
	}
}

// ClassifyUtterance maps text heard in state to a signal. Shutdown phrases
// win everywhere. Idle only reacts to wake phrases; awake, exit phrases close
// the session, silence is reported as such and anything else is a command.
// Matching is case-insensitive substring matching.
func ClassifyUtterance(state State, text string, v Vocabulary) Signal {
	if dialog.Mentions(text, v.Shutdown) {
		return SignalShutdown
	}
	switch state {
	case StateIdle:
		if dialog.Mentions(text, v.Wake) {
			return SignalWake
		}
		return SignalSilence
	case StateAwake:
		if dialog.Mentions(text, v.Exit) {
			return SignalExit
		}
		if strings.TrimSpace(text) == "" {
			return SignalSilence
		}
		return SignalCommand
	}
	return SignalSilence
}
