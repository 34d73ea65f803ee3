package session

import (
	"fmt"
	"strings"
)

// SleepPolicy decides what the per-session counter counts.
type SleepPolicy string

const (
	// PolicyMisunderstandings counts consecutive commands that were not
	// understood; an understood command resets the count.
	PolicyMisunderstandings SleepPolicy = "misunderstandings"
	// PolicyCommands counts every handled command, understood or not.
	PolicyCommands SleepPolicy = "commands"
)

// ParseSleepPolicy validates a configured policy. Empty means misunderstandings.
func ParseSleepPolicy(s string) (SleepPolicy, error) {
	switch SleepPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyMisunderstandings:
		return PolicyMisunderstandings, nil
	case PolicyCommands:
		return PolicyCommands, nil
	default:
		return "", fmt.Errorf("unknown sleep policy %q (want misunderstandings or commands)", s)
	}
}

// Counter is the session's misunderstanding counter. It lives for one session.
type Counter struct {
	Policy    SleepPolicy
	Threshold int
	count     int
}

// Record counts one handled command and reports whether the threshold is
// reached. A threshold of zero or less never trips.
func (c *Counter) Record(understood bool) bool {
	switch {
	case c.Policy == PolicyCommands || !understood:
		c.count++
	default:
		c.count = 0
	}
	return c.Threshold > 0 && c.count >= c.Threshold
}

func (c *Counter) Count() int { return c.count }
