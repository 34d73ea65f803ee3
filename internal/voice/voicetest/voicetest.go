// Package voicetest provides a scripted voice.Kit for tests.
package voicetest

import (
	"context"
	"sync"
	"time"

	"github.com/kokistudios/mailvox/internal/voice"
)

// Script answers each transcription with the next queued line and records
// everything spoken. When the queue runs dry it reports voice.ErrHangup.
type Script struct {
	mu       sync.Mutex
	replies  []string
	Spoken   []string
	Captures []Capture
}

// Capture is one recorded clip request.
type Capture struct {
	Path     string
	Duration time.Duration
}

// New queues replies in order.
func New(replies ...string) *Script {
	return &Script{replies: replies}
}

// Kit wires the script into all three roles.
func (s *Script) Kit() voice.Kit {
	return voice.Kit{Capturer: s, Transcriber: s, Speaker: s}
}

func (s *Script) Capture(_ context.Context, path string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Captures = append(s.Captures, Capture{Path: path, Duration: d})
	return nil
}

func (s *Script) Transcribe(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", voice.ErrHangup
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next, nil
}

func (s *Script) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Spoken = append(s.Spoken, text)
	return nil
}

// Remaining returns how many replies were never consumed.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}

// Said reports whether text was spoken verbatim.
func (s *Script) Said(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Spoken {
		if t == text {
			return true
		}
	}
	return false
}

// Last returns the most recent spoken line.
func (s *Script) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Spoken) == 0 {
		return ""
	}
	return s.Spoken[len(s.Spoken)-1]
}
