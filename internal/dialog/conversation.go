// Package dialog holds the reusable conversational steps: speaking, listening
// with shutdown detection, confirmation and list selection.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kokistudios/mailvox/internal/ui"
	"github.com/kokistudios/mailvox/internal/voice"
)

// ErrShutdown is returned from any listen step that heard a shutdown phrase.
// It unwinds the whole assistant; nothing else is said.
var ErrShutdown = errors.New("shutdown phrase heard")

// Clip names, one audio file per kind of listen.
const (
	ClipWake    = "wake"
	ClipCommand = "input"
	ClipConfirm = "confirm"
	ClipBody    = "body"
)

// Timing holds the recording windows.
type Timing struct {
	Wake    time.Duration
	Command time.Duration
	Body    time.Duration
}

// DefaultTiming matches a 5 second command window.
func DefaultTiming() Timing {
	return Timing{Wake: 3 * time.Second, Command: 5 * time.Second, Body: 15 * time.Second}
}

// Conversation drives one speaker/microphone pair.
type Conversation struct {
	voice    voice.Kit
	shutdown []string
	keywords Keywords
	timing   Timing
	audioDir string
}

// Option configures a Conversation.
type Option func(*Conversation)

func WithShutdown(phrases []string) Option {
	return func(c *Conversation) { c.shutdown = phrases }
}

func WithKeywords(k Keywords) Option {
	return func(c *Conversation) { c.keywords = k }
}

func WithTiming(t Timing) Option {
	return func(c *Conversation) { c.timing = t }
}

func WithAudioDir(dir string) Option {
	return func(c *Conversation) { c.audioDir = dir }
}

// New returns a Conversation over kit.
func New(kit voice.Kit, opts ...Option) *Conversation {
	c := &Conversation{
		voice:    kit,
		shutdown: []string{"exit", "shut down", "shutdown"},
		keywords: Keywords{Affirmative: DefaultAffirmatives(), Scope: ScopePrompt},
		timing:   DefaultTiming(),
		audioDir: "audio",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timing returns the configured recording windows.
func (c *Conversation) Timing() Timing { return c.timing }

// Say speaks text. Speaker failures are logged, never returned.
func (c *Conversation) Say(ctx context.Context, text string) {
	ui.Spoke(text)
	if c.voice.Speaker == nil {
		return
	}
	if err := c.voice.Speaker.Speak(ctx, text); err != nil {
		ui.Logger.Warn("speech failed", "err", err)
	}
}

// Sayf speaks a formatted line.
func (c *Conversation) Sayf(ctx context.Context, format string, args ...any) {
	c.Say(ctx, fmt.Sprintf(format, args...))
}

// Listen records a clip for d and transcribes it. Capture and transcription
// failures degrade to empty text. The only errors are ErrShutdown, when the
// text contains a shutdown phrase or input hung up, and context cancellation.
func (c *Conversation) Listen(ctx context.Context, clip string, d time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(c.audioDir, clip+".wav")
	if c.voice.Capturer != nil {
		if err := c.voice.Capturer.Capture(ctx, path, d); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			ui.Logger.Warn("capture failed", "clip", clip, "err", err)
			return "", nil
		}
	}
	if c.voice.Transcriber == nil {
		return "", nil
	}
	text, err := c.voice.Transcriber.Transcribe(ctx, path)
	switch {
	case errors.Is(err, voice.ErrHangup):
		return "", ErrShutdown
	case err != nil:
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		ui.Logger.Warn("transcription failed", "clip", clip, "err", err)
		return "", nil
	}
	ui.Heard(text)
	if Mentions(text, c.shutdown) {
		ui.Logger.Debug("shutdown phrase", "text", text)
		return text, ErrShutdown
	}
	return text, nil
}

// Ask speaks prompt and listens for a command-length answer.
func (c *Conversation) Ask(ctx context.Context, prompt string) (string, error) {
	c.Say(ctx, prompt)
	return c.Listen(ctx, ClipCommand, c.timing.Command)
}

// Dictate speaks prompt and listens over the longer body window.
func (c *Conversation) Dictate(ctx context.Context, prompt string) (string, error) {
	c.Say(ctx, prompt)
	return c.Listen(ctx, ClipBody, c.timing.Body)
}

// Confirm asks a yes/no question about action (one of the Verb constants, or
// "" for none). Anything that is not positive, including silence, is a no.
func (c *Conversation) Confirm(ctx context.Context, prompt, action string) (bool, error) {
	c.Say(ctx, prompt)
	reply, err := c.Listen(ctx, ClipConfirm, c.timing.Command)
	if err != nil {
		return false, err
	}
	return IsPositive(reply, c.keywords.For(action)), nil
}

// Choose asks for a pick among size candidates. ok is false for an
// unparseable or out-of-range answer.
func (c *Conversation) Choose(ctx context.Context, prompt string, size int) (idx int, ok bool, err error) {
	reply, err := c.Ask(ctx, prompt)
	if err != nil {
		return 0, false, err
	}
	idx, ok = PickIndex(reply)
	if !ok || !InRange(idx, size) {
		return 0, false, nil
	}
	return idx, true, nil
}
