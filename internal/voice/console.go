package voice

import (
	"context"
	"errors"
	"time"

	"github.com/kokistudios/mailvox/internal/ui"
)

// Skip is a Capturer that records nothing; typed input needs no audio.
type Skip struct{}

func (Skip) Capture(context.Context, string, time.Duration) error { return nil }

// Mute is a Speaker that relies on the transcript echo instead of audio.
type Mute struct{}

func (Mute) Speak(context.Context, string) error { return nil }

// Console reads each "utterance" as a typed line.
type Console struct {
	Prompt string
	ask    func(prompt string) (string, error)
}

func (c *Console) Transcribe(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ask := c.ask
	if ask == nil {
		ask = ui.Ask
	}
	text, err := ask(c.Prompt)
	if errors.Is(err, ui.ErrPromptAborted) {
		return "", ErrHangup
	}
	return text, err
}
