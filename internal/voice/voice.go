// Package voice adapts microphones, speech recognizers and speech synthesizers
// to the small interfaces the assistant drives.
package voice

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrHangup means the input side closed for good (console ctrl+c, stdin EOF).
var ErrHangup = errors.New("voice input closed")

// Capturer records a clip of the given length to path.
type Capturer interface {
	Capture(ctx context.Context, path string, d time.Duration) error
}

// Transcriber turns a recorded clip into text. Empty text is a valid result.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Speaker renders text as speech and blocks until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Kit bundles one implementation of each side of the audio loop.
type Kit struct {
	Capturer    Capturer
	Transcriber Transcriber
	Speaker     Speaker
}

// Check reports the first adapter whose external tool is missing.
func (k Kit) Check() error {
	for _, part := range []any{k.Capturer, k.Transcriber, k.Speaker} {
		if c, ok := part.(interface{ Available() error }); ok {
			if err := c.Available(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Config selects and parameterizes the device adapters.
type Config struct {
	CaptureCommand string
	SampleRate     int
	STTCommand     string
	STTModel       string
	Language       string
	TTSCommand     string
}

// New builds a Kit for mode: "device" (default) shells out to the configured
// recorder, recognizer and synthesizer; "console" reads typed lines instead.
func New(mode string, cfg Config) (Kit, error) {
	switch mode {
	case "", "device":
		return Kit{
			Capturer:    &Recorder{Path: cfg.CaptureCommand, SampleRate: cfg.SampleRate},
			Transcriber: &Whisper{Path: cfg.STTCommand, Model: cfg.STTModel, Language: cfg.Language},
			Speaker:     &Festival{Path: cfg.TTSCommand},
		}, nil
	case "console":
		return Kit{
			Capturer:    Skip{},
			Transcriber: &Console{Prompt: "you ›"},
			Speaker:     Mute{},
		}, nil
	default:
		return Kit{}, fmt.Errorf("unknown voice mode: %s", mode)
	}
}
