package voice

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRecorder   = "arecord"
	defaultWhisper    = "whisper-cli"
	defaultFestival   = "festival"
	defaultSampleRate = 16000
)

// Recorder captures mono 16-bit WAV through arecord (or a compatible CLI).
type Recorder struct {
	Path       string
	SampleRate int
}

func (r *Recorder) pathOrDefault() string {
	if r.Path == "" {
		return defaultRecorder
	}
	return r.Path
}

// Available checks the recorder binary is on PATH.
func (r *Recorder) Available() error {
	return availableAt("recorder", r.pathOrDefault())
}

// Capture blocks for d while recording to path.
func (r *Recorder) Capture(ctx context.Context, path string, d time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	rate := r.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	args := []string{"-q", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(rate), "-d", strconv.Itoa(seconds), path}
	cmd := exec.CommandContext(ctx, r.pathOrDefault(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("recording %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Whisper transcribes clips with the whisper.cpp CLI.
type Whisper struct {
	Path     string
	Model    string
	Language string
}

func (w *Whisper) pathOrDefault() string {
	if w.Path == "" {
		return defaultWhisper
	}
	return w.Path
}

// Available checks the whisper binary is on PATH.
func (w *Whisper) Available() error {
	return availableAt("transcriber", w.pathOrDefault())
}

// Transcribe runs whisper without timestamps and returns the joined text.
func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	args := []string{"-nt", "-np"}
	if w.Model != "" {
		args = append(args, "-m", w.Model)
	}
	if w.Language != "" {
		args = append(args, "-l", w.Language)
	}
	args = append(args, "-f", path)

	cmd := exec.CommandContext(ctx, w.pathOrDefault(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("transcribing %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return cleanTranscript(stdout.String()), nil
}

// cleanTranscript drops whisper's non-speech markers ("[BLANK_AUDIO]",
// "(wind blowing)") and collapses whitespace. A marker left open at the end
// only drops its opening word.
func cleanTranscript(out string) string {
	var words, held []string
	depth := 0
	for _, f := range strings.Fields(out) {
		if depth == 0 && !strings.ContainsAny(f, "[(") {
			words = append(words, f)
			continue
		}
		if depth > 0 && !strings.ContainsAny(f, "[]()") {
			held = append(held, f)
		}
		depth += strings.Count(f, "[") + strings.Count(f, "(")
		depth -= strings.Count(f, "]") + strings.Count(f, ")")
		if depth <= 0 {
			depth = 0
			held = held[:0]
		}
	}
	words = append(words, held...)
	return strings.Join(words, " ")
}

// Festival speaks through festival's --tts mode, text on stdin.
type Festival struct {
	Path string
}

func (f *Festival) pathOrDefault() string {
	if f.Path == "" {
		return defaultFestival
	}
	return f.Path
}

// Available checks the festival binary is on PATH.
func (f *Festival) Available() error {
	return availableAt("speaker", f.pathOrDefault())
}

func (f *Festival) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, f.pathOrDefault(), "--tts")
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("speaking: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func availableAt(role, path string) error {
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("%s %q not found on PATH", role, path)
	}
	return nil
}
