package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Logger is the package-level structured logger. It is usable before Init
// so library code and tests can log without setup.
var Logger *log.Logger

// Styles, set in Init().
var (
	headerStyle  lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	boldStyle    lipgloss.Style
	promptStyle  lipgloss.Style
	heardStyle   lipgloss.Style
	spokeStyle   lipgloss.Style
	markerStyle  lipgloss.Style
	sessionStyle lipgloss.Style
)

func init() {
	Init(false, false)
}

// Init sets up color detection, lipgloss styles, and the structured logger.
// Call this once at CLI startup.
func Init(noColorFlag, verbose bool) {
	noColor := noColorFlag || os.Getenv("NO_COLOR") != ""

	// Pre-set dark background to prevent termenv OSC query that leaks ^[[I focus events
	lipgloss.SetHasDarkBackground(true)

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	heardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	spokeStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("12"))
	markerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	sessionStyle = lipgloss.NewStyle().
		Bold(true).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		PaddingLeft(1).
		PaddingRight(1)

	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if verbose {
		Logger.SetLevel(log.DebugLevel)
	}
	if noColor {
		Logger.SetStyles(log.DefaultStyles())
	}
}

func Bold(s string) string   { return boldStyle.Render(s) }
func Dim(s string) string    { return dimStyle.Render(s) }
func Red(s string) string    { return errorStyle.Render(s) }
func Green(s string) string  { return successStyle.Render(s) }
func Yellow(s string) string { return warningStyle.Render(s) }

// Heard echoes a transcribed utterance.
func Heard(text string) {
	if strings.TrimSpace(text) == "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", heardStyle.Render("◂"), dimStyle.Render("(silence)"))
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", heardStyle.Render("◂"), text)
}

// Spoke echoes text handed to the speaker.
func Spoke(text string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", markerStyle.Render("▸"), spokeStyle.Render(text))
}

// SessionBanner renders the wake banner for a new session.
func SessionBanner(id string) {
	fmt.Fprint(os.Stderr, "\r")
	fmt.Fprintln(os.Stderr, sessionStyle.Render(fmt.Sprintf("SESSION %s", id)))
}

// SessionEnd prints why a session closed.
func SessionEnd(id, reason string) {
	fmt.Fprintf(os.Stderr, "%s\n", dimStyle.Render(fmt.Sprintf("── session %s closed (%s) ──", id, reason)))
}

// Status prints a styled status message.
func Status(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", markerStyle.Render("▸"), msg)
}

// Warning prints a styled warning message.
func Warning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), msg)
}

// Error prints a styled error message.
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), msg)
}

// Success prints a green check with a message.
func Success(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successStyle.Render("✓"), msg)
}

// Detail prints an indented key-value detail line.
func Detail(key, value string) {
	label := dimStyle.Render(fmt.Sprintf("  %s", key))
	fmt.Fprintf(os.Stderr, "%s %s\n", label, value)
}

// SectionHeader prints a styled section divider with a label.
func SectionHeader(label string) {
	line := headerStyle.Render(fmt.Sprintf("── %s ──", label))
	fmt.Fprintf(os.Stderr, "\n%s\n\n", line)
}

// EmptyState prints a styled message for empty results.
func EmptyState(msg string) {
	fmt.Fprintf(os.Stderr, "  %s\n", dimStyle.Render(msg))
}

// Table prints a formatted table with headers and rows. Column widths are
// measured with lipgloss so styled header cells line up with plain rows.
func Table(w io.Writer, headers []string, rows [][]string) {
	var widths []int
	measure := func(cells []string) {
		for i, c := range cells {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	line := func(cells []string, style func(string) string) {
		var b strings.Builder
		for i, c := range cells {
			b.WriteString(style(c))
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(c)+2))
			}
		}
		fmt.Fprintln(w, b.String())
	}
	line(headers, func(s string) string { return boldStyle.Render(s) })
	for _, row := range rows {
		line(row, func(s string) string { return s })
	}
}

// =============================================================================
// Bubbletea-based typed prompt
// =============================================================================

// ErrPromptAborted is returned when the user leaves a prompt with ctrl+c.
var ErrPromptAborted = errors.New("prompt aborted")

// askModel is a bubbletea model for a single line of typed input.
type askModel struct {
	prompt  string
	input   []rune
	aborted bool
}

func (m askModel) Init() tea.Cmd { return nil }

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyCtrlC:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEsc:
			m.input = nil
			return m, tea.Quit
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeySpace:
			m.input = append(m.input, ' ')
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
		}
	}
	return m, nil
}

func (m askModel) View() string {
	return fmt.Sprintf("%s %s%s\n%s",
		promptStyle.Render(m.prompt),
		string(m.input),
		dimStyle.Render("█"),
		dimStyle.Render("  enter to submit • esc for silence"))
}

func (m askModel) value() string {
	return strings.TrimSpace(string(m.input))
}

// Ask reads one typed line from the terminal. Esc submits silence.
func Ask(prompt string) (string, error) {
	m := askModel{prompt: prompt}
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr) // newline after prompt
	final := result.(askModel)
	if final.aborted {
		return "", ErrPromptAborted
	}
	return final.value(), nil
}

// Spinner displays an animated spinner with a message on stderr.
// Call Stop() to clear it. Stop() is safe to call multiple times.
type Spinner struct {
	msg      string
	out      io.Writer
	stop     chan struct{}
	done     sync.WaitGroup
	stopOnce sync.Once
}

// NewSpinner starts a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	return newSpinner(os.Stderr, msg)
}

func newSpinner(out io.Writer, msg string) *Spinner {
	s := &Spinner{
		msg:  msg,
		out:  out,
		stop: make(chan struct{}),
	}
	s.done.Add(1)
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer s.done.Done()
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	// First frame renders immediately so short waits still show something.
	fmt.Fprintf(s.out, "\r%s %s", markerStyle.Render(frames[0]), dimStyle.Render(s.msg))
	i++

	for {
		select {
		case <-s.stop:
			fmt.Fprintf(s.out, "\r\033[K")
			return
		case <-ticker.C:
			fmt.Fprintf(s.out, "\r%s %s", markerStyle.Render(frames[i%len(frames)]), dimStyle.Render(s.msg))
			i++
		}
	}
}

// Stop halts the spinner and clears its line.
// Safe to call multiple times.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.done.Wait()
}
