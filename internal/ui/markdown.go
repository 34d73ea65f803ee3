package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown writes md to w styled for the terminal, or raw if glamour
// cannot render it.
func RenderMarkdown(w io.Writer, md string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(90),
	)
	if err != nil {
		fmt.Fprintln(w, md)
		return
	}

	out, err := renderer.Render(md)
	if err != nil {
		Logger.Debug("markdown render failed", "err", err)
		fmt.Fprintln(w, md)
		return
	}

	fmt.Fprint(w, out)
}
