package mail

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Analysis is what gets announced before offering to read a message.
type Analysis struct {
	HasHTML     bool
	HasImages   bool
	Attachments int
}

// Analyze inspects an email's parts.
func Analyze(e Email) Analysis {
	a := Analysis{Attachments: len(e.Attachments)}
	if strings.TrimSpace(e.HTML) != "" {
		a.HasHTML = true
		a.HasImages = containsImage(e.HTML)
	}
	return a
}

func containsImage(doc string) bool {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Img {
				return true
			}
		}
	}
}

// HTMLToText flattens markup for speech: script and style content is
// dropped, tags are removed, entities are decoded and whitespace collapsed.
func HTMLToText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken, html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				if tt == html.StartTagToken {
					skip++
				} else if skip > 0 {
					skip--
				}
				continue
			}
			if isBlock(a) {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr, atom.Td, atom.Th,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Table, atom.Ul, atom.Ol, atom.Blockquote, atom.Section, atom.Article:
		return true
	}
	return false
}

// Readable returns the speakable body: plain text if present, else text
// extracted from HTML. fromHTML reports which source was used.
func Readable(e Email) (text string, fromHTML bool) {
	if body := strings.TrimSpace(e.Body); body != "" {
		return body, false
	}
	if strings.TrimSpace(e.HTML) != "" {
		return HTMLToText(e.HTML), true
	}
	return "", false
}
