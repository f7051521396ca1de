package render

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	renderer, release, err := borrow(opts)
	if err != nil {
		return "", err
	}
	defer release()

	return renderer.Render(content)
}

// Reply renders an assistant reply, falling back to the plain text when
// rendering fails. Status texts such as "Network error" pass through too.
// The blank margin lines glamour adds around the document are dropped.
func Reply(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	out, err := Markdown(text, opts)
	if err != nil {
		return text
	}

	lines := strings.Split(out, "\n")
	for len(lines) > 0 && blank(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && blank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return text
	}
	return strings.Join(lines, "\n")
}

// blank reports whether a rendered line shows nothing but padding
func blank(line string) bool {
	return strings.TrimSpace(ansi.Strip(line)) == ""
}
