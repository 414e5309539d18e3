package diff

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Colorize styles a unified diff for a terminal: file headers bold, hunk headers cyan, added
// lines green, removed lines red. Styling is dropped when the output has no color support.
func Colorize(unified string) string {
	lines := strings.SplitAfter(unified, "\n")
	var b strings.Builder
	for _, line := range lines {
		text := strings.TrimSuffix(line, "\n")
		switch {
		case text == "":
		case strings.HasPrefix(text, "+++ "), strings.HasPrefix(text, "--- "):
			text = headerStyle.Render(text)
		case strings.HasPrefix(text, "@@"):
			text = hunkStyle.Render(text)
		case strings.HasPrefix(text, "+"):
			text = addedStyle.Render(text)
		case strings.HasPrefix(text, "-"):
			text = removedStyle.Render(text)
		}
		b.WriteString(text)
		if strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
