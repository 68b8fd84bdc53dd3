package output

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Field is one labelled line of a panel.
type Field struct {
	Label string
	Value string
}

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// Panel renders a titled block of aligned fields. Without colors it falls
// back to plain indented text.
func Panel(title string, fields []Field) string {
	width := 0
	for _, f := range fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}

	lines := make([]string, 0, len(fields)+1)
	lines = append(lines, Bold(title))
	for _, f := range fields {
		label := f.Label + ":" + strings.Repeat(" ", width-len(f.Label))
		lines = append(lines, Dim(label)+" "+f.Value)
	}

	if !enabled {
		return title + "\n  " + strings.Join(lines[1:], "\n  ") + "\n"
	}
	return panelStyle.Render(strings.Join(lines, "\n")) + "\n"
}
