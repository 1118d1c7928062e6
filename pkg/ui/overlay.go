package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	reflowtrunc "github.com/muesli/reflow/truncate"
)

// cutAfterWidth returns the part of s after its first startWidth printable
// cells. Escape sequences before the cut are dropped.
func cutAfterWidth(s string, startWidth int) string {
	if startWidth <= 0 {
		return s
	}
	w := 0
	inEscape := false
	for i, r := range s {
		if r == ansi.Marker {
			inEscape = true
			continue
		}
		if inEscape {
			if ansi.IsTerminator(r) {
				inEscape = false
			}
			continue
		}
		if w >= startWidth {
			return s[i:]
		}
		w += ansi.PrintableRuneWidth(string(r))
	}
	return ""
}

// renderModalOverlay centres modal over a width×height base view, keeping
// the base visible to the left and right of the modal.
func renderModalOverlay(base, modal string, width, height int) string {
	modalWidth := lipgloss.Width(modal)
	modalHeight := lipgloss.Height(modal)

	baseLines := strings.Split(base, "\n")
	for len(baseLines) < height {
		baseLines = append(baseLines, "")
	}
	modalLines := strings.Split(modal, "\n")

	startRow := max(0, (height-modalHeight)/2)
	startCol := max(0, (width-modalWidth)/2)

	for i, modalLine := range modalLines {
		row := startRow + i
		if row >= len(baseLines) {
			break
		}
		baseLine := baseLines[row]
		baseLineWidth := ansi.PrintableRuneWidth(baseLine)

		var line strings.Builder
		if startCol > 0 {
			if baseLineWidth >= startCol {
				line.WriteString(reflowtrunc.String(baseLine, uint(startCol)))
				line.WriteString("\x1b[0m")
			} else {
				line.WriteString(baseLine)
				line.WriteString(strings.Repeat(" ", startCol-baseLineWidth))
			}
		}
		line.WriteString(modalLine)

		rightStart := startCol + ansi.PrintableRuneWidth(modalLine)
		if rightStart < baseLineWidth {
			line.WriteString(cutAfterWidth(baseLine, rightStart))
		}
		baseLines[row] = line.String()
	}
	return strings.Join(baseLines, "\n")
}
