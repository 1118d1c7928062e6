package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// nodeLines is the text shown inside a node box: the role, then up to
// NodeMaxLines of wrapped message text.
func nodeLines(n model.ConversationNode) []string {
	role := string(n.Message.Role)
	if role == "" {
		role = n.ID
	}
	lines := []string{role}

	text := strings.Join(strings.Fields(n.Message.Text()), " ")
	if text == "" {
		return append(lines, "…")
	}
	wrapped := strings.Split(wordwrap.String(text, NodeTextWidth), "\n")
	for i, l := range wrapped {
		if i == NodeMaxLines {
			last := lines[len(lines)-1]
			lines[len(lines)-1] = truncate.StringWithTail(last+" …", NodeTextWidth, "…")
			break
		}
		lines = append(lines, truncate.StringWithTail(l, NodeTextWidth, "…"))
	}
	return lines
}

// boxSizer measures node boxes by rendering them with lipgloss. It
// implements layout.SizeProvider.
type boxSizer struct {
	style lipgloss.Style
	nodes func() map[string]model.ConversationNode
}

func newBoxSizer(t Theme, nodes func() map[string]model.ConversationNode) *boxSizer {
	return &boxSizer{
		style: t.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
		nodes: nodes,
	}
}

// cells returns the box size of a node in terminal cells
func (s *boxSizer) cells(n model.ConversationNode) (w, h int) {
	box := s.style.Render(strings.Join(nodeLines(n), "\n"))
	return lipgloss.Width(box), lipgloss.Height(box)
}

// Measure reports the pixel size of a node box at zoom 1
func (s *boxSizer) Measure(id string) (graph.Size, bool) {
	n, ok := s.nodes()[id]
	if !ok {
		return graph.Size{}, false
	}
	w, h := s.cells(n)
	if w == 0 || h == 0 {
		return graph.Size{}, false
	}
	return graph.Size{Width: float64(w) * CellWidth, Height: float64(h) * CellHeight}, true
}
