package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/loader"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// DetailModel shows one message in full, rendered as markdown, with the
// thread from the root as a breadcrumb.
type DetailModel struct {
	node     model.ConversationNode
	thread   []model.ConversationNode
	siblings bool
	subtree  int

	view   viewport.Model
	theme  Theme
	width  int
	height int
	ready  bool
}

// NewDetailModel builds the pane for nodeID of canvas
func NewDetailModel(canvas *model.CanvasData, nodeID string, theme Theme, width, height int) DetailModel {
	m := DetailModel{theme: theme}
	if canvas != nil {
		m.node = canvas.Nodes[nodeID]
		m.thread = loader.Thread(canvas, nodeID)
		m.siblings = loader.HasSiblings(canvas, nodeID)
		if sub, err := loader.LoadSubtree(canvas, nodeID); err == nil {
			m.subtree = sub.TotalCount()
		}
	}
	m.SetSize(width, height)
	return m
}

// NodeID returns the id of the message shown
func (m DetailModel) NodeID() string { return m.node.ID }

// SetSize lays the pane out for a width×height modal and re-renders
func (m *DetailModel) SetSize(width, height int) {
	m.width = max(width, 30)
	m.height = max(height, 8)

	innerW := m.width - 4
	innerH := m.height - 6
	if !m.ready {
		m.view = viewport.New(innerW, innerH)
		m.ready = true
	} else {
		m.view.Width = innerW
		m.view.Height = innerH
	}
	m.view.SetContent(m.renderBody(innerW))
}

func (m DetailModel) renderBody(width int) string {
	text := m.node.Message.Text()
	if strings.TrimSpace(text) == "" {
		return m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).Italic(true).Render("(no text content)")
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (m DetailModel) breadcrumb(width int) string {
	t := m.theme
	sep := t.Renderer.NewStyle().Foreground(t.Border).Render(" › ")
	parts := make([]string, 0, len(m.thread))
	for _, n := range m.thread {
		parts = append(parts, t.Renderer.NewStyle().Foreground(t.RoleColor(n.Message.Role)).Render(n.ID))
	}
	crumb := strings.Join(parts, sep)
	if lipgloss.Width(crumb) > width {
		// keep the tail, which ends at the open message
		crumb = "… " + strings.Join(parts[max(0, len(parts)-3):], sep)
	}
	return truncate.StringWithTail(crumb, uint(width), "…")
}

// Update scrolls the pane
func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

// View renders the pane
func (m DetailModel) View() string {
	t := m.theme
	inner := m.width - 4

	header := RenderRoleBadge(m.node.Message.Role, t) + " " +
		t.Renderer.NewStyle().Foreground(t.Subtext).Render(m.node.ID)

	facts := fmt.Sprintf("depth %d · %d in subtree", max(0, len(m.thread)-1), m.subtree)
	if m.siblings {
		facts += " · has siblings"
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(m.breadcrumb(inner) + "\n")
	b.WriteString(t.Renderer.NewStyle().Foreground(t.Subtext).Render(facts) + "\n")
	b.WriteString(RenderDivider(inner, t) + "\n")
	b.WriteString(m.view.View() + "\n")
	b.WriteString(t.Renderer.NewStyle().Faint(true).Render(
		fmt.Sprintf("%3.0f%%  [↑/↓] scroll  [y] copy  [esc] close", m.view.ScrollPercent()*100)))

	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1).
		Render(b.String())
}
