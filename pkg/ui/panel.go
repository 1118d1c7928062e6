package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/loader"
)

// renderPanel draws the side panel: canvas stats, the role breakdown, the
// connection and the selected message.
func (m *CanvasModel) renderPanel(height int) string {
	t := m.theme
	inner := PanelWidth - 4

	section := t.Renderer.NewStyle().Bold(true).Foreground(t.Primary)
	label := t.Renderer.NewStyle().Foreground(t.Subtext).Width(12)
	value := t.Renderer.NewStyle().Foreground(ColorText)

	row := func(k string, v any) string {
		return label.Render(k) + value.Render(fmt.Sprint(v))
	}

	var lines []string
	lines = append(lines, section.Render("CANVAS"))
	s := m.stats
	lines = append(lines,
		row("messages", s.TotalNodes),
		row("threads", s.Branches),
		row("forks", s.BranchPoints),
		row("depth", s.MaxDepth),
	)
	if s.MergeEdges > 0 {
		lines = append(lines, row("merges", s.MergeEdges))
	}
	if s.DanglingRefs > 0 {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Failed).Render(fmt.Sprintf("%d broken links", s.DanglingRefs)))
	}

	if len(m.roles) > 0 && s.TotalNodes > 0 {
		lines = append(lines, "", section.Render("ROLES"))
		barWidth := inner - 16
		for _, rc := range m.roles {
			share := float64(rc.Count) / float64(s.TotalNodes)
			name := truncate.StringWithTail(string(rc.Role), 9, "…")
			lines = append(lines, fmt.Sprintf("%-9s %s %4d",
				name, RenderMiniBar(share, barWidth, t.RoleColor(rc.Role), t), rc.Count))
		}
	}

	lines = append(lines, "", section.Render("LIVE"))
	lines = append(lines, RenderConnBadge(m.conn, m.deps.Sync != nil, t))
	if m.deps.Sync != nil {
		if hb := m.deps.Sync.LastHeartbeat(); !hb.IsZero() {
			age := m.now().Sub(hb).Truncate(time.Second)
			lines = append(lines, row("heartbeat", age.String()+" ago"))
		}
	}
	if m.lastDiag != nil {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Failed).Render(
			truncate.StringWithTail(m.lastDiag.Error, uint(inner), "…")))
	}

	if id := m.engine.Selected(); id != "" {
		if c := m.engine.Canvas(); c != nil {
			n := c.Nodes[id]
			lines = append(lines, "", section.Render("SELECTED"))
			lines = append(lines, RenderRoleBadge(n.Message.Role, t)+" "+
				t.Renderer.NewStyle().Foreground(t.Subtext).Render(truncate.StringWithTail(id, uint(inner-12), "…")))
			lines = append(lines, row("depth", max(0, len(loader.Thread(c, id))-1)))
			lines = append(lines, row("children", len(n.ChildIDs)))
			if loader.HasSiblings(c, id) {
				lines = append(lines, row("siblings", "yes"))
			}
			if sub, err := loader.LoadSubtree(c, id); err == nil {
				lines = append(lines, row("subtree", sub.TotalCount()))
			}
		}
	}

	lines = append(lines, "", RenderDivider(inner, t))
	lines = append(lines, t.Renderer.NewStyle().Foreground(t.Secondary).Render(
		fmt.Sprintf("flow %s · %d placed", m.engine.Direction(), len(m.engine.Vertices())-len(m.engine.Pending()))))

	if len(lines) > height-2 {
		lines = lines[:max(0, height-2)]
	}

	return t.Renderer.NewStyle().
		Width(PanelWidth-2).
		Height(height-2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
