package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

const maxSearchResults = 8

// searchEntry is one node as the fuzzy matcher sees it
type searchEntry struct {
	id    string
	role  model.Role
	label string
}

type searchEntries []searchEntry

func (s searchEntries) String(i int) string { return s[i].label }
func (s searchEntries) Len() int            { return len(s) }

// SearchModel is the "/" modal: fuzzy match over node text, enter jumps to
// the highlighted node.
type SearchModel struct {
	input   textinput.Model
	entries searchEntries
	matches []int // indexes into entries, best first
	cursor  int
	theme   Theme
	width   int

	submitted bool
	cancelled bool
}

// NewSearchModel indexes the nodes of canvas
func NewSearchModel(canvas *model.CanvasData, theme Theme) SearchModel {
	ti := textinput.New()
	ti.Placeholder = "search messages"
	ti.Prompt = "/ "
	ti.CharLimit = 120
	ti.Width = 40
	ti.Focus()

	m := SearchModel{input: ti, theme: theme, width: 56}
	if canvas != nil {
		for _, id := range canvas.SortedIDs() {
			n := canvas.Nodes[id]
			text := strings.Join(strings.Fields(n.Message.Text()), " ")
			m.entries = append(m.entries, searchEntry{
				id:    id,
				role:  n.Message.Role,
				label: string(n.Message.Role) + " " + text,
			})
		}
	}
	m.refresh()
	return m
}

// SetWidth bounds the modal width
func (m *SearchModel) SetWidth(w int) {
	if w > 20 && w < 56 {
		m.width = w
	}
}

// Selected returns the highlighted node id
func (m SearchModel) Selected() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.matches) {
		return "", false
	}
	return m.entries[m.matches[m.cursor]].id, true
}

// Submitted reports whether enter was pressed on a match
func (m SearchModel) Submitted() bool { return m.submitted }

// Cancelled reports whether the modal was dismissed
func (m SearchModel) Cancelled() bool { return m.cancelled }

// Query returns the current input
func (m SearchModel) Query() string { return m.input.Value() }

func (m *SearchModel) refresh() {
	q := strings.TrimSpace(m.input.Value())
	m.matches = m.matches[:0]
	if q == "" {
		for i := range m.entries {
			m.matches = append(m.matches, i)
		}
	} else {
		for _, f := range fuzzy.FindFrom(q, m.entries) {
			m.matches = append(m.matches, f.Index)
		}
	}
	if m.cursor >= len(m.matches) {
		m.cursor = max(0, len(m.matches)-1)
	}
}

// Update handles input
func (m SearchModel) Update(msg tea.Msg) (SearchModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, nil
		case "enter":
			if _, ok := m.Selected(); ok {
				m.submitted = true
			}
			return m, nil
		case "up", "ctrl+p", "shift+tab":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n", "tab":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.cursor = 0
		m.refresh()
	}
	return m, cmd
}

// View renders the modal
func (m SearchModel) View() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.matches) == 0 {
		b.WriteString(t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true).Render("no matching messages"))
	}

	first := 0
	if m.cursor >= maxSearchResults {
		first = m.cursor - maxSearchResults + 1
	}
	last := min(len(m.matches), first+maxSearchResults)
	inner := m.width - 6
	for i := first; i < last; i++ {
		e := m.entries[m.matches[i]]
		badge := RenderRoleBadge(e.role, t)
		text := strings.TrimPrefix(e.label, string(e.role)+" ")
		room := inner - lipgloss.Width(badge) - 3
		if room < 4 {
			room = 4
		}
		line := badge + " " + truncate.StringWithTail(text, uint(room), "…")
		if i == m.cursor {
			line = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render("▸ ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	hint := fmt.Sprintf("%d/%d  [↑/↓] choose  [enter] go  [esc] cancel", len(m.matches), len(m.entries))
	b.WriteString(t.Renderer.NewStyle().Faint(true).Render(hint))

	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Width(m.width).
		Render(b.String())
}
