package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Dracula-inspired
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBg          = lipgloss.Color("#282A36")
	ColorBgSubtle    = lipgloss.Color("#363949")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")
	ColorPink    = lipgloss.Color("#FF79C6")
)

// Theme groups the colours of the canvas view. Renderer is the lipgloss
// renderer styles are created from, so tests can force a colour profile.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor

	User      lipgloss.AdaptiveColor
	Assistant lipgloss.AdaptiveColor
	System    lipgloss.AdaptiveColor
	Selected  lipgloss.AdaptiveColor
	Edge      lipgloss.AdaptiveColor
	Merge     lipgloss.AdaptiveColor

	Connected    lipgloss.AdaptiveColor
	Connecting   lipgloss.AdaptiveColor
	Disconnected lipgloss.AdaptiveColor
	Failed       lipgloss.AdaptiveColor
}

// DefaultTheme returns the Dracula theme bound to r; nil means the default
// renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: string(ColorPrimary)},
		Secondary: lipgloss.AdaptiveColor{Light: "#5A5A8A", Dark: string(ColorMuted)},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: string(ColorSubtext)},
		Border:    lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: string(ColorBgHighlight)},
		Highlight: lipgloss.AdaptiveColor{Light: "#EEEEFF", Dark: string(ColorBgSubtle)},

		User:      lipgloss.AdaptiveColor{Light: "#006080", Dark: string(ColorInfo)},
		Assistant: lipgloss.AdaptiveColor{Light: "#007700", Dark: string(ColorSuccess)},
		System:    lipgloss.AdaptiveColor{Light: "#555555", Dark: string(ColorMuted)},
		Selected:  lipgloss.AdaptiveColor{Light: "#CC6600", Dark: string(ColorWarning)},
		Edge:      lipgloss.AdaptiveColor{Light: "#888888", Dark: string(ColorSubtext)},
		Merge:     lipgloss.AdaptiveColor{Light: "#AA3377", Dark: string(ColorPink)},

		Connected:    lipgloss.AdaptiveColor{Light: "#007700", Dark: string(ColorSuccess)},
		Connecting:   lipgloss.AdaptiveColor{Light: "#006080", Dark: string(ColorInfo)},
		Disconnected: lipgloss.AdaptiveColor{Light: "#555555", Dark: string(ColorMuted)},
		Failed:       lipgloss.AdaptiveColor{Light: "#CC0000", Dark: string(ColorDanger)},
	}
}

// RoleColor returns the box colour of a message role
func (t Theme) RoleColor(role model.Role) lipgloss.AdaptiveColor {
	switch role {
	case model.RoleUser:
		return t.User
	case model.RoleAssistant:
		return t.Assistant
	default:
		return t.System
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// RenderRoleBadge returns a short styled role label
func RenderRoleBadge(role model.Role, t Theme) string {
	label := strings.ToUpper(string(role))
	if label == "" {
		label = "?"
	}
	return t.Renderer.NewStyle().
		Foreground(t.RoleColor(role)).
		Bold(true).
		Render(label)
}

// RenderConnBadge returns the connection indicator shown in the header
func RenderConnBadge(state livesync.ConnState, live bool, t Theme) string {
	if !live {
		return t.Renderer.NewStyle().Foreground(t.Disconnected).Render("○ static")
	}
	var fg lipgloss.AdaptiveColor
	var icon string
	switch state {
	case livesync.Connected:
		fg, icon = t.Connected, "●"
	case livesync.Connecting:
		fg, icon = t.Connecting, "◌"
	case livesync.Error:
		fg, icon = t.Failed, "✕"
	default:
		fg, icon = t.Disconnected, "○"
	}
	return t.Renderer.NewStyle().Foreground(fg).Render(fmt.Sprintf("%s %s", icon, state))
}

// ══════════════════════════════════════════════════════════════════════════════
// METRIC VISUALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// RenderMiniBar renders a mini horizontal bar for a value between 0 and 1
func RenderMiniBar(value float64, width int, color lipgloss.TerminalColor, t Theme) string {
	if width <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}

	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(color).Render(bar)
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}
