package export

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// roleFill is the box colour per message role
func roleFill(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "#dbeafe"
	case model.RoleAssistant:
		return "#dcfce7"
	case model.RoleSystem:
		return "#f3f4f6"
	default:
		return "#ffffff"
	}
}

const (
	strokeColor   = "#374151"
	selectedColor = "#f59e0b"
	edgeColor     = "#6b7280"
)

func writeSVG(w io.Writer, snap *snapshot) error {
	width, height := int(math.Ceil(snap.Width)), int(math.Ceil(snap.Height))
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title(snap.Title)
	canvas.Rect(0, 0, width, height, "fill:#ffffff")

	canvas.Def()
	canvas.Marker("arrow", 8, 4, 8, 8, `orient="auto"`)
	canvas.Path("M0,0 L8,4 L0,8 z", "fill:"+edgeColor)
	canvas.MarkerEnd()
	canvas.DefEnd()

	canvas.Gid("edges")
	for _, e := range snap.Edges {
		style := fmt.Sprintf("stroke:%s;stroke-width:1.5;fill:none", edgeColor)
		if !e.Primary {
			style += ";stroke-dasharray:6,4"
		}
		canvas.Line(round(e.From.X), round(e.From.Y), round(e.To.X), round(e.To.Y),
			style, `marker-end="url(#arrow)"`)
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range snap.Nodes {
		stroke, strokeWidth := strokeColor, 1
		if n.Selected {
			stroke, strokeWidth = selectedColor, 3
		}
		x, y := round(n.X), round(n.Y)
		canvas.Roundrect(x, y, round(n.Width), round(n.Height), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d", roleFill(n.Role), stroke, strokeWidth))
		if n.Role != "" {
			canvas.Text(x+int(boxPadding), y+int(boxPadding+lineHeight)-2, string(n.Role),
				"font-family:monospace;font-size:11px;fill:#6b7280")
		}
		canvas.Text(x+int(boxPadding), y+int(boxPadding+2*lineHeight), n.Label,
			"font-family:monospace;font-size:12px;fill:#111827")
	}
	canvas.Gend()

	canvas.End()
	return nil
}

func round(f float64) int {
	return int(math.Round(f))
}
