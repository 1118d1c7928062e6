package export

import (
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"
)

// rgb parses a #rrggbb colour; anything else is black
func rgb(hex string) color.Color {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || len(hex) != 7 {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func writePNG(w io.Writer, snap *snapshot) error {
	width := int(math.Ceil(snap.Width))
	height := int(math.Ceil(snap.Height))
	dc := gg.NewContext(max(width, 1), max(height, 1))
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	// Edges first so boxes cover their ends
	dc.SetLineWidth(1.5)
	for _, e := range snap.Edges {
		dc.SetColor(rgb(edgeColor))
		if e.Primary {
			dc.SetDash()
		} else {
			dc.SetDash(6, 4)
		}
		dc.DrawLine(e.From.X, e.From.Y, e.To.X, e.To.Y)
		dc.Stroke()
		drawArrowHead(dc, e.From.X, e.From.Y, e.To.X, e.To.Y)
	}
	dc.SetDash()

	for _, n := range snap.Nodes {
		dc.DrawRoundedRectangle(n.X, n.Y, n.Width, n.Height, 6)
		dc.SetColor(rgb(roleFill(n.Role)))
		dc.FillPreserve()
		if n.Selected {
			dc.SetColor(rgb(selectedColor))
			dc.SetLineWidth(3)
		} else {
			dc.SetColor(rgb(strokeColor))
			dc.SetLineWidth(1)
		}
		dc.Stroke()

		if n.Role != "" {
			dc.SetColor(rgb(edgeColor))
			dc.DrawString(string(n.Role), n.X+boxPadding, n.Y+boxPadding+lineHeight-2)
		}
		dc.SetColor(color.Black)
		dc.DrawString(n.Label, n.X+boxPadding, n.Y+boxPadding+2*lineHeight)
	}

	return dc.EncodePNG(w)
}

func drawArrowHead(dc *gg.Context, fromX, fromY, toX, toY float64) {
	const size = 8.0
	angle := math.Atan2(toY-fromY, toX-fromX)
	left := angle + math.Pi*5/6
	right := angle - math.Pi*5/6
	dc.MoveTo(toX, toY)
	dc.LineTo(toX+size*math.Cos(left), toY+size*math.Sin(left))
	dc.LineTo(toX+size*math.Cos(right), toY+size*math.Sin(right))
	dc.ClosePath()
	dc.Fill()
}
