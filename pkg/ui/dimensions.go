package ui

// One terminal cell covers this many world pixels at zoom 1.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Layout breakpoints for responsive design
const (
	// BreakpointNarrow is the width below which the side panel is hidden
	BreakpointNarrow = 80

	// BreakpointMedium is the width from which the panel is shown
	BreakpointMedium = 100
)

// Node box and panel dimensions, in cells
const (
	NodeTextWidth = 28
	NodeMaxLines  = 3

	PanelWidth = 34

	MinimapWidth  = 26
	MinimapHeight = 9

	MinCanvasWidth  = 20
	MinCanvasHeight = 5
)
