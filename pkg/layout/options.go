// Package layout computes positions for a layered drawing of a directed graph.
//
// Layout is a pure function: it keeps no state between calls and never
// mutates its inputs, so callers decide which positions to keep.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

// SizePolicy controls what happens when a vertex has no measured size
type SizePolicy int

const (
	// FailOnMissing rejects the whole call with a MissingDimensionsError.
	FailOnMissing SizePolicy = iota
	// FallbackToDefault substitutes Options.DefaultSize for missing sizes.
	FallbackToDefault
)

// String returns the config name of the policy
func (p SizePolicy) String() string {
	if p == FallbackToDefault {
		return "fallback"
	}
	return "fail"
}

// ParseSizePolicy accepts "fail" or "fallback"
func ParseSizePolicy(s string) (SizePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "strict":
		return FailOnMissing, nil
	case "fallback", "default":
		return FallbackToDefault, nil
	}
	return FailOnMissing, fmt.Errorf("unknown size policy %q", s)
}

// Options tunes the layout. Distances are in world pixels.
type Options struct {
	RankSep     float64    // gap between adjacent ranks
	NodeSep     float64    // gap between neighbouring vertices in a rank
	EdgeSep     float64    // gap contributed by virtual (edge) vertices
	MarginX     float64    // left margin of the bounding box
	MarginY     float64    // top margin of the bounding box
	Sweeps      int        // ordering and coordinate refinement passes
	Policy      SizePolicy // handling of unmeasured vertices
	DefaultSize graph.Size // used by FallbackToDefault
}

// DefaultOptions returns the standard spacing
func DefaultOptions() Options {
	return Options{
		RankSep:     100,
		NodeSep:     50,
		EdgeSep:     10,
		MarginX:     10,
		MarginY:     10,
		Sweeps:      4,
		Policy:      FailOnMissing,
		DefaultSize: graph.Size{Width: graph.DefaultWidth, Height: graph.DefaultHeight},
	}
}

// Validate checks that the options describe a usable layout
func (o Options) Validate() error {
	if o.RankSep < 0 || o.NodeSep < 0 || o.EdgeSep < 0 {
		return fmt.Errorf("%w: separations must be non-negative", ErrInvalidOptions)
	}
	if o.MarginX < 0 || o.MarginY < 0 {
		return fmt.Errorf("%w: margins must be non-negative", ErrInvalidOptions)
	}
	if o.Sweeps < 0 {
		return fmt.Errorf("%w: sweeps must be non-negative", ErrInvalidOptions)
	}
	if o.Policy == FallbackToDefault && !o.DefaultSize.Valid() {
		return fmt.Errorf("%w: default size must be positive", ErrInvalidOptions)
	}
	return nil
}

var (
	// ErrMissingDimensions is wrapped by MissingDimensionsError
	ErrMissingDimensions = errors.New("vertices missing dimensions")
	// ErrInvalidOptions reports unusable Options
	ErrInvalidOptions = errors.New("invalid layout options")
	// ErrDuplicateVertex reports two vertices sharing an id
	ErrDuplicateVertex = errors.New("duplicate vertex id")
)

// MissingDimensionsError lists the vertices that had no positive size
type MissingDimensionsError struct {
	IDs []string
}

func (e *MissingDimensionsError) Error() string {
	const limit = 5
	ids := e.IDs
	suffix := ""
	if len(ids) > limit {
		suffix = fmt.Sprintf(" (+%d more)", len(ids)-limit)
		ids = ids[:limit]
	}
	return fmt.Sprintf("%d %s: %s%s", len(e.IDs), ErrMissingDimensions, strings.Join(ids, ", "), suffix)
}

func (e *MissingDimensionsError) Unwrap() error {
	return ErrMissingDimensions
}
