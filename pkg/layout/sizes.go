package layout

import "github.com/Dicklesworthstone/canvas_viewer/pkg/graph"

// SizeProvider reports the measured size of a rendered vertex. The second
// return is false while the vertex has not been measured.
type SizeProvider interface {
	Measure(id string) (graph.Size, bool)
}

// SizeFunc adapts a function to SizeProvider
type SizeFunc func(id string) (graph.Size, bool)

// Measure calls f
func (f SizeFunc) Measure(id string) (graph.Size, bool) {
	return f(id)
}

// StaticSizes is a fixed id → size table
type StaticSizes map[string]graph.Size

// Measure looks the id up
func (s StaticSizes) Measure(id string) (graph.Size, bool) {
	size, ok := s[id]
	return size, ok && size.Valid()
}

// ApplySizes copies vertices and fills in sizes from the provider. Vertices
// the provider cannot measure keep any size they already carried; the ids of
// those still without a positive size are returned.
func ApplySizes(vertices []graph.Vertex, provider SizeProvider) ([]graph.Vertex, []string) {
	out := make([]graph.Vertex, len(vertices))
	copy(out, vertices)

	var missing []string
	for i := range out {
		if provider != nil {
			if s, ok := provider.Measure(out[i].ID); ok && s.Valid() {
				out[i].Width = s.Width
				out[i].Height = s.Height
				continue
			}
		}
		if !out[i].Measured() {
			missing = append(missing, out[i].ID)
		}
	}
	return out, missing
}

// resolveSizes returns the size used for every vertex under the policy
func resolveSizes(vertices []graph.Vertex, opts Options) ([]graph.Size, error) {
	sizes := make([]graph.Size, len(vertices))
	var missing []string
	for i, v := range vertices {
		if v.Measured() {
			sizes[i] = v.Size()
			continue
		}
		if opts.Policy == FallbackToDefault {
			sizes[i] = opts.DefaultSize
			continue
		}
		missing = append(missing, v.ID)
	}
	if len(missing) > 0 {
		return nil, &MissingDimensionsError{IDs: missing}
	}
	return sizes, nil
}
