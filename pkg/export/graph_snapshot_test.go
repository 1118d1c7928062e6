package export

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

func testCanvas() *model.CanvasData {
	title := "Snapshot"
	a, b := "a", "b"
	return &model.CanvasData{
		CanvasID: "c1",
		Title:    &title,
		Nodes: map[string]model.ConversationNode{
			"a": {ID: "a", Message: model.NewTextMessage(model.RoleUser, "\n  What is a <layered> layout?\nmore"), ChildIDs: []string{"b", "c"}},
			"b": {ID: "b", Message: model.NewTextMessage(model.RoleAssistant, "Ranks, then order, then coordinates."), ParentID: &a, ChildIDs: []string{"c"}},
			"c": {ID: "c", Message: model.NewTextMessage(model.RoleUser, "Thanks"), ParentID: &b},
		},
	}
}

func TestSaveGraphSnapshot_SVGAndPNG(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name string
		file string
	}{
		{"svg", "graph.svg"},
		{"png", "graph.png"},
		{"json", "graph.json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.file)
			err := SaveGraphSnapshot(GraphSnapshotOptions{
				Path:     out,
				Canvas:   testCanvas(),
				Selected: "b",
			})
			if err != nil {
				t.Fatalf("SaveGraphSnapshot error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}
}

func TestSaveGraphSnapshot_InvalidFormat(t *testing.T) {
	err := SaveGraphSnapshot(GraphSnapshotOptions{
		Path:   filepath.Join(t.TempDir(), "graph.txt"),
		Format: "txt",
		Canvas: testCanvas(),
	})
	if err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestSaveGraphSnapshot_Empty(t *testing.T) {
	err := SaveGraphSnapshot(GraphSnapshotOptions{Path: filepath.Join(t.TempDir(), "graph.svg")})
	if err == nil {
		t.Fatalf("expected error with nothing to export")
	}
}

func TestJSONSnapshot(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGraphSnapshot(&buf, FormatJSON, GraphSnapshotOptions{Canvas: testCanvas(), Direction: graph.LeftToRight}); err != nil {
		t.Fatal(err)
	}

	var snap snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.CanvasID != "c1" || snap.Title != "Snapshot" || snap.Direction != "horizontal" {
		t.Errorf("unexpected header %+v", snap)
	}
	if len(snap.Nodes) != 3 || len(snap.Edges) != 3 {
		t.Fatalf("expected 3 nodes and 3 edges, got %d and %d", len(snap.Nodes), len(snap.Edges))
	}

	nodes := make(map[string]snapshotNode)
	for _, n := range snap.Nodes {
		nodes[n.ID] = n
	}
	if nodes["a"].Label != "What is a <layered> layout?" {
		t.Errorf("label = %q", nodes["a"].Label)
	}
	if nodes["b"].X <= nodes["a"].X {
		t.Errorf("left-to-right layout should place b right of a")
	}

	primary := 0
	for _, e := range snap.Edges {
		if e.Primary {
			primary++
		}
		// horizontal flow leaves from the right side
		src := nodes[e.Source]
		if e.From.X != src.X+src.Width {
			t.Errorf("edge %s starts at x=%f, want %f", e.ID, e.From.X, src.X+src.Width)
		}
	}
	if primary != 2 {
		t.Errorf("expected 2 primary edges, got %d", primary)
	}
}

func TestSVGMarksSelectionAndMergeEdges(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGraphSnapshot(&buf, FormatSVG, GraphSnapshotOptions{Canvas: testCanvas(), Selected: "b"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Fatalf("not an SVG document")
	}
	if strings.Count(out, "stroke-dasharray") != 1 {
		t.Errorf("expected exactly one dashed merge edge")
	}
	if !strings.Contains(out, selectedColor) {
		t.Errorf("selected node should be outlined")
	}
	if strings.Contains(out, "<layered>") {
		t.Errorf("label text must be escaped")
	}
}

func TestLabel(t *testing.T) {
	long := strings.Repeat("word ", 20)
	n := model.ConversationNode{ID: "x", Message: model.NewTextMessage(model.RoleUser, long)}
	if got := Label(n); len([]rune(got)) > labelChars || !strings.HasSuffix(got, "…") {
		t.Errorf("long label not truncated: %q", got)
	}

	empty := model.ConversationNode{ID: "x"}
	if got := Label(empty); got != "x" {
		t.Errorf("empty message should fall back to id, got %q", got)
	}
}

func TestRGB(t *testing.T) {
	if got := rgb("#ff8000"); got != (color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}) {
		t.Errorf("rgb = %v", got)
	}
	if got := rgb("teal"); got != color.Black {
		t.Errorf("unparseable colour should be black, got %v", got)
	}
}
