// Package loader reads canvases from disk and answers structural questions
// about conversation trees.
package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// LoadCanvasFromFile reads a canvas from path. A .jsonl file holds one
// conversation node per line and takes its canvas id from the file name;
// any other file holds a single canvas object.
func LoadCanvasFromFile(path string) (*model.CanvasData, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no canvas found at %s", path)
	}

	var (
		canvas *model.CanvasData
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		canvas, err = loadNodeLines(path)
	} else {
		canvas, err = loadCanvasObject(path)
	}
	if err != nil {
		return nil, err
	}
	if err := canvas.Validate(); err != nil {
		return nil, fmt.Errorf("invalid canvas in %s: %w", path, err)
	}
	return canvas, nil
}

func loadCanvasObject(path string) (*model.CanvasData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canvas file: %w", err)
	}
	var canvas model.CanvasData
	if err := json.Unmarshal(data, &canvas); err != nil {
		return nil, fmt.Errorf("failed to parse canvas file %s: %w", path, err)
	}
	if canvas.CanvasID == "" {
		canvas.CanvasID = canvasIDFromPath(path)
	}
	if canvas.Nodes == nil {
		canvas.Nodes = map[string]model.ConversationNode{}
	}
	return &canvas, nil
}

func loadNodeLines(path string) (*model.CanvasData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open canvas file: %w", err)
	}
	defer file.Close()

	canvas := &model.CanvasData{
		CanvasID: canvasIDFromPath(path),
		Nodes:    map[string]model.ConversationNode{},
	}

	scanner := bufio.NewScanner(file)
	// Messages with tool output can be large
	const maxCapacity = 1024 * 1024 * 10 // 10MB
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var node model.ConversationNode
		if err := json.Unmarshal(line, &node); err != nil {
			logger.Warn("Skipping malformed node line", "path", path, "line", lineNum, "error", err)
			continue
		}
		if node.ID == "" {
			logger.Warn("Skipping node without id", "path", path, "line", lineNum)
			continue
		}
		canvas.Nodes[node.ID] = node
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading canvas file: %w", err)
	}
	return canvas, nil
}

func canvasIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
