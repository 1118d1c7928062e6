package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/client"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/loader"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/watcher"
)

// canvasSource is where a canvas comes from: a server or a local file
type canvasSource struct {
	fetcher    livesync.Fetcher
	subscriber livesync.Subscriber
	canvasID   string
	origin     string // server URL or absolute file path
}

func (a *app) newClient() (*client.Client, error) {
	return client.New(a.cfg.ServerURL, client.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}))
}

// resolveSource picks the canvas named by args or file. With neither, the
// user picks one of the server's canvases.
func (a *app) resolveSource(ctx context.Context, args []string, file string) (*canvasSource, error) {
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		src := loader.NewFileSource(abs, watcher.WithDebounceDuration(a.cfg.Debounce))
		id, err := src.CanvasID()
		if err != nil {
			return nil, err
		}
		if len(args) > 0 && args[0] != id {
			return nil, fmt.Errorf("%s holds canvas %s, not %s", file, id, args[0])
		}
		return &canvasSource{fetcher: src, subscriber: src, canvasID: id, origin: abs}, nil
	}

	c, err := a.newClient()
	if err != nil {
		return nil, err
	}
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else if id, err = pickCanvas(ctx, c); err != nil {
		return nil, err
	}
	return &canvasSource{fetcher: c, subscriber: c, canvasID: id, origin: c.BaseURL()}, nil
}

// fetch loads the canvas once
func (s *canvasSource) fetch(ctx context.Context) (*model.CanvasData, error) {
	canvas, err := s.fetcher.FetchCanvas(ctx, s.canvasID)
	if errors.Is(err, livesync.ErrNotFound) {
		return nil, fmt.Errorf("canvas %s not found at %s", s.canvasID, s.origin)
	}
	return canvas, err
}

// pickCanvas lists the server's canvases and asks which one to open
func pickCanvas(ctx context.Context, c *client.Client) (string, error) {
	list, err := c.ListCanvases(ctx)
	if err != nil {
		return "", fmt.Errorf("list canvases: %w", err)
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no canvases on %s", c.BaseURL())
	}
	if !isTerminal() {
		return "", fmt.Errorf("no canvas id given and no terminal to pick one")
	}

	options := make([]huh.Option[string], 0, len(list))
	for _, s := range list {
		options = append(options, huh.NewOption(fmt.Sprintf("%s  (%d messages)", summaryTitle(s), s.NodeCount), s.CanvasID))
	}
	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Open canvas").
			Options(options...).
			Value(&choice),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return choice, nil
}

func summaryTitle(s model.CanvasSummary) string {
	if s.Title != nil && *s.Title != "" {
		return *s.Title
	}
	return s.CanvasID
}
