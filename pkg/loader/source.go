package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/watcher"
)

// FileSource serves a canvas stored in a local file. Saving the file emits
// a canvas_updated event, so an offline canvas live-reloads through the same
// reconciler as a remote one.
type FileSource struct {
	path string
	opts []watcher.Option
}

// NewFileSource creates a source for path
func NewFileSource(path string, opts ...watcher.Option) *FileSource {
	return &FileSource{path: path, opts: opts}
}

// CanvasID loads the file and returns the id of the canvas it holds
func (s *FileSource) CanvasID() (string, error) {
	canvas, err := LoadCanvasFromFile(s.path)
	if err != nil {
		return "", err
	}
	return canvas.CanvasID, nil
}

// FetchCanvas re-reads the file. Asking for a canvas the file does not hold
// is ErrNotFound.
func (s *FileSource) FetchCanvas(ctx context.Context, canvasID string) (*model.CanvasData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canvas, err := LoadCanvasFromFile(s.path)
	if err != nil {
		return nil, err
	}
	if canvas.CanvasID != canvasID {
		return nil, fmt.Errorf("%w: %s is not in %s", livesync.ErrNotFound, canvasID, s.path)
	}
	return canvas, nil
}

// Subscribe watches the file until ctx ends or the stream is closed
func (s *FileSource) Subscribe(ctx context.Context, canvasID string) (livesync.Stream, error) {
	w, err := watcher.New(s.path, s.opts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	if err := w.Start(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", s.path, err)
	}
	return &fileStream{canvasID: canvasID, watcher: w, ctx: ctx, cancel: cancel}, nil
}

type fileStream struct {
	canvasID string
	watcher  *watcher.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

func (f *fileStream) Next() (model.StreamEvent, error) {
	select {
	case <-f.ctx.Done():
		return model.StreamEvent{}, io.EOF
	case <-f.watcher.Changes():
	}

	data, err := json.Marshal(model.CanvasEvent{
		Type:      model.EventCanvasUpdated,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		CanvasID:  f.canvasID,
	})
	if err != nil {
		return model.StreamEvent{}, err
	}
	return model.StreamEvent{Event: string(model.EventCanvasUpdated), Data: data}, nil
}

func (f *fileStream) Close() error {
	f.once.Do(func() {
		f.cancel()
		f.watcher.Stop()
	})
	return nil
}
