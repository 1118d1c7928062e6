// Package livesync keeps a canvas in sync with its remote store by
// listening to the server push stream and refetching on change.
package livesync

import (
	"context"
	"errors"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

var (
	// ErrNotFound is returned by a Fetcher for an unknown canvas id
	ErrNotFound = errors.New("canvas not found")
	// ErrNoActiveCanvas is returned by Reconnect before any Switch
	ErrNoActiveCanvas = errors.New("no active canvas")
)

// Fetcher retrieves the full current state of a canvas
type Fetcher interface {
	FetchCanvas(ctx context.Context, canvasID string) (*model.CanvasData, error)
}

// Subscriber opens the push event stream of a canvas
type Subscriber interface {
	Subscribe(ctx context.Context, canvasID string) (Stream, error)
}

// Stream yields events until it fails or is closed. Close must unblock a
// pending Next.
type Stream interface {
	Next() (model.StreamEvent, error)
	Close() error
}

// Source is a collaborator that can both fetch and subscribe
type Source interface {
	Fetcher
	Subscriber
}
