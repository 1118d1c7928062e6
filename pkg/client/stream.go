package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// Subscribe opens the server-push stream of a canvas. The stream ends when
// ctx is cancelled or Close is called.
func (c *Client) Subscribe(ctx context.Context, canvasID string) (livesync.Stream, error) {
	if canvasID == "" {
		return nil, fmt.Errorf("subscribe: empty canvas id")
	}
	endpoint := c.endpoint("/canvas/"+url.PathEscape(canvasID)+"/sse", nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q from %s", ct, endpoint)
	}

	return &eventStream{body: resp.Body, dec: livesync.NewDecoder(resp.Body)}, nil
}

// eventStream adapts an SSE response body to livesync.Stream
type eventStream struct {
	body io.ReadCloser
	dec  *livesync.Decoder
	once sync.Once
	err  error
}

func (s *eventStream) Next() (model.StreamEvent, error) {
	return s.dec.Decode()
}

func (s *eventStream) Close() error {
	s.once.Do(func() {
		s.err = s.body.Close()
	})
	return s.err
}
