package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
)

// Preview port range tried when no port is given
const (
	PreviewPortRangeStart = 9000
	PreviewPortRangeEnd   = 9100
)

// RenderFunc draws the current snapshot in the given format
type RenderFunc func(w io.Writer, format string) error

// PreviewServer serves a live snapshot of a canvas over HTTP. Every request
// renders afresh, so an open browser tab follows the canvas as it changes.
type PreviewServer struct {
	render   RenderFunc
	port     int
	refresh  time.Duration
	server   *http.Server
	rendered atomic.Int64
}

// NewPreviewServer creates a preview server for render on port
func NewPreviewServer(render RenderFunc, port int) *PreviewServer {
	return &PreviewServer{render: render, port: port, refresh: 2 * time.Second}
}

// Handler returns the HTTP routes of the preview
func (p *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", p.indexHandler)
	mux.HandleFunc("/snapshot.svg", p.snapshotHandler(FormatSVG, "image/svg+xml"))
	mux.HandleFunc("/snapshot.png", p.snapshotHandler(FormatPNG, "image/png"))
	mux.HandleFunc("/snapshot.json", p.snapshotHandler(FormatJSON, "application/json"))
	mux.HandleFunc("/__preview__/status", p.statusHandler)
	return noCacheMiddleware(mux)
}

// Start serves until the server is stopped
func (p *PreviewServer) Start() error {
	if p.render == nil {
		return fmt.Errorf("preview has nothing to render")
	}
	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.port),
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Preview server running", "url", p.URL())
	return p.server.ListenAndServe()
}

// StartWithGracefulShutdown serves until SIGINT/SIGTERM or ctx ends
func (p *PreviewServer) StartWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := p.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down preview server")
		return p.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the preview server
func (p *PreviewServer) Stop() error {
	if p.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.server.Shutdown(ctx)
}

// Port returns the port the server listens on
func (p *PreviewServer) Port() int {
	return p.port
}

// URL returns the address of the preview page
func (p *PreviewServer) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

const indexPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>canvas preview</title>
<meta http-equiv="refresh" content="%d"></head>
<body style="margin:0;background:#f9fafb"><img src="/snapshot.svg" alt="canvas"></body></html>
`

func (p *PreviewServer) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, int(p.refresh/time.Second))
}

func (p *PreviewServer) snapshotHandler(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := p.render(&buf, format); err != nil {
			logger.Warn("Preview render failed", "format", format, "error", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		p.rendered.Add(1)
		w.Header().Set("Content-Type", contentType)
		w.Write(buf.Bytes())
	}
}

func (p *PreviewServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "running",
		"port":     p.port,
		"rendered": p.rendered.Load(),
	})
}

// noCacheMiddleware adds headers to prevent browser caching
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FindAvailablePort finds an available port in the given range
func FindAvailablePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, end)
}
