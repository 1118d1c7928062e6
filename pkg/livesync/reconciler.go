package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/watcher"
)

// UpdateKind classifies an Update
type UpdateKind int

const (
	// UpdateCanvas carries a freshly fetched canvas
	UpdateCanvas UpdateKind = iota
	// UpdateStatus reports a connection state change
	UpdateStatus
	// UpdateDiagnostic relays a server error event; the stream stays open
	UpdateDiagnostic
	// UpdateFetchFailed reports a refetch that failed; the last canvas stays
	UpdateFetchFailed
)

// Update is delivered on Reconciler.Updates
type Update struct {
	Kind       UpdateKind
	CanvasID   string
	Canvas     *model.CanvasData
	Initial    bool // first canvas after Switch or Reconnect
	State      ConnState
	Err        error
	Diagnostic *model.ErrorEventData
}

const defaultUpdateBuffer = 32

// Option configures a Reconciler
type Option func(*Reconciler)

// WithDebounce delays refetches until events have been quiet for d
func WithDebounce(d time.Duration) Option {
	return func(r *Reconciler) {
		r.debounce = d
	}
}

// WithUpdateBuffer sets the capacity of the Updates channel
func WithUpdateBuffer(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// Reconciler owns at most one event stream subscription, for the active
// canvas, and turns its events into refetched canvases. A mutation event
// never patches local state directly: it only schedules a full refetch.
type Reconciler struct {
	fetcher    Fetcher
	subscriber Subscriber
	debounce   time.Duration
	bufferSize int
	updates    chan Update

	switchMu sync.Mutex // serializes Switch, Reconnect and Close

	mu            sync.Mutex
	active        string
	state         ConnState
	sub           *subscription
	lastHeartbeat time.Time

	opened atomic.Int64
	closed atomic.Int64
}

type subscription struct {
	id        string
	canvasID  string
	ctx       context.Context
	cancel    context.CancelFunc
	stream    Stream
	group     errgroup.Group
	refetch   chan struct{}
	debouncer *watcher.Debouncer
}

// signal queues one refetch. A refetch already queued absorbs the signal.
func (s *subscription) signal() {
	select {
	case s.refetch <- struct{}{}:
	default:
	}
}

// New creates a Reconciler. It is idle until Switch is called.
func New(fetcher Fetcher, subscriber Subscriber, opts ...Option) *Reconciler {
	r := &Reconciler{
		fetcher:    fetcher,
		subscriber: subscriber,
		bufferSize: defaultUpdateBuffer,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.updates = make(chan Update, r.bufferSize)
	return r
}

// Updates delivers canvases and status changes. The channel is never closed.
func (r *Reconciler) Updates() <-chan Update {
	return r.updates
}

// Active returns the canvas id currently subscribed to
func (r *Reconciler) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// State returns the connection state
func (r *Reconciler) State() ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastHeartbeat returns when the last heartbeat arrived
func (r *Reconciler) LastHeartbeat() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHeartbeat
}

// Opened counts streams opened over the reconciler's lifetime
func (r *Reconciler) Opened() int64 {
	return r.opened.Load()
}

// Closed counts streams closed over the reconciler's lifetime
func (r *Reconciler) Closed() int64 {
	return r.closed.Load()
}

// Switch makes canvasID the active canvas: the previous subscription is
// closed first, then the canvas is fetched (delivered as an Initial update)
// and its event stream opened. ctx bounds the lifetime of the subscription,
// not just this call.
//
// A failed fetch or subscribe leaves the state at Error and is returned;
// there is no automatic retry.
func (r *Reconciler) Switch(ctx context.Context, canvasID string) error {
	if canvasID == "" {
		return fmt.Errorf("switch: empty canvas id")
	}

	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	r.teardown()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:       uuid.NewString(),
		canvasID: canvasID,
		ctx:      subCtx,
		cancel:   cancel,
		refetch:  make(chan struct{}, 1),
	}
	if r.debounce > 0 {
		sub.debouncer = watcher.NewDebouncer(r.debounce)
	}

	r.mu.Lock()
	r.active = canvasID
	r.sub = sub
	r.mu.Unlock()

	r.transition(sub, ConnState.Dial, nil)
	logger.Debug("Switching canvas", "canvas", canvasID, "subscription", sub.id)

	canvas, err := r.fetcher.FetchCanvas(subCtx, canvasID)
	if err != nil {
		r.transition(sub, ConnState.Fail, err)
		return fmt.Errorf("fetch canvas %s: %w", canvasID, err)
	}
	if r.isCurrent(sub, canvas) {
		r.emit(sub.ctx, Update{Kind: UpdateCanvas, CanvasID: canvasID, Canvas: canvas, Initial: true})
	}

	stream, err := r.subscriber.Subscribe(subCtx, canvasID)
	if err != nil {
		r.transition(sub, ConnState.Fail, err)
		return fmt.Errorf("subscribe to canvas %s: %w", canvasID, err)
	}
	r.opened.Add(1)

	r.mu.Lock()
	sub.stream = stream
	r.mu.Unlock()

	r.transition(sub, ConnState.Open, nil)
	logger.Info("Subscribed to canvas events", "canvas", canvasID, "subscription", sub.id)

	sub.group.Go(func() error {
		r.readLoop(sub)
		return nil
	})
	sub.group.Go(func() error {
		r.refetchLoop(sub)
		return nil
	})
	return nil
}

// Reconnect re-opens the stream of the active canvas, refetching it first.
func (r *Reconciler) Reconnect(ctx context.Context) error {
	canvasID := r.Active()
	if canvasID == "" {
		return ErrNoActiveCanvas
	}
	logger.Info("Reconnecting", "canvas", canvasID)
	return r.Switch(ctx, canvasID)
}

// Close tears down the active subscription. The reconciler can be reused
// with Switch afterwards.
func (r *Reconciler) Close() error {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	r.teardown()

	r.mu.Lock()
	r.active = ""
	r.mu.Unlock()
	return nil
}

// teardown detaches and stops the current subscription. The caller holds
// switchMu.
func (r *Reconciler) teardown() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	prev := r.state
	r.state, _ = r.state.Close()
	r.mu.Unlock()

	if sub == nil {
		return
	}

	sub.cancel()
	if sub.debouncer != nil {
		sub.debouncer.Cancel()
	}
	if sub.stream != nil {
		if err := sub.stream.Close(); err != nil {
			logger.Debug("Closing event stream", "canvas", sub.canvasID, "error", err)
		}
		r.closed.Add(1)
	}
	_ = sub.group.Wait()

	if prev != Disconnected {
		r.tryEmit(Update{Kind: UpdateStatus, CanvasID: sub.canvasID, State: Disconnected})
	}
	logger.Debug("Subscription closed", "canvas", sub.canvasID, "subscription", sub.id)
}

// transition applies a state change for sub if it is still current and
// publishes the new state.
func (r *Reconciler) transition(sub *subscription, step func(ConnState) (ConnState, error), cause error) {
	r.mu.Lock()
	if r.sub != sub {
		r.mu.Unlock()
		return
	}
	next, err := step(r.state)
	if err != nil {
		r.mu.Unlock()
		logger.Warn("Ignoring connection transition", "canvas", sub.canvasID, "error", err)
		return
	}
	r.state = next
	r.mu.Unlock()

	if cause != nil {
		logger.Warn("Canvas connection failed", "canvas", sub.canvasID, "error", cause)
	}
	r.emit(sub.ctx, Update{Kind: UpdateStatus, CanvasID: sub.canvasID, State: next, Err: cause})
}

// isCurrent reports whether a fetch result for sub should be applied
func (r *Reconciler) isCurrent(sub *subscription, canvas *model.CanvasData) bool {
	if canvas == nil {
		return false
	}
	if canvas.CanvasID == "" {
		canvas.CanvasID = sub.canvasID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != sub || canvas.CanvasID != r.active {
		logger.Debug("Discarding stale canvas", "got", canvas.CanvasID, "active", r.active)
		return false
	}
	return true
}

func (r *Reconciler) readLoop(sub *subscription) {
	for {
		ev, err := sub.stream.Next()
		if err != nil {
			if sub.ctx.Err() != nil {
				return
			}
			r.transition(sub, ConnState.Fail, fmt.Errorf("event stream: %w", err))
			return
		}
		r.handle(sub, ev)
	}
}

func (r *Reconciler) handle(sub *subscription, ev model.StreamEvent) {
	switch t := ev.Type(); {
	case t == model.EventHeartbeat:
		r.mu.Lock()
		r.lastHeartbeat = time.Now()
		r.mu.Unlock()

	case t == model.EventError:
		var payload model.ErrorEvent
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			payload.Data = model.ErrorEventData{Error: "stream_error", Message: string(ev.Data)}
		}
		logger.Warn("Server reported stream error", "canvas", sub.canvasID, "error", payload.Data.Error, "message", payload.Data.Message)
		diag := payload.Data
		r.emit(sub.ctx, Update{Kind: UpdateDiagnostic, CanvasID: sub.canvasID, State: r.State(), Diagnostic: &diag})

	case t.IsMutation():
		canvasID, err := model.MutationCanvasID(ev)
		if err != nil {
			logger.Warn("Dropping malformed event", "canvas", sub.canvasID, "event", ev.Event, "error", err)
			return
		}
		if canvasID != sub.canvasID {
			logger.Debug("Ignoring event for another canvas", "event", ev.Event, "canvas", canvasID, "active", sub.canvasID)
			return
		}
		if sub.debouncer != nil {
			sub.debouncer.Trigger(sub.signal)
			return
		}
		sub.signal()

	default:
		logger.Debug("Ignoring unknown event", "event", ev.Event)
	}
}

// refetchLoop serializes refetches so that at most one is in flight and at
// most one more is queued behind it.
func (r *Reconciler) refetchLoop(sub *subscription) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.refetch:
			r.refetch(sub)
		}
	}
}

func (r *Reconciler) refetch(sub *subscription) {
	canvas, err := r.fetcher.FetchCanvas(sub.ctx, sub.canvasID)
	if err != nil {
		if sub.ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("Refetch failed, keeping last canvas", "canvas", sub.canvasID, "error", err)
		r.emit(sub.ctx, Update{Kind: UpdateFetchFailed, CanvasID: sub.canvasID, State: r.State(), Err: err})
		return
	}
	if !r.isCurrent(sub, canvas) {
		return
	}
	r.emit(sub.ctx, Update{Kind: UpdateCanvas, CanvasID: sub.canvasID, Canvas: canvas})
}

// emit delivers u unless ctx ends first
func (r *Reconciler) emit(ctx context.Context, u Update) {
	select {
	case r.updates <- u:
	case <-ctx.Done():
	}
}

// tryEmit delivers u only if there is room
func (r *Reconciler) tryEmit(u Update) {
	select {
	case r.updates <- u:
	default:
	}
}
