package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/session"
)

// frameInterval paces viewport tweens and shake feedback
const frameInterval = 33 * time.Millisecond

// statusTTL is how long a transient status line stays up
const statusTTL = 4 * time.Second

// shakeDuration is how long a refused navigation jiggles the selection
const shakeDuration = 300 * time.Millisecond

// updateMsg wraps one reconciler update
type updateMsg struct {
	update livesync.Update
}

// sizesReadyMsg arrives once the boxes of pending vertices were measured
type sizesReadyMsg struct {
	canvasID string
}

// tickMsg drives animation frames
type tickMsg time.Time

// copiedMsg reports the outcome of a clipboard copy
type copiedMsg struct {
	nodeID string
	err    error
}

// reconnectedMsg reports the outcome of a manual reconnect
type reconnectedMsg struct {
	err error
}

// visitMsg carries the remembered view state of a canvas
type visitMsg struct {
	visit session.Visit
	found bool
}

// status is a transient message shown in the controls bar
type status struct {
	text    string
	isError bool
	until   time.Time
}

// waitForUpdate blocks on the reconciler and turns the next update into a
// message. It is re-armed after every update.
func waitForUpdate(ch <-chan livesync.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg{update: u}
	}
}

func measureCmd(canvasID string) tea.Cmd {
	return func() tea.Msg {
		return sizesReadyMsg{canvasID: canvasID}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func copyCmd(write func(string) error, nodeID, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{nodeID: nodeID, err: write(text)}
	}
}

func reconnectCmd(ctx context.Context, s Syncer) tea.Cmd {
	return func() tea.Msg {
		return reconnectedMsg{err: s.Reconnect(ctx)}
	}
}

func lookupVisitCmd(ctx context.Context, h *session.Store, canvasID string) tea.Cmd {
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		v, found, err := h.Get(ctx, canvasID)
		if err != nil {
			return visitMsg{}
		}
		return visitMsg{visit: v, found: found}
	}
}
