package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/analysis"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/engine"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/navigator"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/session"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/viewport"
)

// Zoom step for +/- and the pan step for shift+arrows, in cells
const (
	zoomStep  = 1.2
	panCols   = 8
	panRows   = 4
	fitMargin = 0.08
)

// Syncer is the live side of the view. *livesync.Reconciler implements it.
type Syncer interface {
	Updates() <-chan livesync.Update
	Reconnect(ctx context.Context) error
	State() livesync.ConnState
	LastHeartbeat() time.Time
}

// Options toggles the chrome around the canvas
type Options struct {
	ShowMinimap  bool
	ShowControls bool
	ShowPanel    bool
}

// DefaultOptions shows everything
func DefaultOptions() Options {
	return Options{ShowMinimap: true, ShowControls: true, ShowPanel: true}
}

// Deps are the collaborators of a CanvasModel. Only Engine is required
// to be meaningful; a nil Sync shows a static canvas.
type Deps struct {
	Sync      Syncer
	History   *session.Store
	Clipboard func(string) error
	Engine    engine.Options
	Source    string // server URL or file path, recorded in the history
	Context   context.Context
	Renderer  *lipgloss.Renderer
	Now       func() time.Time
}

// CanvasModel is the bubbletea model of the canvas view
type CanvasModel struct {
	ctx     context.Context
	deps    Deps
	opts    Options
	theme   Theme
	styles  map[ink]lipgloss.Style
	engine  *engine.Engine
	now     func() time.Time
	width   int
	height  int
	ticking bool

	conn     livesync.ConnState
	connErr  error
	lastDiag *model.ErrorEventData
	status   status

	stats analysis.CanvasStats
	roles []analysis.RoleCount

	restore *session.Visit

	shakeID    string
	shakeStart time.Time

	help   HelpOverlayModel
	search *SearchModel
	detail *DetailModel
}

// NewCanvasModel creates the view. canvas may be nil when the first canvas
// is still to arrive from deps.Sync.
func NewCanvasModel(canvas *model.CanvasData, opts Options, deps Deps) *CanvasModel {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	theme := DefaultTheme(deps.Renderer)
	m := &CanvasModel{
		ctx:    deps.Context,
		deps:   deps,
		opts:   opts,
		theme:  theme,
		styles: inkStyles(theme),
		now:    deps.Now,
		help:   NewHelpOverlayModel(theme),
	}

	eo := deps.Engine
	eo.Sizes = newBoxSizer(theme, m.nodes)
	eo.Viewport = append(append([]viewport.Option(nil), eo.Viewport...), viewport.WithClock(deps.Now))
	m.engine = engine.New(eo)

	if canvas != nil {
		if err := m.engine.Load(canvas); err != nil {
			logger.Error("Loading canvas", "canvas", canvas.CanvasID, "error", err)
		}
		m.refreshStats()
	}
	return m
}

func inkStyles(t Theme) map[ink]lipgloss.Style {
	fg := func(c lipgloss.TerminalColor) lipgloss.Style {
		return t.Renderer.NewStyle().Foreground(c)
	}
	return map[ink]lipgloss.Style{
		inkEdge:      fg(t.Edge),
		inkMerge:     fg(t.Merge),
		inkUser:      fg(t.User),
		inkAssistant: fg(t.Assistant),
		inkSystem:    fg(t.System),
		inkSelected:  fg(t.Selected).Bold(true),
		inkText:      t.Renderer.NewStyle(),
		inkMuted:     fg(t.Subtext),
		inkFrame:     fg(t.Secondary),
		inkViewport:  fg(t.Primary),
	}
}

// nodes feeds the box sizer the nodes of the current canvas
func (m *CanvasModel) nodes() map[string]model.ConversationNode {
	if c := m.engine.Canvas(); c != nil {
		return c.Nodes
	}
	return nil
}

// Engine exposes the layout engine, for tests and the export command
func (m *CanvasModel) Engine() *engine.Engine { return m.engine }

// Init implements tea.Model
func (m *CanvasModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.deps.Sync != nil {
		cmds = append(cmds, waitForUpdate(m.deps.Sync.Updates()))
	}
	if c := m.engine.Canvas(); c != nil {
		cmds = append(cmds, measureCmd(c.CanvasID))
		cmds = append(cmds, m.openedCmds(c)...)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m *CanvasModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case updateMsg:
		cmd := m.handleUpdate(msg.update)
		return m, tea.Batch(waitForUpdate(m.deps.Sync.Updates()), cmd)

	case sizesReadyMsg:
		c := m.engine.Canvas()
		if c == nil || c.CanvasID != msg.canvasID {
			return m, nil
		}
		if err := m.engine.SizesReady(); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.applyRestore()
		return m, m.startTicking()

	case visitMsg:
		if msg.found {
			v := msg.visit
			m.restore = &v
			m.applyRestore()
		}
		return m, m.startTicking()

	case tickMsg:
		return m, m.handleTick(time.Time(msg))

	case copiedMsg:
		if msg.err != nil {
			m.setStatus("copy failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("copied "+msg.nodeID, false)
		}
		return m, nil

	case reconnectedMsg:
		if msg.err != nil {
			m.setStatus("reconnect failed: "+msg.err.Error(), true)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.detail != nil {
		d, cmd := m.detail.Update(msg)
		m.detail = &d
		return m, cmd
	}
	return m, nil
}

func (m *CanvasModel) handleUpdate(u livesync.Update) tea.Cmd {
	switch u.Kind {
	case livesync.UpdateCanvas:
		return m.applyCanvas(u.Canvas)
	case livesync.UpdateStatus:
		m.conn, m.connErr = u.State, u.Err
		if u.Err != nil {
			m.setStatus(u.Err.Error(), true)
		}
	case livesync.UpdateDiagnostic:
		m.lastDiag = u.Diagnostic
		if u.Diagnostic != nil {
			m.setStatus("server: "+u.Diagnostic.Message, true)
		}
	case livesync.UpdateFetchFailed:
		m.setStatus("refresh failed, showing last canvas", true)
	}
	return nil
}

// applyCanvas loads a new canvas or refreshes the current one in place
func (m *CanvasModel) applyCanvas(canvas *model.CanvasData) tea.Cmd {
	if canvas == nil {
		return nil
	}
	prev := m.engine.Canvas()
	switching := prev == nil || prev.CanvasID != canvas.CanvasID

	if err := m.engine.Apply(canvas); err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	m.refreshStats()

	if m.detail != nil {
		if _, ok := canvas.Nodes[m.detail.NodeID()]; ok {
			d := NewDetailModel(canvas, m.detail.NodeID(), m.theme, m.detail.width, m.detail.height)
			m.detail = &d
		} else {
			m.detail = nil
		}
	}

	cmds := []tea.Cmd{measureCmd(canvas.CanvasID)}
	if switching {
		m.restore = nil
		m.search = nil
		m.detail = nil
		cmds = append(cmds, m.openedCmds(canvas)...)
	}
	return tea.Batch(cmds...)
}

// openedCmds record the visit and look up the remembered view state
func (m *CanvasModel) openedCmds(c *model.CanvasData) []tea.Cmd {
	h := m.deps.History
	if h == nil {
		return nil
	}
	id, title, source := c.CanvasID, c.DisplayTitle(), m.deps.Source
	record := func() tea.Msg {
		if err := h.RecordOpen(m.ctx, id, title, source); err != nil {
			logger.Warn("Recording canvas visit", "canvas", id, "error", err)
		}
		return nil
	}
	return []tea.Cmd{tea.Sequence(lookupVisitCmd(m.ctx, h, id), record)}
}

// applyRestore brings back the remembered direction and selection once
// the canvas has been placed.
func (m *CanvasModel) applyRestore() {
	c := m.engine.Canvas()
	if m.restore == nil || c == nil || m.engine.NeedsSizes() {
		return
	}
	v := *m.restore
	m.restore = nil
	if v.CanvasID != c.CanvasID {
		return
	}
	if v.Direction.IsValid() && v.Direction != m.engine.Direction() {
		if err := m.engine.SetDirection(v.Direction); err != nil {
			logger.Warn("Restoring direction", "canvas", c.CanvasID, "error", err)
		}
	}
	if v.Selected != "" {
		m.engine.Select(v.Selected)
	}
}

func (m *CanvasModel) refreshStats() {
	c := m.engine.Canvas()
	m.stats = analysis.ComputeStats(c)
	m.roles = analysis.RoleBreakdown(c)
}

func (m *CanvasModel) setStatus(text string, isError bool) {
	m.status = status{text: text, isError: isError, until: m.now().Add(statusTTL)}
}

// startTicking begins the frame loop when something is moving
func (m *CanvasModel) startTicking() tea.Cmd {
	if m.ticking || (!m.engine.View().Animating() && m.shakeID == "") {
		return nil
	}
	m.ticking = true
	return tickCmd()
}

func (m *CanvasModel) handleTick(now time.Time) tea.Cmd {
	animating := m.engine.View().Advance(now)
	if m.shakeID != "" && now.Sub(m.shakeStart) >= shakeDuration {
		m.shakeID = ""
	}
	if animating || m.shakeID != "" {
		return tickCmd()
	}
	m.ticking = false
	return nil
}

// shakeOffset is the jitter of the shaking box for the current frame
func (m *CanvasModel) shakeOffset() int {
	if m.shakeID == "" {
		return 0
	}
	frame := int(m.now().Sub(m.shakeStart) / frameInterval)
	if frame%2 == 0 {
		return 1
	}
	return -1
}

func (m *CanvasModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, m.quit()
	}

	if m.help.IsVisible() {
		m.help, _ = m.help.Update(msg)
		return m, nil
	}

	if m.search != nil {
		s, cmd := m.search.Update(msg)
		m.search = &s
		switch {
		case s.Submitted():
			id, _ := s.Selected()
			m.search = nil
			return m, tea.Batch(m.selectNode(id), m.startTicking())
		case s.Cancelled():
			m.search = nil
		}
		return m, cmd
	}

	if m.detail != nil {
		switch key {
		case "esc", "enter", "q":
			m.detail = nil
			return m, nil
		case "y":
			return m, m.copySelected()
		}
		d, cmd := m.detail.Update(msg)
		m.detail = &d
		return m, cmd
	}

	if dir, ok := navigator.DirectionFromKey(key); ok {
		return m, m.navigate(dir)
	}

	switch key {
	case "q":
		return m, m.quit()
	case "esc":
		m.engine.DeselectAll()
		return m, m.persistSelection()
	case "V":
		return m, m.setDirection(graph.TopToBottom)
	case "H":
		return m, m.setDirection(graph.LeftToRight)
	case "r":
		if err := m.engine.Relayout(); err != nil {
			m.setStatus(err.Error(), true)
		}
	case "c":
		m.engine.CenterOnRoot()
	case "f":
		m.engine.View().FitView(m.engine.Vertices(), fitMargin)
	case "+", "=":
		m.engine.View().ZoomBy(zoomStep)
	case "-", "_":
		m.engine.View().ZoomBy(1 / zoomStep)
	case "shift+left":
		m.engine.View().Pan(panCols*CellWidth, 0)
	case "shift+right":
		m.engine.View().Pan(-panCols*CellWidth, 0)
	case "shift+up":
		m.engine.View().Pan(0, panRows*CellHeight)
	case "shift+down":
		m.engine.View().Pan(0, -panRows*CellHeight)
	case "/":
		if m.engine.Canvas() != nil {
			s := NewSearchModel(m.engine.Canvas(), m.theme)
			s.SetWidth(m.width - 4)
			m.search = &s
		}
	case "enter":
		if id := m.engine.Selected(); id != "" {
			d := NewDetailModel(m.engine.Canvas(), id, m.theme, m.modalWidth(), m.height-4)
			m.detail = &d
		}
	case "y":
		return m, m.copySelected()
	case "R":
		if m.deps.Sync == nil {
			m.setStatus("static canvas, nothing to reconnect", false)
			return m, nil
		}
		m.setStatus("reconnecting…", false)
		return m, reconnectCmd(m.ctx, m.deps.Sync)
	case "?":
		m.help.Toggle()
	case "m":
		m.opts.ShowMinimap = !m.opts.ShowMinimap
	case "p":
		m.opts.ShowPanel = !m.opts.ShowPanel
		m.resize()
	}
	return m, m.startTicking()
}

func (m *CanvasModel) navigate(dir navigator.Direction) tea.Cmd {
	out := m.engine.Navigate(dir)
	switch {
	case out.Shake:
		m.shakeID = m.engine.Selected()
		m.shakeStart = m.now()
	case out.Moved:
		return tea.Batch(m.persistSelection(), m.startTicking())
	}
	return m.startTicking()
}

func (m *CanvasModel) selectNode(id string) tea.Cmd {
	if !m.engine.Select(id) {
		return nil
	}
	return m.persistSelection()
}

func (m *CanvasModel) setDirection(dir graph.Direction) tea.Cmd {
	if dir == m.engine.Direction() {
		return nil
	}
	if err := m.engine.SetDirection(dir); err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	cmds := []tea.Cmd{m.startTicking()}
	if h, c := m.deps.History, m.engine.Canvas(); h != nil && c != nil {
		id := c.CanvasID
		cmds = append(cmds, func() tea.Msg {
			if err := h.SetDirection(m.ctx, id, dir); err != nil {
				logger.Warn("Saving direction", "canvas", id, "error", err)
			}
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m *CanvasModel) persistSelection() tea.Cmd {
	h, c := m.deps.History, m.engine.Canvas()
	if h == nil || c == nil {
		return nil
	}
	id, sel := c.CanvasID, m.engine.Selected()
	return func() tea.Msg {
		if err := h.SetSelected(m.ctx, id, sel); err != nil {
			logger.Warn("Saving selection", "canvas", id, "error", err)
		}
		return nil
	}
}

func (m *CanvasModel) copySelected() tea.Cmd {
	id := m.engine.Selected()
	c := m.engine.Canvas()
	if id == "" || c == nil {
		m.setStatus("nothing selected", false)
		return nil
	}
	return copyCmd(m.deps.Clipboard, id, c.Nodes[id].Message.Text())
}

func (m *CanvasModel) quit() tea.Cmd {
	if cmd := m.persistSelection(); cmd != nil {
		return tea.Sequence(cmd, tea.Quit)
	}
	return tea.Quit
}

// panelVisible reports whether the side panel fits
func (m *CanvasModel) panelVisible() bool {
	return m.opts.ShowPanel && m.width >= BreakpointNarrow
}

// canvasSize is the grid area in cells
func (m *CanvasModel) canvasSize() (w, h int) {
	w = m.width
	if m.panelVisible() {
		w -= PanelWidth
	}
	h = m.height - 1
	if m.opts.ShowControls {
		h--
	}
	return max(w, MinCanvasWidth), max(h, MinCanvasHeight)
}

func (m *CanvasModel) modalWidth() int {
	return min(max(m.width-8, 30), 90)
}

func (m *CanvasModel) resize() {
	w, h := m.canvasSize()
	m.engine.Resize(viewport.Size{Width: float64(w) * CellWidth, Height: float64(h) * CellHeight})
	m.help.SetSize(m.width, m.height)
	if m.detail != nil {
		m.detail.SetSize(m.modalWidth(), m.height-4)
	}
	if m.search != nil {
		m.search.SetWidth(m.width - 4)
	}
}

// View implements tea.Model
func (m *CanvasModel) View() string {
	if m.width == 0 {
		return "Loading canvas..."
	}

	body := m.renderCanvas()
	if m.panelVisible() {
		_, h := m.canvasSize()
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderPanel(h))
	}
	view := m.renderHeader() + "\n" + body
	if m.opts.ShowControls {
		view += "\n" + m.renderControls()
	}

	switch {
	case m.help.IsVisible():
		view = renderModalOverlay(view, m.help.View(), m.width, m.height)
	case m.search != nil:
		view = renderModalOverlay(view, m.search.View(), m.width, m.height)
	case m.detail != nil:
		view = renderModalOverlay(view, m.detail.View(), m.width, m.height)
	}
	return view
}

// renderCanvas draws the placed vertices on a grid the size of the canvas
// area. Vertices still waiting for a size are left out.
func (m *CanvasModel) renderCanvas() string {
	w, h := m.canvasSize()
	c := m.engine.Canvas()
	if c == nil {
		msg := "Waiting for canvas…"
		if m.connErr != nil {
			msg = "Could not load canvas: " + m.connErr.Error()
		}
		return m.theme.Renderer.Place(w, h, lipgloss.Center, lipgloss.Center,
			m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).Render(msg))
	}

	g := newGrid(w, h)
	s := m.scene()
	drawCanvas(g, s)
	if m.opts.ShowMinimap {
		drawMinimap(g, s)
	}
	if len(s.vertices) == 0 {
		g.text(2, 1, "(empty canvas)", w-4, inkMuted)
	}
	return g.render(m.styles)
}

func (m *CanvasModel) scene() scene {
	skip := make(map[string]bool)
	for _, id := range m.engine.Pending() {
		skip[id] = true
	}
	all := m.engine.Vertices()
	placed := make([]graph.Vertex, 0, len(all))
	for _, v := range all {
		if !skip[v.ID] {
			placed = append(placed, v)
		}
	}
	return scene{
		vertices:  placed,
		edges:     m.engine.Edges(),
		dir:       m.engine.Direction(),
		nodes:     m.nodes(),
		view:      m.engine.View(),
		selected:  m.engine.Selected(),
		shakeID:   m.shakeID,
		shakeStep: m.shakeOffset(),
	}
}

func (m *CanvasModel) renderHeader() string {
	t := m.theme
	title := "canvas"
	if c := m.engine.Canvas(); c != nil {
		title = c.DisplayTitle()
	}
	left := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(title)

	tr := m.engine.Transform()
	right := fmt.Sprintf("%s  %s  %3.0f%%",
		RenderConnBadge(m.conn, m.deps.Sync != nil, t),
		t.Renderer.NewStyle().Foreground(t.Subtext).Render(m.engine.Direction().String()),
		tr.Zoom*100)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return left
	}
	return " " + left + strings.Repeat(" ", gap) + right + " "
}

func (m *CanvasModel) renderControls() string {
	t := m.theme
	if m.status.text != "" && m.now().Before(m.status.until) {
		fg := t.Subtext
		if m.status.isError {
			fg = t.Failed
		}
		return t.Renderer.NewStyle().Foreground(fg).MaxWidth(m.width).Render(" " + m.status.text)
	}
	hints := " ←↑↓→ move  enter open  / search  V/H flow  +/- zoom  f fit  c root  y copy  ? help  q quit"
	return t.Renderer.NewStyle().Foreground(t.Secondary).MaxWidth(m.width).Render(hints)
}
