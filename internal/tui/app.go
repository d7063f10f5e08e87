// Package tui is the terminal front end: a collection picker, the swipe card and the
// results view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/database/repository"
	"github.com/jask/papertriage/internal/export"
	"github.com/jask/papertriage/internal/gesture"
	"github.com/jask/papertriage/internal/logging"
	"github.com/jask/papertriage/internal/service"
	"github.com/jask/papertriage/internal/triage"
)

// App ties together views.
type App struct {
	ctx      context.Context
	services Services
	opts     Options
	log      *zap.Logger
	keys     keyMap
	help     help.Model
	picker   list.Model
	abstract viewport.Model
	gesture  *gesture.Interpreter
	zones    *zone.Manager
	now      func() time.Time

	state         appState
	modal         modalState
	session       *service.Session
	shown         *triage.Record
	loadingID     string
	resetID       string
	resultsID     string
	results       triage.State
	dragOrigin    int
	pressedButton string
	exit          *exitFx
	width         int
	height        int
	status        string
	statusErr     bool
}

type Services struct {
	Triage      *service.TriageService
	Export      *service.ExportService
	Maintenance *service.MaintenanceService
}

// Options tunes input handling.
type Options struct {
	Gesture gesture.Config
	// CellUnits converts a drag of one terminal column into displacement units.
	CellUnits float64
	// Changes, when set, refreshes the picker whenever the collections dir changes.
	Changes <-chan struct{}
	Log     *zap.Logger
}

type appState string

const (
	viewPicker  appState = "picker"
	viewLoading appState = "loading"
	viewCard    appState = "card"
)

type modalState string

const (
	modalNone         modalState = ""
	modalResults      modalState = "results"
	modalConfirmReset modalState = "confirmReset"
)

const (
	buttonDrop = "btn-drop"
	buttonUndo = "btn-undo"
	buttonKeep = "btn-keep"
)

// exitFx is the one-line trace left by a card that was swiped away.
type exitFx struct {
	intent gesture.Intent
	title  string
}

func New(ctx context.Context, services Services, opts Options) *App {
	if opts.CellUnits <= 0 {
		opts.CellUnits = 12
	}
	if opts.Gesture.Interval <= 0 {
		opts.Gesture = gesture.DefaultConfig()
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	vp := viewport.New(60, 8)
	vp.KeyMap = viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		Up:           key.NewBinding(key.WithKeys("k")),
		Down:         key.NewBinding(key.WithKeys("j")),
	}
	return &App{
		ctx:      ctx,
		services: services,
		opts:     opts,
		log:      log.Named("tui"),
		keys:     defaultKeys(),
		help:     help.New(),
		picker:   newPicker(),
		abstract: vp,
		gesture:  gesture.New(opts.Gesture),
		zones:    zone.New(),
		now:      time.Now,
		state:    viewPicker,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadCollections(), a.waitForChange())
}

func (a *App) loadCollections() tea.Cmd {
	return func() tea.Msg {
		infos, err := a.services.Triage.Collections(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return collectionsMsg(infos)
	}
}

func (a *App) waitForChange() tea.Cmd {
	ch := a.opts.Changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case tea.MouseMsg:
		return a.handleMouse(m)
	case collectionsMsg:
		return a, a.picker.SetItems(pickerItems(m))
	case openedMsg:
		if a.state != viewLoading || m.sess.ID != a.loadingID {
			return a, nil
		}
		a.session = m.sess
		a.state = viewCard
		a.loadingID = ""
		a.exit = nil
		a.shown = nil
		a.gesture.Cancel()
		a.syncCard()
		a.setStatus("")
		return a, nil
	case openFailedMsg:
		if errors.Is(m.err, service.ErrLoadSuperseded) {
			return a, nil
		}
		if m.id == a.loadingID {
			a.state = viewPicker
			a.loadingID = ""
		}
		a.setError(m.err)
		return a, nil
	case frameMsg:
		return a.handleFrame(m)
	case exportedMsg:
		a.setStatus(fmt.Sprintf("exported %d rows to %s", m.rec.RowCount, m.rec.Path))
		return a, nil
	case resetDoneMsg:
		a.setStatus("progress reset for " + m.id)
		return a, a.loadCollections()
	case changedMsg:
		return a, tea.Batch(a.loadCollections(), a.waitForChange())
	case statusMsg:
		a.setStatus(string(m))
		return a, nil
	case errMsg:
		a.setError(m.error)
		return a, nil
	}
	if a.state == viewPicker {
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) setStatus(s string) {
	a.status = s
	a.statusErr = false
}

func (a *App) setError(err error) {
	a.log.Warn("ui error", zap.Error(err))
	a.status = "error: " + err.Error()
	a.statusErr = true
}

func (a *App) resize(w, h int) {
	a.width, a.height = w, h
	a.help.Width = w
	a.picker.SetSize(w, max(h-4, 5))
	a.abstract.Width = a.cardWidth() - 6
	a.abstract.Height = max(h-18, 3)
	a.shown = nil
	a.syncCard()
}

func (a *App) cardWidth() int {
	if a.width <= 0 {
		return 80
	}
	return min(max(a.width-2*maxShift-4, 30), 90)
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}
	if a.modal != modalNone {
		return a.handleModalKey(m)
	}
	switch a.state {
	case viewLoading:
		if key.Matches(m, a.keys.Back) {
			a.services.Triage.Close()
			a.state = viewPicker
			a.loadingID = ""
		}
		return a, nil
	case viewCard:
		return a.handleCardKey(m)
	}
	return a.handlePickerKey(m)
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.picker.FilterState() == list.Filtering {
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(m)
		return a, cmd
	}
	info, selected := a.selectedCollection()
	switch {
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil
	case key.Matches(m, a.keys.Open):
		if selected {
			return a, a.open(info.ID)
		}
		return a, nil
	case key.Matches(m, a.keys.ExportLists):
		if selected {
			return a, a.exportCmd(info.ID, export.Lists)
		}
		return a, nil
	case key.Matches(m, a.keys.ExportHistory):
		if selected {
			return a, a.exportCmd(info.ID, export.History)
		}
		return a, nil
	case key.Matches(m, a.keys.Results):
		if selected {
			a.openResults(info.ID)
		}
		return a, nil
	case key.Matches(m, a.keys.Reset):
		if selected && info.Progress.Exists {
			a.modal = modalConfirmReset
			a.resetID = info.ID
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(m)
	return a, cmd
}

func (a *App) handleCardKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Back):
		return a, a.backToPicker()
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(m, a.keys.Results):
		a.openResults(a.session.ID)
	case key.Matches(m, a.keys.ExportLists):
		return a, a.exportCmd(a.session.ID, export.Lists)
	case key.Matches(m, a.keys.ExportHistory):
		return a, a.exportCmd(a.session.ID, export.History)
	case key.Matches(m, a.keys.Keep):
		a.discrete(gesture.Keep)
	case key.Matches(m, a.keys.Drop):
		a.discrete(gesture.Drop)
	case key.Matches(m, a.keys.Undo):
		a.discrete(gesture.Undo)
	case key.Matches(m, a.keys.ScriptKeep):
		return a, a.startScripted(gesture.Keep)
	case key.Matches(m, a.keys.ScriptDrop):
		return a, a.startScripted(gesture.Drop)
	case key.Matches(m, a.keys.Scroll):
		var cmd tea.Cmd
		a.abstract, cmd = a.abstract.Update(m)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalConfirmReset:
		id := a.resetID
		a.modal = modalNone
		a.resetID = ""
		if key.Matches(m, a.keys.Confirm) {
			return a, a.resetCmd(id)
		}
		a.setStatus("reset cancelled")
	case modalResults:
		if key.Matches(m, a.keys.Back, a.keys.Results, a.keys.Quit) {
			a.modal = modalNone
		}
	}
	return a, nil
}

func (a *App) handleMouse(m tea.MouseMsg) (tea.Model, tea.Cmd) {
	if a.state != viewCard || a.modal != modalNone || a.session == nil {
		return a, nil
	}
	switch m.Action {
	case tea.MouseActionPress:
		if m.Button != tea.MouseButtonLeft {
			var cmd tea.Cmd
			a.abstract, cmd = a.abstract.Update(m)
			return a, cmd
		}
		if btn := a.buttonAt(m); btn != "" {
			a.pressedButton = btn
			return a, nil
		}
		if a.session.Engine.Complete() {
			return a, nil
		}
		if a.gesture.Press() {
			a.dragOrigin = m.X
			a.exit = nil
		}
	case tea.MouseActionMotion:
		if a.gesture.Dragging() {
			a.gesture.Move(float64(m.X-a.dragOrigin) * a.opts.CellUnits)
		}
	case tea.MouseActionRelease:
		if a.gesture.Dragging() {
			if in := a.gesture.Release(); in != gesture.None {
				a.apply(in, false)
			}
			return a, nil
		}
		btn := a.buttonAt(m)
		pressed := a.pressedButton
		a.pressedButton = ""
		if btn != "" && btn == pressed {
			return a, a.click(btn)
		}
	}
	return a, nil
}

func (a *App) buttonAt(m tea.MouseMsg) string {
	for _, id := range []string{buttonDrop, buttonUndo, buttonKeep} {
		if z := a.zones.Get(id); z != nil && z.InBounds(m) {
			return id
		}
	}
	return ""
}

// click handles the on-screen buttons: keep and drop run the scripted swipe, undo is
// immediate.
func (a *App) click(btn string) tea.Cmd {
	switch btn {
	case buttonDrop:
		return a.startScripted(gesture.Drop)
	case buttonKeep:
		return a.startScripted(gesture.Keep)
	case buttonUndo:
		a.discrete(gesture.Undo)
	}
	return nil
}

func (a *App) discrete(in gesture.Intent) {
	if a.gesture.Key(in) == gesture.None {
		return
	}
	a.apply(in, false)
}

func (a *App) startScripted(d gesture.Intent) tea.Cmd {
	if a.session == nil || a.session.Engine.Complete() {
		return nil
	}
	run, ok := a.gesture.Start(d, a.now())
	if !ok {
		return nil
	}
	a.exit = nil
	return a.tick(run)
}

func (a *App) tick(run gesture.Run) tea.Cmd {
	return tea.Tick(a.opts.Gesture.Interval, func(t time.Time) tea.Msg {
		return frameMsg{run: run, at: t}
	})
}

func (a *App) handleFrame(m frameMsg) (tea.Model, tea.Cmd) {
	suppress := a.gesture.SuppressExit()
	f := a.gesture.Advance(m.run, m.at)
	if f.Stale {
		return a, nil
	}
	if f.Done {
		a.apply(f.Intent, suppress)
		return a, nil
	}
	return a, a.tick(m.run)
}

// apply turns an intent into an engine mutation on the active session.
func (a *App) apply(in gesture.Intent, suppressExit bool) {
	if a.session == nil {
		return
	}
	rec := a.session.Engine.Current()
	var (
		ok  bool
		err error
	)
	switch in {
	case gesture.Keep:
		ok, err = a.services.Triage.Commit(triage.Keep)
	case gesture.Drop:
		ok, err = a.services.Triage.Commit(triage.Drop)
	case gesture.Undo:
		ok, err = a.services.Triage.Undo()
	}
	if err != nil {
		a.setError(err)
		return
	}
	if !ok {
		return
	}
	a.exit = nil
	if in != gesture.Undo && !suppressExit && rec != nil {
		a.exit = &exitFx{intent: in, title: rec.Title}
	}
	a.syncCard()
}

// syncCard loads the current abstract into the viewport when the record changed.
func (a *App) syncCard() {
	if a.session == nil {
		return
	}
	cur := a.session.Engine.Current()
	if cur == a.shown {
		return
	}
	a.shown = cur
	if cur == nil {
		a.abstract.SetContent("")
		return
	}
	a.abstract.SetContent(wrap(highlightAddress(cur.Abstract), a.abstract.Width))
	a.abstract.GotoTop()
}

func (a *App) backToPicker() tea.Cmd {
	a.gesture.Cancel()
	a.services.Triage.Close()
	a.session = nil
	a.shown = nil
	a.exit = nil
	a.state = viewPicker
	return a.loadCollections()
}

func (a *App) open(id string) tea.Cmd {
	a.state = viewLoading
	a.loadingID = id
	a.setStatus("")
	return func() tea.Msg {
		sess, err := a.services.Triage.Open(a.ctx, id)
		if err != nil {
			return openFailedMsg{id: id, err: err}
		}
		return openedMsg{sess: sess}
	}
}

func (a *App) openResults(id string) {
	a.results = a.services.Triage.State(a.ctx, id)
	a.resultsID = id
	a.modal = modalResults
}

func (a *App) exportCmd(id string, kind export.Kind) tea.Cmd {
	return func() tea.Msg {
		rec, err := a.services.Export.Export(a.ctx, service.ExportRequest{Collection: id, Kind: kind, Format: export.CSV})
		if err != nil {
			return errMsg{err}
		}
		return exportedMsg{rec: rec}
	}
}

func (a *App) resetCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := a.services.Maintenance.ResetCollection(a.ctx, id); err != nil {
			return errMsg{err}
		}
		return resetDoneMsg{id: id}
	}
}

// messages
type collectionsMsg []service.CollectionInfo

type openedMsg struct{ sess *service.Session }

type openFailedMsg struct {
	id  string
	err error
}

type frameMsg struct {
	run gesture.Run
	at  time.Time
}

type exportedMsg struct{ rec repository.ExportRecord }

type resetDoneMsg struct{ id string }

type changedMsg struct{}

type statusMsg string

type errMsg struct{ error }
