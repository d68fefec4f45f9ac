// Package tui is the thin bubbletea front end: a Model holding only
// quit/status state and a *daw.Facade, updated by routing key messages to
// the facade and rendering its project. Track, note, tempo and mixer
// changes go through facade commands; editor-only fields (view mode,
// cursor tick, selected track, octave) are written here directly on the
// project returned by Facade.Project, outside the undo history.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/grahamseamans/miditui/daw"
	"github.com/grahamseamans/miditui/edit"
	"github.com/grahamseamans/miditui/project"
	"github.com/grahamseamans/miditui/theme"
)

// Model is bubbletea's Model for the whole program.
type Model struct {
	App   *daw.Facade
	Theme *theme.Theme

	quitting bool
	status   string
}

// UpdateMsg is delivered whenever the facade's control thread mutates
// state the view depends on (a command applied, a tick advanced).
type UpdateMsg struct{}

// NewModel wires a fresh Model around an already-started Facade.
func NewModel(app *daw.Facade, th *theme.Theme) Model {
	return Model{App: app, Theme: th}
}

// ListenForUpdates blocks on the facade's UpdateChan and turns each
// notification into a bubbletea message, grounded on the teacher's
// ListenForUpdates/manager.UpdateChan pairing.
func ListenForUpdates(app *daw.Facade) tea.Cmd {
	return func() tea.Msg {
		<-app.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.App)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case UpdateMsg:
		return m, ListenForUpdates(m.App)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.App.InsertModeActive() {
		return m.handleInsertKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		_ = m.App.Shutdown()
		return m, tea.Quit

	case " ":
		if m.App.Transport().State().String() == "playing" {
			_ = m.App.Stop()
		} else {
			m.App.Play()
		}

	case "i":
		m.App.EnterInsertMode()
		m.status = "insert mode: type to record notes, esc to exit"

	case "tab":
		p := m.App.Project()
		next := project.ViewTimeline
		if p.Editor.ViewMode == project.ViewTimeline {
			next = project.ViewPianoRoll
		}
		p.Editor.ViewMode = next

	case "n":
		_ = m.App.ApplyCommand(&edit.Command{Kind: edit.KindAddTrack, Name: "Track"})

	case "h", "left":
		m.moveCursor(-int(m.App.Project().TicksPerBeat()))
	case "l", "right":
		m.moveCursor(int(m.App.Project().TicksPerBeat()))

	case "j", "down":
		m.moveSelectedTrack(1)
	case "k", "up":
		m.moveSelectedTrack(-1)

	case "m":
		m.toggleOnSelectedTrack(edit.KindToggleMute)
	case "s":
		m.toggleOnSelectedTrack(edit.KindToggleSolo)

	case "u":
		_ = m.App.Undo()
	case "U", "ctrl+r":
		_ = m.App.Redo()

	case "+", "=":
		m.adjustTempo(5)
	case "-", "_":
		m.adjustTempo(-5)

	case "[":
		m.adjustOctave(-1)
	case "]":
		m.adjustOctave(1)
	}
	return m, nil
}

func (m Model) handleInsertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.App.ExitInsertMode()
		m.status = ""
		return m, nil
	case "ctrl+c":
		m.App.ExitInsertMode()
		m.quitting = true
		_ = m.App.Shutdown()
		return m, tea.Quit
	}
	for _, r := range msg.String() {
		_ = m.App.HandleInsertKey(r, time.Now())
	}
	return m, nil
}

func (m Model) moveCursor(delta int) {
	p := m.App.Project()
	tick := int64(p.Editor.CursorTick) + int64(delta)
	if tick < 0 {
		tick = 0
	}
	p.Editor.CursorTick = uint32(tick)
}

func (m Model) moveSelectedTrack(delta int) {
	p := m.App.Project()
	n := len(p.Tracks())
	if n == 0 {
		return
	}
	idx := p.Editor.SelectedTrack + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	p.Editor.SelectedTrack = idx
}

func (m Model) adjustOctave(delta int) {
	p := m.App.Project()
	octave := p.Editor.Octave + delta
	if octave < 0 {
		octave = 0
	}
	if octave > 8 {
		octave = 8
	}
	p.Editor.Octave = octave
}

func (m Model) adjustTempo(delta float64) {
	p := m.App.Project()
	_ = m.App.ApplyCommand(&edit.Command{Kind: edit.KindSetTempo, Tempo: p.Tempo + delta})
}

func (m Model) toggleOnSelectedTrack(kind edit.Kind) {
	p := m.App.Project()
	tracks := p.Tracks()
	idx := p.Editor.SelectedTrack
	if idx < 0 || idx >= len(tracks) {
		return
	}
	_ = m.App.ApplyCommand(&edit.Command{Kind: kind, TrackID: tracks[idx].ID})
}
