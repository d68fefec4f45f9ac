package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/grahamseamans/miditui/project"
	"github.com/grahamseamans/miditui/theme"
)

// ticksPerColumn is the timeline/piano-roll grid's horizontal
// resolution: one column per quarter note.
const ticksPerColumn = project.TicksPerQuarter

// visibleColumns bounds how much of the project the grid renders at
// once, scrolled to keep the cursor in view.
const visibleColumns = 32

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	p := m.App.Project()
	tr := m.App.Transport()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	statusStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if tr.State().String() == "playing" {
		playState = "PLAY"
	}
	posTick := tr.PositionTick()
	measure, beat, _ := p.TickToPosition(posTick)

	header := headerStyle.Render(fmt.Sprintf(
		"%s  %s  %3.0fbpm  %d/%d  m%d b%d",
		p.Name, playState, p.Tempo, p.TimeSigNum, p.TimeSigDenom, measure, beat,
	))

	var body string
	if p.Editor.ViewMode == project.ViewPianoRoll {
		body = m.renderPianoRoll(p, posTick)
	} else {
		body = m.renderTimeline(p, posTick)
	}

	help := dimStyle.Render("tab:view  space:play  i:insert  n:track  m:mute  s:solo  u/U:undo/redo  +/-:tempo  [/]:octave  q:quit")

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(body)
	out.WriteString("\n\n")
	out.WriteString(help)
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.status))
	}
	return out.String()
}

// renderTimeline draws one row per track: name, mute/solo flags, and a
// beat-resolution occupancy strip with the playhead and cursor overlaid.
func (m Model) renderTimeline(p *project.Project, posTick uint32) string {
	syms := m.Theme.Symbols
	cursorCol := int(p.Editor.CursorTick / ticksPerColumn)
	playCol := int(posTick / ticksPerColumn)
	startCol := scrollStart(cursorCol)

	var rows []string
	for i, t := range p.Tracks() {
		selected := i == p.Editor.SelectedTrack
		var row strings.Builder
		row.WriteString(trackLabel(t.Name, t.Muted, t.Solo, selected))
		row.WriteString(" ")
		for col := startCol; col < startCol+visibleColumns; col++ {
			tickStart := uint32(col) * ticksPerColumn
			tickEnd := tickStart + ticksPerColumn
			occupied := len(t.NotesInWindow(tickStart, tickEnd)) > 0
			row.WriteRune(gridCell(syms, col, cursorCol, playCol, occupied))
		}
		rows = append(rows, row.String())
	}
	if len(rows) == 0 {
		return "(no tracks - press n)"
	}
	return strings.Join(rows, "\n")
}

// renderPianoRoll draws the selected track's notes across a two-octave
// pitch window that starts at the editor's current octave base
// (octave*12) and spans 24 pitches upward.
func (m Model) renderPianoRoll(p *project.Project, posTick uint32) string {
	syms := m.Theme.Symbols
	tracks := p.Tracks()
	if len(tracks) == 0 {
		return "(no tracks - press n)"
	}
	idx := p.Editor.SelectedTrack
	if idx < 0 || idx >= len(tracks) {
		idx = 0
	}
	t := tracks[idx]

	cursorCol := int(p.Editor.CursorTick / ticksPerColumn)
	playCol := int(posTick / ticksPerColumn)
	startCol := scrollStart(cursorCol)

	lowPitch := p.Editor.Octave * 12
	highPitch := lowPitch + 23

	var rows []string
	for pitch := highPitch; pitch >= lowPitch; pitch-- {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%3d ", pitch))
		for col := startCol; col < startCol+visibleColumns; col++ {
			tickStart := uint32(col) * ticksPerColumn
			tickEnd := tickStart + ticksPerColumn
			occupied := false
			for _, n := range t.NotesInWindow(tickStart, tickEnd) {
				if n.Pitch == uint8(pitch) {
					occupied = true
					break
				}
			}
			row.WriteRune(gridCell(syms, col, cursorCol, playCol, occupied))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

func gridCell(syms theme.Symbols, col, cursorCol, playCol int, occupied bool) rune {
	atCursor := col == cursorCol
	atPlayhead := col == playCol
	switch {
	case atCursor && atPlayhead:
		return syms.CursorPlayhead
	case atCursor && occupied:
		return syms.CursorNote
	case atCursor:
		return syms.CursorEmpty
	case atPlayhead:
		return syms.GridPlayhead
	case occupied:
		return syms.GridNote
	default:
		return syms.GridEmpty
	}
}

func scrollStart(cursorCol int) int {
	start := cursorCol - visibleColumns/2
	if start < 0 {
		start = 0
	}
	return start
}

func trackLabel(name string, muted, solo, selected bool) string {
	flag := " "
	switch {
	case muted:
		flag = "M"
	case solo:
		flag = "S"
	}
	marker := " "
	if selected {
		marker = ">"
	}
	return fmt.Sprintf("%s%s %-10s", marker, flag, truncate(name, 10))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
