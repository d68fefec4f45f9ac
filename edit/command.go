// Package edit represents every mutation of a project as a value capable
// of applying itself and then undoing itself exactly (C5). Commands are a
// tagged variant, not a class hierarchy, per the "Objects with methods"
// design note: one Command struct, one Kind, one Apply/Revert
// dispatch.
package edit

import (
	"errors"
	"fmt"

	"github.com/grahamseamans/miditui/project"
)

// Kind names one of the mutation shapes §4.5 enumerates.
type Kind int

const (
	KindAddTrack Kind = iota
	KindRemoveTrack
	KindRenameTrack
	KindSetInstrument
	KindToggleMute
	KindToggleSolo
	KindSetVolume
	KindSetPan
	KindAddNote
	KindRemoveNote
	KindMoveNote
	KindResizeNote
	KindSetTempo
	KindSetTimeSignature
	KindSetSoundFont
	KindLoadProject
)

func (k Kind) String() string {
	names := [...]string{
		"AddTrack", "RemoveTrack", "RenameTrack", "SetInstrument", "ToggleMute",
		"ToggleSolo", "SetVolume", "SetPan", "AddNote", "RemoveNote", "MoveNote",
		"ResizeNote", "SetTempo", "SetTimeSignature", "SetSoundFont", "LoadProject",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// ErrInvariantViolation is returned by Apply/Revert when the project
// rejects the mutation; the caller (C8) is expected to clear history
// rather than leave the project in a partially-applied state (§4.5
// Robustness).
var ErrInvariantViolation = errors.New("edit: invariant violation")

// Command carries enough forward data to apply a mutation and enough
// captured prior state to revert it exactly by value, never by reference
// (§4.5). Only the fields relevant to Kind are meaningful; unused fields
// are zero.
type Command struct {
	Kind Kind

	// GroupID ties a run of commands together so they undo/redo as one
	// unit (used by insert-mode recording, where each keystroke produces
	// its own AddNote command but a quiescence window's worth of them
	// should feel like a single undo step). Zero means ungrouped.
	GroupID uint64

	TrackID project.TrackID
	NoteID  project.NoteID

	Name          string
	Bank, Program uint8
	Volume, Pan   float64
	PitchDelta    int
	TickDelta     int64
	DurationDelta int64
	Note          project.Note
	Tempo         float64
	TimeSigNum    uint8
	TimeSigDenom  uint8
	SoundFontPath string
	NewProject    *project.Project

	// captured on successful Apply, consumed by Revert.
	prevName          string
	prevBank          uint8
	prevProgram       uint8
	prevVolume        float64
	prevPan           float64
	prevMuted         bool
	prevSolo          bool
	prevNote          project.Note
	prevTrack         *project.Track
	prevTrackIndex    int
	prevTempo         float64
	prevTimeSigNum    uint8
	prevTimeSigDenom  uint8
	prevSoundFontPath string
	prevProject       *project.Project
	applied           bool
}

// Describe returns a short human-readable label, used by the UI's
// undo/redo menu entries.
func (c *Command) Describe() string {
	return c.Kind.String()
}

// Apply performs the forward mutation against p, capturing whatever state
// Revert will need. It validates against current invariants and leaves p
// untouched on error.
func (c *Command) Apply(p *project.Project) error {
	switch c.Kind {
	case KindAddTrack:
		t := p.CreateTrack(c.Name)
		c.TrackID = t.ID
	case KindRemoveTrack:
		t, idx, ok := p.RemoveTrack(c.TrackID)
		if !ok {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevTrack = t
		c.prevTrackIndex = idx
	case KindRenameTrack:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevName = t.Name
		t.Name = c.Name
	case KindSetInstrument:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevBank, c.prevProgram = t.Bank, t.Program
		t.Bank, t.Program = c.Bank, c.Program
	case KindToggleMute:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevMuted = t.Muted
		t.Muted = !t.Muted
	case KindToggleSolo:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevSolo = t.Solo
		if err := p.SetSolo(c.TrackID, !t.Solo); err != nil {
			return err
		}
	case KindSetVolume:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevVolume = t.Volume
		t.SetVolume(c.Volume)
	case KindSetPan:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		c.prevPan = t.Pan
		t.SetPan(c.Pan)
	case KindAddNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		if err := t.AddNote(c.Note); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
		c.NoteID = c.Note.ID
	case KindRemoveNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		n, ok := findNote(t, c.NoteID)
		if !ok {
			return fmt.Errorf("%w: note %d not found", ErrInvariantViolation, c.NoteID)
		}
		c.prevNote = n
		t.RemoveNote(c.NoteID)
	case KindMoveNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		n, ok := findNote(t, c.NoteID)
		if !ok {
			return fmt.Errorf("%w: note %d not found", ErrInvariantViolation, c.NoteID)
		}
		c.prevNote = n
		moved, _ := n.Transposed(c.PitchDelta)
		moved = moved.Shifted(c.TickDelta)
		for _, other := range t.Notes() {
			if other.ID != c.NoteID && other.Key() == moved.Key() {
				return fmt.Errorf("%w: %v: pitch=%d start=%d", ErrInvariantViolation, project.ErrDuplicateNote, moved.Pitch, moved.Start)
			}
		}
		if !t.ReplaceNote(c.NoteID, moved) {
			return fmt.Errorf("%w: replace failed for note %d", ErrInvariantViolation, c.NoteID)
		}
	case KindResizeNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found", ErrInvariantViolation, c.TrackID)
		}
		n, ok := findNote(t, c.NoteID)
		if !ok {
			return fmt.Errorf("%w: note %d not found", ErrInvariantViolation, c.NoteID)
		}
		c.prevNote = n
		resized := n
		newDuration := int64(n.Duration) + c.DurationDelta
		if newDuration < 1 {
			newDuration = 1
		}
		resized.Duration = uint32(newDuration)
		if !t.ReplaceNote(c.NoteID, resized) {
			return fmt.Errorf("%w: replace failed for note %d", ErrInvariantViolation, c.NoteID)
		}
	case KindSetTempo:
		c.prevTempo = p.Tempo
		if err := p.SetTempo(c.Tempo); err != nil {
			return err
		}
	case KindSetTimeSignature:
		c.prevTimeSigNum, c.prevTimeSigDenom = p.TimeSigNum, p.TimeSigDenom
		if err := p.SetTimeSignature(c.TimeSigNum, c.TimeSigDenom); err != nil {
			return err
		}
	case KindSetSoundFont:
		c.prevSoundFontPath = p.SoundFontPath
		p.SoundFontPath = c.SoundFontPath
	case KindLoadProject:
		c.prevProject = p.Clone()
		*p = *c.NewProject.Clone()
	default:
		return fmt.Errorf("edit: unknown command kind %v", c.Kind)
	}
	c.applied = true
	return nil
}

// Revert undoes a previously applied Command, restoring the captured
// pre-state exactly.
func (c *Command) Revert(p *project.Project) error {
	if !c.applied {
		return fmt.Errorf("edit: revert called before apply for %v", c.Kind)
	}
	switch c.Kind {
	case KindAddTrack:
		if _, _, ok := p.RemoveTrack(c.TrackID); !ok {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
	case KindRemoveTrack:
		p.InsertTrackAt(c.prevTrack, c.prevTrackIndex)
	case KindRenameTrack:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		t.Name = c.prevName
	case KindSetInstrument:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		t.Bank, t.Program = c.prevBank, c.prevProgram
	case KindToggleMute:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		t.Muted = c.prevMuted
	case KindToggleSolo:
		if err := p.SetSolo(c.TrackID, c.prevSolo); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	case KindSetVolume:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		t.Volume = c.prevVolume
	case KindSetPan:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		t.Pan = c.prevPan
	case KindAddNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		if !t.RemoveNote(c.NoteID) {
			return fmt.Errorf("%w: note %d not found for revert", ErrInvariantViolation, c.NoteID)
		}
	case KindRemoveNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		if err := t.AddNote(c.prevNote); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	case KindMoveNote, KindResizeNote:
		t := p.Track(c.TrackID)
		if t == nil {
			return fmt.Errorf("%w: track %d not found for revert", ErrInvariantViolation, c.TrackID)
		}
		if !t.ReplaceNote(c.NoteID, c.prevNote) {
			return fmt.Errorf("%w: note %d not found for revert", ErrInvariantViolation, c.NoteID)
		}
	case KindSetTempo:
		if err := p.SetTempo(c.prevTempo); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	case KindSetTimeSignature:
		if err := p.SetTimeSignature(c.prevTimeSigNum, c.prevTimeSigDenom); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	case KindSetSoundFont:
		p.SoundFontPath = c.prevSoundFontPath
	case KindLoadProject:
		*p = *c.prevProject.Clone()
	default:
		return fmt.Errorf("edit: unknown command kind %v", c.Kind)
	}
	return nil
}

func findNote(t *project.Track, id project.NoteID) (project.Note, bool) {
	for _, n := range t.Notes() {
		if n.ID == id {
			return n, true
		}
	}
	return project.Note{}, false
}
