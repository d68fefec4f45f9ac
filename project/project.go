package project

import (
	"errors"
	"fmt"
)

// TicksPerQuarter is the project's fixed musical resolution. It is a
// project-wide constant, not per-track, and must be recorded verbatim by
// every codec (§3).
const TicksPerQuarter = 480

// DrumChannel is reserved for drum tracks and skipped by automatic channel
// assignment unless a track explicitly requests it.
const DrumChannel = 9

var (
	// ErrInvalidTempo is returned when a tempo assignment is <= 0.
	ErrInvalidTempo = errors.New("project: tempo must be > 0")
	// ErrInvalidTimeSignature is returned for an out-of-range numerator or
	// an unsupported denominator.
	ErrInvalidTimeSignature = errors.New("project: invalid time signature")
	// ErrTrackNotFound is returned by lookups keyed on a TrackID that no
	// longer exists.
	ErrTrackNotFound = errors.New("project: track not found")
)

var validDenominators = map[uint8]bool{1: true, 2: true, 4: true, 8: true, 16: true}

// ViewMode distinguishes the editor-state view the UI is displaying; it is
// part of the project so autosave restores it (§3).
type ViewMode int

const (
	ViewTimeline ViewMode = iota
	ViewPianoRoll
)

// EditorState is the non-audio, non-audible slice of project state: what
// the user is looking at and selecting. The .oxm and JSON formats carry
// ViewMode, SelectedTrack, Octave, CursorTick and InsertAnchorTick;
// neither writes SelectedNoteIDs, so a note selection does not survive a
// save and load.
type EditorState struct {
	ViewMode          ViewMode `json:"viewMode"`
	SelectedTrack     int      `json:"selectedTrack"`
	SelectedNoteIDs   []NoteID `json:"selectedNoteIds,omitempty"`
	Octave            int      `json:"octave"`
	CursorTick        uint32   `json:"cursorTick"`
	InsertAnchorTick  uint32   `json:"insertAnchorTick"`
}

// Project is the root entity: global tempo/time signature, an ordered
// sequence of tracks, and editor state. C8 is its sole owner; everyone
// else gets read-only views (§3 Ownership).
type Project struct {
	Name          string      `json:"name"`
	Tempo         float64     `json:"tempo"`
	TimeSigNum    uint8       `json:"timeSigNumerator"`
	TimeSigDenom  uint8       `json:"timeSigDenominator"`
	SoundFontPath string      `json:"soundFontPath,omitempty"`
	Editor        EditorState `json:"editor"`

	tracks  []*Track
	anySolo bool
}

// New returns an empty project with one default track, matching the
// teacher's "never start with zero tracks" convention.
func New(name string) *Project {
	p := &Project{
		Name:         name,
		Tempo:        120,
		TimeSigNum:   4,
		TimeSigDenom: 4,
		Editor:       EditorState{ViewMode: ViewTimeline},
	}
	p.CreateTrack("Track 1")
	return p
}

// Empty returns a project with no tracks at all, used by the WAV-render
// silence scenario and by codec round-trip tests.
func Empty(name string) *Project {
	return &Project{
		Name:         name,
		Tempo:        120,
		TimeSigNum:   4,
		TimeSigDenom: 4,
		Editor:       EditorState{ViewMode: ViewTimeline},
	}
}

// Tracks returns the ordered track slice. Index is identity only within
// one project lifetime; it is reissued on load.
func (p *Project) Tracks() []*Track { return p.tracks }

// Track returns the track with the given ID, or nil.
func (p *Project) Track(id TrackID) *Track {
	for _, t := range p.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TrackIndex returns the slice index of the track with the given ID, or -1.
func (p *Project) TrackIndex(id TrackID) int {
	for i, t := range p.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextChannel assigns MIDI channels round-robin over 0-15, skipping the
// reserved drum channel 9, per original_source's create_track.
func (p *Project) nextChannel() uint8 {
	if len(p.tracks) == 0 {
		return 0
	}
	last := p.tracks[len(p.tracks)-1].Channel
	next := last + 1
	if next == DrumChannel {
		next = DrumChannel + 1
	}
	if next >= 16 {
		next = 0
	}
	return next
}

// CreateTrack appends a new track with an auto-assigned channel and
// returns it.
func (p *Project) CreateTrack(name string) *Track {
	ch := p.nextChannel()
	t := NewTrack(name, ch)
	p.tracks = append(p.tracks, t)
	p.invalidateAnySolo()
	return t
}

// InsertTrack appends an already-constructed track (used by undo/redo and
// by the codec when rebuilding a project from disk, where identity must
// be preserved exactly rather than reissued).
func (p *Project) InsertTrack(t *Track) {
	p.tracks = append(p.tracks, t)
	p.invalidateAnySolo()
}

// RemoveTrack deletes the track with the given ID, reporting whether it
// was found.
func (p *Project) RemoveTrack(id TrackID) (*Track, int, bool) {
	for i, t := range p.tracks {
		if t.ID == id {
			p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
			p.invalidateAnySolo()
			return t, i, true
		}
	}
	return nil, -1, false
}

// InsertTrackAt re-inserts a previously removed track at a specific index,
// used by RemoveTrack's undo inverse.
func (p *Project) InsertTrackAt(t *Track, index int) {
	if index < 0 || index > len(p.tracks) {
		index = len(p.tracks)
	}
	p.tracks = append(p.tracks, nil)
	copy(p.tracks[index+1:], p.tracks[index:])
	p.tracks[index] = t
	p.invalidateAnySolo()
}

func (p *Project) invalidateAnySolo() {
	any := false
	for _, t := range p.tracks {
		if t.Solo {
			any = true
			break
		}
	}
	p.anySolo = any
}

// AnySolo reports whether any track is soloed. It is a cached boolean,
// invalidated whenever a track's Solo flag changes through SetSolo (§4.1).
func (p *Project) AnySolo() bool { return p.anySolo }

// SetSolo assigns a track's solo flag and refreshes the AnySolo cache.
func (p *Project) SetSolo(id TrackID, solo bool) error {
	t := p.Track(id)
	if t == nil {
		return fmt.Errorf("%w: id=%d", ErrTrackNotFound, id)
	}
	t.Solo = solo
	p.invalidateAnySolo()
	return nil
}

// PlayableTracks returns, in track order, the tracks that should produce
// sound this block: if any track is soloed, only soloed tracks (solo
// overrides mute on the soloed tracks themselves); otherwise every
// non-muted track.
func (p *Project) PlayableTracks() []*Track {
	any := p.anySolo
	var out []*Track
	for _, t := range p.tracks {
		if any {
			if t.Solo {
				out = append(out, t)
			}
		} else if !t.Muted {
			out = append(out, t)
		}
	}
	return out
}

// SetTempo validates and assigns the project tempo.
func (p *Project) SetTempo(bpm float64) error {
	if bpm <= 0 {
		return ErrInvalidTempo
	}
	p.Tempo = bpm
	return nil
}

// SetTimeSignature validates and assigns numerator/denominator.
func (p *Project) SetTimeSignature(num, denom uint8) error {
	if num < 1 || num > 32 || !validDenominators[denom] {
		return fmt.Errorf("%w: %d/%d", ErrInvalidTimeSignature, num, denom)
	}
	p.TimeSigNum = num
	p.TimeSigDenom = denom
	return nil
}

// TicksPerMeasure derives the measure length from the time signature:
// (TPQ*4/denominator) * numerator.
func (p *Project) TicksPerMeasure() uint32 {
	return uint32(TicksPerQuarter*4/int(p.TimeSigDenom)) * uint32(p.TimeSigNum)
}

// TicksPerBeat derives one beat's length from the denominator.
func (p *Project) TicksPerBeat() uint32 {
	return uint32(TicksPerQuarter * 4 / int(p.TimeSigDenom))
}

// DurationTicks is the end tick of the project's last note across all
// tracks.
func (p *Project) DurationTicks() uint32 {
	var max uint32
	for _, t := range p.tracks {
		if d := t.DurationTicks(); d > max {
			max = d
		}
	}
	return max
}

// TickToSamples converts a tick offset to a sample offset at the given
// sample rate, per §4.1: samples = tick * (60 / (bpm * tpq)) * sampleRate.
func TickToSamples(tick uint32, bpm float64, sampleRate int) float64 {
	return float64(tick) * (60.0 / (bpm * float64(TicksPerQuarter))) * float64(sampleRate)
}

// SamplesToTicks is the inverse of TickToSamples.
func SamplesToTicks(samples float64, bpm float64, sampleRate int) uint32 {
	ticks := samples / float64(sampleRate) * (bpm * float64(TicksPerQuarter) / 60.0)
	if ticks < 0 {
		return 0
	}
	return uint32(ticks)
}

// TickToPosition converts an absolute tick into 1-indexed
// (measure, beat, tickInBeat) coordinates relative to the current time
// signature.
func (p *Project) TickToPosition(tick uint32) (measure, beat int, tickInBeat uint32) {
	tpm := p.TicksPerMeasure()
	tpb := p.TicksPerBeat()
	if tpm == 0 || tpb == 0 {
		return 1, 1, 0
	}
	measure = int(tick/tpm) + 1
	rem := tick % tpm
	beat = int(rem/tpb) + 1
	tickInBeat = rem % tpb
	return
}

// PositionToTick is the inverse of TickToPosition; measure and beat are
// 1-indexed.
func (p *Project) PositionToTick(measure, beat int, tickInBeat uint32) uint32 {
	tpm := p.TicksPerMeasure()
	tpb := p.TicksPerBeat()
	if measure < 1 {
		measure = 1
	}
	if beat < 1 {
		beat = 1
	}
	return uint32(measure-1)*tpm + uint32(beat-1)*tpb + tickInBeat
}

// Clone returns a deep copy of the project, used to publish audio-thread
// snapshots and to hold an undo command's pre-state by value rather than
// by reference (§4.5: "sufficient to reconstruct the pre-state by value").
func (p *Project) Clone() *Project {
	clone := &Project{
		Name:          p.Name,
		Tempo:         p.Tempo,
		TimeSigNum:    p.TimeSigNum,
		TimeSigDenom:  p.TimeSigDenom,
		SoundFontPath: p.SoundFontPath,
		Editor:        p.Editor,
		anySolo:       p.anySolo,
	}
	clone.Editor.SelectedNoteIDs = append([]NoteID(nil), p.Editor.SelectedNoteIDs...)
	clone.tracks = make([]*Track, len(p.tracks))
	for i, t := range p.tracks {
		tc := *t
		tc.notes = append([]Note(nil), t.notes...)
		clone.tracks[i] = &tc
	}
	return clone
}
