package project

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
)

var trackIDCounter uint64

// TrackID uniquely identifies a Track for the lifetime of the process.
type TrackID uint64

func nextTrackID() TrackID {
	return TrackID(atomic.AddUint64(&trackIDCounter, 1))
}

// bumpTrackIDCounter advances the process-lifetime counter past id so
// that subsequently minted IDs never collide with one just loaded from
// disk (the .oxm/JSON codecs restore a Track's original ID rather than
// reissuing one).
func bumpTrackIDCounter(id TrackID) {
	for {
		cur := atomic.LoadUint64(&trackIDCounter)
		if uint64(id) <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&trackIDCounter, cur, uint64(id)) {
			return
		}
	}
}

// ErrDuplicateNote is returned when AddNote would place two notes at the
// same (pitch, start) within one track.
var ErrDuplicateNote = errors.New("project: duplicate note at (pitch, start)")

// Track holds one instrument's worth of notes plus mixer state. Notes are
// kept sorted by Start so NotesInWindow can binary-search rather than scan.
type Track struct {
	ID      TrackID `json:"id"`
	Name    string  `json:"name"`
	Bank    uint8   `json:"bank"`
	Program uint8   `json:"program"`
	Channel uint8   `json:"channel"`
	Muted   bool    `json:"muted"`
	Solo    bool    `json:"solo"`
	Volume  float64 `json:"volume"`
	Pan     float64 `json:"pan"`

	notes []Note
}

// NewTrack builds a Track with sensible defaults: program 0 (piano),
// volume 1.0, pan centered.
func NewTrack(name string, channel uint8) *Track {
	return &Track{
		ID:      nextTrackID(),
		Name:    name,
		Bank:    0,
		Program: 0,
		Channel: channel,
		Volume:  1.0,
		Pan:     0.0,
	}
}

// NewTrackWithID builds a Track under a caller-supplied ID, used by the
// .oxm/JSON decoders to restore a track's on-disk identity rather than
// minting a fresh one. It advances the process-lifetime ID counter past
// id so later NewTrack calls in the same process never collide with it.
func NewTrackWithID(id TrackID, name string, channel uint8) *Track {
	bumpTrackIDCounter(id)
	return &Track{
		ID:      id,
		Name:    name,
		Bank:    0,
		Program: 0,
		Channel: channel,
		Volume:  1.0,
		Pan:     0.0,
	}
}

// ClampVolume clamps v into [0,1]. Per §3 invariants, volume/pan are
// clamped on ingest, never rejected.
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampPan clamps p into [-1,1].
func ClampPan(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}

// SetVolume clamps and assigns.
func (t *Track) SetVolume(v float64) { t.Volume = ClampVolume(v) }

// SetPan clamps and assigns.
func (t *Track) SetPan(p float64) { t.Pan = ClampPan(p) }

// Notes returns the track's notes in ascending start-tick order. The
// returned slice is owned by the track; callers must not mutate it.
func (t *Track) Notes() []Note {
	return t.notes
}

// AddNote inserts n in sorted position, rejecting a duplicate (pitch,
// start) key. O(log n) search, O(n) insert (shared with the teacher's
// slice-based storage, acceptable since inserts are rare relative to
// playback reads).
func (t *Track) AddNote(n Note) error {
	key := n.Key()
	idx, _ := t.findInsertionPoint(n.Start)
	for i := idx; i < len(t.notes) && t.notes[i].Start == n.Start; i++ {
		if t.notes[i].Key() == key {
			return fmt.Errorf("%w: pitch=%d start=%d", ErrDuplicateNote, key.Pitch, key.Start)
		}
	}
	t.notes = append(t.notes, Note{})
	copy(t.notes[idx+1:], t.notes[idx:])
	t.notes[idx] = n
	return nil
}

// RemoveNote deletes the note with the given ID, reporting whether it was
// found.
func (t *Track) RemoveNote(id NoteID) bool {
	for i, n := range t.notes {
		if n.ID == id {
			t.notes = append(t.notes[:i], t.notes[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceNote removes the note with matching ID and inserts replacement in
// sorted position, used by MoveNote/ResizeNote commands which must keep
// sort order intact across a position or duration change.
func (t *Track) ReplaceNote(id NoteID, replacement Note) bool {
	found := false
	for i, n := range t.notes {
		if n.ID == id {
			t.notes = append(t.notes[:i], t.notes[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	idx, _ := t.findInsertionPoint(replacement.Start)
	t.notes = append(t.notes, Note{})
	copy(t.notes[idx+1:], t.notes[idx:])
	t.notes[idx] = replacement
	return true
}

func (t *Track) findInsertionPoint(start uint32) (int, bool) {
	idx := sort.Search(len(t.notes), func(i int) bool {
		return t.notes[i].Start >= start
	})
	return idx, idx < len(t.notes) && t.notes[idx].Start == start
}

// NotesInWindow returns, in ascending (start, pitch) order, the notes whose
// [start, end) overlaps [startTick, endTick). Binary search bounds the
// scan at the first note starting at or after endTick; every note before
// that bound is checked for overlap, so the cost grows with the number of
// notes starting before endTick, not only with the notes returned.
func (t *Track) NotesInWindow(startTick, endTick uint32) []Note {
	if endTick <= startTick {
		return nil
	}
	// A note's reach backward into the window is unbounded, so every note
	// that starts before endTick is a candidate and the scan begins at the
	// first note of the track.
	upper := sort.Search(len(t.notes), func(i int) bool {
		return t.notes[i].Start >= endTick
	})
	var out []Note
	for i := 0; i < upper; i++ {
		if t.notes[i].OverlapsRange(startTick, endTick) {
			out = append(out, t.notes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Pitch < out[j].Pitch
	})
	return out
}

// DurationTicks is the end tick of the last note, or 0 if the track has no
// notes.
func (t *Track) DurationTicks() uint32 {
	var max uint32
	for _, n := range t.notes {
		if end := n.EndTick(); end > max {
			max = end
		}
	}
	return max
}

// Quantize rounds every note's start to the nearest multiple of
// gridTicks, then re-sorts. Used by import paths and by insert-mode
// recording.
func (t *Track) Quantize(gridTicks uint32) {
	if gridTicks == 0 {
		return
	}
	for i, n := range t.notes {
		remainder := n.Start % gridTicks
		if remainder*2 >= gridTicks {
			t.notes[i].Start = n.Start - remainder + gridTicks
		} else {
			t.notes[i].Start = n.Start - remainder
		}
	}
	sort.SliceStable(t.notes, func(i, j int) bool {
		return t.notes[i].Start < t.notes[j].Start
	})
}

// TransposeAll shifts every note in the track by semitones.
func (t *Track) TransposeAll(semitones int) {
	for i, n := range t.notes {
		moved, _ := n.Transposed(semitones)
		t.notes[i] = moved
	}
}
