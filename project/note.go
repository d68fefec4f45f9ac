// Package project holds the in-memory composition model: Project, Track,
// and Note, along with the pure queries C3 and C6 need. Mutation is
// intentionally limited — callers go through edit.Command (C5) rather than
// calling setters directly, except for the clamped fields the invariants
// call out explicitly.
package project

import (
	"fmt"
	"sync/atomic"
)

var noteIDCounter uint64

// NoteID uniquely identifies a Note for the lifetime of the process. It
// is part of the .oxm and JSON project formats' on-disk identity (round
// trips through DecodeOXM/DecodeJSON); MIDI and WAV carry no notion of
// it and a note loaded from either gets a fresh ID.
type NoteID uint64

func nextNoteID() NoteID {
	return NoteID(atomic.AddUint64(&noteIDCounter, 1))
}

// bumpNoteIDCounter advances the process-lifetime counter past id,
// mirroring bumpTrackIDCounter, so a note reloaded under its original
// ID can't later collide with one minted fresh in the same process.
func bumpNoteIDCounter(id NoteID) {
	for {
		cur := atomic.LoadUint64(&noteIDCounter)
		if uint64(id) <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&noteIDCounter, cur, uint64(id)) {
			return
		}
	}
}

// Note is a single scheduled event: a pitch sounding for a span of ticks.
type Note struct {
	ID       NoteID `json:"id"`
	Pitch    uint8  `json:"pitch"`
	Start    uint32 `json:"start"`
	Duration uint32 `json:"duration"`
	Velocity uint8  `json:"velocity"`
}

// NewNote builds a Note with a fresh ID, clamping pitch and velocity into
// their legal ranges rather than rejecting them (invariants only reject on
// duplicate key, handled by Track.AddNote).
func NewNote(pitch uint8, velocity uint8, start, duration uint32) Note {
	if pitch > 127 {
		pitch = 127
	}
	if velocity < 1 {
		velocity = 1
	}
	if velocity > 127 {
		velocity = 127
	}
	if duration < 1 {
		duration = 1
	}
	return Note{
		ID:       nextNoteID(),
		Pitch:    pitch,
		Start:    start,
		Duration: duration,
		Velocity: velocity,
	}
}

// NewNoteWithID builds a Note under a caller-supplied ID, used by the
// .oxm/JSON decoders to restore a note's on-disk identity. Pitch,
// velocity, and duration are clamped exactly as NewNote clamps them.
func NewNoteWithID(id NoteID, pitch, velocity uint8, start, duration uint32) Note {
	n := NewNote(pitch, velocity, start, duration)
	bumpNoteIDCounter(id)
	n.ID = id
	return n
}

// EndTick is the tick immediately after the note stops sounding.
func (n Note) EndTick() uint32 {
	return n.Start + n.Duration
}

// OverlapsRange reports whether [n.Start, n.EndTick()) intersects [start, end).
func (n Note) OverlapsRange(start, end uint32) bool {
	return n.Start < end && n.EndTick() > start
}

// IsActiveAt reports whether the note is sounding at the given tick.
func (n Note) IsActiveAt(tick uint32) bool {
	return tick >= n.Start && tick < n.EndTick()
}

// Key is the (pitch, start) uniqueness key enforced within a single track.
type Key struct {
	Pitch uint8
	Start uint32
}

func (n Note) Key() Key {
	return Key{Pitch: n.Pitch, Start: n.Start}
}

// Duplicate returns a copy of the note with a fresh ID, used by commands
// that split or clone notes without aliasing identity.
func (n Note) Duplicate() Note {
	dup := n
	dup.ID = nextNoteID()
	return dup
}

// Transposed returns a copy shifted by semitones, clamped to [0,127].
// The bool result is false if the shift was clamped or left the pitch
// unchanged; the returned note still carries the clamped pitch.
func (n Note) Transposed(semitones int) (Note, bool) {
	p := int(n.Pitch) + semitones
	clamped := p < 0 || p > 127
	if p < 0 {
		p = 0
	}
	if p > 127 {
		p = 127
	}
	moved := !clamped && p != int(n.Pitch)
	out := n
	out.Pitch = uint8(p)
	return out, moved
}

// Shifted returns a copy moved by tickDelta ticks, saturating at 0.
func (n Note) Shifted(tickDelta int64) Note {
	start := int64(n.Start) + tickDelta
	if start < 0 {
		start = 0
	}
	out := n
	out.Start = uint32(start)
	return out
}

func (n Note) String() string {
	return fmt.Sprintf("Note{pitch=%d start=%d dur=%d vel=%d}", n.Pitch, n.Start, n.Duration, n.Velocity)
}
