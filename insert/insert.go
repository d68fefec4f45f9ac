// Package insert implements "Insert Mode" live input (C4): a QWERTY
// musical-typing layout that both sounds notes immediately through the
// synth and writes them into the project at the transport's current (or,
// when stopped, freely advancing) position.
package insert

import (
	"sync"
	"sync/atomic"
	"time"
)

// IdleMeasures is how long the insert clock runs with no key presses
// before it halts, per §4.4.
const IdleMeasures = 2

// SimultaneityWindow is how close together two key presses must land to
// share a start tick.
const SimultaneityWindow = 20 * time.Millisecond

// GroupQuiescence is how long the keyboard must be quiet before a run of
// insert-mode commands closes its undo group.
const GroupQuiescence = 200 * time.Millisecond

// lowerRow and upperRow map a musical-typing keyboard layout to semitone
// offsets from the current octave base, grounded on
// original_source/src/ui/keyboard.rs's KEYBOARD_MAP.
var lowerRow = map[rune]int{
	'z': 0, 's': 1, 'x': 2, 'd': 3, 'c': 4, 'v': 5,
	'g': 6, 'b': 7, 'h': 8, 'n': 9, 'j': 10, 'm': 11,
}

var upperRow = map[rune]int{
	'q': 12, '2': 13, 'w': 14, '3': 15, 'e': 16, 'r': 17,
	'5': 18, 't': 19, '6': 20, 'y': 21, '7': 22, 'u': 23, 'i': 24,
}

// PitchForKey resolves a musical-typing key to an absolute MIDI pitch
// given the current octave base (0-8, each octave spanning 12
// semitones starting at C). Returns ok=false for keys with no mapping.
func PitchForKey(key rune, octaveBase int) (pitch uint8, ok bool) {
	offset, found := lowerRow[key]
	if !found {
		offset, found = upperRow[key]
	}
	if !found {
		return 0, false
	}
	p := octaveBase*12 + offset
	if p < 0 {
		p = 0
	}
	if p > 127 {
		p = 127
	}
	return uint8(p), true
}

// NoteWrite describes one note the clock decided to write into the
// project; the caller (C8) turns this into an edit.Command.
type NoteWrite struct {
	Pitch    uint8
	Start    uint32
	Duration uint32
	GroupID  uint64
}

var groupCounter uint64

func nextGroupID() uint64 {
	return atomic.AddUint64(&groupCounter, 1)
}

// Clock tracks the moving anchor tick that live keystrokes are recorded
// at. It is driven either by the transport's position (while Playing) or
// by its own idle/advance bookkeeping (while Stopped), per §4.4.
type Clock struct {
	mu sync.Mutex

	anchorTick  uint32
	active      bool
	lastPressAt time.Time
	chordStart  uint32
	groupID     uint64
	groupOpenAt time.Time

	measureTicks uint32
	beatTicks    uint32
}

// NewClock returns a Clock with the given project time-signature geometry
// (ticks per measure/beat), used to size the idle timeout and the default
// note duration.
func NewClock(measureTicks, beatTicks uint32) *Clock {
	return &Clock{measureTicks: measureTicks, beatTicks: beatTicks}
}

// SetGeometry updates the measure/beat tick lengths. The facade calls it
// on project load and on every control-thread tick, so it follows
// time-signature changes.
func (c *Clock) SetGeometry(measureTicks, beatTicks uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.measureTicks = measureTicks
	c.beatTicks = beatTicks
}

// SetAnchor explicitly positions the anchor, e.g. when the user moves the
// cursor while stopped.
func (c *Clock) SetAnchor(tick uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorTick = tick
}

// AnchorTick returns the current anchor position.
func (c *Clock) AnchorTick() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchorTick
}

// TrackTransport sets the anchor to follow the transport's live position,
// used every block while the transport is Playing (§4.4: "the insert
// anchor tracks the transport position").
func (c *Clock) TrackTransport(transportTick uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorTick = transportTick
}

// KeyPress registers one keystroke at wall-clock time now and marks the
// clock active. A press after an idle gap resumes at the current anchor
// without jumping forward, since the anchor moves only through Advance
// (driven by a UI tick loop) or TrackTransport, never per keystroke.
//
// It returns the NoteWrite the caller should turn into an AddNote
// command, using the clock's current group ID — freshly minted if the
// quiescence window had already closed.
func (c *Clock) KeyPress(now time.Time, pitch uint8, duration uint32) NoteWrite {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.groupID == 0 || now.Sub(c.groupOpenAt) > GroupQuiescence {
		c.groupID = nextGroupID()
	}
	c.groupOpenAt = now

	// A key pressed within SimultaneityWindow of the previous press reuses
	// that press's start tick, so a chord shares one start even when
	// Advance moved the anchor between its keys.
	start := c.anchorTick
	if !c.lastPressAt.IsZero() && now.Sub(c.lastPressAt) <= SimultaneityWindow {
		start = c.chordStart
	}
	c.chordStart = start
	c.lastPressAt = now
	c.active = true

	return NoteWrite{Pitch: pitch, Start: start, Duration: duration, GroupID: c.groupID}
}

// Advance moves the anchor forward by elapsedTicks, called on a UI tick
// while the transport is Stopped and the clock is active. Callers check
// IdleFor against IdleDeadline (or simply call Halt once idle) before
// calling Advance; Advance itself trusts the caller's Active() check.
func (c *Clock) Advance(elapsedTicks uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.anchorTick += elapsedTicks
}

// IdleFor reports how long it has been since the last key press.
func (c *Clock) IdleFor(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPressAt.IsZero() {
		return 0
	}
	return now.Sub(c.lastPressAt)
}

// Active reports whether the clock is currently advancing.
func (c *Clock) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Halt stops the clock without resetting the anchor, used when the idle
// timeout fires from the caller's own timing loop.
func (c *Clock) Halt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

// Reset clears the clock back to an inactive state at tick 0.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorTick = 0
	c.active = false
	c.groupID = 0
	c.lastPressAt = time.Time{}
}

// IdleDeadline returns the wall-clock time at which, absent a further
// keystroke, the clock should halt: two full measures of real time at the
// given tempo past the last press.
func (c *Clock) IdleDeadline(bpm float64) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPressAt.IsZero() || c.measureTicks == 0 {
		return time.Time{}
	}
	idleTicks := float64(IdleMeasures * c.measureTicks)
	secondsPerTick := 60.0 / (bpm * 480.0)
	return c.lastPressAt.Add(time.Duration(idleTicks * secondsPerTick * float64(time.Second)))
}
