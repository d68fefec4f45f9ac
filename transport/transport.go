// Package transport implements the sample-accurate playback clock and
// block scheduler (C3): it turns a project snapshot's notes into timed
// note-on/note-off calls against a synth.Engine, advancing a sample
// counter that is the single source of musical time for both live
// playback and offline WAV rendering.
package transport

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/grahamseamans/miditui/project"
	"github.com/grahamseamans/miditui/synth"
)

// State is one of the three transport states named in §4.3.
type State int32

const (
	StateStopped State = iota
	StatePlaying
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateRendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// ErrRenderCancelled is returned by RenderOffline when the cancel
// function reports true mid-render; partial output has already been
// discarded by the caller per §5.
var ErrRenderCancelled = errors.New("transport: render cancelled")

// Sink receives rendered audio blocks during offline rendering.
type Sink interface {
	WriteBlock(left, right []float32) error
}

// Transport owns the sample clock and the audio-thread scheduling logic.
// A Transport is driven either by audioio's BlockSource callback (live
// playback) or by RenderOffline's synchronous loop (export); both paths
// share ProcessBlock.
type Transport struct {
	state           atomic.Int32
	positionSamples atomic.Uint64
	snapshot        atomic.Pointer[project.Project]
	sampleRate      int
	synth           *synth.Engine

	pending          *noteOffQueue
	previousAudible  [16]bool
}

// New returns a Transport bound to synthEngine, rendering at sampleRate.
func New(synthEngine *synth.Engine, sampleRate int) *Transport {
	return &Transport{
		sampleRate: sampleRate,
		synth:      synthEngine,
		pending:    newNoteOffQueue(),
	}
}

// PublishSnapshot installs the project view the next block will read.
// Called by the control thread after every command application (§5).
func (tr *Transport) PublishSnapshot(p *project.Project) {
	tr.snapshot.Store(p)
}

// State returns the current transport state.
func (tr *Transport) State() State {
	return State(tr.state.Load())
}

// PositionSamples returns the current sample-accurate position.
func (tr *Transport) PositionSamples() uint64 {
	return tr.positionSamples.Load()
}

// PositionTick derives the current musical position from the sample
// counter and the snapshot's tempo.
func (tr *Transport) PositionTick() uint32 {
	p := tr.snapshot.Load()
	if p == nil {
		return 0
	}
	return project.SamplesToTicks(float64(tr.positionSamples.Load()), p.Tempo, tr.sampleRate)
}

// Play transitions Stopped to Playing. A no-op if already playing or
// rendering.
func (tr *Transport) Play() {
	tr.state.CompareAndSwap(int32(StateStopped), int32(StatePlaying))
}

// Stop is idempotent: it silences the synth and transitions to Stopped
// from any state (§4.3 Cancellation).
func (tr *Transport) Stop() error {
	tr.state.Store(int32(StateStopped))
	tr.pending.clear()
	for ch := range tr.previousAudible {
		tr.previousAudible[ch] = false
	}
	if tr.synth != nil {
		return tr.synth.AllNotesOffAllChannels()
	}
	return nil
}

// StopAndRewind stops and resets the sample counter to 0, per §4.3's
// "reset to 0 on stop_and_rewind and on project load/new."
func (tr *Transport) StopAndRewind() error {
	err := tr.Stop()
	tr.positionSamples.Store(0)
	return err
}

// SeekTo moves the sample clock to the sample equivalent of tick,
// flushing pending note-offs and silencing the synth. Safe to call while
// Playing.
func (tr *Transport) SeekTo(tick uint32) error {
	p := tr.snapshot.Load()
	if p == nil {
		tr.positionSamples.Store(0)
	} else {
		tr.positionSamples.Store(uint64(project.TickToSamples(tick, p.Tempo, tr.sampleRate)))
	}
	tr.pending.clear()
	if tr.synth != nil {
		return tr.synth.AllNotesOffAllChannels()
	}
	return nil
}

type scheduledEvent struct {
	offset  int
	isOn    bool
	channel uint8
	pitch   uint8
	velocity uint8
}

// ProcessBlock renders exactly len(outLeft) samples, dispatching the
// note-on of every note that starts in this block, and each note-off that
// falls due in it, at the correct sub-block sample offset before advancing
// the sample counter. It allocates on every block: the events slice, the
// slices returned by PlayableTracks and NotesInWindow, and one queue entry
// per note-off deferred to a later block.
func (tr *Transport) ProcessBlock(outLeft, outRight []float32) error {
	n := len(outLeft)
	if n == 0 {
		return nil
	}
	p := tr.snapshot.Load()
	if p == nil || tr.synth == nil {
		for i := 0; i < n; i++ {
			outLeft[i] = 0
			outRight[i] = 0
		}
		tr.positionSamples.Add(uint64(n))
		return nil
	}

	startSample := tr.positionSamples.Load()
	endSample := startSample + uint64(n)
	tickStart := project.SamplesToTicks(float64(startSample), p.Tempo, tr.sampleRate)
	tickEnd := project.SamplesToTicks(float64(endSample), p.Tempo, tr.sampleRate)
	if tickEnd <= tickStart {
		tickEnd = tickStart + 1
	}

	playable := p.PlayableTracks()
	audibleNow := [16]bool{}
	for _, t := range playable {
		audibleNow[t.Channel] = true
	}
	for ch := 0; ch < 16; ch++ {
		if tr.previousAudible[ch] && !audibleNow[ch] {
			_ = tr.synth.AllNotesOff(uint8(ch))
		}
	}
	tr.previousAudible = audibleNow

	var events []scheduledEvent
	for _, t := range playable {
		for _, note := range t.NotesInWindow(tickStart, tickEnd) {
			if note.Start < tickStart {
				// Started in an earlier block, which already scheduled
				// its note-off.
				continue
			}
			offset := sampleOffsetInBlock(note.Start, startSample, p.Tempo, tr.sampleRate, n)
			events = append(events, scheduledEvent{offset: offset, isOn: true, channel: t.Channel, pitch: note.Pitch, velocity: note.Velocity})
			endTick := note.EndTick()
			endSampleF := project.TickToSamples(endTick, p.Tempo, tr.sampleRate)
			if uint64(endSampleF) < endSample {
				offset := sampleOffsetInBlock(endTick, startSample, p.Tempo, tr.sampleRate, n)
				events = append(events, scheduledEvent{offset: offset, isOn: false, channel: t.Channel, pitch: note.Pitch})
			} else {
				tr.pending.push(&pendingNoteOff{due: uint64(endSampleF), channel: t.Channel, pitch: note.Pitch})
			}
		}
	}
	for tr.pending.Len() > 0 && tr.pending.peek().due < endSample {
		item := tr.pending.pop()
		offset := int(item.due) - int(startSample)
		if offset < 0 {
			offset = 0
		}
		if offset >= n {
			offset = n - 1
		}
		events = append(events, scheduledEvent{offset: offset, isOn: false, channel: item.channel, pitch: item.pitch})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].offset != events[j].offset {
			return events[i].offset < events[j].offset
		}
		if events[i].isOn != events[j].isOn {
			// Note-offs precede note-ons at the same sample offset (§5
			// Ordering guarantees).
			return !events[i].isOn
		}
		return events[i].pitch < events[j].pitch
	})

	var volume, pan [16]float64
	for _, t := range playable {
		volume[t.Channel] = t.Volume
		pan[t.Channel] = t.Pan
	}

	cursor := 0
	for _, ev := range events {
		if ev.offset > cursor {
			if err := tr.synth.RenderBlock(outLeft[cursor:ev.offset], outRight[cursor:ev.offset], ev.offset-cursor, &volume, &pan); err != nil && !errors.Is(err, synth.ErrNoSoundFontLoaded) {
				return err
			}
			cursor = ev.offset
		}
		if ev.isOn {
			_ = tr.synth.NoteOn(ev.channel, ev.pitch, ev.velocity)
		} else {
			_ = tr.synth.NoteOff(ev.channel, ev.pitch)
		}
	}
	if cursor < n {
		if err := tr.synth.RenderBlock(outLeft[cursor:n], outRight[cursor:n], n-cursor, &volume, &pan); err != nil && !errors.Is(err, synth.ErrNoSoundFontLoaded) {
			return err
		}
	}

	tr.positionSamples.Add(uint64(n))
	return nil
}

func sampleOffsetInBlock(tick uint32, startSample uint64, bpm float64, sampleRate int, n int) int {
	sampleF := project.TickToSamples(tick, bpm, sampleRate)
	offset := int(sampleF) - int(startSample)
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		offset = n - 1
	}
	return offset
}

// RenderInto adapts Transport to audioio.BlockSource, gating on the
// Playing state: when stopped, it fills silence rather than advancing the
// clock, so the live output stream can stay open across stop/play.
func (tr *Transport) RenderInto(left, right []float32) error {
	if tr.State() != StatePlaying {
		for i := range left {
			left[i] = 0
			right[i] = 0
		}
		return nil
	}
	return tr.ProcessBlock(left, right)
}

// RenderOffline drives ProcessBlock synchronously until totalSamples have
// been produced, writing each block to sink. cancel is polled between
// blocks; if it returns true, rendering stops and ErrRenderCancelled is
// returned with no further writes (§5: "partial output is discarded").
func (tr *Transport) RenderOffline(totalSamples int, blockSize int, sink Sink, cancel func() bool, progress func(float64)) error {
	if !tr.state.CompareAndSwap(int32(StateStopped), int32(StateRendering)) {
		return fmt.Errorf("transport: cannot render while in state %s", tr.State())
	}
	defer tr.state.Store(int32(StateStopped))

	left := make([]float32, blockSize)
	right := make([]float32, blockSize)
	rendered := 0
	for rendered < totalSamples {
		if cancel != nil && cancel() {
			return ErrRenderCancelled
		}
		n := blockSize
		if totalSamples-rendered < n {
			n = totalSamples - rendered
		}
		if err := tr.ProcessBlock(left[:n], right[:n]); err != nil {
			return err
		}
		if err := sink.WriteBlock(left[:n], right[:n]); err != nil {
			return err
		}
		rendered += n
		if progress != nil {
			progress(float64(rendered) / float64(totalSamples))
		}
	}
	return nil
}
