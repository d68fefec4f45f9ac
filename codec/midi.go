package codec

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/grahamseamans/miditui/project"
)

// Priority orders simultaneous MIDI events at the same tick so a decoder
// (and any external tool) sees a sane order: program change, then
// volume, then pan, then notes, matching
// original_source/src/midi/midi_export.rs's TimedEvent priority scheme.
const (
	priorityProgramChange = 1
	priorityVolume        = 2
	priorityPan           = 3
	priorityNoteOn        = 10
	priorityNoteOff       = 11
)

type timedMidiMessage struct {
	tick     uint32
	priority int
	msg      midi.Message
}

// WriteMIDIFile exports p as a Standard MIDI File, format 1, one MIDI
// track per project track plus a conductor track carrying tempo and time
// signature (§4.6). Mute, solo, and the SoundFont path are not
// representable and are dropped without affecting note data; volume and
// pan are emitted as CC7/CC10 best-effort.
func WriteMIDIFile(path string, p *project.Project) error {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(project.TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(p.TimeSigNum, p.TimeSigDenom))
	conductor.Add(0, smf.MetaTempo(p.Tempo))
	conductor.Add(0, smf.MetaTrackSequenceName(p.Name))
	conductor.Close(0)
	if err := sm.Add(conductor); err != nil {
		return fmt.Errorf("codec: add conductor track: %w", err)
	}

	for _, t := range p.Tracks() {
		events := []timedMidiMessage{
			{tick: 0, priority: priorityProgramChange, msg: midi.ProgramChange(t.Channel, t.Program)},
			{tick: 0, priority: priorityVolume, msg: midi.ControlChange(t.Channel, 7, volumeToCC(t.Volume))},
			{tick: 0, priority: priorityPan, msg: midi.ControlChange(t.Channel, 10, panToCC(t.Pan))},
		}
		for _, n := range t.Notes() {
			events = append(events,
				timedMidiMessage{tick: n.Start, priority: priorityNoteOn, msg: midi.NoteOn(t.Channel, n.Pitch, n.Velocity)},
				timedMidiMessage{tick: n.EndTick(), priority: priorityNoteOff, msg: midi.NoteOff(t.Channel, n.Pitch)},
			)
		}
		sortTimedMessages(events)

		var track smf.Track
		var lastTick uint32
		for _, ev := range events {
			delta := ev.tick - lastTick
			track.Add(delta, ev.msg)
			lastTick = ev.tick
		}
		track.Add(0, smf.MetaTrackSequenceName(t.Name))
		track.Close(0)
		if err := sm.Add(track); err != nil {
			return fmt.Errorf("codec: add track %q: %w", t.Name, err)
		}
	}

	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("codec: write midi file: %w", err)
	}
	return nil
}

// ReadMIDIFile imports a Standard MIDI File into a new Project. Import is
// lossy in the reverse direction: mute/solo default to false, and
// volume/pan are reconstructed from the last CC7/CC10 seen before the
// track ends (§4.6).
func ReadMIDIFile(path string) (*project.Project, error) {
	sm, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codec: read midi file: %w", err)
	}

	p := project.Empty("Imported")
	bpm := 120.0
	num, denom := uint8(4), uint8(4)

	if len(sm.Tracks) == 0 {
		return p, nil
	}

	for _, ev := range sm.Tracks[0] {
		var bpmVal float64
		if ev.Message.GetMetaTempo(&bpmVal) {
			bpm = bpmVal
		}
		var n, d, clocksPerClick, demiSemiQuaverPerQuarter uint8
		if ev.Message.GetMetaTimeSig(&n, &d, &clocksPerClick, &demiSemiQuaverPerQuarter) {
			num, denom = n, d
		}
	}
	_ = p.SetTempo(bpm)
	if err := p.SetTimeSignature(num, denom); err != nil {
		_ = p.SetTimeSignature(4, 4)
	}

	trackStart := 1
	if len(sm.Tracks) == 1 {
		// Format 0-style single interleaved track: split by channel below
		// instead of skipping track 0 as the conductor.
		trackStart = 0
	}

	type channelTrack struct {
		track       *project.Track
		activeNotes map[uint8]uint32 // pitch -> start tick
	}
	byChannel := map[uint8]*channelTrack{}

	ensureTrack := func(channel uint8) *channelTrack {
		if ct, ok := byChannel[channel]; ok {
			return ct
		}
		t := p.CreateTrack(fmt.Sprintf("Imported %d", channel))
		ct := &channelTrack{track: t, activeNotes: map[uint8]uint32{}}
		byChannel[channel] = ct
		return ct
	}

	for ti := trackStart; ti < len(sm.Tracks); ti++ {
		var currentTick uint32
		for _, ev := range sm.Tracks[ti] {
			currentTick += ev.Delta

			var channel, key, velocity, controller, value, program uint8
			switch {
			case ev.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				ct := ensureTrack(channel)
				ct.activeNotes[key] = currentTick
			case ev.Message.GetNoteOff(&channel, &key, &velocity),
				ev.Message.GetNoteOn(&channel, &key, &velocity) && velocity == 0:
				ct := ensureTrack(channel)
				if start, ok := ct.activeNotes[key]; ok {
					delete(ct.activeNotes, key)
					duration := currentTick - start
					if duration < 1 {
						duration = 1
					}
					_ = ct.track.AddNote(project.NewNote(key, 100, start, duration))
				}
			case ev.Message.GetControlChange(&channel, &controller, &value):
				ct := ensureTrack(channel)
				switch controller {
				case 7:
					ct.track.SetVolume(float64(value) / 127.0)
				case 10:
					ct.track.SetPan(float64(value)/127.0*2.0 - 1.0)
				}
			case ev.Message.GetProgramChange(&channel, &program):
				ct := ensureTrack(channel)
				ct.track.Program = program
			}
		}
	}
	return p, nil
}

func sortTimedMessages(events []timedMidiMessage) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0; j-- {
			a, b := events[j-1], events[j]
			if a.tick < b.tick || (a.tick == b.tick && a.priority <= b.priority) {
				break
			}
			events[j-1], events[j] = events[j], events[j-1]
		}
	}
}

func volumeToCC(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v * 127.0)
}

func panToCC(p float64) uint8 {
	if p < -1 {
		p = -1
	}
	if p > 1 {
		p = 1
	}
	return uint8((p + 1.0) / 2.0 * 127.0)
}
