package codec

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/grahamseamans/miditui/project"
)

func TestMIDIRoundTripPreservesNotesAndCC(t *testing.T) {
	p := project.Empty("MIDI Source")
	_ = p.SetTempo(100)
	_ = p.SetTimeSignature(4, 4)

	lead := p.CreateTrack("Lead")
	lead.Program = 12
	lead.SetVolume(0.6)
	lead.SetPan(0.3)
	_ = lead.AddNote(project.NewNote(60, 100, 0, 240))
	_ = lead.AddNote(project.NewNote(67, 80, 240, 240))

	path := filepath.Join(t.TempDir(), "scenario6.mid")
	if err := WriteMIDIFile(path, p); err != nil {
		t.Fatal(err)
	}

	got, err := ReadMIDIFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(got.Tempo-p.Tempo) > 0.5 {
		t.Errorf("tempo: want ~%v, got %v", p.Tempo, got.Tempo)
	}
	if got.TimeSigNum != p.TimeSigNum || got.TimeSigDenom != p.TimeSigDenom {
		t.Errorf("time signature: want %d/%d, got %d/%d", p.TimeSigNum, p.TimeSigDenom, got.TimeSigNum, got.TimeSigDenom)
	}

	tracks := got.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 imported track, got %d", len(tracks))
	}
	imported := tracks[0]

	if math.Abs(imported.Volume-lead.Volume) > 1.0/127.0 {
		t.Errorf("volume: want ~%v, got %v", lead.Volume, imported.Volume)
	}
	if math.Abs(imported.Pan-lead.Pan) > 1.0/127.0*2 {
		t.Errorf("pan: want ~%v, got %v", lead.Pan, imported.Pan)
	}
	if imported.Program != lead.Program {
		t.Errorf("program: want %d, got %d", lead.Program, imported.Program)
	}

	notes := imported.Notes()
	wantNotes := lead.Notes()
	if len(notes) != len(wantNotes) {
		t.Fatalf("note count: want %d, got %d", len(wantNotes), len(notes))
	}
	for i := range wantNotes {
		if notes[i].Pitch != wantNotes[i].Pitch {
			t.Errorf("note %d pitch: want %d, got %d", i, wantNotes[i].Pitch, notes[i].Pitch)
		}
		if notes[i].Start != wantNotes[i].Start {
			t.Errorf("note %d start: want %d, got %d", i, wantNotes[i].Start, notes[i].Start)
		}
		if notes[i].Duration != wantNotes[i].Duration {
			t.Errorf("note %d duration: want %d, got %d", i, wantNotes[i].Duration, notes[i].Duration)
		}
	}
}

func TestVolumeToCCAndPanToCCRoundTripApproximately(t *testing.T) {
	cases := []float64{0, 0.25, 0.5, 0.75, 1.0}
	for _, v := range cases {
		cc := volumeToCC(v)
		back := float64(cc) / 127.0
		if math.Abs(back-v) > 1.0/127.0 {
			t.Errorf("volume %v round trips to %v via CC %d", v, back, cc)
		}
	}
	panCases := []float64{-1, -0.5, 0, 0.5, 1}
	for _, v := range panCases {
		cc := panToCC(v)
		back := float64(cc)/127.0*2.0 - 1.0
		if math.Abs(back-v) > 1.0/127.0*2 {
			t.Errorf("pan %v round trips to %v via CC %d", v, back, cc)
		}
	}
}
