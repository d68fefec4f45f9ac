package codec

import (
	"reflect"
	"testing"

	"github.com/grahamseamans/miditui/project"
)

// buildScenario5Project constructs the project used by §8 scenario 5:
// a project with non-default tempo, time signature, soundfont path,
// editor cursor state, and two tracks carrying notes, volume, and pan.
func buildScenario5Project() *project.Project {
	p := project.Empty("Scenario Five")
	_ = p.SetTempo(140)
	_ = p.SetTimeSignature(3, 8)
	p.SoundFontPath = "/sounds/grand.sf2"
	p.Editor = project.EditorState{
		ViewMode:         project.ViewPianoRoll,
		SelectedTrack:    1,
		Octave:           5,
		CursorTick:       960,
		InsertAnchorTick: 480,
	}

	lead := p.CreateTrack("Lead")
	lead.Program = 4
	lead.SetVolume(0.8)
	lead.SetPan(-0.25)
	_ = lead.AddNote(project.NewNote(60, 100, 0, 240))
	_ = lead.AddNote(project.NewNote(64, 90, 240, 240))

	bass := p.CreateTrack("Bass")
	bass.Program = 33
	bass.Muted = true
	bass.SetVolume(1.0)
	bass.SetPan(0.0)
	_ = bass.AddNote(project.NewNote(36, 110, 0, 480))

	return p
}

func emptyScenarioProject() *project.Project {
	return project.Empty("Empty")
}

// assertScenario5Equal checks every field a codec round trip must
// preserve, including Track/Note IDs: .oxm (version 2+) and JSON both
// persist them as on-disk identity (§3).
func assertScenario5Equal(t *testing.T, want, got *project.Project) {
	t.Helper()
	if got.Name != want.Name {
		t.Errorf("Name: want %q, got %q", want.Name, got.Name)
	}
	if got.Tempo != want.Tempo {
		t.Errorf("Tempo: want %v, got %v", want.Tempo, got.Tempo)
	}
	if got.TimeSigNum != want.TimeSigNum || got.TimeSigDenom != want.TimeSigDenom {
		t.Errorf("TimeSig: want %d/%d, got %d/%d", want.TimeSigNum, want.TimeSigDenom, got.TimeSigNum, got.TimeSigDenom)
	}
	if got.SoundFontPath != want.SoundFontPath {
		t.Errorf("SoundFontPath: want %q, got %q", want.SoundFontPath, got.SoundFontPath)
	}
	if !reflect.DeepEqual(got.Editor, want.Editor) {
		t.Errorf("Editor: want %+v, got %+v", want.Editor, got.Editor)
	}

	wantTracks, gotTracks := want.Tracks(), got.Tracks()
	if len(wantTracks) != len(gotTracks) {
		t.Fatalf("track count: want %d, got %d", len(wantTracks), len(gotTracks))
	}
	for i := range wantTracks {
		wt, gt := wantTracks[i], gotTracks[i]
		if wt.ID != gt.ID || wt.Name != gt.Name || wt.Bank != gt.Bank || wt.Program != gt.Program ||
			wt.Channel != gt.Channel || wt.Muted != gt.Muted || wt.Solo != gt.Solo ||
			wt.Volume != gt.Volume || wt.Pan != gt.Pan {
			t.Errorf("track %d mismatch: want %+v, got %+v", i, wt, gt)
		}
		wn, gn := wt.Notes(), gt.Notes()
		if len(wn) != len(gn) {
			t.Fatalf("track %d note count: want %d, got %d", i, len(wn), len(gn))
		}
		for j := range wn {
			if wn[j].ID != gn[j].ID || wn[j].Pitch != gn[j].Pitch || wn[j].Start != gn[j].Start ||
				wn[j].Duration != gn[j].Duration || wn[j].Velocity != gn[j].Velocity {
				t.Errorf("track %d note %d mismatch: want %+v, got %+v", i, j, wn[j], gn[j])
			}
		}
	}
}
