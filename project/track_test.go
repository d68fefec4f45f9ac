package project

import "testing"

func TestAddNoteRejectsDuplicateKey(t *testing.T) {
	tr := NewTrack("Lead", 0)
	if err := tr.AddNote(NewNote(60, 100, 0, 480)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.AddNote(NewNote(60, 100, 0, 240)); err == nil {
		t.Fatal("expected ErrDuplicateNote")
	}
}

func TestAddNoteKeepsSortedOrder(t *testing.T) {
	tr := NewTrack("Lead", 0)
	_ = tr.AddNote(NewNote(60, 100, 480, 480))
	_ = tr.AddNote(NewNote(62, 100, 0, 480))
	_ = tr.AddNote(NewNote(64, 100, 960, 480))

	notes := tr.Notes()
	for i := 1; i < len(notes); i++ {
		if notes[i-1].Start > notes[i].Start {
			t.Fatalf("notes not sorted: %+v", notes)
		}
	}
}

func TestNotesInWindow(t *testing.T) {
	tr := NewTrack("Lead", 0)
	_ = tr.AddNote(NewNote(60, 100, 0, 480))
	_ = tr.AddNote(NewNote(62, 100, 480, 480))
	_ = tr.AddNote(NewNote(64, 100, 960, 480))

	got := tr.NotesInWindow(400, 1000)
	if len(got) != 3 {
		t.Fatalf("expected 3 notes in window, got %d: %+v", len(got), got)
	}
	if got[0].Pitch != 60 || got[1].Pitch != 62 || got[2].Pitch != 64 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestRemoveNote(t *testing.T) {
	tr := NewTrack("Lead", 0)
	_ = tr.AddNote(NewNote(60, 100, 0, 480))
	n := tr.Notes()[0]
	if !tr.RemoveNote(n.ID) {
		t.Fatal("expected removal to succeed")
	}
	if len(tr.Notes()) != 0 {
		t.Fatal("expected empty track after removal")
	}
	if tr.RemoveNote(n.ID) {
		t.Fatal("expected second removal to fail")
	}
}

func TestReplaceNoteKeepsSortOrder(t *testing.T) {
	tr := NewTrack("Lead", 0)
	_ = tr.AddNote(NewNote(60, 100, 0, 480))
	n := tr.Notes()[0]
	moved := n
	moved.Start = 960
	if !tr.ReplaceNote(n.ID, moved) {
		t.Fatal("expected replace to succeed")
	}
	if len(tr.Notes()) != 1 || tr.Notes()[0].Start != 960 {
		t.Fatalf("unexpected notes after replace: %+v", tr.Notes())
	}
}

func TestQuantizeRoundsToNearestGrid(t *testing.T) {
	tr := NewTrack("Lead", 0)
	_ = tr.AddNote(NewNote(60, 100, 100, 1))
	tr.Quantize(120)
	if tr.Notes()[0].Start != 120 {
		t.Fatalf("expected quantize to 120, got %d", tr.Notes()[0].Start)
	}
}

func TestClampVolumeAndPan(t *testing.T) {
	if got := ClampVolume(2.0); got != 1.0 {
		t.Errorf("ClampVolume(2.0) = %v", got)
	}
	if got := ClampVolume(-1.0); got != 0.0 {
		t.Errorf("ClampVolume(-1.0) = %v", got)
	}
	if got := ClampPan(5.0); got != 1.0 {
		t.Errorf("ClampPan(5.0) = %v", got)
	}
	if got := ClampPan(-5.0); got != -1.0 {
		t.Errorf("ClampPan(-5.0) = %v", got)
	}
}
