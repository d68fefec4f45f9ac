package edit

import (
	"testing"

	"github.com/grahamseamans/miditui/project"
)

func applyAndPush(t *testing.T, p *project.Project, h *History, cmd *Command) {
	t.Helper()
	if err := cmd.Apply(p); err != nil {
		t.Fatalf("apply %v: %v", cmd.Kind, err)
	}
	h.PushUndo(cmd)
}

func TestUndoRedoLinearity(t *testing.T) {
	p := project.Empty("test")
	h := NewHistory()

	addTrack := &Command{Kind: KindAddTrack, Name: "Lead"}
	applyAndPush(t, p, h, addTrack)
	trackID := addTrack.TrackID

	addNote1 := &Command{Kind: KindAddNote, TrackID: trackID, Note: project.NewNote(60, 100, 0, 480)}
	applyAndPush(t, p, h, addNote1)

	addNote2 := &Command{Kind: KindAddNote, TrackID: trackID, Note: project.NewNote(62, 100, 480, 480)}
	applyAndPush(t, p, h, addNote2)

	snapshotAfterAdds := p.Clone()

	// Undo x2.
	for i := 0; i < 2; i++ {
		cmd, ok := h.PopUndo()
		if !ok {
			t.Fatal("expected undo entry")
		}
		if err := cmd.Revert(p); err != nil {
			t.Fatalf("revert: %v", err)
		}
		h.PushRedo(cmd)
	}

	track := p.Track(trackID)
	if len(track.Notes()) != 0 {
		t.Fatalf("expected 0 notes after undo x2, got %d", len(track.Notes()))
	}

	// Redo x2.
	for i := 0; i < 2; i++ {
		cmd, ok := h.PopRedo()
		if !ok {
			t.Fatal("expected redo entry")
		}
		if err := cmd.Apply(p); err != nil {
			t.Fatalf("reapply: %v", err)
		}
		h.PushRedoPreserving(cmd)
	}

	track = p.Track(trackID)
	if len(track.Notes()) != 2 {
		t.Fatalf("expected 2 notes after redo x2, got %d", len(track.Notes()))
	}
	if track.Notes()[0].Pitch != snapshotAfterAdds.Track(trackID).Notes()[0].Pitch {
		t.Fatal("redo result diverged from pre-undo snapshot")
	}
}

func TestNewMutationClearsRedoStack(t *testing.T) {
	p := project.Empty("test")
	h := NewHistory()

	addTrack := &Command{Kind: KindAddTrack, Name: "Lead"}
	applyAndPush(t, p, h, addTrack)

	cmd, ok := h.PopUndo()
	if !ok {
		t.Fatal("expected undo entry")
	}
	_ = cmd.Revert(p)
	h.PushRedo(cmd)

	if h.RedoLen() != 1 {
		t.Fatalf("expected 1 redo entry, got %d", h.RedoLen())
	}

	// A genuinely new mutation clears redo.
	other := &Command{Kind: KindAddTrack, Name: "Other"}
	applyAndPush(t, p, h, other)

	if h.RedoLen() != 0 {
		t.Fatalf("expected redo cleared after new mutation, got %d entries", h.RedoLen())
	}
}

func TestHistoryCappedAtMaxSize(t *testing.T) {
	p := project.Empty("test")
	h := NewHistory()
	for i := 0; i < MaxHistorySize+5; i++ {
		cmd := &Command{Kind: KindAddTrack, Name: "t"}
		applyAndPush(t, p, h, cmd)
	}
	if h.UndoLen() != MaxHistorySize {
		t.Fatalf("expected undo stack capped at %d, got %d", MaxHistorySize, h.UndoLen())
	}
}

func TestUndoEmptyProjectRestoresEmptyState(t *testing.T) {
	p := project.Empty("test")
	h := NewHistory()

	addTrack := &Command{Kind: KindAddTrack, Name: "Lead"}
	applyAndPush(t, p, h, addTrack)
	addNote := &Command{Kind: KindAddNote, TrackID: addTrack.TrackID, Note: project.NewNote(60, 100, 0, 480)}
	applyAndPush(t, p, h, addNote)

	for h.UndoLen() > 0 {
		cmd, _ := h.PopUndo()
		if err := cmd.Revert(p); err != nil {
			t.Fatalf("revert: %v", err)
		}
	}

	if len(p.Tracks()) != 0 {
		t.Fatalf("expected empty project after undoing all commands, got %d tracks", len(p.Tracks()))
	}
}

func TestRevertBeforeApplyErrors(t *testing.T) {
	cmd := &Command{Kind: KindAddTrack, Name: "Lead"}
	p := project.Empty("test")
	if err := cmd.Revert(p); err == nil {
		t.Fatal("expected error reverting an unapplied command")
	}
}

func TestSetVolumeUndoRestoresExactValue(t *testing.T) {
	p := project.Empty("test")
	tr := p.CreateTrack("A")
	h := NewHistory()

	cmd := &Command{Kind: KindSetVolume, TrackID: tr.ID, Volume: 0.3}
	applyAndPush(t, p, h, cmd)
	if tr.Volume != 0.3 {
		t.Fatalf("expected volume 0.3, got %v", tr.Volume)
	}

	undo, _ := h.PopUndo()
	if err := undo.Revert(p); err != nil {
		t.Fatal(err)
	}
	if tr.Volume != 1.0 {
		t.Fatalf("expected volume restored to 1.0, got %v", tr.Volume)
	}
}
