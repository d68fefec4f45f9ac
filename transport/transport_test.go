package transport

import (
	"testing"

	"github.com/grahamseamans/miditui/project"
	"github.com/grahamseamans/miditui/synth"
)

func TestPlayStopTransitions(t *testing.T) {
	tr := New(synth.New(), 44100)
	if tr.State() != StateStopped {
		t.Fatalf("expected initial state stopped, got %v", tr.State())
	}
	tr.Play()
	if tr.State() != StatePlaying {
		t.Fatalf("expected playing after Play(), got %v", tr.State())
	}
	if err := tr.Stop(); err != nil {
		t.Fatal(err)
	}
	if tr.State() != StateStopped {
		t.Fatalf("expected stopped after Stop(), got %v", tr.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tr := New(synth.New(), 44100)
	if err := tr.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestSeekSetsPosition(t *testing.T) {
	tr := New(synth.New(), 44100)
	p := project.New("test")
	tr.PublishSnapshot(p)
	if err := tr.SeekTo(480); err != nil {
		t.Fatal(err)
	}
	got := tr.PositionTick()
	if got < 479 || got > 481 {
		t.Fatalf("PositionTick() after seek = %d, want ~480", got)
	}
}

func TestStopAndRewindResetsPosition(t *testing.T) {
	tr := New(synth.New(), 44100)
	p := project.New("test")
	tr.PublishSnapshot(p)
	_ = tr.SeekTo(480)
	if err := tr.StopAndRewind(); err != nil {
		t.Fatal(err)
	}
	if tr.PositionSamples() != 0 {
		t.Fatalf("expected position 0 after rewind, got %d", tr.PositionSamples())
	}
}

func TestProcessBlockAdvancesClockEvenWithoutSoundFont(t *testing.T) {
	tr := New(synth.New(), 44100)
	p := project.Empty("test")
	tr.PublishSnapshot(p)
	left := make([]float32, 256)
	right := make([]float32, 256)
	if err := tr.ProcessBlock(left, right); err != nil {
		t.Fatal(err)
	}
	if tr.PositionSamples() != 256 {
		t.Fatalf("expected position 256, got %d", tr.PositionSamples())
	}
}

func TestProcessBlockWithoutSnapshotIsSilentButAdvances(t *testing.T) {
	tr := New(synth.New(), 44100)
	left := make([]float32, 64)
	right := make([]float32, 64)
	if err := tr.ProcessBlock(left, right); err != nil {
		t.Fatal(err)
	}
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatal("expected silence with no snapshot published")
		}
	}
	if tr.PositionSamples() != 64 {
		t.Fatalf("expected position 64, got %d", tr.PositionSamples())
	}
}

type fakeSink struct {
	blocks int
	frames int
}

func (f *fakeSink) WriteBlock(left, right []float32) error {
	f.blocks++
	f.frames += len(left)
	return nil
}

func TestRenderOfflineProducesExactSampleCount(t *testing.T) {
	tr := New(synth.New(), 44100)
	p := project.Empty("test")
	tr.PublishSnapshot(p)
	sink := &fakeSink{}
	if err := tr.RenderOffline(1000, 256, sink, nil, nil); err != nil {
		t.Fatal(err)
	}
	if sink.frames != 1000 {
		t.Fatalf("expected 1000 total frames, got %d", sink.frames)
	}
}

func TestRenderOfflineCancellation(t *testing.T) {
	tr := New(synth.New(), 44100)
	p := project.Empty("test")
	tr.PublishSnapshot(p)
	sink := &fakeSink{}
	calls := 0
	cancel := func() bool {
		calls++
		return calls > 1
	}
	err := tr.RenderOffline(100000, 256, sink, cancel, nil)
	if err != ErrRenderCancelled {
		t.Fatalf("expected ErrRenderCancelled, got %v", err)
	}
}
