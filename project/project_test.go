package project

import "testing"

func TestNewHasOneDefaultTrack(t *testing.T) {
	p := New("test")
	if len(p.Tracks()) != 1 {
		t.Fatalf("expected 1 default track, got %d", len(p.Tracks()))
	}
}

func TestEmptyHasNoTracks(t *testing.T) {
	p := Empty("test")
	if len(p.Tracks()) != 0 {
		t.Fatalf("expected 0 tracks, got %d", len(p.Tracks()))
	}
}

func TestChannelRoundRobinSkipsDrumChannel(t *testing.T) {
	p := Empty("test")
	var channels []uint8
	for i := 0; i < 18; i++ {
		channels = append(channels, p.CreateTrack("t").Channel)
	}
	for _, ch := range channels {
		if ch == DrumChannel {
			t.Fatalf("channel assignment used reserved drum channel: %v", channels)
		}
	}
	if channels[0] != 0 {
		t.Fatalf("expected first channel 0, got %d", channels[0])
	}
}

func TestAnySoloCache(t *testing.T) {
	p := Empty("test")
	a := p.CreateTrack("A")
	p.CreateTrack("B")
	if p.AnySolo() {
		t.Fatal("expected no solo initially")
	}
	if err := p.SetSolo(a.ID, true); err != nil {
		t.Fatal(err)
	}
	if !p.AnySolo() {
		t.Fatal("expected AnySolo true after SetSolo")
	}
}

func TestPlayableTracksRespectsSoloOverMute(t *testing.T) {
	p := Empty("test")
	a := p.CreateTrack("A")
	b := p.CreateTrack("B")
	a.Muted = true
	a.Solo = true
	b.Muted = false
	b.Solo = false
	p.invalidateAnySolo()

	playable := p.PlayableTracks()
	if len(playable) != 1 || playable[0].ID != a.ID {
		t.Fatalf("expected only A (soloed) playable, got %+v", playable)
	}
}

func TestSetTempoValidation(t *testing.T) {
	p := Empty("test")
	if err := p.SetTempo(0); err == nil {
		t.Fatal("expected error for tempo 0")
	}
	if err := p.SetTempo(144); err != nil {
		t.Fatal(err)
	}
}

func TestSetTimeSignatureValidation(t *testing.T) {
	p := Empty("test")
	if err := p.SetTimeSignature(0, 4); err == nil {
		t.Fatal("expected error for numerator 0")
	}
	if err := p.SetTimeSignature(4, 3); err == nil {
		t.Fatal("expected error for denominator 3")
	}
	if err := p.SetTimeSignature(6, 8); err != nil {
		t.Fatal(err)
	}
}

func TestTicksPerMeasureAndBeat(t *testing.T) {
	p := Empty("test")
	_ = p.SetTimeSignature(6, 8)
	if got := p.TicksPerBeat(); got != 240 {
		t.Errorf("TicksPerBeat() = %d, want 240", got)
	}
	if got := p.TicksPerMeasure(); got != 1440 {
		t.Errorf("TicksPerMeasure() = %d, want 1440", got)
	}
}

func TestTickToPositionRoundTrip(t *testing.T) {
	p := Empty("test")
	measure, beat, tickInBeat := p.TickToPosition(1920)
	if measure != 2 || beat != 1 || tickInBeat != 0 {
		t.Fatalf("unexpected position: m=%d b=%d t=%d", measure, beat, tickInBeat)
	}
	if back := p.PositionToTick(measure, beat, tickInBeat); back != 1920 {
		t.Fatalf("round trip failed: got %d", back)
	}
}

func TestTickToSamples(t *testing.T) {
	samples := TickToSamples(480, 120, 44100)
	// One quarter note at 120bpm is 0.5s -> 22050 samples.
	if samples < 22049 || samples > 22051 {
		t.Fatalf("TickToSamples = %v, want ~22050", samples)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := Empty("test")
	tr := p.CreateTrack("A")
	_ = tr.AddNote(NewNote(60, 100, 0, 480))

	clone := p.Clone()
	clone.Tracks()[0].Name = "mutated"
	_ = clone.Tracks()[0].AddNote(NewNote(62, 100, 480, 480))

	if p.Tracks()[0].Name == "mutated" {
		t.Fatal("clone mutation leaked into original track")
	}
	if len(p.Tracks()[0].Notes()) != 1 {
		t.Fatal("clone note mutation leaked into original")
	}
}
