package synth

import "testing"

func TestNoteOnWithoutSoundFontReturnsError(t *testing.T) {
	e := New()
	if err := e.NoteOn(0, 60, 100); err != ErrNoSoundFontLoaded {
		t.Fatalf("expected ErrNoSoundFontLoaded, got %v", err)
	}
}

func TestSetProgramWithoutSoundFontReturnsError(t *testing.T) {
	e := New()
	if err := e.SetProgram(0, 0, 0); err != ErrNoSoundFontLoaded {
		t.Fatalf("expected ErrNoSoundFontLoaded, got %v", err)
	}
}

func TestInstrumentNameFallback(t *testing.T) {
	h := &Handle{presets: []Preset{{Bank: 0, Program: 0, Name: "Grand Piano"}}}
	if got := h.InstrumentName(0, 0); got != "Grand Piano" {
		t.Errorf("InstrumentName(0,0) = %q", got)
	}
	if got := h.InstrumentName(0, 5); got != "Bank 0 Program 5" {
		t.Errorf("InstrumentName(0,5) fallback = %q", got)
	}
}

func TestVolumeAndPanToMIDI(t *testing.T) {
	if got := VolumeToMIDI(1.0); got != 127 {
		t.Errorf("VolumeToMIDI(1.0) = %d", got)
	}
	if got := VolumeToMIDI(0.0); got != 0 {
		t.Errorf("VolumeToMIDI(0.0) = %d", got)
	}
	if got := PanToMIDI(0.0); got != 63 {
		t.Errorf("PanToMIDI(0.0) = %d", got)
	}
	if got := PanToMIDI(-1.0); got != 0 {
		t.Errorf("PanToMIDI(-1.0) = %d", got)
	}
	if got := PanToMIDI(1.0); got != 127 {
		t.Errorf("PanToMIDI(1.0) = %d", got)
	}
}

func TestRenderBlockWithoutSoundFontIsSilent(t *testing.T) {
	e := New()
	left := make([]float32, 8)
	right := make([]float32, 8)
	var vol, pan [channelCount]float64
	err := e.RenderBlock(left, right, 8, &vol, &pan)
	if err != ErrNoSoundFontLoaded {
		t.Fatalf("expected ErrNoSoundFontLoaded, got %v", err)
	}
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("expected silence, got left=%v right=%v", left, right)
		}
	}
}

// mutingBackend stands in for meltysynth's Synthesizer: it records the
// last CC7 value seen per channel and renders silence when every
// channel's volume was last set to 0, a constant tone otherwise. This lets
// RenderBlock's gain wiring be verified without a real SoundFont.
type mutingBackend struct {
	lastVolumeCC [channelCount]int32
}

func newMutingBackend() *mutingBackend {
	b := &mutingBackend{}
	for ch := range b.lastVolumeCC {
		b.lastVolumeCC[ch] = 127
	}
	return b
}

func (b *mutingBackend) ProcessMidiMessage(channel, command, data1, data2 int32) {
	if command == 0xB0 && data1 == 7 {
		b.lastVolumeCC[channel] = data2
	}
}

func (b *mutingBackend) Render(left, right []float32) {
	muted := true
	for _, cc := range b.lastVolumeCC {
		if cc != 0 {
			muted = false
			break
		}
	}
	for i := range left {
		if muted {
			left[i], right[i] = 0, 0
		} else {
			left[i], right[i] = 0.5, 0.5
		}
	}
}

func (b *mutingBackend) NoteOn(channel, key, velocity int32)      {}
func (b *mutingBackend) NoteOff(channel, key int32)               {}
func (b *mutingBackend) NoteOffAllChannel(channel int32, immediate bool) {}

func TestRenderBlockAppliesZeroVolumeAsSilence(t *testing.T) {
	e := New()
	e.synth = newMutingBackend()

	left := make([]float32, 4)
	right := make([]float32, 4)
	var vol, pan [channelCount]float64
	vol[0] = 0.0

	if err := e.RenderBlock(left, right, 4, &vol, &pan); err != nil {
		t.Fatalf("RenderBlock: %v", err)
	}
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("expected silence with channel 0 volume 0, got left=%v right=%v", left, right)
		}
	}

	vol[0] = 1.0
	if err := e.RenderBlock(left, right, 4, &vol, &pan); err != nil {
		t.Fatalf("RenderBlock: %v", err)
	}
	for i := range left {
		if left[i] == 0 {
			t.Fatalf("expected audible output once volume is restored, got left=%v", left)
		}
	}
}
