// Package synth wraps a SoundFont-driven polyphonic synthesizer (C2). It
// is the only package that imports meltysynth; everything above it talks
// in terms of channels, (bank, program) pairs, and sample buffers.
package synth

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the fixed render rate required by §4.2/§6 (WAV is
// canonical 44100 Hz stereo).
const SampleRate = 44100

const channelCount = 16

// Errors returned by note-emitting calls and set_program, per §4.2. Both
// are structured values the caller reports and continues past — never a
// panic.
var (
	ErrNoSoundFontLoaded = errors.New("synth: no soundfont loaded")
	ErrPresetNotFound    = errors.New("synth: preset not found")
)

// Preset describes one addressable instrument within a SoundFont.
type Preset struct {
	Bank    uint8
	Program uint8
	Name    string
}

// LoadError wraps a SoundFont parse/IO failure with the offending path.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("synth: failed to load soundfont %q: %v", e.Path, e.Err)
}
func (e *LoadError) Unwrap() error { return e.Err }

// Handle is a loaded SoundFont plus its cached preset catalog. Presets
// are derived from the file at load time and cached on the handle, never
// hard-coded, per Design Notes §9 ("Dynamic instrument lists").
type Handle struct {
	path    string
	font    *meltysynth.SoundFont
	presets []Preset
}

// Path returns the absolute path the SoundFont was loaded from.
func (h *Handle) Path() string { return h.path }

// Presets returns the authoritative instrument catalog for this
// SoundFont: every (bank, program, name) triple it defines.
func (h *Handle) Presets() []Preset { return h.presets }

// InstrumentName resolves a display name for (bank, program), falling
// back to a synthesized "Bank B Program P" label when the SoundFont has
// no matching preset — generalized from bank-0-only name arrays to the
// full catalog.
func (h *Handle) InstrumentName(bank, program uint8) string {
	for _, p := range h.presets {
		if p.Bank == bank && p.Program == program {
			return p.Name
		}
	}
	return fmt.Sprintf("Bank %d Program %d", bank, program)
}

func (h *Handle) hasPreset(bank, program uint8) bool {
	for _, p := range h.presets {
		if p.Bank == bank && p.Program == program {
			return true
		}
	}
	return false
}

// synthBackend is the slice of *meltysynth.Synthesizer that Engine
// drives. Narrowing to an interface lets tests substitute a fake that
// records CC messages without needing a real SoundFont loaded.
type synthBackend interface {
	Render(left, right []float32)
	ProcessMidiMessage(channel, command, data1, data2 int32)
	NoteOn(channel, key, velocity int32)
	NoteOff(channel, key int32)
	NoteOffAllChannel(channel int32, immediate bool)
}

// Engine is the stateful polyphonic renderer for one loaded SoundFont. It
// is safe to call from a single control thread; render_block is intended
// to be called from the audio thread only and performs no allocation.
type Engine struct {
	mu       sync.Mutex
	handle   *Handle
	synth    synthBackend
	programs [channelCount][2]uint8 // [bank, program] per channel
}

// New returns an Engine with no SoundFont loaded; every note-emitting
// call returns ErrNoSoundFontLoaded until LoadSoundFont succeeds.
func New() *Engine {
	return &Engine{}
}

// LoadSoundFont parses r as an SF2/SF3 SoundFont, replacing any
// previously loaded font. Existing voices are silenced and every
// channel's program is reset to (0,0), per §4.2.
func (e *Engine) LoadSoundFont(path string, r io.Reader) (*Handle, error) {
	font, err := meltysynth.NewSoundFont(r)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	s, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	handle := &Handle{path: path, font: font}
	for _, preset := range font.Presets {
		handle.presets = append(handle.presets, Preset{
			Bank:    uint8(preset.BankNumber),
			Program: uint8(preset.PatchNumber),
			Name:    preset.Name,
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = handle
	e.synth = s
	for ch := range e.programs {
		e.programs[ch] = [2]uint8{0, 0}
	}
	return handle, nil
}

// Handle returns the currently loaded SoundFont handle, or nil.
func (e *Engine) Handle() *Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// SetProgram selects (bank, program) on channel, immediately silencing
// any voices sounding on that channel to avoid hung notes when the
// instrument changes mid-playback (§4.2).
func (e *Engine) SetProgram(channel, bank, program uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	resolvedBank, resolvedProgram := bank, program
	if !e.handle.hasPreset(bank, program) {
		if !e.handle.hasPreset(0, 0) {
			return fmt.Errorf("%w: bank=%d program=%d", ErrPresetNotFound, bank, program)
		}
		resolvedBank, resolvedProgram = 0, 0
	}
	e.synth.ProcessMidiMessage(int32(channel), 0xB0, 0, int32(resolvedBank))
	e.synth.ProcessMidiMessage(int32(channel), 0xC0, int32(resolvedProgram), 0)
	e.synth.NoteOffAllChannel(int32(channel), true)
	e.programs[channel] = [2]uint8{resolvedBank, resolvedProgram}
	return nil
}

// NoteOn starts a voice on channel at the given pitch/velocity.
func (e *Engine) NoteOn(channel, pitch, velocity uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	e.synth.NoteOn(int32(channel), int32(pitch), int32(velocity))
	return nil
}

// NoteOff stops a voice on channel at the given pitch.
func (e *Engine) NoteOff(channel, pitch uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	e.synth.NoteOff(int32(channel), int32(pitch))
	return nil
}

// AllNotesOff silences every voice on one channel.
func (e *Engine) AllNotesOff(channel uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	e.synth.NoteOffAllChannel(int32(channel), true)
	return nil
}

// AllNotesOffAllChannels silences every voice on every channel; the
// cancellation primitive for transport stop and SoundFont reload (§5).
func (e *Engine) AllNotesOffAllChannels() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	for ch := 0; ch < channelCount; ch++ {
		e.synth.NoteOffAllChannel(int32(ch), true)
	}
	return nil
}

// RenderBlock renders exactly n samples into outLeft/outRight, applying
// per-channel volume/pan as CC7/CC10 before synthesis (nil volume/pan
// means unity gain, centered). The slices must already have length n;
// this call does not allocate and is safe to invoke from the audio
// thread.
func (e *Engine) RenderBlock(outLeft, outRight []float32, n int, volume, pan *[channelCount]float64) error {
	e.mu.Lock()
	s := e.synth
	if s == nil {
		e.mu.Unlock()
		for i := 0; i < n; i++ {
			outLeft[i] = 0
			outRight[i] = 0
		}
		return ErrNoSoundFontLoaded
	}
	// meltysynth has no post-mix gain stage; channel volume/pan are
	// applied the way real MIDI gear does it, as CC7/CC10 messages that
	// shape each channel's voices during synthesis, sent fresh before
	// every render so a mid-block volume/pan change (or a track going
	// silent) takes effect immediately.
	for ch := 0; ch < channelCount; ch++ {
		v, p := 1.0, 0.0
		if volume != nil {
			v = volume[ch]
		}
		if pan != nil {
			p = pan[ch]
		}
		s.ProcessMidiMessage(int32(ch), 0xB0, 7, int32(VolumeToMIDI(v)))
		s.ProcessMidiMessage(int32(ch), 0xB0, 10, int32(PanToMIDI(p)))
	}
	e.mu.Unlock()
	s.Render(outLeft[:n], outRight[:n])
	return nil
}

// SetChannelVolume sends Control Change 7 (volume) on channel, clamped to
// MIDI's 0-127 range by the caller's project-layer clamp.
func (e *Engine) SetChannelVolume(channel uint8, volume0to127 uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	e.synth.ProcessMidiMessage(int32(channel), 0xB0, 7, int32(volume0to127))
	return nil
}

// SetChannelPan sends Control Change 10 (pan) on channel; 0=left,
// 64=center, 127=right.
func (e *Engine) SetChannelPan(channel uint8, pan0to127 uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return ErrNoSoundFontLoaded
	}
	e.synth.ProcessMidiMessage(int32(channel), 0xB0, 10, int32(pan0to127))
	return nil
}

// VolumeToMIDI converts a 0.0-1.0 project volume to a 0-127 CC7 value.
func VolumeToMIDI(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v * 127.0)
}

// PanToMIDI converts a -1.0..1.0 project pan to a 0-127 CC10 value.
func PanToMIDI(p float64) uint8 {
	if p < -1 {
		p = -1
	}
	if p > 1 {
		p = 1
	}
	return uint8((p + 1.0) / 2.0 * 127.0)
}
