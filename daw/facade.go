// Package daw is the single ingress point for the terminal UI (C8): it
// owns the project, the undo history, the synth engine, the transport,
// live audio output, insert-mode recording, and autosave, and serializes
// every mutation through one control thread, mirroring the teacher's
// sequencer.Manager almost directly (field layout, goroutine start-up,
// UpdateChan notification pattern, mu sync.RWMutex discipline) but
// generalized from device-slot sequencing to project-edit command
// dispatch.
package daw

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/grahamseamans/miditui/audioio"
	"github.com/grahamseamans/miditui/autosave"
	"github.com/grahamseamans/miditui/codec"
	"github.com/grahamseamans/miditui/config"
	"github.com/grahamseamans/miditui/edit"
	"github.com/grahamseamans/miditui/insert"
	"github.com/grahamseamans/miditui/logging"
	"github.com/grahamseamans/miditui/project"
	"github.com/grahamseamans/miditui/synth"
	"github.com/grahamseamans/miditui/transport"
)

// UITickRate is the control thread's periodic wakeup, used to advance
// the insert-mode clock while stopped and to refresh the UI's playhead,
// matching the teacher's 30 FPS uiTicker in sequencer.Manager.
const UITickRate = time.Second / 30

// Facade is the sole owner of project state (§3 Ownership). Every
// mutation flows through ApplyCommand so history, autosave, and the
// transport snapshot stay consistent.
type Facade struct {
	mu sync.RWMutex

	proj    *project.Project
	history *edit.History

	synth     *synth.Engine
	soundFont *synth.Handle
	transport *transport.Transport
	stream    *audioio.Stream

	insertClock  *insert.Clock
	insertOn     bool
	lastTickTime time.Time

	autosaveCtrl *autosave.Controller
	cfg          *config.Config

	stopCh     chan struct{}
	UpdateChan chan struct{}

	log interface {
		Infow(msg string, kv ...any)
		Warnw(msg string, kv ...any)
		Errorw(msg string, kv ...any)
	}
}

// New constructs a Facade around a fresh default project. Call
// LoadOrNew afterward to honor CLI startup rules, then Start to launch
// the control thread.
func New(cfg *config.Config) *Facade {
	p := project.New("Untitled")
	synthEngine := synth.New()
	tr := transport.New(synthEngine, synth.SampleRate)
	tr.PublishSnapshot(p)

	f := &Facade{
		proj:         p,
		history:      edit.NewHistory(),
		synth:        synthEngine,
		transport:    tr,
		insertClock:  insert.NewClock(p.TicksPerMeasure(), p.TicksPerBeat()),
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		UpdateChan:   make(chan struct{}, 1),
		log:          logging.For("daw"),
	}
	f.autosaveCtrl = autosave.New(autosave.DefaultPath, autosave.Debounce, func(err error) {
		f.log.Warnw("autosave failed", "error", err)
	})
	return f
}

// LoadOrNew implements §6's startup precedence: an explicit path wins,
// then an existing autosave unless newFlag suppresses it, otherwise a
// fresh project. soundFontOverride, if non-empty, is loaded after the
// project regardless of what the project embeds.
func (f *Facade) LoadOrNew(path string, newFlag bool, soundFontOverride string) error {
	f.mu.Lock()
	var loaded *project.Project
	var err error
	switch {
	case path != "":
		loaded, err = loadProjectFile(path)
		if err != nil {
			f.mu.Unlock()
			return err
		}
	case !newFlag && autosave.Exists(autosave.DefaultPath):
		loaded, err = autosave.Load(autosave.DefaultPath)
		if err != nil {
			f.log.Warnw("autosave restore failed, starting fresh", "error", err)
			loaded = nil
		}
	}
	if loaded != nil {
		f.proj = loaded
		f.history.Clear()
		f.insertClock.SetGeometry(f.proj.TicksPerMeasure(), f.proj.TicksPerBeat())
	}
	sfPath := f.proj.SoundFontPath
	if soundFontOverride != "" {
		sfPath = soundFontOverride
		f.proj.SoundFontPath = soundFontOverride
	}
	f.transport.PublishSnapshot(f.proj)
	f.mu.Unlock()

	if sfPath != "" {
		if err := f.LoadSoundFont(sfPath); err != nil {
			f.log.Warnw("soundfont load failed at startup", "path", sfPath, "error", err)
			return err
		}
	}
	return nil
}

func loadProjectFile(path string) (*project.Project, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".oxm":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return codec.DecodeOXM(data)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return codec.DecodeJSON(data)
	case ".mid", ".midi":
		return codec.ReadMIDIFile(path)
	default:
		return nil, fmt.Errorf("daw: unrecognized project extension %q", filepath.Ext(path))
	}
}

// SaveProjectFile dispatches to the format implied by path's extension.
func (f *Facade) SaveProjectFile(path string) error {
	f.mu.RLock()
	p := f.proj
	f.mu.RUnlock()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".oxm":
		data, err := codec.EncodeOXM(p)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	case ".json":
		data, err := codec.EncodeJSON(p)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	case ".mid", ".midi":
		return codec.WriteMIDIFile(path, p)
	case ".wav":
		return codec.RenderToWAV(path, p, f.transport, 0)
	default:
		return fmt.Errorf("daw: unrecognized export extension %q", filepath.Ext(path))
	}
}

// LoadSoundFont loads path into the synth engine and records it on the
// project so it round-trips through autosave.
func (f *Facade) LoadSoundFont(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("daw: open soundfont: %w", err)
	}
	defer file.Close()

	handle, err := f.synth.LoadSoundFont(path, file)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.soundFont = handle
	f.proj.SoundFontPath = path
	f.mu.Unlock()
	f.markAutosave()
	return nil
}

// SoundFont returns the currently loaded SoundFont handle, or nil.
func (f *Facade) SoundFont() *synth.Handle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.soundFont
}

// Project returns the live project for read access by the UI. Track,
// note, tempo and mixer changes go through ApplyCommand; the tui package
// writes editor-only fields (view mode, cursor tick, selected track,
// octave) on it directly, outside the undo history.
func (f *Facade) Project() *project.Project {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.proj
}

// Transport exposes the playback clock for the UI's position/state reads.
func (f *Facade) Transport() *transport.Transport { return f.transport }

// ApplyCommand applies cmd to the live project, records it for undo,
// republishes the transport snapshot, and arms the autosave debounce.
// On invariant violation, history is cleared per §4.5 Robustness rather
// than risk resuming from a half-applied state.
func (f *Facade) ApplyCommand(cmd *edit.Command) error {
	f.mu.Lock()
	err := cmd.Apply(f.proj)
	if err != nil {
		f.history.Clear()
		f.mu.Unlock()
		f.log.Errorw("command apply failed, history cleared", "kind", cmd.Kind.String(), "error", err)
		return err
	}
	f.history.PushUndo(cmd)
	f.transport.PublishSnapshot(f.proj)
	f.mu.Unlock()

	f.markAutosave()
	f.notifyUpdate()
	return nil
}

// Undo reverts the most recent undo group (§4.4's insert-mode grouping
// collapses a run of keystrokes into one undo step).
func (f *Facade) Undo() error {
	f.mu.Lock()
	group, ok := f.history.PopUndoGroup()
	if !ok {
		f.mu.Unlock()
		return nil
	}
	for i := len(group) - 1; i >= 0; i-- {
		if err := group[i].Revert(f.proj); err != nil {
			f.history.Clear()
			f.mu.Unlock()
			f.log.Errorw("undo failed, history cleared", "error", err)
			return err
		}
	}
	for _, cmd := range group {
		f.history.PushRedo(cmd)
	}
	f.transport.PublishSnapshot(f.proj)
	f.mu.Unlock()

	f.markAutosave()
	f.notifyUpdate()
	return nil
}

// Redo re-applies the most recently undone command.
func (f *Facade) Redo() error {
	f.mu.Lock()
	cmd, ok := f.history.PopRedo()
	if !ok {
		f.mu.Unlock()
		return nil
	}
	if err := cmd.Apply(f.proj); err != nil {
		f.history.Clear()
		f.mu.Unlock()
		f.log.Errorw("redo failed, history cleared", "error", err)
		return err
	}
	f.history.PushRedoPreserving(cmd)
	f.transport.PublishSnapshot(f.proj)
	f.mu.Unlock()

	f.markAutosave()
	f.notifyUpdate()
	return nil
}

// CanUndo and CanRedo back the UI's menu enabled state.
func (f *Facade) CanUndo() bool { f.mu.RLock(); defer f.mu.RUnlock(); return f.history.UndoLen() > 0 }
func (f *Facade) CanRedo() bool { f.mu.RLock(); defer f.mu.RUnlock(); return f.history.RedoLen() > 0 }

// Play, Stop, StopAndRewind, and SeekTo delegate to the transport.
func (f *Facade) Play()               { f.transport.Play() }
func (f *Facade) Stop() error         { return f.transport.Stop() }
func (f *Facade) StopAndRewind() error { return f.transport.StopAndRewind() }
func (f *Facade) SeekTo(tick uint32) error {
	return f.transport.SeekTo(tick)
}

// StartAudio opens the live output stream backed by the transport.
func (f *Facade) StartAudio() error {
	stream, err := audioio.Open(synth.SampleRate, f.transport)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.stream = stream
	f.mu.Unlock()
	stream.Start()
	return nil
}

// StopAudio releases the live output stream.
func (f *Facade) StopAudio() error {
	f.mu.Lock()
	stream := f.stream
	f.stream = nil
	f.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.Close()
}

// EnterInsertMode arms the insert clock at the current cursor position.
func (f *Facade) EnterInsertMode() {
	f.mu.Lock()
	f.insertOn = true
	f.insertClock.SetAnchor(f.proj.Editor.CursorTick)
	f.mu.Unlock()
}

// ExitInsertMode halts the insert clock and records its final anchor as
// the editor's insert anchor (InsertAnchorTick).
func (f *Facade) ExitInsertMode() {
	f.mu.Lock()
	f.insertOn = false
	f.insertClock.Halt()
	f.proj.Editor.InsertAnchorTick = f.insertClock.AnchorTick()
	f.mu.Unlock()
}

// InsertModeActive reports whether insert mode is currently armed.
func (f *Facade) InsertModeActive() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.insertOn
}

// HandleInsertKey resolves a musical-typing keystroke to a pitch and, if
// recognized, sounds it immediately and writes an AddNote command,
// grouped so a burst of keystrokes undoes as one step (§4.4).
func (f *Facade) HandleInsertKey(key rune, now time.Time) error {
	f.mu.RLock()
	on := f.insertOn
	octave := f.proj.Editor.Octave
	trackID := f.currentTrackIDLocked()
	beatTicks := f.proj.TicksPerBeat()
	f.mu.RUnlock()
	if !on {
		return nil
	}

	pitch, ok := insert.PitchForKey(key, octave)
	if !ok {
		return nil
	}

	velocity := uint8(100)
	if f.cfg != nil && f.cfg.DefaultVelocity > 0 {
		velocity = f.cfg.DefaultVelocity
	}
	_ = f.synth.NoteOn(f.channelForTrack(trackID), pitch, velocity)

	write := f.insertClock.KeyPress(now, pitch, beatTicks)
	cmd := &edit.Command{
		Kind:    edit.KindAddNote,
		GroupID: write.GroupID,
		TrackID: trackID,
		Note:    project.NewNote(write.Pitch, velocity, write.Start, write.Duration),
	}
	return f.ApplyCommand(cmd)
}

func (f *Facade) currentTrackIDLocked() project.TrackID {
	tracks := f.proj.Tracks()
	idx := f.proj.Editor.SelectedTrack
	if idx < 0 || idx >= len(tracks) {
		if len(tracks) == 0 {
			return 0
		}
		idx = 0
	}
	return tracks[idx].ID
}

func (f *Facade) channelForTrack(id project.TrackID) uint8 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t := f.proj.Track(id)
	if t == nil {
		return 0
	}
	return t.Channel
}

// Start launches the control thread's periodic tick loop: insert-mode
// idle advancement while stopped, anchor tracking while playing, and UI
// notification, mirroring sequencer.Manager's queueManagerLoop.
func (f *Facade) Start() {
	f.autosaveCtrl.Start()
	go f.tickLoop()
}

// Shutdown flushes any pending autosave, releases audio, and stops the
// control thread. Safe to call once.
func (f *Facade) Shutdown() error {
	close(f.stopCh)
	_ = f.StopAudio()
	err := f.autosaveCtrl.Flush()
	f.autosaveCtrl.Stop()
	_ = logging.Sync()
	return err
}

func (f *Facade) tickLoop() {
	ticker := time.NewTicker(UITickRate)
	defer ticker.Stop()
	f.lastTickTime = time.Now()

	for {
		select {
		case <-f.stopCh:
			return
		case now := <-ticker.C:
			f.onTick(now)
		}
	}
}

func (f *Facade) onTick(now time.Time) {
	f.mu.Lock()
	elapsed := now.Sub(f.lastTickTime)
	f.lastTickTime = now
	bpm := f.proj.Tempo
	f.insertClock.SetGeometry(f.proj.TicksPerMeasure(), f.proj.TicksPerBeat())
	playing := f.transport.State() == transport.StatePlaying
	f.mu.Unlock()

	if playing {
		f.insertClock.TrackTransport(f.transport.PositionTick())
	} else if f.insertClock.Active() {
		elapsedTicks := uint32(elapsed.Seconds() * bpm * float64(project.TicksPerQuarter) / 60.0)
		f.insertClock.Advance(elapsedTicks)
		if deadline := f.insertClock.IdleDeadline(bpm); !deadline.IsZero() && now.After(deadline) {
			f.insertClock.Halt()
		}
	}
	f.notifyUpdate()
}

func (f *Facade) markAutosave() {
	f.mu.RLock()
	p := f.proj.Clone()
	f.mu.RUnlock()
	f.autosaveCtrl.Mark(p)
}

func (f *Facade) notifyUpdate() {
	select {
	case f.UpdateChan <- struct{}{}:
	default:
	}
}
