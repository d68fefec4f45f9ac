package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/grahamseamans/miditui/project"
)

// OXMMagic is the fixed 3-byte signature `4F 58 4D` ("OXM"). The byte
// after it is the format version, so a file written by this build begins
// `4F 58 4D 02` and a version-1 file begins `4F 58 4D 01`.
var OXMMagic = [3]byte{'O', 'X', 'M'}

// OXMVersion is the current payload format version this build writes.
// Readers accept any version <= OXMVersion and fail cleanly above it
// (§6: "backward-compatible readers must accept lower versions").
// Version 2 added persisted Track/Note IDs ahead of the Bank/Program
// and Pitch fields respectively; version 1 files are read by minting
// fresh IDs exactly as DecodeOXM always used to.
const OXMVersion = 2

// ErrUnsupportedOXMVersion is returned when a file's version byte is
// newer than this build understands.
var ErrUnsupportedOXMVersion = fmt.Errorf("codec: oxm version newer than supported (max %d)", OXMVersion)

// ErrBadOXMMagic is returned when the leading 3 bytes don't spell "OXM".
var ErrBadOXMMagic = fmt.Errorf("codec: not an oxm file (bad magic)")

// EncodeOXM serializes p to the compact binary autosave format: a
// versioned header followed by a length-prefixed payload of
// little-endian, variable-width integer fields (§4.6).
func EncodeOXM(p *project.Project) ([]byte, error) {
	var payload bytes.Buffer
	w := &oxmWriter{buf: &payload}

	w.writeString(p.Name)
	w.writeFloat64(p.Tempo)
	w.buf.WriteByte(p.TimeSigNum)
	w.buf.WriteByte(p.TimeSigDenom)
	w.writeString(p.SoundFontPath)

	w.writeUvarint(uint64(p.Editor.ViewMode))
	w.writeUvarint(uint64(p.Editor.SelectedTrack))
	w.writeUvarint(uint64(p.Editor.Octave))
	w.writeUvarint(uint64(p.Editor.CursorTick))
	w.writeUvarint(uint64(p.Editor.InsertAnchorTick))

	tracks := p.Tracks()
	w.writeUvarint(uint64(len(tracks)))
	for _, t := range tracks {
		w.writeUvarint(uint64(t.ID))
		w.writeString(t.Name)
		w.buf.WriteByte(t.Bank)
		w.buf.WriteByte(t.Program)
		w.buf.WriteByte(t.Channel)
		flags := byte(0)
		if t.Muted {
			flags |= 1
		}
		if t.Solo {
			flags |= 2
		}
		w.buf.WriteByte(flags)
		w.writeFloat64(t.Volume)
		w.writeFloat64(t.Pan)

		notes := t.Notes()
		w.writeUvarint(uint64(len(notes)))
		for _, n := range notes {
			w.writeUvarint(uint64(n.ID))
			w.buf.WriteByte(n.Pitch)
			w.writeUvarint(uint64(n.Start))
			w.writeUvarint(uint64(n.Duration))
			w.buf.WriteByte(n.Velocity)
		}
	}

	if w.err != nil {
		return nil, w.err
	}

	var out bytes.Buffer
	out.Write(OXMMagic[:])
	out.WriteByte(OXMVersion)
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(payload.Len()))
	out.Write(lenBuf[:n])
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

// DecodeOXM parses the compact binary format back into a Project.
// Version 2+ payloads carry each Track/Note's original ID; version 1
// payloads carry none, so their tracks and notes are reissued fresh
// IDs exactly as if newly created.
func DecodeOXM(data []byte) (*project.Project, error) {
	if len(data) < 4 || data[0] != OXMMagic[0] || data[1] != OXMMagic[1] || data[2] != OXMMagic[2] {
		return nil, ErrBadOXMMagic
	}
	version := data[3]
	if version > OXMVersion {
		return nil, ErrUnsupportedOXMVersion
	}
	rest := bytes.NewReader(data[4:])
	payloadLen, err := binary.ReadUvarint(rest)
	if err != nil {
		return nil, fmt.Errorf("codec: oxm payload length: %w", err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(rest, payload); err != nil {
		return nil, fmt.Errorf("codec: oxm payload: %w", err)
	}

	r := &oxmReader{buf: bytes.NewReader(payload)}

	name := r.readString()
	tempo := r.readFloat64()
	timeSigNum := r.readByte()
	timeSigDenom := r.readByte()
	soundFontPath := r.readString()

	viewMode := project.ViewMode(r.readUvarint())
	selectedTrack := int(r.readUvarint())
	octave := int(r.readUvarint())
	cursorTick := uint32(r.readUvarint())
	insertAnchorTick := uint32(r.readUvarint())

	if r.err != nil {
		return nil, r.err
	}

	p := project.Empty(name)
	if tempo > 0 {
		_ = p.SetTempo(tempo)
	}
	if timeSigNum > 0 {
		_ = p.SetTimeSignature(timeSigNum, timeSigDenom)
	}
	p.SoundFontPath = soundFontPath
	p.Editor = project.EditorState{
		ViewMode:         viewMode,
		SelectedTrack:    selectedTrack,
		Octave:           octave,
		CursorTick:       cursorTick,
		InsertAnchorTick: insertAnchorTick,
	}

	trackCount := r.readUvarint()
	for i := uint64(0); i < trackCount; i++ {
		var trackID uint64
		if version >= 2 {
			trackID = r.readUvarint()
		}
		tname := r.readString()
		bank := r.readByte()
		program := r.readByte()
		channel := r.readByte()
		flags := r.readByte()

		var t *project.Track
		if version >= 2 {
			t = project.NewTrackWithID(project.TrackID(trackID), tname, channel)
		} else {
			t = project.NewTrack(tname, channel)
		}
		t.Bank = bank
		t.Program = program
		t.Muted = flags&1 != 0
		t.Solo = flags&2 != 0
		t.SetVolume(r.readFloat64())
		t.SetPan(r.readFloat64())

		noteCount := r.readUvarint()
		for j := uint64(0); j < noteCount; j++ {
			var noteID uint64
			if version >= 2 {
				noteID = r.readUvarint()
			}
			pitch := r.readByte()
			start := uint32(r.readUvarint())
			duration := uint32(r.readUvarint())
			velocity := r.readByte()
			if version >= 2 {
				_ = t.AddNote(project.NewNoteWithID(project.NoteID(noteID), pitch, velocity, start, duration))
			} else {
				_ = t.AddNote(project.NewNote(pitch, velocity, start, duration))
			}
		}
		p.InsertTrack(t)
	}
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

type oxmWriter struct {
	buf *bytes.Buffer
	err error
}

func (w *oxmWriter) writeUvarint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	w.buf.Write(b[:n])
}

func (w *oxmWriter) writeString(s string) {
	w.writeUvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *oxmWriter) writeFloat64(f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	w.buf.Write(b[:])
}

type oxmReader struct {
	buf *bytes.Reader
	err error
}

func (r *oxmReader) readUvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(r.buf)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *oxmReader) readByte() uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.buf.ReadByte()
	if err != nil {
		r.err = err
	}
	return b
}

func (r *oxmReader) readFloat64() float64 {
	if r.err != nil {
		return 0
	}
	var b [8]byte
	if _, err := io.ReadFull(r.buf, b[:]); err != nil {
		r.err = err
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

func (r *oxmReader) readString() string {
	n := r.readUvarint()
	if r.err != nil {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		r.err = err
		return ""
	}
	return string(b)
}
