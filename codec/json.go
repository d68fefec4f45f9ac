package codec

import (
	"encoding/json"
	"fmt"

	"github.com/grahamseamans/miditui/project"
)

// noteDoc and trackDoc mirror the public shape of project.Note/Track for
// JSON, since Track's note storage is private (the sorted-slice range
// query structure is an implementation detail, not part of the schema).
type noteDoc struct {
	ID       uint64 `json:"id"`
	Pitch    uint8  `json:"pitch"`
	Start    uint32 `json:"start"`
	Duration uint32 `json:"duration"`
	Velocity uint8  `json:"velocity"`
}

type trackDoc struct {
	ID      uint64    `json:"id"`
	Name    string    `json:"name"`
	Bank    uint8     `json:"bank"`
	Program uint8     `json:"program"`
	Channel uint8     `json:"channel"`
	Muted   bool      `json:"muted"`
	Solo    bool      `json:"solo"`
	Volume  float64   `json:"volume"`
	Pan     float64   `json:"pan"`
	Notes   []noteDoc `json:"notes"`
}

type editorDoc struct {
	ViewMode         int    `json:"viewMode"`
	SelectedTrack    int    `json:"selectedTrack"`
	Octave           int    `json:"octave"`
	CursorTick       uint32 `json:"cursorTick"`
	InsertAnchorTick uint32 `json:"insertAnchorTick"`
}

// projectDoc is the documented JSON schema (§4.6): field names are
// stable, unknown fields are ignored by encoding/json's default
// Unmarshal behavior, and missing optional fields decode to their zero
// value, which DecodeJSON then treats as "use the documented default."
type projectDoc struct {
	Name          string     `json:"name"`
	Tempo         float64    `json:"tempo"`
	TimeSigNum    uint8      `json:"timeSigNumerator"`
	TimeSigDenom  uint8      `json:"timeSigDenominator"`
	SoundFontPath string     `json:"soundFontPath,omitempty"`
	Editor        editorDoc  `json:"editor"`
	Tracks        []trackDoc `json:"tracks"`
}

// EncodeJSON renders p as the documented human-readable project schema.
func EncodeJSON(p *project.Project) ([]byte, error) {
	doc := projectDoc{
		Name:          p.Name,
		Tempo:         p.Tempo,
		TimeSigNum:    p.TimeSigNum,
		TimeSigDenom:  p.TimeSigDenom,
		SoundFontPath: p.SoundFontPath,
		Editor: editorDoc{
			ViewMode:         int(p.Editor.ViewMode),
			SelectedTrack:    p.Editor.SelectedTrack,
			Octave:           p.Editor.Octave,
			CursorTick:       p.Editor.CursorTick,
			InsertAnchorTick: p.Editor.InsertAnchorTick,
		},
	}
	for _, t := range p.Tracks() {
		td := trackDoc{
			ID:   uint64(t.ID),
			Name: t.Name, Bank: t.Bank, Program: t.Program, Channel: t.Channel,
			Muted: t.Muted, Solo: t.Solo, Volume: t.Volume, Pan: t.Pan,
		}
		for _, n := range t.Notes() {
			td.Notes = append(td.Notes, noteDoc{ID: uint64(n.ID), Pitch: n.Pitch, Start: n.Start, Duration: n.Duration, Velocity: n.Velocity})
		}
		doc.Tracks = append(doc.Tracks, td)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeJSON parses a project document, applying documented defaults for
// missing optional fields (tempo 120, time signature 4/4, volume 1.0,
// pan 0.0).
func DecodeJSON(data []byte) (*project.Project, error) {
	var doc projectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("codec: decode json project: %w", err)
	}

	p := project.Empty(doc.Name)
	tempo := doc.Tempo
	if tempo <= 0 {
		tempo = 120
	}
	_ = p.SetTempo(tempo)

	num, denom := doc.TimeSigNum, doc.TimeSigDenom
	if num == 0 {
		num, denom = 4, 4
	}
	if err := p.SetTimeSignature(num, denom); err != nil {
		_ = p.SetTimeSignature(4, 4)
	}
	p.SoundFontPath = doc.SoundFontPath
	p.Editor = project.EditorState{
		ViewMode:         project.ViewMode(doc.Editor.ViewMode),
		SelectedTrack:    doc.Editor.SelectedTrack,
		Octave:           doc.Editor.Octave,
		CursorTick:       doc.Editor.CursorTick,
		InsertAnchorTick: doc.Editor.InsertAnchorTick,
	}

	for _, td := range doc.Tracks {
		var t *project.Track
		if td.ID != 0 {
			t = project.NewTrackWithID(project.TrackID(td.ID), td.Name, td.Channel)
		} else {
			t = project.NewTrack(td.Name, td.Channel)
		}
		t.Bank = td.Bank
		t.Program = td.Program
		t.Muted = td.Muted
		t.Solo = td.Solo
		volume := td.Volume
		if volume == 0 {
			volume = 1.0
		}
		t.SetVolume(volume)
		t.SetPan(td.Pan)
		for _, nd := range td.Notes {
			if nd.ID != 0 {
				_ = t.AddNote(project.NewNoteWithID(project.NoteID(nd.ID), nd.Pitch, nd.Velocity, nd.Start, nd.Duration))
			} else {
				_ = t.AddNote(project.NewNote(nd.Pitch, nd.Velocity, nd.Start, nd.Duration))
			}
		}
		p.InsertTrack(t)
	}
	return p, nil
}
