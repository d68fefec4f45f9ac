package codec

import "testing"

func TestJSONRoundTripWithEditorState(t *testing.T) {
	p := buildScenario5Project()

	data, err := EncodeJSON(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	assertScenario5Equal(t, p, got)
}

func TestJSONDecodeAppliesDocumentedDefaults(t *testing.T) {
	data := []byte(`{"name": "Bare"}`)
	p, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.Tempo != 120 {
		t.Errorf("expected default tempo 120, got %v", p.Tempo)
	}
	if p.TimeSigNum != 4 || p.TimeSigDenom != 4 {
		t.Errorf("expected default time signature 4/4, got %d/%d", p.TimeSigNum, p.TimeSigDenom)
	}
}

func TestJSONDecodeDefaultsTrackVolumeWhenAbsent(t *testing.T) {
	data := []byte(`{"name": "Bare", "tracks": [{"name": "T1", "channel": 0}]}`)
	p, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Tracks()) != 1 {
		t.Fatalf("expected 1 track, got %d", len(p.Tracks()))
	}
	if p.Tracks()[0].Volume != 1.0 {
		t.Errorf("expected default volume 1.0, got %v", p.Tracks()[0].Volume)
	}
}

func TestJSONRejectsMalformedInput(t *testing.T) {
	_, err := DecodeJSON([]byte(`{not valid json`))
	if err == nil {
		t.Fatal("expected error for malformed json")
	}
}
