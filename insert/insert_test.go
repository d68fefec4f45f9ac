package insert

import (
	"testing"
	"time"
)

func TestPitchForKeyLowerAndUpperRows(t *testing.T) {
	p, ok := PitchForKey('z', 4)
	if !ok || p != 48 {
		t.Fatalf("PitchForKey('z',4) = %d,%v want 48,true", p, ok)
	}
	p, ok = PitchForKey('q', 4)
	if !ok || p != 60 {
		t.Fatalf("PitchForKey('q',4) = %d,%v want 60,true", p, ok)
	}
}

func TestPitchForKeyUnknownKey(t *testing.T) {
	if _, ok := PitchForKey('%', 4); ok {
		t.Fatal("expected unknown key to report ok=false")
	}
}

func TestPitchForKeyClampsAtTopOctave(t *testing.T) {
	// 'i' at octave base 8 is 120, still in range; at base 9 it would be
	// 132, so the result must clamp to 127.
	p, ok := PitchForKey('i', 9)
	if !ok {
		t.Fatal("expected mapped key")
	}
	if p != 127 {
		t.Fatalf("expected clamp to 127, got %d", p)
	}
}

func TestKeyPressUsesAnchorTick(t *testing.T) {
	c := NewClock(1920, 480)
	c.SetAnchor(960)
	write := c.KeyPress(time.Now(), 60, 480)
	if write.Start != 960 {
		t.Fatalf("expected note start at anchor 960, got %d", write.Start)
	}
}

func TestKeyPressActivatesClock(t *testing.T) {
	c := NewClock(1920, 480)
	if c.Active() {
		t.Fatal("expected inactive before first press")
	}
	c.KeyPress(time.Now(), 60, 480)
	if !c.Active() {
		t.Fatal("expected active after first press")
	}
}

func TestGroupIDStableWithinQuiescenceWindow(t *testing.T) {
	c := NewClock(1920, 480)
	now := time.Now()
	w1 := c.KeyPress(now, 60, 480)
	w2 := c.KeyPress(now.Add(50*time.Millisecond), 62, 480)
	if w1.GroupID != w2.GroupID {
		t.Fatalf("expected same group within quiescence window, got %d vs %d", w1.GroupID, w2.GroupID)
	}
	w3 := c.KeyPress(now.Add(500*time.Millisecond), 64, 480)
	if w3.GroupID == w1.GroupID {
		t.Fatal("expected new group after quiescence window elapsed")
	}
}

func TestAdvanceMovesAnchorOnlyWhenActive(t *testing.T) {
	c := NewClock(1920, 480)
	c.Advance(100)
	if c.AnchorTick() != 0 {
		t.Fatal("expected no movement before clock is active")
	}
	c.KeyPress(time.Now(), 60, 480)
	c.Advance(100)
	if c.AnchorTick() != 100 {
		t.Fatalf("expected anchor to advance to 100, got %d", c.AnchorTick())
	}
}

func TestHaltStopsAdvancing(t *testing.T) {
	c := NewClock(1920, 480)
	c.KeyPress(time.Now(), 60, 480)
	c.Halt()
	if c.Active() {
		t.Fatal("expected inactive after Halt")
	}
	c.Advance(50)
	if c.AnchorTick() != 0 {
		t.Fatal("expected no movement after halt")
	}
}

func TestTrackTransportOverridesAnchor(t *testing.T) {
	c := NewClock(1920, 480)
	c.TrackTransport(2400)
	if c.AnchorTick() != 2400 {
		t.Fatalf("expected anchor 2400, got %d", c.AnchorTick())
	}
}
