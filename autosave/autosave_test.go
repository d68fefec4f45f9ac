package autosave

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grahamseamans/miditui/project"
)

func TestMarkDebouncesThenWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosave.oxm")
	c := New(path, 30*time.Millisecond, nil)
	c.Start()
	defer c.Stop()

	p := project.New("Debounced")
	c.Mark(p)
	// Re-mark mid-window; the write should not happen until the window
	// has elapsed with no further marks.
	time.Sleep(10 * time.Millisecond)
	c.Mark(p)

	if _, err := os.Stat(path); err == nil {
		t.Fatal("file written before debounce window elapsed")
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist after debounce window, got: %v", err)
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosave.oxm")
	c := New(path, time.Hour, nil)

	p := project.New("Flushed")
	c.Mark(p)
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file after Flush, got: %v", err)
	}
}

func TestLoadRoundTripsProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosave.oxm")
	c := New(path, time.Hour, nil)

	p := project.New("Round Trip")
	p.CreateTrack("Extra")
	c.Mark(p)
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != p.Name {
		t.Errorf("Name: want %q, got %q", p.Name, got.Name)
	}
	if len(got.Tracks()) != len(p.Tracks()) {
		t.Errorf("track count: want %d, got %d", len(p.Tracks()), len(got.Tracks()))
	}
}

func TestExistsReflectsFilePresence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosave.oxm")
	if Exists(path) {
		t.Fatal("expected Exists to be false before any write")
	}
	c := New(path, time.Hour, nil)
	c.Mark(project.New("Present"))
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Fatal("expected Exists to be true after Flush")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.oxm")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error loading missing autosave file")
	}
}

func TestFlushReturnsSaveError(t *testing.T) {
	// A directory component that doesn't exist makes CreateTemp fail;
	// Flush returns that error directly.
	badPath := filepath.Join(t.TempDir(), "missing-dir", "autosave.oxm")
	var gotErr error
	c := New(badPath, time.Hour, func(err error) { gotErr = err })

	c.Mark(project.New("Broken"))
	if err := c.Flush(); err == nil {
		t.Fatal("expected Flush to surface the error")
	}
	_ = gotErr // Flush path reports synchronously; onError covers the debounce path only.
}
