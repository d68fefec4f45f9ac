// Package autosave implements the debounced persistence controller (C7):
// every successful command application arms a deadline, and when 5 s pass
// with no further mutation the current project is written atomically to
// a well-known path (§4.7).
package autosave

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/grahamseamans/miditui/codec"
	"github.com/grahamseamans/miditui/project"
)

// Debounce is the idle window before a pending mutation is flushed to
// disk, per §4.7.
const Debounce = 5 * time.Second

// DefaultPath is the working-directory autosave file named by §6.
const DefaultPath = "autosave.oxm"

// Controller owns the debounce timer and the most recently marked
// snapshot. It runs its own goroutine; Stop must be called once the
// owning facade shuts down.
type Controller struct {
	path     string
	debounce time.Duration

	pending atomic.Pointer[project.Project]
	markCh  chan struct{}
	stopCh  chan struct{}

	onError func(error)
}

// New returns a Controller writing to path, debouncing by d. onError, if
// non-nil, is called with every save failure (§4.7: "failure to autosave
// is reported but never fatal").
func New(path string, d time.Duration, onError func(error)) *Controller {
	if path == "" {
		path = DefaultPath
	}
	if d <= 0 {
		d = Debounce
	}
	return &Controller{
		path:     path,
		debounce: d,
		markCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		onError:  onError,
	}
}

// Start launches the debounce loop. Call once.
func (c *Controller) Start() {
	go c.run()
}

// Stop halts the debounce loop without flushing; callers that want a
// final save should call Flush first.
func (c *Controller) Stop() {
	close(c.stopCh)
}

// Mark records p as the latest project state and (re)arms the debounce
// deadline. Called by the control thread after every successful command
// application.
func (c *Controller) Mark(p *project.Project) {
	c.pending.Store(p)
	select {
	case c.markCh <- struct{}{}:
	default:
	}
}

// Flush immediately writes the most recently marked project, bypassing
// the debounce window. Used on clean shutdown.
func (c *Controller) Flush() error {
	p := c.pending.Load()
	if p == nil {
		return nil
	}
	return c.save(p)
}

func (c *Controller) run() {
	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-c.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-c.markCh:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(c.debounce)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			if p := c.pending.Load(); p != nil {
				if err := c.save(p); err != nil && c.onError != nil {
					c.onError(err)
				}
			}
		}
	}
}

// save writes p to disk atomically: encode to a temp sibling, fsync,
// rename over the final path (§4.7).
func (c *Controller) save(p *project.Project) error {
	data, err := codec.EncodeOXM(p)
	if err != nil {
		return fmt.Errorf("autosave: encode: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".autosave-*.tmp")
	if err != nil {
		return fmt.Errorf("autosave: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("autosave: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("autosave: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("autosave: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("autosave: rename into place: %w", err)
	}
	return nil
}

// Exists reports whether an autosave file is present at path.
func Exists(path string) bool {
	if path == "" {
		path = DefaultPath
	}
	_, err := os.Stat(path)
	return err == nil
}

// Load reads and decodes the autosave file at path. Callers clear undo
// history after a successful load, per §4.7 ("on startup... it is
// loaded and history is cleared").
func Load(path string) (*project.Project, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("autosave: read %s: %w", path, err)
	}
	p, err := codec.DecodeOXM(data)
	if err != nil {
		return nil, fmt.Errorf("autosave: decode %s: %w", path, err)
	}
	return p, nil
}
