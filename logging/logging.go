// Package logging is the structured diagnostic sink shared by every
// component: synth load failures, autosave errors, codec decode
// warnings, and command-application faults all funnel through here
// rather than writing to stdout, since stdout is reserved for the
// terminal UI (§5).
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init opens a JSON-lines log file at path (creating parent directories
// as needed) and installs it as the package logger. Safe to call more
// than once; the previous logger is flushed and replaced.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("logging: create log dir: %w", err)
		}
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.AddSync(&lockedFileWriter{path: path}),
		zapcore.DebugLevel,
	)

	if logger != nil {
		_ = logger.Sync()
	}
	logger = zap.New(core).Sugar()
	return nil
}

// Disable flushes and detaches the current logger; subsequent calls to
// the package-level helpers become no-ops.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
	logger = nil
}

// For returns a logger pre-tagged with a "category" field naming the call
// site; the facade logs as "daw" and main as "main".
func For(category string) *zap.SugaredLogger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l.With("category", category)
}

// Sync flushes any buffered log entries; call on shutdown.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

// lockedFileWriter lazily opens path on first write and appends to it,
// since zapcore.AddSync needs a WriteSyncer available immediately but
// Init should not fail merely because the file can't be pre-created.
type lockedFileWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func (w *lockedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return 0, err
		}
		w.file = f
	}
	return w.file.Write(p)
}

func (w *lockedFileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}
