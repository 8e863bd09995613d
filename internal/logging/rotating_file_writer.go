// Package logging provides the size-capped log file writer the server
// multiplexes its slog output into alongside stdout.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFileWriter appends to a log file and rotates it to numbered
// backups (file.1, file.2, ...) once it exceeds the size cap. It is
// safe for concurrent use.
type RotatingFileWriter struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	written    int64
}

func NewRotatingFileWriter(path string, maxSize int64, maxBackups int) (*RotatingFileWriter, error) {
	if path == "" {
		return nil, errors.New("log path is required")
	}
	if maxSize <= 0 {
		return nil, errors.New("max size must be positive")
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	w := &RotatingFileWriter{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := w.openLocked(); err != nil {
		return nil, err
	}

	if w.written > w.maxSize {
		if err := w.rotateLocked(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	// A single record larger than the cap still goes into an empty
	// file, otherwise rotation would loop.
	if w.written > 0 && w.written+int64(len(p)) > w.maxSize {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.written = 0
	if stat, err := f.Stat(); err == nil {
		w.written = stat.Size()
	}
	return nil
}

func (w *RotatingFileWriter) rotateLocked() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
		w.file = nil
	}

	if w.maxBackups == 0 {
		if err := removeIfExists(w.path); err != nil {
			return err
		}
	} else if err := w.shiftBackups(); err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.written = 0
	return nil
}

// shiftBackups slides file.N to file.N+1, dropping the oldest, then
// moves the live file into the first backup slot.
func (w *RotatingFileWriter) shiftBackups() error {
	if err := removeIfExists(w.backupPath(w.maxBackups)); err != nil {
		return err
	}

	for idx := w.maxBackups - 1; idx >= 1; idx-- {
		src := w.backupPath(idx)
		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		dst := w.backupPath(idx + 1)
		if err := removeIfExists(dst); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}

	if _, err := os.Stat(w.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	first := w.backupPath(1)
	if err := removeIfExists(first); err != nil {
		return err
	}
	return os.Rename(w.path, first)
}

func (w *RotatingFileWriter) backupPath(idx int) string {
	return fmt.Sprintf("%s.%d", w.path, idx)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
