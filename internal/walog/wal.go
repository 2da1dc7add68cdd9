// Package walog implements the write-ahead log described in the engine's
// durability contract: a newline-delimited text log of "OP|PAYLOAD"
// records, fsync'd before Append returns, with atomic truncation on
// Checkpoint and synchronous replay on Open.
//
// Structurally this mirrors the teacher's binary WAL (a sync.Mutex-guarded
// struct wrapping a buffered writer over an *os.File, flushed and synced
// before a mutating call returns) but the on-disk format itself stays the
// plain two-field text line the durability contract specifies — no
// versioned header, no compression framing.
package walog

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// IoError wraps an OS-level failure encountered while writing or syncing
// the log. The caller must treat the in-memory mutation that occasioned
// the write as not-yet-performed.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("walog: %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// ReplayFunc is invoked once per record with an "OP|PAYLOAD" separator
// found in the log at Open time, in file order, whatever its op; it
// returns ErrUnrecognizedOp for an op it does not handle.
type ReplayFunc func(op, payload string) error

// WAL is a write-ahead log of newline-delimited "OP|PAYLOAD" records.
type WAL struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
	log    *slog.Logger
}

// Open opens (or creates) the log at path. If the file exists and is
// non-empty, every well-formed, recognized record is replayed
// synchronously, in file order, via replay before Open returns. Malformed
// lines (no "|") and records for which replay returns ErrUnrecognizedOp
// are skipped with a warning; replay continues.
func Open(path string, replay ReplayFunc, logger *slog.Logger) (*WAL, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1 << 20)}))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, &IoError{Op: "mkdir", Err: err}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, &IoError{Op: "open", Err: err}
	}

	w := &WAL{file: f, path: path, log: logger}

	if err := w.replayLocked(replay); err != nil {
		_ = f.Close()
		return nil, err
	}

	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		_ = f.Close()
		return nil, &IoError{Op: "seek", Err: err}
	}
	w.writer = bufio.NewWriter(f)

	return w, nil
}

func (w *WAL) replayLocked(replay ReplayFunc) error {
	if _, err := w.file.Seek(0, os.SEEK_SET); err != nil {
		return &IoError{Op: "seek", Err: err}
	}

	data, err := readAll(w.file)
	if err != nil {
		return &IoError{Op: "read", Err: err}
	}

	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		idx := bytes.IndexByte(line, '|')
		if idx < 0 {
			w.log.Warn("walog: skipping malformed record (no separator)", "line", string(line))
			continue
		}
		op := string(line[:idx])
		payload := string(line[idx+1:])

		if replay == nil {
			continue
		}
		if err := replay(op, payload); err != nil {
			if err == ErrUnrecognizedOp {
				w.log.Warn("walog: skipping unrecognized operation during replay", "op", op)
				continue
			}
			return err
		}
	}

	return nil
}

// ErrUnrecognizedOp is returned by a ReplayFunc to signal that an op is not
// recognized; Open treats this as "log and skip", not a fatal replay
// error.
var ErrUnrecognizedOp = fmt.Errorf("walog: unrecognized operation")

// Append serializes one record as "op|payload\n", writes it, and forces it
// to durable storage before returning. append calls are serialized
// internally: the on-disk order equals the order of successful return from
// Append.
func (w *WAL) Append(op, payload string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.writer.WriteString(op); err != nil {
		return &IoError{Op: "write", Err: err}
	}
	if err := w.writer.WriteByte('|'); err != nil {
		return &IoError{Op: "write", Err: err}
	}
	if _, err := w.writer.WriteString(payload); err != nil {
		return &IoError{Op: "write", Err: err}
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return &IoError{Op: "write", Err: err}
	}

	if err := w.writer.Flush(); err != nil {
		return &IoError{Op: "flush", Err: err}
	}
	if err := w.file.Sync(); err != nil {
		return &IoError{Op: "fsync", Err: err}
	}

	return nil
}

// Checkpoint truncates the log atomically: a fresh empty file is created
// alongside the current one and renamed over it. The caller guarantees
// all prior records have already been folded into durable index state.
func (w *WAL) Checkpoint() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return &IoError{Op: "flush", Err: err}
	}
	if err := w.file.Close(); err != nil {
		return &IoError{Op: "close", Err: err}
	}

	tmpPath := w.path + ".checkpoint-tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return &IoError{Op: "create-empty", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &IoError{Op: "fsync-empty", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IoError{Op: "close-empty", Err: err}
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		return &IoError{Op: "rename", Err: err}
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return &IoError{Op: "reopen", Err: err}
	}
	w.file = f
	w.writer = bufio.NewWriter(f)

	return nil
}

// Close flushes and closes the underlying file. The WAL is not usable
// after Close returns.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return &IoError{Op: "flush", Err: err}
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func readAll(f *os.File) ([]byte, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, st.Size())
	if _, err := f.ReadAt(buf, 0); err != nil && st.Size() > 0 {
		return nil, err
	}
	return buf, nil
}
