// Package watch reports changes made to a data root, including edits made
// outside this process.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/qarchive/internal/checksum"
	"github.com/starford/qarchive/internal/document"
	"github.com/starford/qarchive/internal/settings"
	"github.com/starford/qarchive/internal/sse"
)

// EventCallback is called for every detected change. kind is one of
// sse.PairCreated, sse.PairUpdated, sse.PairDeleted or sse.ThreadsUpdated;
// file is the document file name for pair events.
type EventCallback func(kind, file string)

// Watch watches root until ctx is cancelled. The data root directory must
// exist; the archive directory is picked up when it appears.
//
// Pair documents are tracked by checksum, so rewrites with identical
// content are not reported and the first sighting of a file is a create.
func Watch(ctx context.Context, root settings.DataRoot, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(root.Dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", root.Dir, err)
	}

	t := &tracker{
		archive: root.ArchiveDir(),
		threads: root.ThreadsPath(),
		sums:    make(map[string]string),
		logger:  logger,
		cb:      cb,
	}
	if err := t.watchArchive(w, false); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root.Dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped", slog.String("root", root.Dir))
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			t.handle(w, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type tracker struct {
	archive string
	threads string
	sums    map[string]string // file name -> checksum of the last seen content
	logger  *slog.Logger
	cb      EventCallback
}

func (t *tracker) emit(kind, file string) {
	t.logger.Debug("watcher: change", slog.String("kind", kind), slog.String("file", file))
	if t.cb != nil {
		t.cb(kind, file)
	}
}

// watchArchive adds the archive directory if it exists and records the
// documents already in it. When report is set they are emitted as created.
func (t *tracker) watchArchive(w *fsnotify.Watcher, report bool) error {
	info, err := os.Stat(t.archive)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("watch: stat archive: %w", err)
	}
	if !info.IsDir() {
		return nil
	}
	if err := w.Add(t.archive); err != nil {
		return fmt.Errorf("watch: add %s: %w", t.archive, err)
	}

	entries, err := os.ReadDir(t.archive)
	if err != nil {
		return fmt.Errorf("watch: list archive: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		if kind, changed := t.refresh(e.Name()); changed && report {
			t.emit(kind, e.Name())
		}
	}
	return nil
}

func (t *tracker) handle(w *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Name == t.threads:
		if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
			t.emit(sse.ThreadsUpdated, "")
		}

	case ev.Name == t.archive:
		if ev.Op&fsnotify.Create != 0 {
			if err := t.watchArchive(w, true); err != nil {
				t.logger.Warn("watcher: add archive failed", slog.String("error", err.Error()))
			}
		}
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			for name := range t.sums {
				delete(t.sums, name)
				t.emit(sse.PairDeleted, name)
			}
		}

	case filepath.Dir(ev.Name) == t.archive && isDocument(ev.Name):
		name := filepath.Base(ev.Name)
		switch {
		case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
			if kind, changed := t.refresh(name); changed {
				t.emit(kind, name)
			}
		case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			if _, seen := t.sums[name]; seen {
				delete(t.sums, name)
				t.emit(sse.PairDeleted, name)
			}
		}
	}
}

// refresh re-reads a document and reports whether its content changed.
func (t *tracker) refresh(name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(t.archive, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.logger.Warn("watcher: read failed", slog.String("file", name), slog.String("error", err.Error()))
		}
		return "", false
	}
	sum := checksum.Sum(data)
	prev, seen := t.sums[name]
	if seen && prev == sum {
		return "", false
	}
	t.sums[name] = sum
	if seen {
		return sse.PairUpdated, true
	}
	return sse.PairCreated, true
}

func isDocument(name string) bool {
	return strings.HasSuffix(name, document.Ext)
}
