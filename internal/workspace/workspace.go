// Package workspace bundles the stores that operate on one data root.
package workspace

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/qarchive/internal/pairstore"
	"github.com/starford/qarchive/internal/search"
	"github.com/starford/qarchive/internal/settings"
	"github.com/starford/qarchive/internal/storage"
	"github.com/starford/qarchive/internal/threadindex"
)

// Workspace is the pair store, thread index and query engine of one data
// root. It is immutable; switching data roots means opening a new one.
type Workspace struct {
	Root    settings.DataRoot
	Pairs   *pairstore.Store
	Threads *threadindex.Index
	Search  *search.Engine
}

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger passed to the stores.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used for pair and thread ids.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Open builds the workspace for root. Directories are created on first write.
func Open(root settings.DataRoot, opts ...Option) (*Workspace, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	logger := o.logger.With(slog.String("data_root", root.Dir))

	archive, err := storage.NewFS(root.ArchiveDir())
	if err != nil {
		return nil, fmt.Errorf("workspace: archive: %w", err)
	}
	rootFS, err := storage.NewFS(root.Dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: data root: %w", err)
	}

	pairs := pairstore.New(archive, pairstore.WithLogger(logger), pairstore.WithClock(o.now))
	return &Workspace{
		Root:    root,
		Pairs:   pairs,
		Threads: threadindex.New(rootFS, threadindex.WithLogger(logger), threadindex.WithClock(o.now)),
		Search:  search.NewEngine(pairs),
	}, nil
}
