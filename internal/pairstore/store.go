// Package pairstore persists Q&A pairs as documents in a single flat
// directory. Every read rescans the directory, so files edited by hand are
// picked up without a restart.
package pairstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/qarchive/internal/apperr"
	"github.com/starford/qarchive/internal/document"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/storage"
)

// Store is the pair repository for one archive directory.
type Store struct {
	files  storage.Provider
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used to report skipped documents.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a Store over files.
func New(files storage.Provider, opts ...Option) *Store {
	s := &Store{
		files:  files,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dir returns the archive directory.
func (s *Store) Dir() string { return s.files.Root() }

// stored is a decoded pair plus the file it came from.
type stored struct {
	name string
	pair models.QAPair
}

// scan decodes every document in file-name order, creating the archive
// directory if it is absent. Undecodable files are logged and skipped; files
// that vanish mid-scan are ignored.
func (s *Store) scan(ctx context.Context, visit func(stored) bool) error {
	if err := s.files.EnsureRoot(); err != nil {
		return fmt.Errorf("pairstore: scan: %w", err)
	}
	entries, err := s.files.List(document.Ext)
	if err != nil {
		return fmt.Errorf("pairstore: scan: %w", err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.files.Read(e.Name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("pairstore: scan: %w", err)
		}
		path := filepath.Join(s.files.Root(), e.Name)
		pair, err := document.DecodeFile(path, data)
		if err != nil {
			s.logger.Warn("skipping undecodable document",
				slog.String("file", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !visit(stored{name: e.Name, pair: pair}) {
			return nil
		}
	}
	return nil
}

// ListAll returns every decodable pair keyed by id, in file-name order.
// When two files share an id the later file wins but the key keeps its
// first position.
func (s *Store) ListAll(ctx context.Context) (*models.PairMap, error) {
	out := models.NewPairMap()
	err := s.scan(ctx, func(st stored) bool {
		out.Set(st.pair.ID, st.pair)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the first pair whose id matches.
func (s *Store) Get(ctx context.Context, id string) (models.QAPair, bool, error) {
	st, ok, err := s.find(ctx, id)
	return st.pair, ok, err
}

func (s *Store) find(ctx context.Context, id string) (stored, bool, error) {
	var (
		hit   stored
		found bool
	)
	err := s.scan(ctx, func(st stored) bool {
		if st.pair.ID == id {
			hit, found = st, true
			return false
		}
		return true
	})
	return hit, found, err
}

// Create writes a new pair. The id is the creation minute; later pairs in
// the same minute get a two-digit sequence suffix.
func (s *Store) Create(ctx context.Context, data models.QACreateData) (models.QAPair, error) {
	now := s.now()
	minute := minuteID(now)

	taken := make(map[string]struct{})
	err := s.scan(ctx, func(st stored) bool {
		taken[st.pair.ID] = struct{}{}
		return true
	})
	if err != nil {
		return models.QAPair{}, err
	}

	for seq := 0; seq <= maxSeq; seq++ {
		id := pairID(minute, seq)
		if _, dup := taken[id]; dup {
			continue
		}
		name := fileName(minute, seq, data.Source, data.Question)
		exists, err := s.files.Exists(name)
		if err != nil {
			return models.QAPair{}, fmt.Errorf("pairstore: create: %w", err)
		}
		if exists {
			continue
		}

		pair := models.QAPair{
			ID:          id,
			Filepath:    filepath.Join(s.files.Root(), name),
			Title:       data.Title,
			Source:      data.Source,
			URL:         data.URL,
			Tags:        nonNil(data.Tags),
			Timestamp:   now.UTC().Format(timestampLayout),
			Version:     0,
			ThreadPairs: []models.ThreadPair{},
			Question:    data.Question,
			Answer:      data.Answer,
		}
		if err := s.write(name, pair); err != nil {
			return models.QAPair{}, fmt.Errorf("pairstore: create: %w", err)
		}
		s.logger.Debug("pair created", slog.String("id", id), slog.String("file", name))
		return pair, nil
	}
	return models.QAPair{}, fmt.Errorf("pairstore: create: minute %s exhausted: %w", minute, apperr.ErrConflict)
}

// timestampLayout is RFC 3339 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Update merges the present fields of data into the pair and rewrites its
// file. Not-found is reported through the bool and writes nothing.
func (s *Store) Update(ctx context.Context, id string, data models.QAUpdateData) (models.QAPair, bool, error) {
	st, ok, err := s.find(ctx, id)
	if err != nil || !ok {
		return models.QAPair{}, false, err
	}

	pair := st.pair
	if data.Title != nil {
		pair.Title = *data.Title
	}
	if data.Source != nil {
		pair.Source = *data.Source
	}
	if data.URL != nil {
		pair.URL = *data.URL
	}
	if data.Tags != nil {
		pair.Tags = nonNil(*data.Tags)
	}
	if data.Question != nil {
		pair.Question = *data.Question
	}
	if data.Answer != nil {
		pair.Answer = *data.Answer
	}
	pair.Version++

	if err := s.write(st.name, pair); err != nil {
		return models.QAPair{}, false, fmt.Errorf("pairstore: update %s: %w", id, err)
	}
	return pair, true, nil
}

// Delete removes the pair's file. An unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	st, ok, err := s.find(ctx, id)
	if err != nil || !ok {
		return err
	}
	if err := s.files.Delete(st.name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("pairstore: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) write(name string, pair models.QAPair) error {
	data, err := document.EncodePair(pair)
	if err != nil {
		return err
	}
	return s.files.Write(name, data)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
