// Package threadindex maintains threads.json, the single document that maps
// thread ids to their ordered pair ids.
package threadindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/qarchive/internal/apperr"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/storage"
)

// FileName is the index file inside the data root.
const FileName = "threads.json"

const idLayout = "thread_20060102_150405"

// Index reads and writes the thread index of one data root.
type Index struct {
	files  storage.Provider
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithClock overrides the clock used for thread ids.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) {
		ix.now = now
	}
}

// WithLogger sets the index logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		ix.logger = l
	}
}

// New creates an Index whose provider is rooted at the data root.
func New(files storage.Provider, opts ...Option) *Index {
	ix := &Index{
		files:  files,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// Load reads the index. A missing file is an empty index; malformed JSON is
// an error.
func (ix *Index) Load(ctx context.Context) (*models.ThreadMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ix.files.Read(FileName)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewThreadMap(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("threadindex: load: %w", err)
	}

	threads := models.NewThreadMap()
	if err := json.Unmarshal(data, threads); err != nil {
		return nil, fmt.Errorf("threadindex: decode %s: %w", FileName, err)
	}
	for pair := threads.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			return nil, fmt.Errorf("threadindex: decode %s: thread %q is null", FileName, pair.Key)
		}
		if pair.Value.Items == nil {
			pair.Value.Items = []string{}
		}
	}
	return threads, nil
}

// Save writes the whole index as indented JSON, replacing the file atomically.
func (ix *Index) Save(ctx context.Context, threads *models.ThreadMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if threads == nil {
		threads = models.NewThreadMap()
	}
	for pair := threads.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			return fmt.Errorf("threadindex: save: thread %q is null: %w", pair.Key, apperr.ErrInvalidInput)
		}
		if pair.Value.Items == nil {
			pair.Value.Items = []string{}
		}
	}
	data, err := json.MarshalIndent(threads, "", "  ")
	if err != nil {
		return fmt.Errorf("threadindex: encode: %w", err)
	}
	if err := ix.files.Write(FileName, data); err != nil {
		return fmt.Errorf("threadindex: save: %w", err)
	}
	return nil
}

// CreateThread adds an empty thread and returns its id. Ids are derived from
// the current second; a taken id advances to the next free second.
func (ix *Index) CreateThread(ctx context.Context, name string) (string, error) {
	threads, err := ix.Load(ctx)
	if err != nil {
		return "", err
	}
	at := ix.now()
	id := at.Format(idLayout)
	for {
		if _, taken := threads.Get(id); !taken {
			break
		}
		at = at.Add(time.Second)
		id = at.Format(idLayout)
	}
	threads.Set(id, &models.Thread{Name: name, Items: []string{}})
	if err := ix.Save(ctx, threads); err != nil {
		return "", err
	}
	ix.logger.Debug("thread created", slog.String("id", id))
	return id, nil
}

// RenameThread changes a thread's name. Unknown ids are ignored.
func (ix *Index) RenameThread(ctx context.Context, id, name string) error {
	return ix.mutate(ctx, id, func(_ *models.ThreadMap, t *models.Thread) bool {
		if t.Name == name {
			return false
		}
		t.Name = name
		return true
	})
}

// DeleteThread removes a thread. Member documents are untouched.
func (ix *Index) DeleteThread(ctx context.Context, id string) error {
	return ix.mutate(ctx, id, func(threads *models.ThreadMap, _ *models.Thread) bool {
		threads.Delete(id)
		return true
	})
}

// AddToThread appends pairID unless the thread already holds it.
func (ix *Index) AddToThread(ctx context.Context, id, pairID string) error {
	return ix.mutate(ctx, id, func(_ *models.ThreadMap, t *models.Thread) bool {
		if t.IndexOf(pairID) >= 0 {
			return false
		}
		t.Items = append(t.Items, pairID)
		return true
	})
}

// RemoveFromThread drops pairID from the thread.
func (ix *Index) RemoveFromThread(ctx context.Context, id, pairID string) error {
	return ix.mutate(ctx, id, func(_ *models.ThreadMap, t *models.Thread) bool {
		i := t.IndexOf(pairID)
		if i < 0 {
			return false
		}
		t.Items = append(t.Items[:i], t.Items[i+1:]...)
		return true
	})
}

// MoveInThread swaps pairID with its neighbour in direction (+1 or -1).
// Moves past either end are ignored.
func (ix *Index) MoveInThread(ctx context.Context, id, pairID string, direction int) error {
	if err := validation.Validate(direction, validation.Required, validation.In(1, -1)); err != nil {
		return fmt.Errorf("threadindex: direction %d: %w", direction, apperr.ErrInvalidInput)
	}
	return ix.mutate(ctx, id, func(_ *models.ThreadMap, t *models.Thread) bool {
		i := t.IndexOf(pairID)
		j := i + direction
		if i < 0 || j < 0 || j >= len(t.Items) {
			return false
		}
		t.Items[i], t.Items[j] = t.Items[j], t.Items[i]
		return true
	})
}

// mutate loads the index, applies fn to thread id and saves only when fn
// reports a change.
func (ix *Index) mutate(ctx context.Context, id string, fn func(*models.ThreadMap, *models.Thread) bool) error {
	threads, err := ix.Load(ctx)
	if err != nil {
		return err
	}
	t, ok := threads.Get(id)
	if !ok {
		return nil
	}
	if !fn(threads, t) {
		return nil
	}
	return ix.Save(ctx, threads)
}
