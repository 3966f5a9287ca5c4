// Package settings loads and saves the user preferences file and resolves
// the data root it points to.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tailscale/hujson"

	"github.com/starford/qarchive/internal/apperr"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/storage"
)

// FileName is the default preferences file name.
const FileName = "settings.json"

// DefaultPath returns <user config dir>/qarchive/settings.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: config dir: %w", err)
	}
	return filepath.Join(dir, "qarchive", FileName), nil
}

// Store reads and writes one preferences file.
type Store struct {
	files  *storage.FS
	name   string
	logger *slog.Logger
	getwd  func() (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report a malformed file.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithWorkingDir overrides how the default data directory is found.
func WithWorkingDir(getwd func() (string, error)) Option {
	return func(s *Store) {
		s.getwd = getwd
	}
}

// NewStore creates a Store for the file at path.
func NewStore(path string, opts ...Option) (*Store, error) {
	files, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	s := &Store{
		files:  files,
		name:   filepath.Base(path),
		logger: slog.Default(),
		getwd:  os.Getwd,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Path returns the absolute path of the preferences file.
func (s *Store) Path() string {
	return filepath.Join(s.files.Root(), s.name)
}

// Defaults returns the settings used when no file exists: the process
// working directory as data directory.
func (s *Store) Defaults() (models.Settings, error) {
	wd, err := s.getwd()
	if err != nil {
		return models.Settings{}, fmt.Errorf("settings: working dir: %w", err)
	}
	return models.Settings{DataDirectory: wd}, nil
}

// Load reads the preferences file. A missing file yields the defaults, and
// so does a malformed one, after logging the problem. Comments and trailing
// commas are accepted.
func (s *Store) Load(ctx context.Context) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	defaults, err := s.Defaults()
	if err != nil {
		return models.Settings{}, err
	}

	data, err := s.files.Read(s.name)
	if errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("settings: load: %w", err)
	}

	parsed, err := decode(data)
	if err != nil {
		s.logger.Error("failed to load settings, using defaults",
			slog.String("path", s.Path()),
			slog.String("error", err.Error()),
		)
		return defaults, nil
	}
	if parsed.DataDirectory == "" {
		parsed.DataDirectory = defaults.DataDirectory
	}
	return parsed, nil
}

func decode(data []byte) (models.Settings, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return models.Settings{}, fmt.Errorf("invalid JSON: %w", err)
	}
	var out models.Settings
	if err := json.Unmarshal(standardized, &out); err != nil {
		return models.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return out, nil
}

// Save validates settings, makes the data directory absolute and writes the
// file atomically. It returns what was written.
func (s *Store) Save(ctx context.Context, in models.Settings) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	if err := Validate(in); err != nil {
		return models.Settings{}, err
	}
	abs, err := filepath.Abs(in.DataDirectory)
	if err != nil {
		return models.Settings{}, fmt.Errorf("settings: resolve data directory: %w", err)
	}
	out := models.Settings{DataDirectory: abs}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return models.Settings{}, fmt.Errorf("settings: encode: %w", err)
	}
	if err := s.files.Write(s.name, data); err != nil {
		return models.Settings{}, fmt.Errorf("settings: save: %w", err)
	}
	return out, nil
}

// Validate checks caller-supplied settings.
func Validate(in models.Settings) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.DataDirectory, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("settings: %v: %w", err, apperr.ErrInvalidInput)
	}
	return nil
}
