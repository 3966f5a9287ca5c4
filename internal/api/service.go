package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/settings"
	"github.com/starford/qarchive/internal/workspace"
)

// Service owns the active workspace and the preferences that select it.
type Service struct {
	current  atomic.Pointer[workspace.Workspace]
	settings *settings.Store
	picker   settings.Picker
	wsOpts   []workspace.Option
	onSwitch func(*workspace.Workspace)
	logger   *slog.Logger

	saveMu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPicker sets the directory picker. The default always cancels.
func WithPicker(p settings.Picker) ServiceOption {
	return func(s *Service) {
		s.picker = p
	}
}

// WithWorkspaceOptions sets the options used when a new data root is opened.
func WithWorkspaceOptions(opts ...workspace.Option) ServiceOption {
	return func(s *Service) {
		s.wsOpts = opts
	}
}

// OnRootChange registers fn to run after the active workspace is replaced.
func OnRootChange(fn func(*workspace.Workspace)) ServiceOption {
	return func(s *Service) {
		s.onSwitch = fn
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service serving ws.
func NewService(ws *workspace.Workspace, store *settings.Store, opts ...ServiceOption) *Service {
	s := &Service{
		settings: store,
		picker:   settings.NoPicker{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.current.Store(ws)
	return s
}

// Workspace returns the active workspace.
func (s *Service) Workspace() *workspace.Workspace {
	return s.current.Load()
}

// LoadSettings returns the persisted preferences.
func (s *Service) LoadSettings(ctx context.Context) (models.Settings, error) {
	return s.settings.Load(ctx)
}

// SaveSettings persists in and, when the data root changes, switches the
// active workspace to it.
func (s *Service) SaveSettings(ctx context.Context, in models.Settings) (models.Settings, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	saved, err := s.settings.Save(ctx, in)
	if err != nil {
		return models.Settings{}, err
	}
	root, err := settings.Resolve(saved)
	if err != nil {
		return models.Settings{}, err
	}
	if root == s.Workspace().Root {
		return saved, nil
	}

	ws, err := workspace.Open(root, s.wsOpts...)
	if err != nil {
		return models.Settings{}, err
	}
	s.current.Store(ws)
	s.logger.Info("data root changed", slog.String("data_root", root.Dir))
	if s.onSwitch != nil {
		s.onSwitch(ws)
	}
	return saved, nil
}

// PickDirectory asks the configured picker for a directory.
func (s *Service) PickDirectory(ctx context.Context) (string, bool, error) {
	return s.picker.PickDirectory(ctx)
}
