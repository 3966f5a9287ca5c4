// Package testutil provides shared test helpers for setting up data roots
// and workspaces.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/qarchive/internal/settings"
	"github.com/starford/qarchive/internal/workspace"
)

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// TestWorkspace opens a workspace on a fresh temporary data root.
func TestWorkspace(t *testing.T, opts ...workspace.Option) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Open(settings.DataRoot{Dir: t.TempDir()}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

// TestSettings creates a settings store backed by a temporary file. The
// default data directory is dataDir.
func TestSettings(t *testing.T, dataDir string) *settings.Store {
	t.Helper()
	st, err := settings.NewStore(
		filepath.Join(t.TempDir(), settings.FileName),
		settings.WithWorkingDir(func() (string, error) { return dataDir, nil }),
	)
	if err != nil {
		t.Fatal(err)
	}
	return st
}
