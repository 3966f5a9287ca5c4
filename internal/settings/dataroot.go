package settings

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/qarchive/internal/models"
)

const (
	archiveDirName = "archive"
	threadsName    = "threads.json"
)

// DataRoot is the resolved directory holding archive/ and threads.json.
type DataRoot struct {
	Dir string
}

// Resolve turns the configured data directory into a DataRoot. Pointing at
// the archive folder itself selects its parent.
func Resolve(s models.Settings) (DataRoot, error) {
	dir, err := filepath.Abs(s.DataDirectory)
	if err != nil {
		return DataRoot{}, fmt.Errorf("settings: resolve %q: %w", s.DataDirectory, err)
	}
	if strings.EqualFold(filepath.Base(dir), archiveDirName) {
		dir = filepath.Dir(dir)
	}
	return DataRoot{Dir: dir}, nil
}

// ArchiveDir is where pair documents live.
func (r DataRoot) ArchiveDir() string {
	return filepath.Join(r.Dir, archiveDirName)
}

// ThreadsPath is the thread index file.
func (r DataRoot) ThreadsPath() string {
	return filepath.Join(r.Dir, threadsName)
}
