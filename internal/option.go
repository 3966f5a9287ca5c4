package internal

import (
	"io"

	"github.com/starford/qarchive/internal/settings"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	picker  settings.Picker
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithPicker sets the directory picker behind POST /api/settings/pick-directory.
func WithPicker(p settings.Picker) Option {
	return func(a *application) {
		a.picker = p
	}
}

// WithStdio sets the streams used by the MCP transport and log output.
func WithStdio(in io.Reader, out, errOut io.Writer) Option {
	return func(a *application) {
		a.stdin = in
		a.stdout = out
		a.stderr = errOut
	}
}
