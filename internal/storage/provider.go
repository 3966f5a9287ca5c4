// Package storage defines the flat-directory file abstraction behind the
// archive and the thread index.
package storage

import "time"

// Entry describes one file returned by List.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for file operations inside one directory.
// Names are relative to the provider root.
type Provider interface {
	// Root returns the absolute directory the provider works in.
	Root() string
	// EnsureRoot creates the root directory if it is absent.
	EnsureRoot() error
	// List returns the regular files directly under the root whose name ends
	// with ext, sorted by name. A missing root yields an empty list.
	List(ext string) ([]Entry, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically replaces the named file, creating the root if needed.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
	// Exists reports whether the named file is present.
	Exists(name string) (bool, error)
}
