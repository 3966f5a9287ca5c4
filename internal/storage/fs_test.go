package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempDir(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempDir(t)
	content := []byte("---\nid: x\n---\n")
	if err := s.Write("pair.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("pair.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data", "archive")
	s, err := NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	items, err := s.List(".md")
	if err != nil {
		t.Fatalf("List on missing root: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}

	if err := s.Write("a.md", []byte("a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(filepath.Join(root, "a.md"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePerm {
		t.Errorf("perm = %o, want %o", perm, filePerm)
	}
}

func TestEnsureRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data", "archive")
	s, err := NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.EnsureRoot(); err != nil {
			t.Fatalf("EnsureRoot #%d: %v", i+1, err)
		}
	}
	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", root)
	}
}

func TestWriteKeepsExistingMode(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("m.md", []byte("one"))
	if err := os.Chmod(filepath.Join(s.Root(), "m.md"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("m.md", []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, _ := os.Stat(filepath.Join(s.Root(), "m.md"))
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestDelete(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read after delete err = %v, want ErrNotExist", err)
	}
	if err := s.Delete("del.md"); err == nil {
		t.Error("expected error deleting missing file")
	}
}

func TestExists(t *testing.T) {
	s := tempDir(t)
	ok, err := s.Exists("x.md")
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	_ = s.Write("x.md", []byte("x"))
	ok, err = s.Exists("x.md")
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
}

func TestList(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write("sub/c.md", []byte("nested"))

	items, err := s.List(".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Name != "a.md" || items[1].Name != "b.md" {
		t.Errorf("names = %q, %q; want sorted a.md, b.md", items[0].Name, items[1].Name)
	}
	if items[0].Size != 1 {
		t.Errorf("size = %d, want 1", items[0].Size)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempDir(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
		"",
		".",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "qarchive-test-*")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
