package threadindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/qarchive/internal/apperr"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/storage"
)

type countingFS struct {
	storage.Provider
	writes int
}

func (c *countingFS) Write(name string, content []byte) error {
	c.writes++
	return c.Provider.Write(name, content)
}

func newIndex(t *testing.T, opts ...Option) (*Index, *countingFS) {
	t.Helper()
	files, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	c := &countingFS{Provider: files}
	return New(c, opts...), c
}

func items(t *testing.T, ix *Index, id string) []string {
	t.Helper()
	threads, err := ix.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	th, ok := threads.Get(id)
	if !ok {
		t.Fatalf("thread %q missing", id)
	}
	return th.Items
}

func TestLoad_MissingFile(t *testing.T) {
	ix, _ := newIndex(t)
	threads, err := ix.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if threads.Len() != 0 {
		t.Errorf("len = %d, want 0", threads.Len())
	}
}

func TestLoad_Malformed(t *testing.T) {
	ix, c := newIndex(t)
	if err := os.WriteFile(filepath.Join(c.Root(), FileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
	if err := ix.AddToThread(context.Background(), "t", "p"); err == nil {
		t.Error("mutation on a malformed index should fail")
	}
}

func TestSaveLoad_PreservesOrder(t *testing.T) {
	ix, c := newIndex(t)
	ctx := context.Background()

	threads := models.NewThreadMap()
	threads.Set("thread_b", &models.Thread{Name: "B", Items: []string{"2", "1"}})
	threads.Set("thread_a", &models.Thread{Name: "A"})
	if err := ix.Save(ctx, threads); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(c.Root(), FileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "\n  \"thread_b\": {\n    \"name\": \"B\",") {
		t.Errorf("expected two-space indented JSON, got:\n%s", raw)
	}

	got, err := ix.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var keys []string
	for pair := got.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if diff := cmp.Diff([]string{"thread_b", "thread_a"}, keys); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	a, _ := got.Get("thread_a")
	if a.Items == nil || len(a.Items) != 0 {
		t.Errorf("thread_a items = %#v, want empty slice", a.Items)
	}
}

func TestCreateThread(t *testing.T) {
	at := time.Date(2026, 2, 11, 15, 47, 8, 0, time.Local)
	ix, _ := newIndex(t, WithClock(func() time.Time { return at }))
	ctx := context.Background()

	id, err := ix.CreateThread(ctx, "Demo")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if !regexp.MustCompile(`^thread_\d{8}_\d{6}$`).MatchString(id) {
		t.Errorf("id = %q", id)
	}
	if id != "thread_20260211_154708" {
		t.Errorf("id = %q", id)
	}

	threads, err := ix.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	th, ok := threads.Get(id)
	if !ok {
		t.Fatalf("thread missing after create")
	}
	if th.Name != "Demo" || th.Items == nil || len(th.Items) != 0 {
		t.Errorf("thread = %+v", th)
	}

	// Same second: the id moves forward instead of overwriting.
	second, err := ix.CreateThread(ctx, "Other")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if second != "thread_20260211_154709" {
		t.Errorf("second id = %q", second)
	}
	threads, _ = ix.Load(ctx)
	if threads.Len() != 2 {
		t.Errorf("len = %d, want 2", threads.Len())
	}
}

func TestAddToThread_Idempotent(t *testing.T) {
	ix, c := newIndex(t)
	ctx := context.Background()
	id, _ := ix.CreateThread(ctx, "t")

	if err := ix.AddToThread(ctx, id, "p1"); err != nil {
		t.Fatalf("AddToThread: %v", err)
	}
	writes := c.writes
	if err := ix.AddToThread(ctx, id, "p1"); err != nil {
		t.Fatalf("AddToThread: %v", err)
	}
	if diff := cmp.Diff([]string{"p1"}, items(t, ix, id)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if c.writes != writes {
		t.Errorf("duplicate add rewrote the index")
	}
}

func TestNoOps_DoNotWrite(t *testing.T) {
	ix, c := newIndex(t)
	ctx := context.Background()
	id, _ := ix.CreateThread(ctx, "t")
	_ = ix.AddToThread(ctx, id, "p1")
	writes := c.writes

	ops := map[string]func() error{
		"rename absent":      func() error { return ix.RenameThread(ctx, "missing", "x") },
		"rename same":        func() error { return ix.RenameThread(ctx, id, "t") },
		"delete absent":      func() error { return ix.DeleteThread(ctx, "missing") },
		"add absent thread":  func() error { return ix.AddToThread(ctx, "missing", "p1") },
		"remove absent pair": func() error { return ix.RemoveFromThread(ctx, id, "p9") },
		"move absent pair":   func() error { return ix.MoveInThread(ctx, id, "p9", 1) },
		"move absent thread": func() error { return ix.MoveInThread(ctx, "missing", "p1", 1) },
	}
	for name, op := range ops {
		if err := op(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if c.writes != writes {
		t.Errorf("writes = %d, want %d", c.writes, writes)
	}
}

func TestMoveInThread(t *testing.T) {
	ix, c := newIndex(t)
	ctx := context.Background()
	id, _ := ix.CreateThread(ctx, "t")
	for _, p := range []string{"a", "b", "c"} {
		_ = ix.AddToThread(ctx, id, p)
	}

	if err := ix.MoveInThread(ctx, id, "b", -1); err != nil {
		t.Fatalf("MoveInThread: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, items(t, ix, id)); diff != "" {
		t.Errorf("after up (-want +got):\n%s", diff)
	}
	if err := ix.MoveInThread(ctx, id, "a", 1); err != nil {
		t.Fatalf("MoveInThread: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, items(t, ix, id)); diff != "" {
		t.Errorf("after down (-want +got):\n%s", diff)
	}

	// Boundaries are no-ops.
	writes := c.writes
	_ = ix.MoveInThread(ctx, id, "b", -1)
	_ = ix.MoveInThread(ctx, id, "a", 1)
	if diff := cmp.Diff([]string{"b", "c", "a"}, items(t, ix, id)); diff != "" {
		t.Errorf("after boundary moves (-want +got):\n%s", diff)
	}
	if c.writes != writes {
		t.Errorf("boundary move rewrote the index")
	}
}

func TestMoveInThread_InvalidDirection(t *testing.T) {
	ix, _ := newIndex(t)
	for _, d := range []int{0, 2, -3} {
		err := ix.MoveInThread(context.Background(), "t", "p", d)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("direction %d: err = %v, want ErrInvalidInput", d, err)
		}
	}
}

func TestRenameRemoveDelete(t *testing.T) {
	ix, _ := newIndex(t)
	ctx := context.Background()
	id, _ := ix.CreateThread(ctx, "old")
	_ = ix.AddToThread(ctx, id, "a")
	_ = ix.AddToThread(ctx, id, "b")

	if err := ix.RenameThread(ctx, id, "new"); err != nil {
		t.Fatalf("RenameThread: %v", err)
	}
	if err := ix.RemoveFromThread(ctx, id, "a"); err != nil {
		t.Fatalf("RemoveFromThread: %v", err)
	}
	threads, _ := ix.Load(ctx)
	th, _ := threads.Get(id)
	if th.Name != "new" {
		t.Errorf("name = %q", th.Name)
	}
	if diff := cmp.Diff([]string{"b"}, th.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	if err := ix.DeleteThread(ctx, id); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	threads, _ = ix.Load(ctx)
	if _, ok := threads.Get(id); ok {
		t.Error("thread still present after delete")
	}
}
