package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("QA_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${QA_TEST_NAME}\ntimeout: 1500ms\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" {
		t.Errorf("name = %q, want %q", s.Name, "from-env")
	}
	if s.Timeout != 1500*time.Millisecond {
		t.Errorf("timeout = %v", s.Timeout)
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default"}
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	path := writeFile(t, "name: \"\"\n")
	s := sample{Name: "default"}
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := writeFile(t, "name: [unclosed\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Error("expected parse error")
	}
}
