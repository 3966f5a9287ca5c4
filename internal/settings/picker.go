package settings

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Picker asks the user for a data directory. ok is false when the user
// cancels.
type Picker interface {
	PickDirectory(ctx context.Context) (path string, ok bool, err error)
}

// NoPicker always cancels. It stands in where no interactive user exists.
type NoPicker struct{}

// PickDirectory implements Picker.
func (NoPicker) PickDirectory(context.Context) (string, bool, error) {
	return "", false, nil
}

// PromptPicker reads a directory path from a line-oriented reader. An empty
// line or end of input cancels.
type PromptPicker struct {
	In     io.Reader
	Out    io.Writer
	Prompt string
}

// PickDirectory implements Picker. The entered path must be an existing
// directory; the answer is returned as an absolute path.
func (p PromptPicker) PickDirectory(ctx context.Context) (string, bool, error) {
	if p.Out != nil && p.Prompt != "" {
		fmt.Fprint(p.Out, p.Prompt)
	}

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errs <- err
			return
		}
		lines <- line
	}()

	var line string
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case err := <-errs:
		if errors.Is(err, io.EOF) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("settings: read directory: %w", err)
	case line = <-lines:
	}

	dir := strings.TrimSpace(line)
	if dir == "" {
		return "", false, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("settings: resolve %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false, fmt.Errorf("settings: pick %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", false, fmt.Errorf("settings: not a directory: %s", abs)
	}
	return abs, true, nil
}
