// Package fs persists artifacts to the local filesystem under a fixed
// output root.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/sitegen"
)

var _ sitegen.ArtifactWriter = (*Writer)(nil)

// Writer implements sitegen.ArtifactWriter. Every (format, owner) pair maps
// to <root>/<format>_<owner>; regeneration overwrites.
type Writer struct {
	root string
}

// NewWriter creates a Writer rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the output root.
func (w *Writer) Root() string { return w.root }

// Write validates every file of the artifact, then writes them in name
// order. Nothing is created when validation fails. Files written before an
// I/O failure stay in place.
func (w *Writer) Write(ctx context.Context, artifact sitegen.Artifact, format sitegen.Format, ownerID int64) (string, error) {
	files, err := Files(artifact)
	if err != nil {
		return "", err
	}

	dir := sitegen.TargetDir(w.root, format, ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w: %w", dir, sitegen.ErrIO, err)
	}
	for _, name := range sortedNames(files) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := writeFile(filepath.Join(dir, name), files[name]); err != nil {
			return "", fmt.Errorf("write %s: %w: %w", name, sitegen.ErrIO, err)
		}
	}
	return dir, nil
}

// Files flattens an artifact into validated name -> content pairs.
// Blank content or an unsafe name yields ErrValidation.
func Files(artifact sitegen.Artifact) (map[string]string, error) {
	var files map[string]string
	switch a := artifact.(type) {
	case sitegen.SingleFile:
		files = map[string]string{a.Name: a.Content}
	case sitegen.MultiFile:
		files = a.Files
	default:
		return nil, fmt.Errorf("artifact %T is not writable: %w", artifact, sitegen.ErrValidation)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("artifact has no files: %w", sitegen.ErrValidation)
	}
	for name, content := range files {
		if !validName(name) {
			return nil, fmt.Errorf("invalid file name %q: %w", name, sitegen.ErrValidation)
		}
		if strings.TrimSpace(content) == "" {
			return nil, fmt.Errorf("%s content is blank: %w", name, sitegen.ErrValidation)
		}
	}
	return files, nil
}

// validName accepts plain file names only.
func validName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
