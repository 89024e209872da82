package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalLibrary serves the law library from a local directory, mainly
// for development without bucket credentials.
type LocalLibrary struct {
	basePath string
}

// NewLocalLibrary creates a new directory-backed library source
func NewLocalLibrary(basePath string) (*LocalLibrary, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}
	return &LocalLibrary{basePath: basePath}, nil
}

// List returns the PDF files under the given prefix
func (l *LocalLibrary) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object

	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !isPDF(name) || !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Name:    name,
			Size:    info.Size(),
			Updated: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list library directory: %w", err)
	}

	return objects, nil
}

// Fetch reads a file's content by its listed name
func (l *LocalLibrary) Fetch(ctx context.Context, name string) ([]byte, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(name))

	// Keep reads inside the library root
	if !strings.HasPrefix(filepath.Clean(fullPath), filepath.Clean(l.basePath)) {
		return nil, fmt.Errorf("invalid library path: %s", name)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", name)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
