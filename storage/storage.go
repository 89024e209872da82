package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"avokati-backend/config"
)

// Object describes one importable file in the library source
type Object struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// Library is the bulk import source for law documents: a listing plus
// download interface over a bucket or directory of PDFs.
type Library interface {
	// List returns the PDF objects under the given prefix
	List(ctx context.Context, prefix string) ([]Object, error)

	// Fetch downloads an object's content by name
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// NewLibrary creates a library source based on configuration
func NewLibrary(cfg config.LibraryConfig) (Library, error) {
	switch cfg.Source {
	case "local":
		return NewLocalLibrary(cfg.LocalPath)
	case "s3":
		return NewS3Library(cfg)
	default:
		return nil, fmt.Errorf("unknown library source: %s", cfg.Source)
	}
}

// isPDF reports whether a listed object should be offered for import
func isPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
