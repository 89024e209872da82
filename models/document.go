package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a document in the library
type Category string

const (
	CategoryCase Category = "case"
	CategoryLaw  Category = "law"
)

// Valid reports whether the category is one of the known values
func (c Category) Valid() bool {
	return c == CategoryCase || c == CategoryLaw
}

// Document represents an uploaded or imported legal document
type Document struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Content      []byte    `json:"-"`
	Category     Category  `json:"category"`
	Active       bool      `json:"active"`
	AutoSelected bool      `json:"auto_selected"`
	CreatedAt    time.Time `json:"created_at"`
}

// Normalize fills defaults for records written by older versions of the
// store. Documents persisted without a category are treated as law texts.
func (d *Document) Normalize() {
	if d.Category == "" {
		d.Category = CategoryLaw
	}
}

// Clone returns a copy of the document sharing the content slice.
// Content is never mutated after ingestion, so sharing is safe.
func (d *Document) Clone() *Document {
	cp := *d
	return &cp
}
