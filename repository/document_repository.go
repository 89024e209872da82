package repository

import (
	"context"

	"avokati-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository persists documents keyed by ID. It is a plain
// key-value surface: put (insert-or-replace), get-all, delete. All
// filtering happens on the in-memory copy held by the document service.
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Put inserts a document or replaces the existing record with the same ID
func (r *DocumentRepository) Put(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (
			id, name, mime_type, size, content, category, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			mime_type = EXCLUDED.mime_type,
			size = EXCLUDED.size,
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			active = EXCLUDED.active`

	_, err := r.db.Exec(
		ctx, query,
		doc.ID,
		doc.Name,
		doc.MimeType,
		doc.Size,
		doc.Content,
		string(doc.Category),
		doc.Active,
		doc.CreatedAt,
	)
	return err
}

// GetAll retrieves every stored document, newest first
func (r *DocumentRepository) GetAll(ctx context.Context) ([]*models.Document, error) {
	query := `
		SELECT id, name, mime_type, size, content, category, active, created_at
		FROM documents
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		var category string
		err := rows.Scan(
			&doc.ID,
			&doc.Name,
			&doc.MimeType,
			&doc.Size,
			&doc.Content,
			&category,
			&doc.Active,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		doc.Category = models.Category(category)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Delete removes a document record
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
