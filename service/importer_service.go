package service

import (
	"context"
	"errors"
	"path"

	"avokati-backend/models"
	"avokati-backend/storage"

	"go.uber.org/zap"
)

// ImporterService pulls law documents out of the configured library
// source and funnels them through the same ingestion entry point as
// direct uploads, so import batches get the same validation and
// default rules.
type ImporterService struct {
	library storage.Library
	docs    *DocumentService
	logger  *zap.Logger
}

// ImporterServiceOption is a functional option for ImporterService
type ImporterServiceOption func(*ImporterService)

// ImporterWithLibrary sets the library source
func ImporterWithLibrary(library storage.Library) ImporterServiceOption {
	return func(s *ImporterService) {
		s.library = library
	}
}

// ImporterWithDocuments sets the document service
func ImporterWithDocuments(docs *DocumentService) ImporterServiceOption {
	return func(s *ImporterService) {
		s.docs = docs
	}
}

// ImporterWithLogger sets the logger
func ImporterWithLogger(logger *zap.Logger) ImporterServiceOption {
	return func(s *ImporterService) {
		s.logger = logger
	}
}

// NewImporterService creates a new importer service
func NewImporterService(opts ...ImporterServiceOption) *ImporterService {
	s := &ImporterService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ListLibrary lists the importable objects under a prefix
func (s *ImporterService) ListLibrary(ctx context.Context, prefix string) ([]storage.Object, error) {
	if s.library == nil {
		return nil, errors.New("library source not set")
	}
	return s.library.List(ctx, prefix)
}

// Import downloads the named objects and ingests them as law
// documents. A failed download rejects that one file and the batch
// continues, mirroring upload validation.
func (s *ImporterService) Import(ctx context.Context, names []string) (*IngestResult, error) {
	if s.library == nil {
		return nil, errors.New("library source not set")
	}
	if s.docs == nil {
		return nil, errors.New("document service not set")
	}

	var uploads []Upload
	var fetchErrors []IngestError

	for _, name := range names {
		data, err := s.library.Fetch(ctx, name)
		if err != nil {
			s.logger.Warn("failed to fetch library object",
				zap.String("name", name), zap.Error(err))
			fetchErrors = append(fetchErrors, IngestError{
				Name:   name,
				Reason: "Shkarkimi dështoi.",
			})
			continue
		}
		uploads = append(uploads, Upload{
			Name:     path.Base(name),
			MimeType: "application/pdf",
			Content:  data,
			Category: models.CategoryLaw,
		})
	}

	result, err := s.docs.Ingest(ctx, uploads)
	if err != nil {
		return nil, err
	}
	result.Rejected = append(result.Rejected, fetchErrors...)
	return result, nil
}
