package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"avokati-backend/models"
	"avokati-backend/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxActiveSizeBytes is the combined budget for active law documents
	MaxActiveSizeBytes = 10 * 1024 * 1024
	// MaxDocumentSizeBytes is the per-document ingestion ceiling
	MaxDocumentSizeBytes = 20 * 1024 * 1024
	// NearBudgetRatio is the usage ratio above which a warning is raised
	NearBudgetRatio = 0.9

	pdfMimeType = "application/pdf"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidCategory  = errors.New("invalid document category")
)

// DocumentStore is the persistence surface for documents. Writes are
// fire-and-forget: the in-memory collection is the source of truth and
// store failures never roll back a change.
type DocumentStore interface {
	Put(ctx context.Context, doc *models.Document) error
	GetAll(ctx context.Context) ([]*models.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentService owns the in-memory document collection
type DocumentService struct {
	store   DocumentStore
	logger  *zap.Logger
	metrics *telemetry.Metrics

	mu   sync.RWMutex
	docs []*models.Document
}

// DocumentServiceOption is a functional option for DocumentService
type DocumentServiceOption func(*DocumentService)

// DocumentsWithStore sets the persistence store
func DocumentsWithStore(store DocumentStore) DocumentServiceOption {
	return func(s *DocumentService) {
		s.store = store
	}
}

// DocumentsWithLogger sets the logger
func DocumentsWithLogger(logger *zap.Logger) DocumentServiceOption {
	return func(s *DocumentService) {
		s.logger = logger
	}
}

// DocumentsWithMetrics sets the telemetry sink
func DocumentsWithMetrics(m *telemetry.Metrics) DocumentServiceOption {
	return func(s *DocumentService) {
		s.metrics = m
	}
}

// NewDocumentService creates a new document service
func NewDocumentService(opts ...DocumentServiceOption) *DocumentService {
	s := &DocumentService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNop()
	}
	return s
}

// Load populates the collection from the store, normalizing records
// written before documents carried a category.
func (s *DocumentService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	docs, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	// Migration step: records written before documents carried a
	// category come back as law texts.
	for _, doc := range docs {
		doc.Normalize()
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	s.logger.Info("documents loaded", zap.Int("count", len(docs)))
	return nil
}

// Upload is one candidate file in an ingestion batch
type Upload struct {
	Name     string
	MimeType string
	Content  []byte
	Category models.Category
}

// IngestError reports why a single file in a batch was rejected
type IngestError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// IngestResult reports the outcome of one ingestion batch
type IngestResult struct {
	Added    []*models.Document `json:"added"`
	Rejected []IngestError      `json:"rejected"`
}

// Ingest validates and adds a batch of documents. A file failing
// validation never blocks its siblings. Single uploads default to
// active; a law batch of more than one file defaults every file to
// inactive so a bulk import does not blow the context budget.
func (s *DocumentService) Ingest(ctx context.Context, uploads []Upload) (*IngestResult, error) {
	result := &IngestResult{}
	now := time.Now()

	var accepted []*models.Document
	for _, up := range uploads {
		if !up.Category.Valid() {
			return nil, ErrInvalidCategory
		}
		if up.MimeType != pdfMimeType {
			result.Rejected = append(result.Rejected, IngestError{
				Name:   up.Name,
				Reason: fmt.Sprintf("Skedari %s nuk është PDF.", up.Name),
			})
			continue
		}
		if int64(len(up.Content)) > MaxDocumentSizeBytes {
			result.Rejected = append(result.Rejected, IngestError{
				Name:   up.Name,
				Reason: fmt.Sprintf("Skedari %s është shumë i madh (>20MB).", up.Name),
			})
			continue
		}

		accepted = append(accepted, &models.Document{
			ID:        uuid.New(),
			Name:      up.Name,
			MimeType:  up.MimeType,
			Size:      int64(len(up.Content)),
			Content:   up.Content,
			Category:  up.Category,
			Active:    true,
			CreatedAt: now,
		})
	}

	// Bulk law uploads start inactive; case files stay active.
	lawCount := 0
	for _, doc := range accepted {
		if doc.Category == models.CategoryLaw {
			lawCount++
		}
	}
	if lawCount > 1 {
		for _, doc := range accepted {
			if doc.Category == models.CategoryLaw {
				doc.Active = false
			}
		}
	}

	s.mu.Lock()
	s.docs = append(accepted, s.docs...)
	s.mu.Unlock()

	for _, doc := range accepted {
		s.persist(ctx, doc)
		result.Added = append(result.Added, doc.Clone())
	}

	s.logger.Info("ingested batch",
		zap.Int("accepted", len(accepted)),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

// Toggle flips a document's active flag and returns the new state
func (s *DocumentService) Toggle(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.Lock()
	doc := s.findLocked(id)
	if doc == nil {
		s.mu.Unlock()
		return nil, ErrDocumentNotFound
	}
	doc.Active = !doc.Active
	updated := doc.Clone()
	s.mu.Unlock()

	s.persist(ctx, updated)
	return updated, nil
}

// ToggleAll sets the active flag on the given documents, a bulk op
// scoped to the caller's current view. Only documents whose flag
// actually changes are written back.
func (s *DocumentService) ToggleAll(ctx context.Context, ids []uuid.UUID, active bool) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var changed []*models.Document
	s.mu.Lock()
	for _, doc := range s.docs {
		if wanted[doc.ID] && doc.Active != active {
			doc.Active = active
			changed = append(changed, doc.Clone())
		}
	}
	s.mu.Unlock()

	for _, doc := range changed {
		s.persist(ctx, doc)
	}
}

// Delete removes a document from the collection and the store
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	idx := -1
	for i, doc := range s.docs {
		if doc.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrDocumentNotFound
	}
	s.docs = append(s.docs[:idx], s.docs[idx+1:]...)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete document from store",
				zap.String("id", id.String()), zap.Error(err))
		}
	}
	return nil
}

// List returns a copy of every document, newest first
func (s *DocumentService) List() []*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc.Clone())
	}
	return out
}

// Usage reports the manual-mode context budget consumption
type Usage struct {
	Bytes      int64   `json:"bytes"`
	Budget     int64   `json:"budget"`
	Ratio      float64 `json:"ratio"`
	NearBudget bool    `json:"near_budget"`
}

// Usage sums active law-document sizes against the fixed budget. A
// ratio above 90% flags a warning but never blocks sending.
func (s *DocumentService) Usage() Usage {
	s.mu.RLock()
	var total int64
	for _, doc := range s.docs {
		if doc.Category == models.CategoryLaw && doc.Active {
			total += doc.Size
		}
	}
	s.mu.RUnlock()

	ratio := float64(total) / float64(MaxActiveSizeBytes)
	if ratio > 1 {
		ratio = 1
	}
	s.metrics.ActiveLawBytes.Set(float64(total))

	return Usage{
		Bytes:      total,
		Budget:     MaxActiveSizeBytes,
		Ratio:      ratio,
		NearBudget: ratio > NearBudgetRatio,
	}
}

// ManualPayload returns a point-in-time copy of the active document
// set: active case documents plus active law documents. Later toggles
// never mutate a payload already handed out.
func (s *DocumentService) ManualPayload() []*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.Active && doc.Category.Valid() {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// ActiveCase returns copies of the active case documents
func (s *DocumentService) ActiveCase() []*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.Category == models.CategoryCase && doc.Active {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// Candidate is the metadata handed to the router for one law document
type Candidate struct {
	ID   uuid.UUID
	Name string
}

// LawCandidates lists every law document as (id, name) metadata. The
// router never sees content, only this list.
func (s *DocumentService) LawCandidates() []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Candidate
	for _, doc := range s.docs {
		if doc.Category == models.CategoryLaw {
			out = append(out, Candidate{ID: doc.ID, Name: doc.Name})
		}
	}
	return out
}

// LawByIDs returns copies of law documents matching ids, in collection order
func (s *DocumentService) LawByIDs(ids []uuid.UUID) []*models.Document {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.Category == models.CategoryLaw && wanted[doc.ID] {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// ResetAutoSelected clears the per-query auto-selection markers
func (s *DocumentService) ResetAutoSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		doc.AutoSelected = false
	}
}

// MarkAutoSelected flags the documents the router picked for this query
func (s *DocumentService) MarkAutoSelected(ids []uuid.UUID) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if wanted[doc.ID] {
			doc.AutoSelected = true
		}
	}
}

func (s *DocumentService) findLocked(id uuid.UUID) *models.Document {
	for _, doc := range s.docs {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

// persist writes a document to the store. Failures are logged and
// never surfaced; the in-memory state stays authoritative.
func (s *DocumentService) persist(ctx context.Context, doc *models.Document) {
	if s.store == nil {
		return
	}
	if err := s.store.Put(ctx, doc); err != nil {
		s.logger.Warn("failed to persist document",
			zap.String("id", doc.ID.String()),
			zap.String("name", doc.Name),
			zap.Error(err))
	}
}
