package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"avokati-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	puts    []*models.Document
	deletes []uuid.UUID
	stored  []*models.Document
	putErr  error
	getErr  error
}

func (f *fakeStore) Put(ctx context.Context, doc *models.Document) error {
	if f.putErr != nil {
		return f.putErr
	}
	cp := *doc
	f.puts = append(f.puts, &cp)
	return nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]*models.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.stored, nil
}

func (f *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func pdfUpload(name string, size int, category models.Category) Upload {
	return Upload{
		Name:     name,
		MimeType: "application/pdf",
		Content:  bytes.Repeat([]byte{0x25}, size),
		Category: category,
	}
}

func TestIngestRejectsInvalidFilesWithoutBlockingSiblings(t *testing.T) {
	svc := NewDocumentService(DocumentsWithStore(&fakeStore{}))

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("kodi_civil.pdf", 100, models.CategoryLaw),
		{Name: "shenime.txt", MimeType: "text/plain", Content: []byte("x"), Category: models.CategoryLaw},
		{Name: "gjigant.pdf", MimeType: "application/pdf",
			Content: make([]byte, MaxDocumentSizeBytes+1), Category: models.CategoryLaw},
	})
	require.NoError(t, err)

	require.Len(t, result.Added, 1)
	assert.Equal(t, "kodi_civil.pdf", result.Added[0].Name)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "shenime.txt", result.Rejected[0].Name)
	assert.Equal(t, "gjigant.pdf", result.Rejected[1].Name)

	// Rejected files never enter the collection.
	assert.Len(t, svc.List(), 1)
}

func TestIngestBulkLawDefaultsInactive(t *testing.T) {
	svc := NewDocumentService()

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("a.pdf", 10, models.CategoryLaw),
		pdfUpload("b.pdf", 10, models.CategoryLaw),
		pdfUpload("c.pdf", 10, models.CategoryLaw),
	})
	require.NoError(t, err)
	require.Len(t, result.Added, 3)
	for _, doc := range result.Added {
		assert.False(t, doc.Active, "bulk law upload must default to inactive")
	}
}

func TestIngestSingleLawDefaultsActive(t *testing.T) {
	svc := NewDocumentService()

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("a.pdf", 10, models.CategoryLaw),
	})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.True(t, result.Added[0].Active)
}

func TestIngestCaseFilesAlwaysActive(t *testing.T) {
	svc := NewDocumentService()

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("padia.pdf", 10, models.CategoryCase),
		pdfUpload("kontrata.pdf", 10, models.CategoryCase),
	})
	require.NoError(t, err)
	require.Len(t, result.Added, 2)
	for _, doc := range result.Added {
		assert.True(t, doc.Active)
	}
}

func TestToggleTwiceRestoresState(t *testing.T) {
	store := &fakeStore{}
	svc := NewDocumentService(DocumentsWithStore(store))

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("a.pdf", 10, models.CategoryLaw),
	})
	require.NoError(t, err)
	id := result.Added[0].ID
	original := result.Added[0].Active

	first, err := svc.Toggle(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, !original, first.Active)

	second, err := svc.Toggle(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, original, second.Active)
}

func TestToggleUnknownDocument(t *testing.T) {
	svc := NewDocumentService()
	_, err := svc.Toggle(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	store := &fakeStore{putErr: errors.New("store down")}
	svc := NewDocumentService(DocumentsWithStore(store))

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("a.pdf", 10, models.CategoryLaw),
	})
	require.NoError(t, err)
	id := result.Added[0].ID

	doc, err := svc.Toggle(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, doc.Active)

	// In-memory state is authoritative even though every write failed.
	docs := svc.List()
	require.Len(t, docs, 1)
	assert.False(t, docs[0].Active)
}

func TestToggleAllScopedToGivenIDs(t *testing.T) {
	svc := NewDocumentService()

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("a.pdf", 10, models.CategoryLaw),
		pdfUpload("b.pdf", 10, models.CategoryLaw),
		pdfUpload("c.pdf", 10, models.CategoryLaw),
	})
	require.NoError(t, err)

	svc.ToggleAll(context.Background(),
		[]uuid.UUID{result.Added[0].ID, result.Added[1].ID}, true)

	active := map[string]bool{}
	for _, doc := range svc.List() {
		active[doc.Name] = doc.Active
	}
	assert.True(t, active["a.pdf"])
	assert.True(t, active["b.pdf"])
	assert.False(t, active["c.pdf"], "documents outside the view must be untouched")
}

func TestUsageCountsActiveLawOnly(t *testing.T) {
	svc := NewDocumentService()

	_, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("ligj.pdf", 1024, models.CategoryLaw),
	})
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), []Upload{
		pdfUpload("dosja.pdf", 4096, models.CategoryCase),
	})
	require.NoError(t, err)

	usage := svc.Usage()
	assert.Equal(t, int64(1024), usage.Bytes)
	assert.False(t, usage.NearBudget)
}

func TestUsageNearBudgetWarning(t *testing.T) {
	svc := NewDocumentService()

	size := int(float64(MaxActiveSizeBytes)*NearBudgetRatio) + 1024
	_, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("i_madh.pdf", size, models.CategoryLaw),
	})
	require.NoError(t, err)

	usage := svc.Usage()
	assert.True(t, usage.NearBudget)
	assert.LessOrEqual(t, usage.Ratio, 1.0)
}

func TestLoadNormalizesMissingCategory(t *testing.T) {
	legacy := &models.Document{ID: uuid.New(), Name: "vjeter.pdf"}
	store := &fakeStore{stored: []*models.Document{legacy}}

	svc := NewDocumentService(DocumentsWithStore(store))
	require.NoError(t, svc.Load(context.Background()))

	docs := svc.List()
	require.Len(t, docs, 1)
	assert.Equal(t, models.CategoryLaw, docs[0].Category)
}

func TestDeleteRemovesFromCollectionAndStore(t *testing.T) {
	store := &fakeStore{}
	svc := NewDocumentService(DocumentsWithStore(store))

	result, err := svc.Ingest(context.Background(), []Upload{
		pdfUpload("a.pdf", 10, models.CategoryLaw),
	})
	require.NoError(t, err)
	id := result.Added[0].ID

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Empty(t, svc.List())
	require.Len(t, store.deletes, 1)
	assert.Equal(t, id, store.deletes[0])

	assert.ErrorIs(t, svc.Delete(context.Background(), id), ErrDocumentNotFound)
}
