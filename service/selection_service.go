package service

import (
	"context"
	"errors"
	"sync"

	"avokati-backend/models"
	"avokati-backend/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidMode is returned for a mode outside {manual, automatic}
var ErrInvalidMode = errors.New("invalid selection mode")

// SelectionService decides which documents accompany a query. Two
// policies exist: manual (the user's active flags, verbatim) and
// automatic (the router picks law documents per query). Automatic mode
// degrades silently to the manual selection whenever the router fails;
// the conversation must never be blocked by a routing problem.
type SelectionService struct {
	docs    *DocumentService
	router  *RouterService
	logger  *zap.Logger
	metrics *telemetry.Metrics

	mu   sync.RWMutex
	mode models.Mode
}

// SelectionServiceOption is a functional option for SelectionService
type SelectionServiceOption func(*SelectionService)

// SelectionWithDocuments sets the document service
func SelectionWithDocuments(docs *DocumentService) SelectionServiceOption {
	return func(s *SelectionService) {
		s.docs = docs
	}
}

// SelectionWithRouter sets the router service
func SelectionWithRouter(router *RouterService) SelectionServiceOption {
	return func(s *SelectionService) {
		s.router = router
	}
}

// SelectionWithLogger sets the logger
func SelectionWithLogger(logger *zap.Logger) SelectionServiceOption {
	return func(s *SelectionService) {
		s.logger = logger
	}
}

// SelectionWithMetrics sets the telemetry sink
func SelectionWithMetrics(m *telemetry.Metrics) SelectionServiceOption {
	return func(s *SelectionService) {
		s.metrics = m
	}
}

// NewSelectionService creates a selection service. Automatic mode is
// the default; it scales to libraries the manual budget cannot hold.
func NewSelectionService(opts ...SelectionServiceOption) *SelectionService {
	s := &SelectionService{mode: models.ModeAutomatic}
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

// Mode returns the current selection mode
func (s *SelectionService) Mode() models.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches between manual and automatic selection. The switch
// itself has no side effects on document state.
func (s *SelectionService) SetMode(mode models.Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}

// Snapshot is the document set chosen for one outgoing request,
// captured at send time. It is derived state and never persisted.
type Snapshot struct {
	Mode      models.Mode
	Documents []*models.Document
	// RouterFallback is set when automatic mode degraded to the
	// manual selection for this query.
	RouterFallback bool
	// AutoSelected lists the law documents the router matched.
	AutoSelected []uuid.UUID
}

// Snapshot builds the payload set for a query under the current mode.
// Automatic mode clears prior auto-selection markers, consults the
// router with law metadata only, validates the response against the
// candidate set, and falls back to the manual selection on any
// failure. The fallback is silent toward the conversation but logged
// and counted.
func (s *SelectionService) Snapshot(ctx context.Context, query string) *Snapshot {
	s.docs.ResetAutoSelected()

	mode := s.Mode()
	if mode == models.ModeManual {
		return &Snapshot{Mode: mode, Documents: s.docs.ManualPayload()}
	}

	caseDocs := s.docs.ActiveCase()
	candidates := s.docs.LawCandidates()
	if len(candidates) == 0 {
		// Nothing to route over; the payload is just the case file.
		return &Snapshot{Mode: mode, Documents: caseDocs}
	}

	caseNames := make([]string, 0, len(caseDocs))
	for _, doc := range caseDocs {
		caseNames = append(caseNames, doc.Name)
	}

	ids, err := s.router.Select(ctx, query, candidates, caseNames)
	if err != nil || len(ids) == 0 {
		if err != nil {
			s.logger.Warn("router failed, falling back to manual selection", zap.Error(err))
		} else {
			s.logger.Warn("router returned no usable selection, falling back to manual selection")
		}
		s.metrics.RouterFallbacks.Inc()
		return &Snapshot{
			Mode:           mode,
			Documents:      s.docs.ManualPayload(),
			RouterFallback: true,
		}
	}

	s.docs.MarkAutoSelected(ids)
	matched := s.docs.LawByIDs(ids)

	payload := make([]*models.Document, 0, len(caseDocs)+len(matched))
	payload = append(payload, caseDocs...)
	payload = append(payload, matched...)

	s.logger.Info("router selected documents",
		zap.Int("matched", len(matched)),
		zap.Int("candidates", len(candidates)))

	return &Snapshot{Mode: mode, Documents: payload, AutoSelected: ids}
}
