package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"avokati-backend/telemetry"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MaxRouterResults caps how many law documents one query may attach
const MaxRouterResults = 5

const (
	routerCacheTTL     = 5 * time.Minute
	routerCacheCleanup = 10 * time.Minute
)

// RouterModel is the single-shot structured call shape of the model
// inference API: a prompt in, raw JSON text out.
type RouterModel interface {
	SelectJSON(ctx context.Context, prompt string) (string, error)
}

// RouterService asks the model to pick the law documents relevant to a
// query, from metadata only. The model is generative and may
// hallucinate identifiers, so every response is validated against the
// candidate set before use.
type RouterService struct {
	model   RouterModel
	cache   *gocache.Cache
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// RouterServiceOption is a functional option for RouterService
type RouterServiceOption func(*RouterService)

// RouterWithModel sets the inference client
func RouterWithModel(model RouterModel) RouterServiceOption {
	return func(s *RouterService) {
		s.model = model
	}
}

// RouterWithLogger sets the logger
func RouterWithLogger(logger *zap.Logger) RouterServiceOption {
	return func(s *RouterService) {
		s.logger = logger
	}
}

// RouterWithMetrics sets the telemetry sink
func RouterWithMetrics(m *telemetry.Metrics) RouterServiceOption {
	return func(s *RouterService) {
		s.metrics = m
	}
}

// NewRouterService creates a new router service
func NewRouterService(opts ...RouterServiceOption) *RouterService {
	s := &RouterService{
		cache: gocache.New(routerCacheTTL, routerCacheCleanup),
	}
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

// Select returns at most MaxRouterResults identifiers from candidates
// judged relevant to the query. Malformed model output yields an empty
// result; upstream errors are returned to the caller. Either way the
// caller degrades to manual selection.
func (s *RouterService) Select(
	ctx context.Context,
	query string,
	candidates []Candidate,
	caseNames []string,
) ([]uuid.UUID, error) {
	if s.model == nil {
		return nil, fmt.Errorf("router model not set")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	key := cacheKey(query, candidates)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RouterCacheHits.Inc()
		return cached.([]uuid.UUID), nil
	}

	s.metrics.RouterCalls.Inc()

	raw, err := s.model.SelectJSON(ctx, buildRouterPrompt(query, candidates, caseNames))
	if err != nil {
		return nil, fmt.Errorf("router call failed: %w", err)
	}

	var rawIDs []string
	if err := json.Unmarshal([]byte(raw), &rawIDs); err != nil {
		s.logger.Warn("router returned malformed output",
			zap.String("output", truncate(raw, 200)), zap.Error(err))
		return nil, nil
	}

	// Drop anything the model made up: only identifiers present in the
	// candidate set survive.
	valid := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		valid[c.ID] = true
	}

	var ids []uuid.UUID
	for _, rawID := range rawIDs {
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil || !valid[id] {
			s.logger.Debug("router selected unknown identifier", zap.String("id", rawID))
			continue
		}
		ids = append(ids, id)
		if len(ids) == MaxRouterResults {
			break
		}
	}

	if len(ids) > 0 {
		s.cache.Set(key, ids, gocache.DefaultExpiration)
	}
	return ids, nil
}

// buildRouterPrompt asks the model, acting as a legal librarian, to
// pick relevant documents from a metadata-only list. Broad questions
// are steered toward the core codifications.
func buildRouterPrompt(query string, candidates []Candidate, caseNames []string) string {
	var list strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&list, "- ID: %s, Emri: %s\n", c.ID, c.Name)
	}

	caseContext := strings.Join(caseNames, ", ")
	if caseContext == "" {
		caseContext = "Nuk ka"
	}

	return fmt.Sprintf(`Ti je një "Bibliotekar Ligjor" inteligjent.
Detyra jote është të zgjedhësh cilat ligje/kode duhen për t'iu përgjigjur pyetjes së përdoruesit.

KONTEKSTI:
Dosja e Çështjes: %s
Pyetja e Përdoruesit: "%s"

LISTA E DOKUMENTEVE TË DISPONUESHME (BAZA LIGJORE):
%s
UDHËZIM:
Kthe vetëm një listë JSON me ID-të e dokumenteve më relevante (maksimumi %d).
Nëse pyetja është e përgjithshme, zgjidh kodet kryesore (Civil, Penal).
Shembull Output: ["id_123", "id_456"]`,
		caseContext, query, list.String(), MaxRouterResults)
}

func cacheKey(query string, candidates []Candidate) string {
	h := sha256.New()
	h.Write([]byte(query))
	for _, c := range candidates {
		h.Write([]byte{0})
		h.Write([]byte(c.ID.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
