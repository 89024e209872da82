package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"avokati-backend/gemini"
	"avokati-backend/models"
	"avokati-backend/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueryInFlight is returned while a prior query is still
	// streaming or its router call is pending.
	ErrQueryInFlight = errors.New("a query is already in flight for this conversation")
	ErrEmptyQuery    = errors.New("query text is empty")
)

// User-visible recovery texts, inline in the failed turn.
const (
	budgetErrorText = "Keni kaluar limitin e informacionit. Ju lutem aktivizoni opsionin " +
		"'Auto-Analizë' që sistemi të zgjedhë vetëm ligjet e nevojshme."
	genericErrorText = "Më falni, ndesha një gabim teknik."
	budgetBannerText = "Kujdes: Tepër informacion. Provoni Auto-Analizën."
)

// AnalysisModel is the streaming call shape of the model inference API
type AnalysisModel interface {
	Stream(ctx context.Context, req gemini.StreamRequest) (gemini.ChunkStream, error)
}

type conversation struct {
	mu       sync.Mutex
	messages []*models.Message
	inFlight bool
}

// ChatService owns conversations and the streaming analysis flow
type ChatService struct {
	selection *SelectionService
	model     AnalysisModel
	logger    *zap.Logger
	metrics   *telemetry.Metrics

	mu            sync.Mutex
	conversations map[string]*conversation
}

// ChatServiceOption is a functional option for ChatService
type ChatServiceOption func(*ChatService)

// ChatWithSelection sets the selection service
func ChatWithSelection(selection *SelectionService) ChatServiceOption {
	return func(s *ChatService) {
		s.selection = selection
	}
}

// ChatWithModel sets the streaming inference client
func ChatWithModel(model AnalysisModel) ChatServiceOption {
	return func(s *ChatService) {
		s.model = model
	}
}

// ChatWithLogger sets the logger
func ChatWithLogger(logger *zap.Logger) ChatServiceOption {
	return func(s *ChatService) {
		s.logger = logger
	}
}

// ChatWithMetrics sets the telemetry sink
func ChatWithMetrics(m *telemetry.Metrics) ChatServiceOption {
	return func(s *ChatService) {
		s.metrics = m
	}
}

// NewChatService creates a new chat service
func NewChatService(opts ...ChatServiceOption) *ChatService {
	s := &ChatService{conversations: make(map[string]*conversation)}
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

// SendResult reports the finalized assistant turn plus metadata the
// transport layer may surface (degraded-mode indicator, warning banner).
type SendResult struct {
	Message        *models.Message `json:"message"`
	RouterFallback bool            `json:"router_fallback"`
	Banner         string          `json:"banner,omitempty"`
}

// Send runs one query end to end: append the user turn, build the
// payload snapshot, stream the analysis into a new assistant turn, and
// finalize it. Each streamed increment is appended in arrival order,
// both to the turn and via onChunk. Streaming failures are recovered
// inline: partial text is preserved, the classified error text is
// appended, and the turn never stays stuck in the streaming state.
func (s *ChatService) Send(
	ctx context.Context,
	sessionID, text string,
	onChunk func(string),
) (*SendResult, error) {
	if s.model == nil {
		return nil, errors.New("analysis model not set")
	}
	if s.selection == nil {
		return nil, errors.New("selection service not set")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	conv := s.conversation(sessionID)

	conv.mu.Lock()
	if conv.inFlight {
		conv.mu.Unlock()
		return nil, ErrQueryInFlight
	}
	conv.inFlight = true

	// History excludes the new user turn and anything still streaming.
	history := make([]gemini.Turn, 0, len(conv.messages))
	for _, msg := range conv.messages {
		if msg.Streaming {
			continue
		}
		history = append(history, gemini.Turn{Role: string(msg.Role), Text: msg.Text})
	}

	userMsg := &models.Message{
		ID:        uuid.New(),
		Role:      models.RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	modelMsg := &models.Message{
		ID:        uuid.New(),
		Role:      models.RoleModel,
		Streaming: true,
		Timestamp: time.Now(),
	}
	conv.messages = append(conv.messages, userMsg, modelMsg)
	conv.mu.Unlock()

	defer func() {
		conv.mu.Lock()
		conv.inFlight = false
		conv.mu.Unlock()
	}()

	snapshot := s.selection.Snapshot(ctx, text)

	req := gemini.StreamRequest{
		SystemInstruction: buildSystemInstruction(snapshot.Documents),
		History:           history,
		Message:           text,
	}
	for _, doc := range snapshot.Documents {
		req.Attachments = append(req.Attachments, gemini.Attachment{
			MIMEType: doc.MimeType,
			Data:     doc.Content,
		})
	}

	result := &SendResult{RouterFallback: snapshot.RouterFallback}

	stream, err := s.model.Stream(ctx, req)
	if err != nil {
		s.failTurn(conv, modelMsg.ID, err, result)
		result.Message = s.message(conv, modelMsg.ID)
		return result, nil
	}

	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.failTurn(conv, modelMsg.ID, err, result)
			result.Message = s.message(conv, modelMsg.ID)
			return result, nil
		}
		s.appendChunk(conv, modelMsg.ID, chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	conv.mu.Lock()
	for _, msg := range conv.messages {
		if msg.ID == modelMsg.ID {
			msg.Streaming = false
			break
		}
	}
	conv.mu.Unlock()

	result.Message = s.message(conv, modelMsg.ID)
	return result, nil
}

// Messages returns a copy of the conversation's turns in order
func (s *ChatService) Messages(sessionID string) []*models.Message {
	conv := s.conversation(sessionID)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]*models.Message, 0, len(conv.messages))
	for _, msg := range conv.messages {
		cp := *msg
		out = append(out, &cp)
	}
	return out
}

func (s *ChatService) conversation(sessionID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &conversation{}
		s.conversations[sessionID] = conv
	}
	return conv
}

// appendChunk appends an increment to the pending turn. Append, never
// replace: ordering is guaranteed by the transport.
func (s *ChatService) appendChunk(conv *conversation, id uuid.UUID, chunk string) {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	for _, msg := range conv.messages {
		if msg.ID == id {
			msg.Text += chunk
			return
		}
	}
}

// failTurn classifies the error and finalizes the turn with the
// user-visible text appended to whatever had already streamed in.
func (s *ChatService) failTurn(conv *conversation, id uuid.UUID, err error, result *SendResult) {
	friendly := genericErrorText
	if isBudgetError(err) {
		friendly = budgetErrorText
		result.Banner = budgetBannerText
		s.metrics.BudgetErrors.Inc()
		s.logger.Warn("streaming call exceeded upstream limit", zap.Error(err))
	} else {
		s.metrics.StreamErrors.Inc()
		s.logger.Error("streaming call failed", zap.Error(err))
	}

	inline := fmt.Sprintf("⚠️ **Gabim**: %s", friendly)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	for _, msg := range conv.messages {
		if msg.ID == id {
			if msg.Text == "" {
				msg.Text = inline
			} else {
				msg.Text += "\n\n" + inline
			}
			msg.Streaming = false
			return
		}
	}
}

func (s *ChatService) message(conv *conversation, id uuid.UUID) *models.Message {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	for _, msg := range conv.messages {
		if msg.ID == id {
			cp := *msg
			return &cp
		}
	}
	return nil
}

// isBudgetError matches transport and quota failures that reference a
// size or token ceiling.
func isBudgetError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "token") || strings.Contains(msg, "limit")
}

// buildSystemInstruction frames the model as a licensed Albanian legal
// counsel working strictly from the attached documents.
func buildSystemInstruction(docs []*models.Document) string {
	var caseNames, lawNames []string
	for _, doc := range docs {
		switch doc.Category {
		case models.CategoryCase:
			caseNames = append(caseNames, doc.Name)
		case models.CategoryLaw:
			lawNames = append(lawNames, doc.Name)
		}
	}

	caseList := strings.Join(caseNames, ", ")
	if caseList == "" {
		caseList = "Asnjë"
	}
	lawList := strings.Join(lawNames, ", ")
	if lawList == "" {
		lawList = "Asnjë"
	}

	return fmt.Sprintf(`Je një Avokat, Noter dhe Konsulent Ligjor Ekspert i liçensuar në Republikën e Shqipërisë (Senior Partner).

KONTEKSTI I DOKUMENTEVE TË PËRZGJEDHURA PËR KËTË BISEDË:
1. **DOSJA E ÇËSHTJES:** %s.
2. **BAZA LIGJORE (E filtruar):** %s.

DETYRA JOTE:
Përgjigju pyetjes duke analizuar faktet e çështjes bazuar vetëm në ligjet e mësipërme.

METODOLOGJIA E AVANCUAR:
Sistemi ka përzgjedhur tashmë ligjet më relevante për këtë pyetje.
- Nëse ligjet e ofruara mjaftojnë, jep opinion ligjor përfundimtar.
- Nëse ndjen se mungon një ligj kritik që nuk është në listën e mësipërme, përmende: "Për një analizë më të plotë, do të nevojitej edhe [Emri i Ligjit]".

STILI DHE FORMATIMI:
- Përdor terma juridikë të saktë (Paditës, I Paditur, Palë Kontraktuese).
- Cito Nenet specifikisht: "Neni 45 i Kodit Civil parashikon..."
- Strukturoje përgjigjen: [ANALIZA LIGJORE] -> [KONKLUZIONI] -> [KËSHILLA].`,
		caseList, lawList)
}
