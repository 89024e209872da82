package gemini

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	// RouterTemperature keeps repeated identical selection calls stable
	RouterTemperature float32 = 0.1
	// AnalysisTemperature is used for the streaming legal analysis
	AnalysisTemperature float32 = 0.3
)

// Turn is one prior conversation turn sent as history
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Attachment is an inline binary document sent with the query
type Attachment struct {
	MIMEType string
	Data     []byte
}

// StreamRequest carries everything needed for one streaming analysis call
type StreamRequest struct {
	SystemInstruction string
	History           []Turn
	Attachments       []Attachment
	Message           string
}

// ChunkStream is a finite, non-restartable sequence of text increments.
// Next returns io.EOF once the stream is exhausted.
type ChunkStream interface {
	Next() (string, error)
}

// Client wraps the Gemini API for the two call shapes this service
// needs: a single-shot structured call and a streaming call.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for the given model
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.client.Close()
}

// SelectJSON runs a single-shot call configured for a JSON response and
// low randomness, returning the raw response text.
func (c *Client) SelectJSON(ctx context.Context, prompt string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(RouterTemperature)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("selection call failed: %w", err)
	}
	return collectText(resp), nil
}

// Stream opens a streaming generation call with the given system
// instruction, prior turns, and inline attachments.
func (c *Client) Stream(ctx context.Context, req StreamRequest) (ChunkStream, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(AnalysisTemperature)
	if req.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	session := m.StartChat()
	for _, turn := range req.History {
		session.History = append(session.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	parts := make([]genai.Part, 0, len(req.Attachments)+1)
	for _, att := range req.Attachments {
		parts = append(parts, genai.Blob{MIMEType: att.MIMEType, Data: att.Data})
	}
	parts = append(parts, genai.Text(req.Message))

	return &responseStream{iter: session.SendMessageStream(ctx, parts...)}, nil
}

type responseStream struct {
	iter *genai.GenerateContentResponseIterator
}

// Next returns the next non-empty text increment. Empty responses from
// the transport are skipped rather than surfaced as empty chunks.
func (s *responseStream) Next() (string, error) {
	for {
		resp, err := s.iter.Next()
		if err == iterator.Done {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if text := collectText(resp); text != "" {
			return text, nil
		}
	}
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
