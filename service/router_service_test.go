package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouterModel struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeRouterModel) SelectJSON(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func candidates(n int) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Candidate{ID: uuid.New(), Name: fmt.Sprintf("Ligji %d", i)})
	}
	return out
}

func jsonIDs(ids ...uuid.UUID) string {
	out := "["
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", id.String())
	}
	return out + "]"
}

func TestRouterSelectReturnsMatchedIDs(t *testing.T) {
	cands := candidates(3)
	model := &fakeRouterModel{response: jsonIDs(cands[0].ID, cands[2].ID)}
	svc := NewRouterService(RouterWithModel(model))

	ids, err := svc.Select(context.Background(), "Çfarë thotë Neni 45?", cands, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cands[0].ID, cands[2].ID}, ids)
}

func TestRouterSelectDropsHallucinatedIDs(t *testing.T) {
	cands := candidates(2)
	// One real identifier, one invented by the model.
	model := &fakeRouterModel{response: jsonIDs(cands[0].ID, uuid.New())}
	svc := NewRouterService(RouterWithModel(model))

	ids, err := svc.Select(context.Background(), "pyetje", cands, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cands[0].ID}, ids)
}

func TestRouterSelectDropsNonUUIDOutput(t *testing.T) {
	cands := candidates(1)
	model := &fakeRouterModel{response: `["id_123", "not-a-uuid"]`}
	svc := NewRouterService(RouterWithModel(model))

	ids, err := svc.Select(context.Background(), "pyetje", cands, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRouterSelectCapsAtFive(t *testing.T) {
	cands := candidates(8)
	all := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		all = append(all, c.ID)
	}
	model := &fakeRouterModel{response: jsonIDs(all...)}
	svc := NewRouterService(RouterWithModel(model))

	ids, err := svc.Select(context.Background(), "pyetje e gjerë", cands, nil)
	require.NoError(t, err)
	assert.Len(t, ids, MaxRouterResults)
}

func TestRouterSelectMalformedOutputYieldsEmpty(t *testing.T) {
	cands := candidates(2)
	model := &fakeRouterModel{response: `{"oops": true}`}
	svc := NewRouterService(RouterWithModel(model))

	ids, err := svc.Select(context.Background(), "pyetje", cands, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRouterSelectPropagatesUpstreamError(t *testing.T) {
	cands := candidates(2)
	model := &fakeRouterModel{err: errors.New("quota exhausted")}
	svc := NewRouterService(RouterWithModel(model))

	_, err := svc.Select(context.Background(), "pyetje", cands, nil)
	assert.Error(t, err)
}

func TestRouterSelectNoCandidatesSkipsCall(t *testing.T) {
	model := &fakeRouterModel{response: "[]"}
	svc := NewRouterService(RouterWithModel(model))

	ids, err := svc.Select(context.Background(), "pyetje", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, model.calls)
}

func TestRouterSelectRepeatedQueryIsStable(t *testing.T) {
	cands := candidates(3)
	model := &fakeRouterModel{response: jsonIDs(cands[1].ID)}
	svc := NewRouterService(RouterWithModel(model))

	first, err := svc.Select(context.Background(), "e njëjta pyetje", cands, nil)
	require.NoError(t, err)
	second, err := svc.Select(context.Background(), "e njëjta pyetje", cands, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls, "identical query should be served from cache")
}

func TestRouterPromptCarriesMetadataOnly(t *testing.T) {
	cands := candidates(2)
	model := &fakeRouterModel{response: jsonIDs(cands[0].ID)}
	svc := NewRouterService(RouterWithModel(model))

	_, err := svc.Select(context.Background(), "pyetja ime", cands, []string{"padia.pdf"})
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, cands[0].ID.String())
	assert.Contains(t, prompt, cands[0].Name)
	assert.Contains(t, prompt, "padia.pdf")
	assert.Contains(t, prompt, "pyetja ime")
}
