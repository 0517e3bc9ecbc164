package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

type fakeModels struct {
	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
	resp        *genai.GenerateContentResponse
	err         error
	getErr      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	f.gotConfig = cfg
	return f.resp, f.err
}

func (f *fakeModels) Get(_ context.Context, model string, _ *genai.GetModelConfig) (*genai.Model, error) {
	f.gotModel = model
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &genai.Model{Name: "models/" + model}, nil
}

func textResponse(reason genai.FinishReason, parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
			FinishReason: reason,
		}},
	}
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.Error(t, err)
}

func TestGenerate_MapsRequest(t *testing.T) {
	fake := &fakeModels{resp: textResponse(genai.FinishReasonStop,
		&genai.Part{Text: "thinking", Thought: true},
		genai.NewPartFromText("Hello "),
		genai.NewPartFromText("world"),
	)}
	svc := newWithModels(fake, "")

	out, err := svc.Generate(context.Background(), driven.GenerateRequest{
		System:      "answer briefly",
		Prompt:      "hi",
		MaxTokens:   256,
		Temperature: driven.Temperature(0),
		StopWords:   []string{"END"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, DefaultModel, fake.gotModel)
	require.Len(t, fake.gotContents, 1)
	assert.Equal(t, genai.RoleUser, fake.gotContents[0].Role)
	assert.Equal(t, "hi", fake.gotContents[0].Parts[0].Text)
	assert.Equal(t, int32(256), fake.gotConfig.MaxOutputTokens)
	require.NotNil(t, fake.gotConfig.Temperature)
	assert.Equal(t, float32(0), *fake.gotConfig.Temperature)
	require.NotNil(t, fake.gotConfig.SystemInstruction)
	assert.Equal(t, "answer briefly", fake.gotConfig.SystemInstruction.Parts[0].Text)
	assert.Equal(t, []string{"END"}, fake.gotConfig.StopSequences)
}

func TestGenerate_LeavesDefaultsUnset(t *testing.T) {
	fake := &fakeModels{resp: textResponse(genai.FinishReasonStop, genai.NewPartFromText("ok"))}

	_, err := newWithModels(fake, "m").Generate(context.Background(), driven.GenerateRequest{Prompt: "x"})

	require.NoError(t, err)
	assert.Nil(t, fake.gotConfig.Temperature)
	assert.Nil(t, fake.gotConfig.SystemInstruction)
	assert.Zero(t, fake.gotConfig.MaxOutputTokens)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeModels
		wantErr string
	}{
		{name: "transport", fake: &fakeModels{err: errors.New("boom")}, wantErr: "boom"},
		{name: "no candidates", fake: &fakeModels{resp: &genai.GenerateContentResponse{}}, wantErr: "no candidates"},
		{name: "safety", fake: &fakeModels{resp: textResponse(genai.FinishReasonSafety)}, wantErr: "SAFETY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newWithModels(tt.fake, "m").Generate(context.Background(), driven.GenerateRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPing(t *testing.T) {
	fake := &fakeModels{}
	svc := newWithModels(fake, "gemini-x")

	require.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, "gemini-x", fake.gotModel)

	fake.getErr = errors.New("permission denied")
	assert.Error(t, svc.Ping(context.Background()))
}
