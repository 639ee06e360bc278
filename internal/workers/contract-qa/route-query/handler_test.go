// internal/workers/contract-qa/route-query/handler_test.go
package routequery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"contract-qa/internal/common/genai"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/models"
	"contract-qa/internal/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T, gen genai.GeneratorFunc) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, gen, prompts.Defaults(), nil, logger.NewTestLogger(t))
}

func replying(reply string) genai.GeneratorFunc {
	return func(context.Context, string) (string, error) { return reply, nil }
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Labels(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		want     models.Decision
		fallback bool
	}{
		{"retriever", "retriever", models.DecisionRetriever, false},
		{"analyst", "analyst", models.DecisionAnalyst, false},
		{"summarizer", "summarizer", models.DecisionSummarizer, false},
		{"end", "end", models.DecisionEnd, false},
		{"whitespace and case", "  Summarizer\n", models.DecisionSummarizer, false},
		{"sentence", "I think the analyst should answer", models.DecisionRetriever, true},
		{"unknown label", "lawyer", models.DecisionRetriever, true},
		{"empty reply", "", models.DecisionRetriever, true},
		{"trailing period", "summarizer.", models.DecisionRetriever, true},
		{"double quoted", "\"end\"", models.DecisionRetriever, true},
		{"markdown bold", "**analyst**", models.DecisionRetriever, true},
		{"backticks", "`end`", models.DecisionRetriever, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestHandler(t, replying(tt.reply)).Execute(context.Background(), &Input{Message: "What is Tesla's OTD target?"})
			assert.Equal(t, tt.want, out.Decision)
			assert.Equal(t, tt.fallback, out.Fallback)
			assert.Equal(t, tt.reply, out.RawReply)
		})
	}
}

func TestHandler_Execute_PromptCarriesMessage(t *testing.T) {
	var prompt string
	h := newTestHandler(t, func(_ context.Context, p string) (string, error) {
		prompt = p
		return "retriever", nil
	})

	h.Execute(context.Background(), &Input{Message: "Summarize the Carlsberg contract"})

	require.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "User query: Summarize the Carlsberg contract")
	assert.True(t, strings.HasSuffix(prompt, "Respond with ONLY the agent name (retriever/analyst/summarizer/end)."))
}

func TestHandler_Execute_ModelErrorFallsBack(t *testing.T) {
	calls := 0
	h := newTestHandler(t, func(context.Context, string) (string, error) {
		calls++
		return "", genai.ErrLLMGenerationFailed
	})

	out := h.Execute(context.Background(), &Input{Message: "hello"})
	assert.Equal(t, models.DecisionRetriever, out.Decision)
	assert.True(t, out.Fallback)
	assert.Equal(t, 1, calls, "no retries on the router")
}

func TestHandler_Execute_Timeout(t *testing.T) {
	h := NewHandler(&Config{Timeout: 20 * time.Millisecond}, genai.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", errors.Join(genai.ErrLLMTimeout, ctx.Err())
	}), prompts.Defaults(), nil, logger.NewTestLogger(t))

	out := h.Execute(context.Background(), &Input{Message: "hello"})
	assert.Equal(t, models.DecisionRetriever, out.Decision)
	assert.True(t, out.Fallback)
}

func TestHandler_Route(t *testing.T) {
	assert.Equal(t, models.DecisionEnd, newTestHandler(t, replying("end")).Route(context.Background(), "thanks, that's all"))
}
