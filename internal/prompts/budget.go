package prompts

import (
	"fmt"

	"contract-qa/internal/models"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the subset of an encoding used for budgeting.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int   { return t.enc.Encode(text, nil, nil) }
func (t tiktokenTokenizer) Decode(tokens []int) string { return t.enc.Decode(tokens) }

// Budget caps the context handed to the model. A Budget with MaxTokens <= 0
// passes everything through.
type Budget struct {
	MaxTokens int
	tokenizer Tokenizer
}

// NewBudget loads the named tiktoken encoding. The encoding is only loaded
// when a limit is set.
func NewBudget(encoding string, maxTokens int) (*Budget, error) {
	if maxTokens <= 0 {
		return &Budget{}, nil
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Budget{MaxTokens: maxTokens, tokenizer: tiktokenTokenizer{enc: enc}}, nil
}

func NewBudgetWithTokenizer(t Tokenizer, maxTokens int) *Budget {
	return &Budget{MaxTokens: maxTokens, tokenizer: t}
}

func (b *Budget) enabled() bool {
	return b != nil && b.MaxTokens > 0 && b.tokenizer != nil
}

func (b *Budget) Count(text string) int {
	if !b.enabled() {
		return 0
	}
	return len(b.tokenizer.Encode(text))
}

// Truncate cuts text to the token limit.
func (b *Budget) Truncate(text string) string {
	if !b.enabled() {
		return text
	}
	tokens := b.tokenizer.Encode(text)
	if len(tokens) <= b.MaxTokens {
		return text
	}
	return b.tokenizer.Decode(tokens[:b.MaxTokens])
}

// Fit keeps the longest prefix of ranked passages whose rendering stays
// within the limit. The top passage is always kept so a non-empty retrieval
// never renders as empty. The input is not modified.
func (b *Budget) Fit(r *models.Retrieval) *models.Retrieval {
	if !b.enabled() || !r.HasEvidence() {
		return r
	}
	out := *r
	out.Passages = nil
	used := 0
	for i, p := range r.Passages {
		cost := b.Count(p.Render())
		if i > 0 && used+cost > b.MaxTokens {
			break
		}
		used += cost
		out.Passages = append(out.Passages, p)
	}
	return &out
}
