// Package llm provides a compressor that asks an LLM to extract the
// sentences of each document relevant to the question.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Compressor implements the interfaces.
var (
	_ driven.Compressor       = (*Compressor)(nil)
	_ driven.PromptStoreAware = (*Compressor)(nil)
)

// NoOutput is the reply that marks a document as irrelevant.
const NoOutput = "NO_OUTPUT"

// DefaultMaxTokens caps each extraction.
const DefaultMaxTokens = 512

// defaultExtractPrompt is the fallback prompt when no PromptStore is configured.
const defaultExtractPrompt = `Given the following question and context, extract any part of the context *AS IS* that is relevant to answer the question. If none of the context is relevant return NO_OUTPUT.

Remember, *DO NOT* edit the extracted parts of the context.

> Question: %s
> Context:
>>>
%s
>>>
Extracted relevant parts:`

// Compressor runs one extraction call per document.
type Compressor struct {
	llm         driven.LLMService
	maxTokens   int
	promptStore driven.PromptStore
}

// New creates an LLM extraction compressor.
func New(llm driven.LLMService, maxTokens int) *Compressor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Compressor{llm: llm, maxTokens: maxTokens}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (c *Compressor) SetPromptStore(store driven.PromptStore) {
	c.promptStore = store
}

// Compress keeps the extracted text of each relevant document, in input order.
func (c *Compressor) Compress(ctx context.Context, req driven.CompressRequest) ([]driven.CompressedDocument, error) {
	template := c.loadPrompt()

	var out []driven.CompressedDocument
	for i, doc := range req.Documents {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		extracted, err := c.llm.Generate(ctx, driven.GenerateRequest{
			Prompt:      fmt.Sprintf(template, req.Query, doc.Text),
			MaxTokens:   c.maxTokens,
			Temperature: driven.Temperature(0),
		})
		if err != nil {
			return nil, fmt.Errorf("extract document %d: %w", i, err)
		}

		extracted = strings.TrimSpace(extracted)
		if extracted == "" || extracted == NoOutput {
			logger.Debug("compress: dropped document %d", i)
			continue
		}
		out = append(out, driven.CompressedDocument{Text: extracted})
	}
	return out, nil
}

func (c *Compressor) loadPrompt() string {
	if c.promptStore == nil {
		return defaultExtractPrompt
	}
	prompt, err := c.promptStore.Load(driven.PromptCompressExtract)
	if err != nil {
		return defaultExtractPrompt
	}
	return prompt
}
