package services

import (
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Fallback prompts used when no PromptStore is configured.
const (
	defaultRewritePrompt = `Rewrite the following question into a concise search query for a document index.
Return ONLY the rewritten query, nothing else.

Question: %s
Query:`

	defaultAnswerPrompt = "Use the context below to answer the user query.\n\nContext:\n%s\n\nQuestion:\n%s"

	defaultAnswerSystem = `You answer questions using only the provided context from the user's documents.
If the context does not contain the answer, say that you don't know.`
)

// loadPrompt returns the named prompt from store, or fallback when the
// store is nil, fails or holds a template with the wrong number of %s verbs.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil {
		logger.Debug("Failed to load prompt %q, using default: %v", name, err)
		return fallback
	}
	if strings.Count(prompt, "%s") != strings.Count(fallback, "%s") {
		logger.Warn("Prompt %q has unexpected placeholders, using default", name)
		return fallback
	}
	return prompt
}
