// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingest path is Ingestor; the question path is Searcher, then
// ContextPipeline, composed by AnswerOrchestrator. Every call that leaves
// the process goes through a driven.StageGuard so deadlines, rate limits
// and retries are applied in one place.
package services
