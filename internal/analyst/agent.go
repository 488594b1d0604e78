// Package analyst orchestrates file ingestion and AI question answering for
// one session: it owns the most recently ingested result and renders the
// bounded context the backend consumes.
package analyst

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"analyst-agent/internal/backend"
	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	"analyst-agent/internal/ingest"
)

// Agent holds the session state: the current ingest result and the active
// AI backend. Instances are single-writer; the hosting layer isolates one
// agent per user session.
type Agent struct {
	processor *ingest.Processor
	backend   *backend.Backend
	aiCfg     config.AIConfig
	logger    *zap.Logger

	// current is the last successful ingest result; failed ingests never
	// replace it.
	current *entity.IngestResult
}

func New(bcfg entity.BackendConfig, aiCfg config.AIConfig, logger *zap.Logger) *Agent {
	return &Agent{
		processor: ingest.NewProcessor(logger),
		backend:   backend.New(bcfg, aiCfg, logger),
		aiCfg:     aiCfg,
		logger:    logger,
	}
}

// Process ingests the file at path. A path that does not resolve to an
// existing file fails fast without invoking the processor. On success the
// session state is replaced wholesale; on failure it is untouched.
func (a *Agent) Process(path string) *entity.IngestResult {
	if _, err := os.Stat(path); err != nil {
		return entity.NewFailureResult(entity.FailureFileNotFound,
			fmt.Sprintf("file not found: %s", path))
	}

	result := a.processor.Ingest(path)
	if !result.IsFailure() {
		a.current = result
	}
	return result
}

// Current returns the session's ingest result, nil before the first
// successful ingest.
func (a *Agent) Current() *entity.IngestResult {
	return a.current
}

// AnswerQuestion renders the current context and asks the backend. Always
// returns text.
func (a *Agent) AnswerQuestion(ctx context.Context, question string) string {
	return a.backend.AnswerQuestion(ctx, question, a.Context())
}

// Backend exposes the active backend for history and probe operations.
func (a *Agent) Backend() *backend.Backend {
	return a.backend
}

// UpdateBackend rebuilds the AI backend from cfg. The new backend starts
// with an empty conversation history; callers wanting continuity must read
// History() before swapping.
func (a *Agent) UpdateBackend(cfg entity.BackendConfig) {
	a.backend = backend.New(cfg, a.aiCfg, a.logger)
}
