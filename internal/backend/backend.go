package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
)

const (
	genericAnswerError = "Error getting AI response"
	noHistorySummary   = "No conversation history available."
)

// Backend owns one provider client and the conversation history. It never
// fails to construct: a broken cloud configuration downgrades to local.
type Backend struct {
	kind    entity.BackendKind
	client  Client
	history []entity.ConversationEntry
	logger  *zap.Logger
}

// New selects and constructs the provider client. A cloud request without a
// credential, an unrecognized kind, or a cloud construction failure all
// yield a local backend; the downgrade is observable only through the
// logged warning and Kind(). History starts empty on every construction.
func New(cfg entity.BackendConfig, aiCfg config.AIConfig, logger *zap.Logger) *Backend {
	kind := cfg.Kind
	var client Client

	switch {
	case kind == entity.BackendCloud && cfg.APIKey != "":
		cloud, err := NewCloudClient(cfg.APIKey, aiCfg, logger)
		if err != nil {
			logger.Warn("failed to initialize cloud backend, falling back to local", zap.Error(err))
			kind = entity.BackendLocal
			client = NewLocalClient(aiCfg, logger)
		} else {
			client = cloud
		}
	case kind == entity.BackendCloud:
		logger.Warn("cloud backend requested without credential, falling back to local")
		kind = entity.BackendLocal
		client = NewLocalClient(aiCfg, logger)
	default:
		kind = entity.BackendLocal
		client = NewLocalClient(aiCfg, logger)
	}

	return &Backend{
		kind:   kind,
		client: client,
		logger: logger,
	}
}

// Kind reports the effective backend kind after any fallback.
func (b *Backend) Kind() entity.BackendKind {
	return b.kind
}

// CheckConnection probes the active provider.
func (b *Backend) CheckConnection(ctx context.Context) bool {
	return b.client.CheckConnection(ctx)
}

// ListModels lists the models the active provider advertises.
func (b *Backend) ListModels(ctx context.Context) ([]string, error) {
	return b.client.ListModels(ctx)
}

// AnswerQuestion delegates to the active client and always returns text;
// client errors are converted to a user-facing message here, exactly once.
// Every call appends one user and one assistant entry to the history,
// including error outcomes.
func (b *Backend) AnswerQuestion(ctx context.Context, question, dataContext string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while answering question", zap.Any("panic", r))
			answer = genericAnswerError
			b.appendTurn(question, answer)
		}
	}()

	text, err := b.client.AnswerQuestion(ctx, question, dataContext)
	if err != nil {
		b.logger.Warn("question answering failed", zap.Error(err))
		text = messageForError(err)
	}

	b.appendTurn(question, text)
	return text
}

func (b *Backend) appendTurn(question, answer string) {
	now := time.Now()
	b.history = append(b.history,
		entity.ConversationEntry{Role: entity.RoleUser, Content: question, Timestamp: now},
		entity.ConversationEntry{Role: entity.RoleAssistant, Content: answer, Timestamp: now},
	)
}

// History returns a copy of the conversation history in creation order.
func (b *Backend) History() []entity.ConversationEntry {
	out := make([]entity.ConversationEntry, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory truncates the history; idempotent.
func (b *Backend) ClearHistory() {
	b.history = nil
}

// HistorySummary reports entry counts and the first/last activity times, or
// a fixed sentinel when the history is empty.
func (b *Backend) HistorySummary() string {
	if len(b.history) == 0 {
		return noHistorySummary
	}

	var questions, answers int
	for _, e := range b.history {
		switch e.Role {
		case entity.RoleUser:
			questions++
		case entity.RoleAssistant:
			answers++
		}
	}

	return fmt.Sprintf("Conversation Summary:\n"+
		"- Total questions asked: %d\n"+
		"- Total responses given: %d\n"+
		"- Conversation started: %s\n"+
		"- Last activity: %s",
		questions,
		answers,
		b.history[0].Timestamp.Format(time.RFC3339),
		b.history[len(b.history)-1].Timestamp.Format(time.RFC3339),
	)
}

func messageForError(err error) string {
	switch {
	case errors.Is(err, entity.ErrNetworkConnection):
		return "Error: cannot connect to the AI provider. Please ensure the provider is running and reachable."
	case errors.Is(err, entity.ErrNetworkTimeout):
		return "Error: request timed out. Please try again."
	case errors.Is(err, entity.ErrAuthentication):
		return "Error: authentication failed. The configured API key is invalid."
	case errors.Is(err, entity.ErrContentSafety):
		return "Error: the request was blocked by the provider's content safety policy."
	default:
		return fmt.Sprintf("Error generating response: %v", err)
	}
}
