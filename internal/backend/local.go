package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	pkghttp "analyst-agent/pkg/http"
)

const (
	localModelsEndpoint = "/v1/models"
	localChatEndpoint   = "/v1/chat/completions"
)

// LocalClient talks to a local OpenAI-compatible model server (LM Studio,
// Ollama and the like). No credential is required.
type LocalClient struct {
	cfg       config.AIConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewLocalClient(cfg config.AIConfig, logger *zap.Logger) *LocalClient {
	return &LocalClient{
		cfg:       cfg,
		connector: newProviderConnector(cfg.LocalURL, "", cfg, logger),
		logger:    logger,
	}
}

// CheckConnection probes the models endpoint within the short probe timeout.
// Any failure converts to false.
func (c *LocalClient) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()
	return c.connector.Get(ctx, localModelsEndpoint, nil) == nil
}

func (c *LocalClient) ListModels(ctx context.Context) ([]string, error) {
	var resp entity.ModelsResponse
	opts := append(c.cfg.Retry.ToRetryOptions(), retry.Context(ctx))
	err := retry.Do(func() error {
		return c.connector.Get(ctx, localModelsEndpoint, &resp)
	}, opts...)
	if err != nil {
		return nil, c.classifyError(err)
	}

	models := make([]string, len(resp.Data))
	for i, m := range resp.Data {
		models[i] = m.ID
	}
	return models, nil
}

func (c *LocalClient) AnswerQuestion(ctx context.Context, question, dataContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req := completionRequest(c.cfg, c.cfg.LocalModel, buildPrompt(question, dataContext))

	var resp entity.ChatCompletionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, localChatEndpoint, req, &resp); err != nil {
		return "", c.classifyError(err)
	}
	return contentFromResponse(&resp)
}

func (c *LocalClient) classifyError(err error) error {
	if classified := classifyTransportError(err); classified != nil {
		return classified
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%w: HTTP %d: %s", entity.ErrBackend, httpErr.StatusCode, httpErr.Message)
	}
	return fmt.Errorf("%w: %v", entity.ErrBackend, err)
}
