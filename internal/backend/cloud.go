package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	pkghttp "analyst-agent/pkg/http"
)

const (
	cloudModelsEndpoint = "/models"
	cloudChatEndpoint   = "/chat/completions"
)

// CloudClient talks to a hosted OpenAI-compatible service authenticated with
// a Bearer credential.
type CloudClient struct {
	cfg       config.AIConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

// NewCloudClient fails when no credential is supplied; the caller is
// expected to fall back to the local client.
func NewCloudClient(apiKey string, cfg config.AIConfig, logger *zap.Logger) (*CloudClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required for cloud AI services", entity.ErrMissingField)
	}
	return &CloudClient{
		cfg:       cfg,
		connector: newProviderConnector(cfg.CloudURL, apiKey, cfg, logger),
		logger:    logger,
	}, nil
}

func (c *CloudClient) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()
	return c.connector.Get(ctx, cloudModelsEndpoint, nil) == nil
}

func (c *CloudClient) ListModels(ctx context.Context) ([]string, error) {
	var resp entity.ModelsResponse
	opts := append(c.cfg.Retry.ToRetryOptions(), retry.Context(ctx))
	err := retry.Do(func() error {
		return c.connector.Get(ctx, cloudModelsEndpoint, &resp)
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

func (c *CloudClient) AnswerQuestion(ctx context.Context, question, dataContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req := completionRequest(c.cfg, c.cfg.CloudModel, buildPrompt(question, dataContext))

	var resp entity.ChatCompletionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, cloudChatEndpoint, req, &resp); err != nil {
		return "", c.classifyError(err)
	}
	return contentFromResponse(&resp)
}

func (c *CloudClient) classifyError(err error) error {
	if classified := classifyTransportError(err); classified != nil {
		return classified
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: HTTP %d", entity.ErrAuthentication, httpErr.StatusCode)
		case isContentSafetyResponse(httpErr):
			return fmt.Errorf("%w: HTTP %d", entity.ErrContentSafety, httpErr.StatusCode)
		default:
			return fmt.Errorf("%w: HTTP %d: %s", entity.ErrBackend, httpErr.StatusCode, httpErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", entity.ErrBackend, err)
}

// isContentSafetyResponse detects moderation rejections, which hosted
// providers report inconsistently: some use 451, others a 4xx body naming
// the content filter.
func isContentSafetyResponse(httpErr *pkghttp.HTTPError) bool {
	if httpErr.StatusCode == http.StatusUnavailableForLegalReasons {
		return true
	}
	if httpErr.StatusCode < 400 || httpErr.StatusCode >= 500 {
		return false
	}
	body := strings.ToLower(httpErr.Message)
	return strings.Contains(body, "content_filter") ||
		strings.Contains(body, "content management policy") ||
		strings.Contains(body, "safety")
}
