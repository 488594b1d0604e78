// Package backend unifies the local and cloud inference providers behind one
// client contract and owns the conversation history.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	pkghttp "analyst-agent/pkg/http"
)

// Client is the capability set every provider variant must implement.
// CheckConnection never raises; AnswerQuestion returns typed errors that the
// backend layer converts to user-facing text.
type Client interface {
	CheckConnection(ctx context.Context) bool
	AnswerQuestion(ctx context.Context, question, dataContext string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

func newProviderConnector(baseURL, token string, cfg config.AIConfig, logger *zap.Logger) *pkghttp.Connector {
	connCfg := &pkghttp.ConnectorConfig{
		Logger:  logger,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}

	return pkghttp.NewConnector(
		connCfg,
		pkghttp.WithRequestTimeout(cfg.RequestTimeout),
		pkghttp.WithConnClientTimeout(cfg.HTTPClientCfg.ConnTimeout),
		pkghttp.WithClientKeepAlive(cfg.HTTPClientCfg.KeepAlive),
		pkghttp.WithIdleConnTimeout(cfg.HTTPClientCfg.IdleConnTimeout),
		pkghttp.WithResponseHeaderTimeout(cfg.HTTPClientCfg.ResponseHeaderTimeout),
		pkghttp.WithRequestLogging(),
		pkghttp.WithAuthToken(token),
	)
}

// classifyTransportError maps connector-level network failures onto the
// error taxonomy. Returns nil for non-transport errors.
func classifyTransportError(err error) error {
	var netErr *pkghttp.NetworkError
	if !errors.As(err, &netErr) {
		return nil
	}
	if netErr.Timeout() {
		return fmt.Errorf("%w: %v", entity.ErrNetworkTimeout, err)
	}
	return fmt.Errorf("%w: %v", entity.ErrNetworkConnection, err)
}

func completionRequest(cfg config.AIConfig, model, prompt string) *entity.ChatCompletionRequest {
	return &entity.ChatCompletionRequest{
		Model: model,
		Messages: []entity.ChatMessage{
			{Role: entity.RoleUser, Content: prompt},
		},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Stream:      false,
	}
}

func contentFromResponse(resp *entity.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion response contains no choices", entity.ErrBackend)
	}
	return resp.Choices[0].Message.Content, nil
}
