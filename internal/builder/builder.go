package builder

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"analyst-agent/internal/api"
	analystapi "analyst-agent/internal/api/analyst"
	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	"analyst-agent/internal/pkg/validator"
	"analyst-agent/internal/session"
)

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
		zap.String("default_backend", string(cfg.AICfg.Backend)),
	)

	// Initialize session registry
	registry := session.NewRegistry(cfg.SessionTTL, cfg.AICfg, logger)
	logger.Info("Session registry initialized", zap.Duration("ttl", cfg.SessionTTL))

	// Initialize validators
	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	logger.Info("Validators initialized")

	// Setup API handlers
	defaultBackend := entity.BackendConfig{
		Kind:   entity.BackendKind(strings.ToLower(cfg.AICfg.Backend)),
		APIKey: cfg.AICfg.APIKey,
	}
	analystHandler := analystapi.NewHandler(registry, fileValidator, cfg.FileUploadCfg, defaultBackend)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(analystHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. Write timeout sits above the completion request
	// bound so slow model answers are not cut off by the server.
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AICfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		logger: logger,
	}, nil
}
