package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	"analyst-agent/internal/export"
	"analyst-agent/internal/pkg/logger"
	"analyst-agent/internal/pkg/response"
	"analyst-agent/internal/pkg/validator"
	"analyst-agent/internal/session"
)

type Handler struct {
	store          SessionStore
	validator      *validator.Validator
	uploadCfg      config.FileUploadConfig
	defaultBackend entity.BackendConfig
	exportFactory  *export.Factory
}

func NewHandler(
	store SessionStore,
	validator *validator.Validator,
	uploadCfg config.FileUploadConfig,
	defaultBackend entity.BackendConfig,
) *Handler {
	return &Handler{
		store:          store,
		validator:      validator,
		uploadCfg:      uploadCfg,
		defaultBackend: defaultBackend,
		exportFactory:  export.NewFactory(),
	}
}

// CreateSession handles POST /api/v1/sessions - start an analyst session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateSession")

	bcfg := h.defaultBackend
	if r.Body != nil && r.ContentLength != 0 {
		var req entity.CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
			response.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Backend != nil {
			bcfg = *req.Backend
		}
	}

	s := h.store.Create(bcfg)

	s.Mu.Lock()
	dto := toSessionDTO(s)
	s.Mu.Unlock()

	ctxzap.Info(ctx, "session created", zap.String("session_id", s.ID))
	response.Created(w, dto)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "GetSession")
	if !ok {
		return
	}

	s.Mu.Lock()
	dto := toSessionDTO(s)
	s.Mu.Unlock()

	ctxzap.Debug(ctx, "session fetched")
	response.Success(w, dto)
}

// DeleteSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "DeleteSession")
	id := chi.URLParam(r, "id")

	h.store.Delete(id)

	ctxzap.Info(ctx, "session deleted", zap.String("session_id", id))
	response.NoContent(w)
}

// UploadFile handles POST /api/v1/sessions/{id}/files - ingest one file
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "UploadFile")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.uploadCfg.MaxUploadSize); err != nil {
		ctxzap.Error(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ctxzap.Error(ctx, "missing file field", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header); err != nil {
		ctxzap.Error(ctx, "upload validation failed", zap.Error(err))
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	// The processor dispatches on extension, so the staged copy keeps the
	// uploaded filename.
	path, cleanup, err := stageUpload(file, header.Filename)
	if err != nil {
		ctxzap.Error(ctx, "failed to stage upload", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to store uploaded file")
		return
	}
	defer cleanup()

	s.Mu.Lock()
	result := s.Agent.Process(path)
	s.Mu.Unlock()

	if result.IsFailure() {
		ctxzap.Warn(ctx, "ingestion failed",
			zap.String("kind", string(result.Failure.Kind)),
			zap.String("message", result.Failure.Message),
		)
		response.JSON(w, http.StatusUnprocessableEntity, toResultDTO(result))
		return
	}

	ctxzap.Info(ctx, "file ingested", zap.String("result", string(result.Type)))
	response.Success(w, toResultDTO(result))
}

// AskQuestion handles POST /api/v1/sessions/{id}/questions
func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "AskQuestion")
	if !ok {
		return
	}

	var req entity.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		response.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	s.Mu.Lock()
	answer := s.Agent.AnswerQuestion(ctx, req.Question)
	s.Mu.Unlock()

	ctxzap.Info(ctx, "question answered", zap.Int("answer_length", len(answer)))
	response.Success(w, entity.AskResponse{Answer: answer})
}

// GetContext handles GET /api/v1/sessions/{id}/context
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.session(w, r, "GetContext")
	if !ok {
		return
	}

	s.Mu.Lock()
	dataContext := s.Agent.Context()
	s.Mu.Unlock()

	response.Success(w, entity.ContextResponse{Context: dataContext})
}

// GetHistory handles GET /api/v1/sessions/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.session(w, r, "GetHistory")
	if !ok {
		return
	}

	s.Mu.Lock()
	entries := s.Agent.Backend().History()
	s.Mu.Unlock()

	response.Success(w, entity.HistoryResponse{Entries: entries})
}

// ClearHistory handles DELETE /api/v1/sessions/{id}/history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "ClearHistory")
	if !ok {
		return
	}

	s.Mu.Lock()
	s.Agent.Backend().ClearHistory()
	s.Mu.Unlock()

	ctxzap.Info(ctx, "history cleared")
	response.NoContent(w)
}

// GetHistorySummary handles GET /api/v1/sessions/{id}/history/summary
func (h *Handler) GetHistorySummary(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.session(w, r, "GetHistorySummary")
	if !ok {
		return
	}

	s.Mu.Lock()
	summary := s.Agent.Backend().HistorySummary()
	s.Mu.Unlock()

	response.Success(w, entity.HistorySummaryResponse{Summary: summary})
}

// GetBackend handles GET /api/v1/sessions/{id}/backend - probe the provider
func (h *Handler) GetBackend(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "GetBackend")
	if !ok {
		return
	}

	s.Mu.Lock()
	b := s.Agent.Backend()
	kind := b.Kind()
	reachable := b.CheckConnection(ctx)
	var models []string
	if reachable {
		if listed, err := b.ListModels(ctx); err == nil {
			models = listed
		}
	}
	s.Mu.Unlock()

	response.Success(w, map[string]any{
		"kind":      kind,
		"reachable": reachable,
		"models":    models,
	})
}

// UpdateBackend handles PUT /api/v1/sessions/{id}/backend - swap providers
func (h *Handler) UpdateBackend(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "UpdateBackend")
	if !ok {
		return
	}

	var req entity.BackendConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind != entity.BackendLocal && req.Kind != entity.BackendCloud {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown backend kind: %s", req.Kind))
		return
	}

	s.Mu.Lock()
	s.Agent.UpdateBackend(req)
	dto := toSessionDTO(s)
	s.Mu.Unlock()

	ctxzap.Info(ctx, "backend updated", zap.String("kind", string(dto.BackendKind)))
	response.Success(w, dto)
}

// ExportTranscript handles GET /api/v1/sessions/{id}/export?format=...
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "ExportTranscript")
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	formatter, err := h.exportFactory.Create(format)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Mu.Lock()
	transcript := export.BuildTranscript(s.Agent.Context(), s.Agent.Backend().History())
	s.Mu.Unlock()

	data, err := formatter.Format(transcript)
	if err != nil {
		ctxzap.Error(ctx, "failed to render export", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	w.Header().Set("Content-Type", formatter.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=transcript%s", formatter.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// session resolves the {id} route parameter, attaching session fields to the
// request logger. Writes the error response itself when the session is gone.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, action string) (context.Context, *session.Session, bool) {
	id := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", id),
		zap.String("action", action),
	)

	s, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, entity.ErrSessionNotFound) {
			response.Error(w, http.StatusNotFound, "session not found")
		} else {
			ctxzap.Error(ctx, "failed to fetch session", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "internal error")
		}
		return ctx, nil, false
	}
	return ctx, s, true
}

// stageUpload copies the uploaded file into a private temp directory under
// its original (sanitized) name and returns the path plus a cleanup func.
func stageUpload(file io.Reader, filename string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "analyst-upload-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, validator.SanitizeFilename(filename))
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
