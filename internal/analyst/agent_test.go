package analyst

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	pkgretry "analyst-agent/internal/pkg/retry"
)

func testAgent(t *testing.T, localURL string) *Agent {
	t.Helper()
	cfg := config.AIConfig{
		Backend:        "local",
		LocalURL:       localURL,
		LocalModel:     "local-model",
		ProbeTimeout:   2 * time.Second,
		RequestTimeout: 5 * time.Second,
		Temperature:    0.7,
		MaxTokens:      1000,
		Retry:          *pkgretry.DefaultRetryConfig(),
	}
	return New(entity.BackendConfig{Kind: entity.BackendLocal}, cfg, zap.NewNop())
}

func writeTempCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	data := "product,price,sales\nwidget,9.99,120\ngadget,24.50,80\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestContextBeforeIngest(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")
	assert.Equal(t, NoDataLoaded, a.Context())
	assert.Nil(t, a.Current())
}

func TestProcessMissingFile(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")

	result := a.Process(filepath.Join(t.TempDir(), "nope.csv"))

	require.True(t, result.IsFailure())
	assert.Equal(t, entity.FailureFileNotFound, result.Failure.Kind)
	assert.Contains(t, result.Failure.Message, "file not found")

	// A failed ingest leaves the session state untouched.
	assert.Nil(t, a.Current())
	assert.Equal(t, NoDataLoaded, a.Context())
}

func TestProcessFailureKeepsPreviousResult(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")

	good := a.Process(writeTempCSV(t))
	require.False(t, good.IsFailure())

	bad := a.Process(filepath.Join(t.TempDir(), "nope.csv"))
	require.True(t, bad.IsFailure())

	assert.Same(t, good, a.Current())
}

func TestTabularContext(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")
	require.False(t, a.Process(writeTempCSV(t)).IsFailure())

	ctx := a.Context()

	assert.Contains(t, ctx, "Dataset Overview:")
	assert.Contains(t, ctx, "- Rows: 2")
	assert.Contains(t, ctx, "- Columns: 3")
	assert.Contains(t, ctx, "product, price, sales")
	assert.Contains(t, ctx, "Data Types:")
	assert.Contains(t, ctx, "- price: float64")
	assert.Contains(t, ctx, "First 5 rows:")
	assert.Contains(t, ctx, "widget")
	assert.Contains(t, ctx, "Basic Statistics:")
	assert.Contains(t, ctx, "mean")
}

func TestDocumentContext(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly revenue grew strongly"), 0o644))
	require.False(t, a.Process(path).IsFailure())

	ctx := a.Context()

	assert.Contains(t, ctx, "Document Content:")
	assert.Contains(t, ctx, "- Word count: 4")
	assert.Contains(t, ctx, "Content preview:\nquarterly revenue grew strongly...")
}

func TestDocumentContextTruncatesPreview(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")
	path := filepath.Join(t.TempDir(), "long.txt")
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'a'
	}
	require.NoError(t, os.WriteFile(path, long, 0o644))
	require.False(t, a.Process(path).IsFailure())

	ctx := a.Context()
	assert.Less(t, len(ctx), 1200)
}

func TestAnswerQuestionUsesContext(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req entity.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Messages[0].Content
		json.NewEncoder(w).Encode(entity.ChatCompletionResponse{
			Choices: []entity.ChatChoice{
				{Message: entity.ChatMessage{Role: entity.RoleAssistant, Content: "ok"}},
			},
		})
	}))
	defer srv.Close()

	a := testAgent(t, srv.URL)
	require.False(t, a.Process(writeTempCSV(t)).IsFailure())

	answer := a.AnswerQuestion(context.Background(), "what sells best?")

	assert.Equal(t, "ok", answer)
	assert.Contains(t, gotPrompt, "Dataset Overview:")
	assert.Contains(t, gotPrompt, "what sells best?")
}

func TestUpdateBackendResetsHistory(t *testing.T) {
	a := testAgent(t, "http://127.0.0.1:1")

	a.AnswerQuestion(context.Background(), "q1")
	require.Len(t, a.Backend().History(), 2)

	a.UpdateBackend(entity.BackendConfig{Kind: entity.BackendLocal})

	assert.Empty(t, a.Backend().History())
	assert.Equal(t, entity.BackendLocal, a.Backend().Kind())
}
