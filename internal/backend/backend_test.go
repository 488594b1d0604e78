package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	pkgretry "analyst-agent/internal/pkg/retry"
	pkghttp "analyst-agent/pkg/http"
)

func testAIConfig(localURL string) config.AIConfig {
	return config.AIConfig{
		Backend:        "local",
		LocalURL:       localURL,
		LocalModel:     "local-model",
		CloudURL:       localURL,
		CloudModel:     "meta-llama/Llama-2-70b-chat-hf",
		ProbeTimeout:   2 * time.Second,
		RequestTimeout: 5 * time.Second,
		Temperature:    0.7,
		MaxTokens:      1000,
		Retry: pkgretry.RetryConfig{
			Attempts: 2,
			Delay:    time.Millisecond,
			MaxDelay: 5 * time.Millisecond,
		},
	}
}

// newModelServer serves the OpenAI-compatible endpoints used by both
// provider clients and records the last completion request.
func newModelServer(t *testing.T, answer string) (*httptest.Server, *entity.ChatCompletionRequest) {
	t.Helper()
	lastReq := &entity.ChatCompletionRequest{}

	mux := http.NewServeMux()
	modelsHandler := func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(entity.ModelsResponse{
			Data: []entity.ModelInfo{{ID: "local-model"}},
		})
	}
	chatHandler := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		json.NewEncoder(w).Encode(entity.ChatCompletionResponse{
			Choices: []entity.ChatChoice{
				{Message: entity.ChatMessage{Role: entity.RoleAssistant, Content: answer}},
			},
		})
	}
	mux.HandleFunc("/v1/models", modelsHandler)
	mux.HandleFunc("/models", modelsHandler)
	mux.HandleFunc("/v1/chat/completions", chatHandler)
	mux.HandleFunc("/chat/completions", chatHandler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, lastReq
}

func TestAnswerQuestionAppendsHistory(t *testing.T) {
	srv, lastReq := newModelServer(t, "Revenue is trending up.")
	b := New(entity.BackendConfig{Kind: entity.BackendLocal}, testAIConfig(srv.URL), zap.NewNop())

	answer := b.AnswerQuestion(context.Background(), "What is the trend?", "Dataset Overview: 3 rows")

	assert.Equal(t, "Revenue is trending up.", answer)

	history := b.History()
	require.Len(t, history, 2)
	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, "What is the trend?", history[0].Content)
	assert.Equal(t, entity.RoleAssistant, history[1].Role)
	assert.Equal(t, "Revenue is trending up.", history[1].Content)

	// The prompt carries the data context and the question.
	require.Len(t, lastReq.Messages, 1)
	prompt := lastReq.Messages[0].Content
	assert.Contains(t, prompt, "Data Context:")
	assert.Contains(t, prompt, "Dataset Overview: 3 rows")
	assert.Contains(t, prompt, "What is the trend?")
	assert.Equal(t, "local-model", lastReq.Model)
	assert.Equal(t, 0.7, lastReq.Temperature)
	assert.Equal(t, 1000, lastReq.MaxTokens)
	assert.False(t, lastReq.Stream)
}

func TestAnswerQuestionWithoutContext(t *testing.T) {
	srv, lastReq := newModelServer(t, "Sure.")
	b := New(entity.BackendConfig{Kind: entity.BackendLocal}, testAIConfig(srv.URL), zap.NewNop())

	b.AnswerQuestion(context.Background(), "Hello?", "")

	prompt := lastReq.Messages[0].Content
	assert.NotContains(t, prompt, "Data Context:")
	assert.Contains(t, prompt, "Hello?")
}

func TestAnswerQuestionConnectionFailure(t *testing.T) {
	// A port nothing listens on; connection refused, not a timeout.
	b := New(entity.BackendConfig{Kind: entity.BackendLocal},
		testAIConfig("http://127.0.0.1:1"), zap.NewNop())

	answer := b.AnswerQuestion(context.Background(), "anyone there?", "")

	assert.Contains(t, answer, "cannot connect to the AI provider")

	// Failed turns are recorded like successful ones.
	history := b.History()
	require.Len(t, history, 2)
	assert.Equal(t, answer, history[1].Content)
}

func TestAnswerQuestionTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := testAIConfig(srv.URL)
	cfg.RequestTimeout = 50 * time.Millisecond

	b := New(entity.BackendConfig{Kind: entity.BackendLocal}, cfg, zap.NewNop())
	answer := b.AnswerQuestion(context.Background(), "slow question", "")

	assert.Contains(t, answer, "timed out")

	history := b.History()
	require.Len(t, history, 2)
	assert.Equal(t, answer, history[1].Content)
}

func TestClassifyTransportError(t *testing.T) {
	timeout := classifyTransportError(&pkghttp.NetworkError{Err: context.DeadlineExceeded})
	assert.ErrorIs(t, timeout, entity.ErrNetworkTimeout)

	refused := classifyTransportError(&pkghttp.NetworkError{Err: errors.New("connection refused")})
	assert.ErrorIs(t, refused, entity.ErrNetworkConnection)

	assert.Nil(t, classifyTransportError(errors.New("not a transport error")))
}

func TestCheckConnection(t *testing.T) {
	srv, _ := newModelServer(t, "")
	cfg := testAIConfig(srv.URL)

	up := New(entity.BackendConfig{Kind: entity.BackendLocal}, cfg, zap.NewNop())
	assert.True(t, up.CheckConnection(context.Background()))

	cfg.LocalURL = "http://127.0.0.1:1"
	down := New(entity.BackendConfig{Kind: entity.BackendLocal}, cfg, zap.NewNop())
	assert.False(t, down.CheckConnection(context.Background()))
}

func TestListModels(t *testing.T) {
	srv, _ := newModelServer(t, "")
	b := New(entity.BackendConfig{Kind: entity.BackendLocal}, testAIConfig(srv.URL), zap.NewNop())

	models, err := b.ListModels(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"local-model"}, models)
}

func TestCloudWithoutKeyFallsBackToLocal(t *testing.T) {
	b := New(entity.BackendConfig{Kind: entity.BackendCloud},
		testAIConfig("http://127.0.0.1:1"), zap.NewNop())

	assert.Equal(t, entity.BackendLocal, b.Kind())
}

func TestCloudWithKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(entity.ChatCompletionResponse{
			Choices: []entity.ChatChoice{
				{Message: entity.ChatMessage{Role: entity.RoleAssistant, Content: "cloud answer"}},
			},
		})
	}))
	defer srv.Close()

	b := New(entity.BackendConfig{Kind: entity.BackendCloud, APIKey: "sk-test"},
		testAIConfig(srv.URL), zap.NewNop())

	require.Equal(t, entity.BackendCloud, b.Kind())
	answer := b.AnswerQuestion(context.Background(), "q", "")
	assert.Equal(t, "cloud answer", answer)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestCloudAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := New(entity.BackendConfig{Kind: entity.BackendCloud, APIKey: "sk-bad"},
		testAIConfig(srv.URL), zap.NewNop())

	answer := b.AnswerQuestion(context.Background(), "q", "")
	assert.Contains(t, answer, "authentication failed")
}

func TestCloudContentSafetyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"content_filter"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	b := New(entity.BackendConfig{Kind: entity.BackendCloud, APIKey: "sk-test"},
		testAIConfig(srv.URL), zap.NewNop())

	answer := b.AnswerQuestion(context.Background(), "q", "")
	assert.Contains(t, answer, "content safety policy")
}

func TestEmptyChoicesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(entity.ChatCompletionResponse{})
	}))
	defer srv.Close()

	b := New(entity.BackendConfig{Kind: entity.BackendLocal}, testAIConfig(srv.URL), zap.NewNop())

	answer := b.AnswerQuestion(context.Background(), "q", "")
	assert.True(t, strings.HasPrefix(answer, "Error generating response:"), answer)
}

func TestClearHistoryAndSummary(t *testing.T) {
	srv, _ := newModelServer(t, "fine")
	b := New(entity.BackendConfig{Kind: entity.BackendLocal}, testAIConfig(srv.URL), zap.NewNop())

	assert.Equal(t, noHistorySummary, b.HistorySummary())

	b.AnswerQuestion(context.Background(), "first", "")
	b.AnswerQuestion(context.Background(), "second", "")

	summary := b.HistorySummary()
	assert.Contains(t, summary, "Total questions asked: 2")
	assert.Contains(t, summary, "Total responses given: 2")
	assert.Contains(t, summary, "Conversation started:")

	b.ClearHistory()
	assert.Empty(t, b.History())
	assert.Equal(t, noHistorySummary, b.HistorySummary())
}

func TestBuildPrompt(t *testing.T) {
	withContext := buildPrompt("why?", "some data")
	assert.Contains(t, withContext, "professional data analyst")
	assert.Contains(t, withContext, "some data")
	assert.Contains(t, withContext, "User Question: why?")
	assert.Contains(t, withContext, "Actionable recommendations")

	generic := buildPrompt("why?", "")
	assert.Contains(t, generic, "professional data analyst")
	assert.NotContains(t, generic, "Data Context:")
}
