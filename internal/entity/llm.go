package entity

// ChatMessage is one message of a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the provider wire body for a single-turn
// completion. Both providers share the OpenAI-compatible shape.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

type ChatCompletionResponse struct {
	Choices []ChatChoice `json:"choices"`
}

// ModelInfo is one entry of the models listing used as the connection probe.
type ModelInfo struct {
	ID string `json:"id"`
}

type ModelsResponse struct {
	Data []ModelInfo `json:"data"`
}
