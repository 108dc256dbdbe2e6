package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aegis-intel/internal/infra/metrics"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ErrEmptyReply возвращается, если модель не прислала ни одного варианта ответа.
var ErrEmptyReply = errors.New("openai: пустой ответ")

// Client выполняет Chat Completions запросы к OpenAI-совместимому API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// Option настраивает клиента.
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиент.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient создаёт клиента. Пустой baseURL означает api.openai.com.
func NewClient(apiKey, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{http: &http.Client{Timeout: timeout + 5*time.Second}, baseURL: baseURL, apiKey: apiKey}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatCompletionRequest описывает тело запроса.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage представляет сообщение в диалоге.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	// RoleSystem системная инструкция.
	RoleSystem = "system"
	// RoleUser сообщение пользователя.
	RoleUser = "user"
)

// ChatCompletionResponse описывает ответ модели.
type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   *ChatCompletionUsage   `json:"usage,omitempty"`
}

// ChatCompletionChoice содержит сообщение модели.
type ChatCompletionChoice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// ChatCompletionUsage описывает статистику использования токенов.
type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content возвращает текст первого варианта ответа.
func (r ChatCompletionResponse) Content() (string, error) {
	if len(r.Choices) == 0 {
		return "", ErrEmptyReply
	}
	content := strings.TrimSpace(r.Choices[0].Message.Content)
	if content == "" {
		if reason := r.Choices[0].FinishReason; reason != "" && reason != "stop" {
			return "", fmt.Errorf("openai: ответ прерван (%s)", reason)
		}
		return "", ErrEmptyReply
	}
	return content, nil
}

// CreateChatCompletion вызывает /chat/completions.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	if c.apiKey == "" {
		return ChatCompletionResponse{}, fmt.Errorf("openai: api key is empty")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("openai: marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return ChatCompletionResponse{}, fmt.Errorf("openai: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return ChatCompletionResponse{}, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = decodeAPIError(resp.StatusCode, respBody)
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return ChatCompletionResponse{}, err
	}
	var completion ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return ChatCompletionResponse{}, fmt.Errorf("openai: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, nil)
	if completion.Usage != nil {
		metrics.ObserveLLMGeneration(req.Model, time.Since(start), completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	}
	return completion, nil
}

// Gemini возвращает ошибку массивом объектов, OpenAI одним объектом.
func decodeAPIError(status int, body []byte) error {
	var single apiErrorResponse
	if err := json.Unmarshal(body, &single); err == nil && single.Error.Message != "" {
		return fmt.Errorf("openai: status %d: %s", status, single.Error.Message)
	}
	var list []apiErrorResponse
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].Error.Message != "" {
		return fmt.Errorf("openai: status %d: %s", status, list[0].Error.Message)
	}
	return fmt.Errorf("openai: unexpected status %d", status)
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
