package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCreateChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("неожиданный заголовок авторизации %q", got)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "gemini-1.5-flash" || len(req.Messages) != 1 {
			t.Errorf("неожиданный запрос %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" [] "}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL+"/", time.Second)
	resp, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:    "gemini-1.5-flash",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	content, err := resp.Content()
	if err != nil || content != "[]" {
		t.Fatalf("ожидали [] без ошибки, получили %q %v", content, err)
	}
}

func TestCreateChatCompletionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`[{"error":{"code":429,"message":"Resource has been exhausted"}}]`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, time.Second)
	_, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "Resource has been exhausted") {
		t.Fatalf("ожидали текст ошибки API, получили %v", err)
	}
}

func TestCreateChatCompletionRequiresKey(t *testing.T) {
	c := NewClient("", "http://127.0.0.1:0", time.Second)
	if _, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{}); err == nil {
		t.Fatal("ожидали ошибку без ключа")
	}
}

func TestContentEmpty(t *testing.T) {
	if _, err := (ChatCompletionResponse{}).Content(); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("ожидали ErrEmptyReply, получили %v", err)
	}
	resp := ChatCompletionResponse{Choices: []ChatCompletionChoice{{FinishReason: "content_filter"}}}
	if _, err := resp.Content(); err == nil || errors.Is(err, ErrEmptyReply) {
		t.Fatalf("ожидали ошибку фильтра, получили %v", err)
	}
}
