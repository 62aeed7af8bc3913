package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xerrors "CryptoChat-Agent/internal/errors"
	"CryptoChat-Agent/internal/llm"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}

func TestCompleteStructuredSuccess(t *testing.T) {
	var captured struct {
		Authorization string
		Body          map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"content": `{"explanation":"用户在问比特币价格","intention":"FIND_CRYPTO_PRICE"}`,
					},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	raw, err := client.CompleteStructured(context.Background(), llm.StructuredRequest{
		System:     "指引",
		User:       "比特币多少钱",
		SchemaName: "intention_result",
		Schema:     json.RawMessage(`{"type":"object"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Intention string `json:"intention"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode structured result: %v", err)
	}
	if decoded.Intention != "FIND_CRYPTO_PRICE" {
		t.Fatalf("unexpected intention: %q", decoded.Intention)
	}

	if !strings.HasPrefix(captured.Authorization, "Bearer ") {
		t.Fatalf("authorization header missing: %q", captured.Authorization)
	}
	if _, ok := captured.Body["response_format"]; !ok {
		t.Fatalf("response_format missing in request body")
	}
}

func TestCompleteStructuredRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "这不是 JSON"}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	_, err = client.CompleteStructured(context.Background(), llm.StructuredRequest{
		SchemaName: "result",
		Schema:     json.RawMessage(`{"type":"object"}`),
	})
	if err == nil {
		t.Fatalf("expected schema conformance error")
	}
	if !xerrors.HasCode(err, xerrors.CodeLLMFailure) {
		t.Fatalf("expected LLM_FAILURE code, got %v", err)
	}
}

func TestCompleteTextHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	if _, err := client.CompleteText(context.Background(), llm.TextRequest{User: "你好"}); err == nil {
		t.Fatalf("expected error when http status is not success")
	}
}
