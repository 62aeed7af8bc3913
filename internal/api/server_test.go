package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"CryptoChat-Agent/internal/agent"
	"CryptoChat-Agent/internal/quote"
)

type stubAgent struct {
	result *agent.TurnResult
	err    error

	lastSessionID string
	lastMessage   string
}

func (s *stubAgent) ProcessTurn(_ context.Context, sessionID, message string) (*agent.TurnResult, error) {
	s.lastSessionID = sessionID
	s.lastMessage = message
	return s.result, s.err
}

func TestHandleChatSuccess(t *testing.T) {
	ag := &stubAgent{result: &agent.TurnResult{
		SessionID: "s1",
		Intent:    agent.IntentOther,
		Reply:     "你好呀",
	}}
	server := NewServer(":0", ag)

	body := strings.NewReader(`{"session_id":"s1","message":"你好"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "s1" || resp.Reply != "你好呀" || resp.Intent != "OTHER" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if ag.lastMessage != "你好" {
		t.Fatalf("unexpected message passed to agent: %q", ag.lastMessage)
	}
}

func TestHandleChatRejectsEmptyMessage(t *testing.T) {
	server := NewServer(":0", &stubAgent{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"  "}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleChatRequiresAPIKey(t *testing.T) {
	ag := &stubAgent{result: &agent.TurnResult{SessionID: "s1", Intent: agent.IntentOther, Reply: "好"}}
	server := NewServer(":0", ag, WithAPIKey("secret"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"你好"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"你好"}`))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", rec.Code)
	}
}

func TestHandleListQuotes(t *testing.T) {
	store := quote.NewMemoryStore()
	records := []*quote.Record{
		{ID: "r1", SessionID: "s1", Asset: "BTC", Currency: "USD", PreferredSource: "coingecko", Status: quote.StatusResolved, Price: "64000.5", CreatedAt: 100},
		{ID: "r2", SessionID: "s1", Asset: "ETH", Currency: "USD", PreferredSource: "binance", Status: quote.StatusFailed, CreatedAt: 200},
	}
	for _, record := range records {
		if err := store.Create(context.Background(), record); err != nil {
			t.Fatalf("create record: %v", err)
		}
	}
	server := NewServer(":0", &stubAgent{}, WithQuoteStore(store))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes?limit=1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var got []*quote.Record
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("expected the newest record only, got %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := NewServer(":0", &stubAgent{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cryptochat_http_requests_total") {
		t.Fatalf("metrics output missing request counter: %q", rec.Body.String())
	}
}
