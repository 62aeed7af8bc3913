package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"CryptoChat-Agent/internal/agent"
	xerrors "CryptoChat-Agent/internal/errors"
	"CryptoChat-Agent/internal/observability/metrics"
	"CryptoChat-Agent/internal/quote"
)

// ChatAgent 定义服务层所需的对话编排能力。
type ChatAgent interface {
	ProcessTurn(ctx context.Context, sessionID, message string) (*agent.TurnResult, error)
}

// Server 负责暴露 REST 接口，供外部驱动对话。
type Server struct {
	addr       string
	apiKey     string
	agent      ChatAgent
	quoteStore quote.Store
}

// ServerOption 定义可选的服务配置。
type ServerOption func(*Server)

// WithAPIKey 开启简单的 X-API-Key 鉴权。
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithQuoteStore 暴露行情审计记录的查询接口。
func WithQuoteStore(store quote.Store) ServerOption {
	return func(s *Server) {
		s.quoteStore = store
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, ag ChatAgent, opts ...ServerOption) *Server {
	s := &Server{addr: addr, agent: ag}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler 返回完整的路由，方便测试直接挂载。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/v1/chat", s.instrument("chat", s.requireAPIKey(http.HandlerFunc(s.handleChat))))
	mux.Handle("/api/v1/quotes", s.instrument("quotes", s.requireAPIKey(http.HandlerFunc(s.handleListQuotes))))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Reply     string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.agent == nil {
		http.Error(w, "Agent 未初始化", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message 不能为空", http.StatusBadRequest)
		return
	}

	result, err := s.agent.ProcessTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if result == nil {
		http.Error(w, "message 不能为空", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{
		SessionID: result.SessionID,
		Intent:    string(result.Intent),
		Reply:     result.Reply,
	})
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.quoteStore == nil {
		http.Error(w, "审计存储未配置", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.quoteStore.ListLatest(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*quote.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

// requireAPIKey 在配置了密钥时校验 X-API-Key 请求头。
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			http.Error(w, "鉴权失败", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument 记录请求耗时与状态码指标。
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(started))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
