package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "CryptoChat-Agent/internal/errors"
	"CryptoChat-Agent/internal/knowledge"
	"CryptoChat-Agent/internal/llm"
	"CryptoChat-Agent/internal/observability/metrics"
	"CryptoChat-Agent/internal/price"
	"CryptoChat-Agent/internal/quote"
	"CryptoChat-Agent/pkg/logger"
)

// 各环节的引导语。分类与提取要求结构化输出，回复生成只需要自然语言。
const (
	classifyGuide = "结合历史对话，理解用户这句对话的意图，结构化的输出相应的枚举类型"
	extractGuide  = "结合历史对话，获取用户想要了解的虚拟币的种类，行情源，以及结算价格的币种，返回结构化的输出。如果不能获得，或者信息不完整，不要假设用户的选择，返回 null"

	clarifyReasonTemplate = "试图从用户的对话中获取虚拟币的种类，行情源以及价格结算的币种，但是没有成功，因为%s。参考之前的对话历史纪录，生成一句向用户继续询问澄清的话，以获得更清楚的信息。"
	priceReasonTemplate   = "已经获得了用户想知道的价格: %s，结合对话历史，生成回复给用户的话"
	failureReasonTemplate = "在获取价格的时候失败了，发生了意外: %s，结合对话历史生成给用户的回复，并询问是需要继续查询还是换个其他的话题"
	chatReason            = "用户并没有询问虚拟币的价格，而是聊其他的话题，结合对话历史做合宜的回答，合适的时机下询问用户是否对虚拟币的价格感兴趣"
)

// PriceResolver 定义编排器所需的行情解析能力。
type PriceResolver interface {
	Resolve(ctx context.Context, query price.Query, allowFallback bool) (*price.Quote, error)
}

// QuoteRecorder 负责异步记录一次行情解析的审计信息。
type QuoteRecorder interface {
	Record(ctx context.Context, record quote.Record) error
}

// Session 是一个带独立对话历史的会话，回合处理在会话内串行。
type Session struct {
	id      string
	mu      sync.Mutex
	history *History
}

// Agent 是系统的业务核心，编排意图分类、行情解析和回复生成。
type Agent struct {
	llmClient       llm.Client
	resolver        PriceResolver
	knowledge       knowledge.Provider
	recorder        QuoteRecorder
	historyCapacity int
	llmTimeout      time.Duration
	allowFallback   bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithHistoryCapacity 设置每个会话保留的对话条数。
func WithHistoryCapacity(capacity int) Option {
	return func(a *Agent) {
		if capacity > 0 {
			a.historyCapacity = capacity
		}
	}
}

// WithKnowledgeProvider 配置知识库，用于在闲聊回复前补充上下文。
func WithKnowledgeProvider(provider knowledge.Provider) Option {
	return func(a *Agent) {
		a.knowledge = provider
	}
}

// WithQuoteRecorder 配置行情审计记录器。
func WithQuoteRecorder(recorder QuoteRecorder) Option {
	return func(a *Agent) {
		a.recorder = recorder
	}
}

// WithLLMTimeout 设置调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout > 0 {
			a.llmTimeout = timeout
		}
	}
}

// WithFallbackDisabled 关闭行情源回退，只尝试用户指定的首选源。
func WithFallbackDisabled() Option {
	return func(a *Agent) {
		a.allowFallback = false
	}
}

// New 创建一个 Agent。
func New(llmClient llm.Client, resolver PriceResolver, opts ...Option) (*Agent, error) {
	if llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "缺少大模型客户端")
	}
	if resolver == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "缺少行情解析器")
	}
	a := &Agent{
		llmClient:       llmClient,
		resolver:        resolver,
		historyCapacity: defaultHistoryCapacity,
		allowFallback:   true,
		sessions:        make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// session 返回指定 ID 的会话，不存在时创建。空 ID 分配新会话。
func (a *Agent) session(id string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	s, ok := a.sessions[id]
	if !ok {
		s = &Session{id: id, history: NewHistory(a.historyCapacity)}
		a.sessions[id] = s
	}
	return s
}

// ProcessTurn 处理一轮用户输入并返回生成的回复。
// 空输入不产生回复也不进入历史。行情源失败会被吸收为对话式回复，
// 大模型失败则向调用方传播。
func (a *Agent) ProcessTurn(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil
	}

	s := a.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Append(RoleUser, message)

	classification, err := a.classify(ctx, s, message)
	if err != nil {
		return nil, err
	}
	metrics.ObserveIntent(string(classification.Intention))

	var (
		reason   string
		resolved *price.Quote
	)
	switch classification.Intention {
	case IntentPriceQuery:
		reason, resolved, err = a.handlePriceQuery(ctx, s, message)
		if err != nil {
			return nil, err
		}
	default:
		reason = a.chatReasonWithKnowledge(message)
	}

	reply, err := a.generateReply(ctx, s, reason)
	if err != nil {
		return nil, err
	}
	s.history.Append(RoleAgent, reply)

	logger.Transcript().Info("对话回合完成",
		slog.String("session_id", s.id),
		slog.String("intent", string(classification.Intention)),
		slog.String("user", message),
		slog.String("reply", reply),
	)

	return &TurnResult{
		SessionID: s.id,
		Intent:    classification.Intention,
		Reply:     reply,
		Quote:     resolved,
	}, nil
}

// classify 对用户输入做意图分类。
func (a *Agent) classify(ctx context.Context, s *Session, message string) (*ClassificationResult, error) {
	callCtx, cancel := a.llmContext(ctx)
	defer cancel()

	raw, err := a.llmClient.CompleteStructured(callCtx, llm.StructuredRequest{
		System:     s.history.Render(),
		User:       fmt.Sprintf("%s\n用户输入: %s", classifyGuide, message),
		SchemaName: "intent_classification",
		Schema:     classificationSchema,
	})
	if err != nil {
		return nil, err
	}
	var result ClassificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "解析意图分类输出失败")
	}
	if strings.TrimSpace(result.Explanation) == "" {
		return nil, xerrors.New(xerrors.CodeLLMFailure, "意图分类输出缺少解释")
	}
	if !result.Intention.Valid() {
		return nil, xerrors.New(xerrors.CodeLLMFailure, fmt.Sprintf("意图分类输出不在枚举内: %q", result.Intention))
	}
	return &result, nil
}

// extract 从用户输入中提取价格查询要素。
func (a *Agent) extract(ctx context.Context, s *Session, message string) (*ExtractionResult, error) {
	callCtx, cancel := a.llmContext(ctx)
	defer cancel()

	raw, err := a.llmClient.CompleteStructured(callCtx, llm.StructuredRequest{
		System:     s.history.Render(),
		User:       fmt.Sprintf("%s\n用户输入: %s", extractGuide, message),
		SchemaName: "price_query_extraction",
		Schema:     extractionSchema,
	})
	if err != nil {
		return nil, err
	}
	var result ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "解析价格要素输出失败")
	}
	if strings.TrimSpace(result.Explanation) == "" {
		return nil, xerrors.New(xerrors.CodeLLMFailure, "价格要素输出缺少解释")
	}
	if result.Query != nil {
		if err := result.Query.Validate(); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "价格要素输出不合法")
		}
	}
	return &result, nil
}

// handlePriceQuery 走价格查询路径，返回回复生成所用的理由。
// 行情解析失败在这里被吸收，提取失败属于大模型失败，向调用方传播。
func (a *Agent) handlePriceQuery(ctx context.Context, s *Session, message string) (string, *price.Quote, error) {
	extraction, err := a.extract(ctx, s, message)
	if err != nil {
		return "", nil, err
	}
	if extraction.Query == nil {
		return fmt.Sprintf(clarifyReasonTemplate, extraction.Explanation), nil, nil
	}

	query := *extraction.Query
	started := time.Now()
	resolved, resolveErr := a.resolver.Resolve(ctx, query, a.allowFallback)
	elapsed := time.Since(started)

	a.recordQuote(ctx, s.id, query, resolved, resolveErr, elapsed)

	if resolveErr != nil {
		metrics.ObservePriceResolution(string(query.Source), "failed")
		logger.L().Warn("行情解析失败",
			slog.String("session_id", s.id),
			slog.String("asset", string(query.Asset)),
			slog.String("preferred_source", string(query.Source)),
			slog.Any("error", resolveErr),
		)
		return fmt.Sprintf(failureReasonTemplate, resolveErr.Error()), nil, nil
	}

	metrics.ObservePriceResolution(string(resolved.Source), "resolved")
	priceText := fmt.Sprintf("%s 兑 %s 的价格是 %s（来自 %s）",
		resolved.Asset.Display(), resolved.Currency, resolved.Raw, resolved.Source.Display())
	return fmt.Sprintf(priceReasonTemplate, priceText), resolved, nil
}

// chatReasonWithKnowledge 构造闲聊路径的理由，附带知识库命中的条目。
func (a *Agent) chatReasonWithKnowledge(message string) string {
	reason := chatReason
	if a.knowledge == nil {
		return reason
	}
	snippets := a.knowledge.Query(message)
	if len(snippets) == 0 {
		return reason
	}
	var b strings.Builder
	b.WriteString(reason)
	b.WriteString("\n可以参考的背景知识:")
	for _, snippet := range snippets {
		b.WriteString(fmt.Sprintf("\n- %s: %s", snippet.Title, snippet.Content))
	}
	return b.String()
}

// generateReply 基于理由和历史生成给用户的自然语言回复。
func (a *Agent) generateReply(ctx context.Context, s *Session, reason string) (string, error) {
	callCtx, cancel := a.llmContext(ctx)
	defer cancel()

	reply, err := a.llmClient.CompleteText(callCtx, llm.TextRequest{
		System: s.history.Render(),
		User:   reason,
	})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", xerrors.New(xerrors.CodeLLMFailure, "大模型返回了空回复")
	}
	return reply, nil
}

// recordQuote 异步审计一次行情解析，失败只记日志。
func (a *Agent) recordQuote(ctx context.Context, sessionID string, query price.Query, resolved *price.Quote, resolveErr error, elapsed time.Duration) {
	if a.recorder == nil {
		return
	}
	record := quote.Record{
		SessionID:       sessionID,
		Asset:           string(query.Asset),
		Currency:        string(query.Currency),
		PreferredSource: string(query.Source),
		ElapsedMS:       elapsed.Milliseconds(),
	}
	if resolveErr != nil {
		record.Status = quote.StatusFailed
		record.ErrorCode = string(xerrors.CodeOf(resolveErr))
		record.LastError = resolveErr.Error()
	} else {
		record.Status = quote.StatusResolved
		record.Source = string(resolved.Source)
		record.Price = resolved.Raw
	}
	if err := a.recorder.Record(ctx, record); err != nil {
		logger.L().Error("投递行情审计记录失败",
			slog.Any("error", err),
			slog.String("session_id", sessionID),
		)
	}
}

// llmContext 为单次大模型调用派生超时上下文。
func (a *Agent) llmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.llmTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.llmTimeout)
}
