package quote

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	xerrors "CryptoChat-Agent/internal/errors"
	"CryptoChat-Agent/internal/observability/alerting"
	"CryptoChat-Agent/pkg/logger"
)

// Processor 消费队列中的审计记录并落库。
type Processor struct {
	store       Store
	consumer    Consumer
	workerCount int
	logger      *slog.Logger
	alerter     alerting.Dispatcher
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(store Store, consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:       store,
		consumer:    consumer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.workerCount <= 0 {
		p.workerCount = 1
	}
	return p
}

// Start 启动审计记录处理循环。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置审计消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, payload []byte) error {
	if p.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		// 坏数据不重投，记录后丢弃。
		logger.L().Error("解析审计记录失败", slog.Any("error", err))
		return nil
	}
	if err := p.store.Create(ctx, &record); err != nil {
		logger.L().Error("写入审计记录失败",
			slog.Any("error", err),
			slog.String("record_id", record.ID),
			slog.String("session_id", record.SessionID),
		)
		p.emitAlert(ctx, record, xerrors.CodeAuditStorage, err)
		return err
	}
	if record.Status == StatusFailed {
		p.emitAlert(ctx, record, xerrors.Code(record.ErrorCode), nil)
	}
	p.logDebug("审计记录已落库",
		slog.String("record_id", record.ID),
		slog.String("status", string(record.Status)),
	)
	return nil
}

func (p *Processor) logDebug(msg string, attrs ...slog.Attr) {
	if p.logger != nil {
		args := make([]any, len(attrs))
		for i, attr := range attrs {
			args[i] = attr
		}
		p.logger.Debug(msg, args...)
	}
}

func (p *Processor) emitAlert(ctx context.Context, record Record, code xerrors.Code, cause error) {
	if p == nil || p.alerter == nil {
		return
	}
	if code == "" {
		code = xerrors.CodeUnknown
	}
	attrs := xerrors.AttributesOf(code)
	message := attrs.Message
	if cause != nil {
		message = cause.Error()
	} else if record.LastError != "" {
		message = record.LastError
	}
	metadata := map[string]string{
		"preferred_source": record.PreferredSource,
		"currency":         record.Currency,
	}
	event := alerting.Event{
		Code:       code,
		Message:    message,
		Severity:   attrs.Severity,
		SessionID:  record.SessionID,
		Asset:      record.Asset,
		Source:     record.Source,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := p.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.Any("error", err),
			slog.String("record_id", record.ID),
		)
	}
}
