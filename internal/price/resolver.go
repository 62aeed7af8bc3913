package price

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	xerrors "CryptoChat-Agent/internal/errors"
	"CryptoChat-Agent/pkg/logger"
)

// defaultAttemptTimeout 是单个行情源请求的默认超时。
// 每次尝试都有独立的超时预算，不跨回退链累计。
const defaultAttemptTimeout = 10 * time.Second

// Resolver 按试探列表依次调用行情源，返回首个成功的价格。
type Resolver struct {
	quoters        map[Source]Quoter
	order          []Source
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// ResolverOption 定义可选的解析器配置。
type ResolverOption func(*Resolver)

// WithAttemptTimeout 设置单个行情源请求的超时预算。
func WithAttemptTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.attemptTimeout = timeout
		}
	}
}

// WithResolverLogger 指定日志输出。
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = log
	}
}

// NewResolver 登记给定的行情源并构造解析器。
// 回退顺序为规范顺序在前，规范顺序之外的源按登记次序追加在末尾。
func NewResolver(quoters []Quoter, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		quoters:        make(map[Source]Quoter, len(quoters)),
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = logger.Named("price")
	}

	for _, quoter := range quoters {
		if quoter == nil {
			continue
		}
		r.quoters[quoter.Source()] = quoter
	}
	for _, src := range CanonicalOrder {
		if _, ok := r.quoters[src]; ok {
			r.order = append(r.order, src)
		}
	}
	for _, quoter := range quoters {
		if quoter == nil {
			continue
		}
		src := quoter.Source()
		if !contains(r.order, src) {
			r.order = append(r.order, src)
		}
	}
	return r
}

// Order 返回解析器当前的回退顺序，首选源会被移到各自试探列表的最前面。
func (r *Resolver) Order() []Source {
	out := make([]Source, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve 依次试探行情源并返回首个成功解析出的正数价格。
// allowFallback 为 false 时只试探首选源。
func (r *Resolver) Resolve(ctx context.Context, query Query, allowFallback bool) (*Quote, error) {
	if err := query.Validate(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "价格查询不合法")
	}

	var lastErr error
	for _, src := range r.trialList(query.Source, allowFallback) {
		quoter, ok := r.quoters[src]
		if !ok {
			lastErr = xerrors.New(xerrors.CodePriceData, fmt.Sprintf("行情源 %s 未启用", src))
			continue
		}

		raw, err := r.attempt(ctx, quoter, query)
		if err != nil {
			lastErr = err
			r.logger.Debug("行情源试探失败",
				slog.String("source", string(src)),
				slog.String("asset", string(query.Asset)),
				slog.String("currency", string(query.Currency)),
				slog.Any("error", err))
			continue
		}

		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			lastErr = xerrors.Wrap(xerrors.CodePriceData, err,
				fmt.Sprintf("行情源 %s 返回了无法解析的价格 %q", src, raw))
			continue
		}
		if value.Sign() <= 0 {
			lastErr = xerrors.New(xerrors.CodePriceData,
				fmt.Sprintf("行情源 %s 返回了非正数价格 %s", src, value))
			continue
		}

		price, _ := value.Float64()
		return &Quote{
			Asset:     query.Asset,
			Currency:  query.Currency,
			Source:    src,
			Price:     price,
			Raw:       value.String(),
			FetchedAt: time.Now(),
		}, nil
	}

	code := xerrors.CodePriceData
	if xerrors.HasCode(lastErr, xerrors.CodePriceTransport) {
		code = xerrors.CodePriceTransport
	}
	return nil, xerrors.Wrap(code, lastErr,
		fmt.Sprintf("无法获取%s的 %s 价格", query.Asset.Display(), query.Currency),
		xerrors.WithMetadata("preferred_source", string(query.Source)))
}

// attempt 在独立的超时预算内调用单个行情源。
func (r *Resolver) attempt(ctx context.Context, quoter Quoter, query Query) (string, error) {
	if r.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()
	}
	return quoter.Quote(ctx, query.Asset, query.Currency)
}

// trialList 构造有序试探列表：首选源在前，其余源按固定顺序排列，
// 每个源至多出现一次。
func (r *Resolver) trialList(preferred Source, allowFallback bool) []Source {
	list := []Source{preferred}
	if !allowFallback {
		return list
	}
	for _, src := range r.order {
		if src != preferred {
			list = append(list, src)
		}
	}
	return list
}

// Close 释放持有连接的行情源。
func (r *Resolver) Close() {
	for _, quoter := range r.quoters {
		if closer, ok := quoter.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func contains(sources []Source, target Source) bool {
	for _, src := range sources {
		if src == target {
			return true
		}
	}
	return false
}
