package price

import (
	"context"
	"testing"

	xerrors "CryptoChat-Agent/internal/errors"
)

type stubQuoter struct {
	src   Source
	price string
	err   error
	calls *[]Source
}

func (s *stubQuoter) Source() Source {
	return s.src
}

func (s *stubQuoter) Quote(ctx context.Context, asset Asset, currency Currency) (string, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.src)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.price, nil
}

func newTestResolver(calls *[]Source, quoters ...*stubQuoter) *Resolver {
	list := make([]Quoter, 0, len(quoters))
	for _, q := range quoters {
		q.calls = calls
		list = append(list, q)
	}
	return NewResolver(list)
}

func TestResolvePreferredFirst(t *testing.T) {
	var calls []Source
	resolver := newTestResolver(&calls,
		&stubQuoter{src: SourceCoinGecko, price: "64000.5"},
		&stubQuoter{src: SourceCoinbase, price: "64001"},
		&stubQuoter{src: SourceBinance, price: "64002"},
	)

	quote, err := resolver.Resolve(context.Background(), Query{
		Asset: AssetBTC, Source: SourceBinance, Currency: CurrencyUSD,
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Source != SourceBinance || quote.Price != 64002 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if len(calls) != 1 || calls[0] != SourceBinance {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

func TestResolveFallbackCanonicalOrder(t *testing.T) {
	var calls []Source
	resolver := newTestResolver(&calls,
		&stubQuoter{src: SourceCoinGecko, price: "64000.5"},
		&stubQuoter{src: SourceCoinbase, err: xerrors.New(xerrors.CodePriceTransport, "连接失败")},
		&stubQuoter{src: SourceBinance, price: "64002"},
	)

	// 首选 coinbase 失败后按规范顺序回退，coingecko 成功即停止，binance 不会被调用。
	quote, err := resolver.Resolve(context.Background(), Query{
		Asset: AssetBTC, Source: SourceCoinbase, Currency: CurrencyUSD,
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Source != SourceCoinGecko {
		t.Fatalf("expected coingecko to win, got %s", quote.Source)
	}
	if len(calls) != 2 || calls[0] != SourceCoinbase || calls[1] != SourceCoinGecko {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

func TestResolveFallbackDisabled(t *testing.T) {
	var calls []Source
	resolver := newTestResolver(&calls,
		&stubQuoter{src: SourceCoinGecko, price: "64000.5"},
		&stubQuoter{src: SourceCoinbase, err: xerrors.New(xerrors.CodePriceTransport, "连接失败")},
		&stubQuoter{src: SourceBinance, price: "64002"},
	)

	_, err := resolver.Resolve(context.Background(), Query{
		Asset: AssetBTC, Source: SourceCoinbase, Currency: CurrencyUSD,
	}, false)
	if err == nil {
		t.Fatalf("expected error when fallback is disabled")
	}
	if len(calls) != 1 || calls[0] != SourceCoinbase {
		t.Fatalf("expected a single attempt, got %v", calls)
	}
	if !xerrors.HasCode(err, xerrors.CodePriceTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestResolveAllFailTransportClassification(t *testing.T) {
	var calls []Source
	resolver := newTestResolver(&calls,
		&stubQuoter{src: SourceCoinGecko, err: xerrors.New(xerrors.CodePriceData, "不支持的交易对")},
		&stubQuoter{src: SourceCoinbase, err: xerrors.New(xerrors.CodePriceData, "字段缺失")},
		&stubQuoter{src: SourceBinance, err: xerrors.New(xerrors.CodePriceTransport, "超时")},
	)

	// 最后一个错误来自传输层，整体结果归类为传输失败。
	_, err := resolver.Resolve(context.Background(), Query{
		Asset: AssetETH, Source: SourceCoinGecko, Currency: CurrencyEUR,
	}, true)
	if err == nil {
		t.Fatalf("expected error when all sources fail")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected all sources attempted, got %v", calls)
	}
}

func TestResolveAllFailDataClassification(t *testing.T) {
	resolver := newTestResolver(nil,
		&stubQuoter{src: SourceCoinGecko, err: xerrors.New(xerrors.CodePriceTransport, "超时")},
		&stubQuoter{src: SourceCoinbase, err: xerrors.New(xerrors.CodePriceTransport, "超时")},
		&stubQuoter{src: SourceBinance, err: xerrors.New(xerrors.CodePriceData, "不支持的交易对")},
	)

	_, err := resolver.Resolve(context.Background(), Query{
		Asset: AssetETH, Source: SourceCoinGecko, Currency: CurrencyUSDT,
	}, true)
	if err == nil {
		t.Fatalf("expected error when all sources fail")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceData) {
		t.Fatalf("expected data failure, got %v", err)
	}
}

func TestResolveRejectsNonPositivePrice(t *testing.T) {
	resolver := newTestResolver(nil,
		&stubQuoter{src: SourceCoinGecko, price: "0"},
		&stubQuoter{src: SourceCoinbase, price: "-1.5"},
		&stubQuoter{src: SourceBinance, price: "notanumber"},
	)

	_, err := resolver.Resolve(context.Background(), Query{
		Asset: AssetBTC, Source: SourceCoinGecko, Currency: CurrencyUSD,
	}, true)
	if err == nil {
		t.Fatalf("expected error for non-positive prices")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceData) {
		t.Fatalf("expected data failure, got %v", err)
	}
}

func TestResolveInvalidQuery(t *testing.T) {
	resolver := newTestResolver(nil, &stubQuoter{src: SourceCoinGecko, price: "1"})

	_, err := resolver.Resolve(context.Background(), Query{
		Asset: "DOGE", Source: SourceCoinGecko, Currency: CurrencyUSD,
	}, true)
	if err == nil {
		t.Fatalf("expected error for unsupported asset")
	}
}

func TestResolverOrderAppendsExtraSources(t *testing.T) {
	resolver := newTestResolver(nil,
		&stubQuoter{src: SourceChainlink, price: "64000"},
		&stubQuoter{src: SourceBinance, price: "64002"},
		&stubQuoter{src: SourceCoinGecko, price: "64000.5"},
	)

	order := resolver.Order()
	want := []Source{SourceCoinGecko, SourceBinance, SourceChainlink}
	if len(order) != len(want) {
		t.Fatalf("unexpected order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order: %v", order)
		}
	}
}
