package price

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Asset 表示支持查询的虚拟币种类，取值为规范化的机器码。
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
)

// assetDisplay 维护币种的本地化展示名，新增语言不影响分支逻辑。
var assetDisplay = map[Asset]string{
	AssetBTC: "比特币",
	AssetETH: "以太坊",
}

// Display 返回币种的本地化展示名，未登记时回退到机器码。
func (a Asset) Display() string {
	if label, ok := assetDisplay[a]; ok {
		return label
	}
	return string(a)
}

// Supported 判断币种是否在登记表中。
func (a Asset) Supported() bool {
	_, ok := assetDisplay[a]
	return ok
}

// ParseAsset 将任意大小写的输入解析为规范币种码。
func ParseAsset(raw string) (Asset, error) {
	asset := Asset(strings.ToUpper(strings.TrimSpace(raw)))
	if !asset.Supported() {
		return "", fmt.Errorf("不支持的币种: %q", raw)
	}
	return asset, nil
}

// Currency 表示结算价格的币种。
type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyEUR  Currency = "EUR"
	CurrencyUSDT Currency = "USDT"
)

var supportedCurrencies = map[Currency]struct{}{
	CurrencyUSD:  {},
	CurrencyEUR:  {},
	CurrencyUSDT: {},
}

// Supported 判断结算币种是否受支持。
func (c Currency) Supported() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

// ParseCurrency 将任意大小写的输入解析为规范结算币种。
func ParseCurrency(raw string) (Currency, error) {
	currency := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if !currency.Supported() {
		return "", fmt.Errorf("不支持的结算币种: %q", raw)
	}
	return currency, nil
}

// Source 表示一个行情源。
type Source string

const (
	SourceCoinGecko Source = "coingecko"
	SourceCoinbase  Source = "coinbase"
	SourceBinance   Source = "binance"
	SourceChainlink Source = "chainlink"
)

// sourceDisplay 维护行情源的本地化展示名。
var sourceDisplay = map[Source]string{
	SourceCoinGecko: "CoinGecko",
	SourceCoinbase:  "Coinbase",
	SourceBinance:   "币安",
	SourceChainlink: "Chainlink 预言机",
}

// Display 返回行情源的展示名。
func (s Source) Display() string {
	if label, ok := sourceDisplay[s]; ok {
		return label
	}
	return string(s)
}

// CanonicalOrder 是回退时行情源的固定规范顺序。
// Chainlink 仅在显式启用后追加到末尾，不参与默认回退序列。
var CanonicalOrder = []Source{SourceCoinGecko, SourceCoinbase, SourceBinance}

// ParseSource 将任意大小写的输入解析为行情源。
func ParseSource(raw string) (Source, error) {
	source := Source(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sourceDisplay[source]; !ok {
		return "", fmt.Errorf("未知的行情源: %q", raw)
	}
	return source, nil
}

// Query 描述一次价格查询：币种、首选行情源与结算币种。
// 要么完整填充，要么整体缺席，不允许部分猜测。
type Query struct {
	Asset    Asset    `json:"crypto_type"`
	Source   Source   `json:"crypto_source"`
	Currency Currency `json:"currency"`
}

// Validate 校验查询的三个字段是否都落在枚举范围内。
func (q Query) Validate() error {
	if !q.Asset.Supported() {
		return fmt.Errorf("不支持的币种: %q", q.Asset)
	}
	if _, ok := sourceDisplay[q.Source]; !ok {
		return fmt.Errorf("未知的行情源: %q", q.Source)
	}
	if !q.Currency.Supported() {
		return fmt.Errorf("不支持的结算币种: %q", q.Currency)
	}
	return nil
}

// Quote 是一次成功解析得到的价格，仅在获取时刻有效，不做缓存。
type Quote struct {
	Asset    Asset
	Currency Currency
	// Source 是实际给出价格的行情源，回退后可能不同于首选源。
	Source    Source
	Price     float64
	Raw       string
	FetchedAt time.Time
}

// Quoter 是单个行情源的报价接口，返回该源给出的十进制价格文本。
type Quoter interface {
	Source() Source
	Quote(ctx context.Context, asset Asset, currency Currency) (string, error)
}

// coingeckoIDs 是 CoinGecko 的币种标识映射。
var coingeckoIDs = map[Asset]string{
	AssetBTC: "bitcoin",
	AssetETH: "ethereum",
}

// coinbasePair 返回 Coinbase 的交易对约定，如 BTC-USD。
func coinbasePair(asset Asset, currency Currency) string {
	return fmt.Sprintf("%s-%s", asset, currency)
}

// binanceSymbol 返回币安的交易对约定，如 BTCUSDT。
func binanceSymbol(asset Asset, currency Currency) string {
	return fmt.Sprintf("%s%s", asset, currency)
}

// feedKey 返回 Chainlink 喂价表的键，如 BTC/USD。
func feedKey(asset Asset, currency Currency) string {
	return fmt.Sprintf("%s/%s", asset, currency)
}
