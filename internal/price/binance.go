package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	xerrors "CryptoChat-Agent/internal/errors"
)

const defaultBinanceBaseURL = "https://api.binance.com"

// BinanceQuoter 通过币安的 ticker/price 接口获取现价。
type BinanceQuoter struct {
	baseURL    string
	httpClient *http.Client
}

// NewBinanceQuoter 创建币安行情源。
func NewBinanceQuoter(baseURL string) *BinanceQuoter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBinanceBaseURL
	}
	return &BinanceQuoter{baseURL: base, httpClient: &http.Client{}}
}

// Source 实现 Quoter 接口。
func (q *BinanceQuoter) Source() Source {
	return SourceBinance
}

// Quote 返回币安给出的十进制价格文本。
func (q *BinanceQuoter) Quote(ctx context.Context, asset Asset, currency Currency) (string, error) {
	symbol := binanceSymbol(asset, currency)

	params := url.Values{}
	params.Set("symbol", symbol)
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?%s", q.baseURL, params.Encode())

	body, err := getJSON(ctx, q.httpClient, endpoint)
	if err != nil {
		return "", err
	}

	var decoded struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", xerrors.Wrap(xerrors.CodePriceData, err, "解析币安响应失败")
	}
	if strings.TrimSpace(decoded.Price) == "" {
		return "", xerrors.New(xerrors.CodePriceData,
			fmt.Sprintf("币安不支持交易对 %s", symbol))
	}
	return decoded.Price, nil
}
