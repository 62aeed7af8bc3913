package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	xerrors "CryptoChat-Agent/internal/errors"
)

const defaultCoinbaseBaseURL = "https://api.coinbase.com"

// CoinbaseQuoter 通过 Coinbase 的 spot price 接口获取现价。
type CoinbaseQuoter struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinbaseQuoter 创建 Coinbase 行情源。
func NewCoinbaseQuoter(baseURL string) *CoinbaseQuoter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultCoinbaseBaseURL
	}
	return &CoinbaseQuoter{baseURL: base, httpClient: &http.Client{}}
}

// Source 实现 Quoter 接口。
func (q *CoinbaseQuoter) Source() Source {
	return SourceCoinbase
}

// Quote 返回 Coinbase 给出的十进制价格文本。
func (q *CoinbaseQuoter) Quote(ctx context.Context, asset Asset, currency Currency) (string, error) {
	pair := coinbasePair(asset, currency)
	endpoint := fmt.Sprintf("%s/v2/prices/%s/spot", q.baseURL, pair)

	body, err := getJSON(ctx, q.httpClient, endpoint)
	if err != nil {
		return "", err
	}

	var decoded struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", xerrors.Wrap(xerrors.CodePriceData, err, "解析 Coinbase 响应失败")
	}
	if strings.TrimSpace(decoded.Data.Amount) == "" {
		return "", xerrors.New(xerrors.CodePriceData,
			fmt.Sprintf("Coinbase 不支持交易对 %s", pair))
	}
	return decoded.Data.Amount, nil
}
