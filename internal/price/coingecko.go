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

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoQuoter 通过 CoinGecko 的 simple/price 接口获取现价。
type CoinGeckoQuoter struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoQuoter 创建 CoinGecko 行情源。
func NewCoinGeckoQuoter(baseURL string) *CoinGeckoQuoter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultCoinGeckoBaseURL
	}
	return &CoinGeckoQuoter{baseURL: base, httpClient: &http.Client{}}
}

// Source 实现 Quoter 接口。
func (q *CoinGeckoQuoter) Source() Source {
	return SourceCoinGecko
}

// Quote 返回 CoinGecko 给出的十进制价格文本。
func (q *CoinGeckoQuoter) Quote(ctx context.Context, asset Asset, currency Currency) (string, error) {
	id, ok := coingeckoIDs[asset]
	if !ok {
		return "", xerrors.New(xerrors.CodePriceData,
			fmt.Sprintf("CoinGecko 未登记币种 %s 的标识", asset))
	}
	vs := strings.ToLower(string(currency))

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", vs)
	endpoint := fmt.Sprintf("%s/simple/price?%s", q.baseURL, params.Encode())

	body, err := getJSON(ctx, q.httpClient, endpoint)
	if err != nil {
		return "", err
	}

	var decoded map[string]map[string]json.Number
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", xerrors.Wrap(xerrors.CodePriceData, err, "解析 CoinGecko 响应失败")
	}
	value, ok := decoded[id][vs]
	if !ok || value.String() == "" {
		return "", xerrors.New(xerrors.CodePriceData,
			fmt.Sprintf("CoinGecko 不支持结算币种 %s", currency))
	}
	return value.String(), nil
}
