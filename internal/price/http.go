package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	xerrors "CryptoChat-Agent/internal/errors"
)

// getJSON 发起一次 GET 请求并返回响应体。
// 网络错误与非 2xx 状态统一归类为传输失败。
func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePriceTransport, err, "构建行情请求失败")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePriceTransport, err, "请求行情源失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePriceTransport, err, "读取行情响应失败")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, xerrors.New(xerrors.CodePriceTransport,
			fmt.Sprintf("行情源返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return body, nil
}
