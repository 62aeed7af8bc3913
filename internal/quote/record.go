package quote

import (
	xerrors "CryptoChat-Agent/internal/errors"
)

// Status 表示一次价格解析的最终结果。
type Status string

const (
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Record 描述一次价格解析的审计记录。
type Record struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Asset     string `json:"asset"`
	Currency  string `json:"currency"`
	// PreferredSource 是用户指定的首选行情源。
	PreferredSource string `json:"preferred_source"`
	// Source 是实际给出价格的行情源，失败时为空。
	Source string `json:"source,omitempty"`
	Status Status `json:"status"`
	// Price 保留行情源返回的十进制价格文本。
	Price     string `json:"price,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	LastError string `json:"last_error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	CreatedAt int64  `json:"created_at"`
}

// ErrRecordNotFound 表示指定的审计记录不存在。
var ErrRecordNotFound = xerrors.New(xerrors.CodeNotFound, "quote record not found")
