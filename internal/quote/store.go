package quote

import "context"

// Store 抽象了审计记录的持久化接口。
type Store interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListLatest(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}
