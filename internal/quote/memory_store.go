package quote

import (
	"context"
	"sync"
	"time"

	xerrors "CryptoChat-Agent/internal/errors"
)

// MemoryStore 在内存中保存审计记录，主要用于开发与测试。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create 插入一条新的审计记录。
func (s *MemoryStore) Create(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "审计记录缺少 ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return nil
	}
	clone := *record
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	s.records[record.ID] = &clone
	s.order = append(s.order, record.ID)
	return nil
}

// Get 按 ID 查询审计记录。
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

// ListLatest 按插入时间倒序返回最近的记录。
func (s *MemoryStore) ListLatest(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		if record, ok := s.records[s.order[i]]; ok {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

// Close 实现 Store 接口。
func (s *MemoryStore) Close() error {
	return nil
}
