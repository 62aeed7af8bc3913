package quote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	xerrors "CryptoChat-Agent/internal/errors"
)

// Recorder 把审计记录异步投递到队列，由 Processor 落库。
type Recorder struct {
	producer Producer
}

// NewRecorder 创建 Recorder。
func NewRecorder(producer Producer) *Recorder {
	return &Recorder{producer: producer}
}

// Record 补全记录的 ID 与时间戳后投递到队列。
func (r *Recorder) Record(ctx context.Context, record Record) error {
	if r == nil || r.producer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "审计队列未初始化")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeAuditPublish, err, "序列化审计记录失败")
	}
	if err := r.producer.Publish(ctx, payload); err != nil {
		return xerrors.Wrap(xerrors.CodeAuditPublish, err, "投递审计记录失败")
	}
	return nil
}
