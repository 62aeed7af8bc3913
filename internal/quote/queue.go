package quote

import "context"

// Handler 处理来自队列的审计记录负载。
type Handler func(ctx context.Context, payload []byte) error

// Producer 负责向队列投递审计记录。
type Producer interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Consumer 负责从队列中消费审计记录。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
