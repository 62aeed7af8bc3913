package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"CryptoChat-Agent/internal/agent"
	"CryptoChat-Agent/internal/api"
	"CryptoChat-Agent/internal/config"
	"CryptoChat-Agent/internal/knowledge"
	"CryptoChat-Agent/internal/llm"
	"CryptoChat-Agent/internal/llm/openai"
	"CryptoChat-Agent/internal/observability/alerting"
	"CryptoChat-Agent/internal/price"
	"CryptoChat-Agent/internal/quote"
	"CryptoChat-Agent/pkg/logger"
)

// main 是 CryptoChat 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("cryptochatd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("CRYPTOCHAT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "cryptochat.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Transcript: logger.TranscriptConfig{
			Enabled:    cfg.Logging.Transcript.Enabled,
			Path:       cfg.Logging.Transcript.Path,
			MaxSizeMB:  cfg.Logging.Transcript.MaxSizeMB,
			MaxBackups: cfg.Logging.Transcript.MaxBackups,
			MaxAgeDays: cfg.Logging.Transcript.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	llmClient, err := createLLMClient(cfg)
	if err != nil {
		return err
	}

	sourceDefs, err := price.LoadSourceDefinitions(cfg.Price.SourcesConfig)
	if err != nil {
		return err
	}
	resolver, err := price.NewRegistry(ctx, sourceDefs,
		price.WithAttemptTimeout(time.Duration(cfg.Price.TimeoutSeconds)*time.Second),
		price.WithResolverLogger(logger.Named("price")),
	)
	if err != nil {
		return err
	}
	defer resolver.Close()

	var knowledgeProvider knowledge.Provider
	if cfg.Chat.KnowledgePath != "" {
		provider, err := knowledge.LoadStaticProvider(cfg.Chat.KnowledgePath, 0)
		if err != nil {
			return err
		}
		knowledgeProvider = provider
	}

	quoteStore, err := createQuoteStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if quoteStore != nil {
			_ = quoteStore.Close()
		}
	}()

	quoteQueue, err := createQuoteQueue(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if quoteQueue != nil {
			if err := quoteQueue.Close(); err != nil {
				logger.L().Error("关闭审计队列失败", slog.Any("error", err))
			}
		}
	}()

	recorder := quote.NewRecorder(quoteQueue)
	processor := quote.NewProcessor(quoteStore, quoteQueue,
		quote.WithProcessorLogger(logger.Named("quote")),
		quote.WithAlertDispatcher(alerting.NewFanout(&alerting.LogNotifier{})),
	)

	processorCtx, processorCancel := context.WithCancel(ctx)
	defer processorCancel()

	go func() {
		if err := processor.Start(processorCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("审计处理器异常退出", slog.Any("error", err))
		}
	}()

	agentOpts := []agent.Option{
		agent.WithHistoryCapacity(cfg.Chat.HistoryCapacity),
		agent.WithKnowledgeProvider(knowledgeProvider),
		agent.WithQuoteRecorder(recorder),
	}
	if cfg.Chat.LLMTimeoutSeconds > 0 {
		agentOpts = append(agentOpts, agent.WithLLMTimeout(time.Duration(cfg.Chat.LLMTimeoutSeconds)*time.Second))
	}
	if !cfg.AllowFallback() {
		agentOpts = append(agentOpts, agent.WithFallbackDisabled())
	}

	ag, err := agent.New(llmClient, resolver, agentOpts...)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Server.Address, ag,
		api.WithAPIKey(cfg.Server.APIKey),
		api.WithQuoteStore(quoteStore),
	)

	logger.L().Info("服务启动", slog.String("address", cfg.Server.Address))
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		apiKey := strings.TrimSpace(cfg.LLM.OpenAI.APIKey)
		if apiKey == "" {
			return nil, errors.New("OpenAI provider 需要配置 api_key 或 OPENAI_API_KEY 环境变量")
		}
		return openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Model:   cfg.LLM.OpenAI.Model,
			Timeout: time.Duration(cfg.LLM.OpenAI.TimeoutSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

func createQuoteStore(cfg *config.Config) (quote.Store, error) {
	switch cfg.Audit.Store.Driver {
	case "", "memory":
		return quote.NewMemoryStore(), nil
	case "mysql":
		return quote.NewMySQLStore(cfg.Audit.Store.DSN)
	default:
		return nil, fmt.Errorf("未知的审计存储驱动: %s", cfg.Audit.Store.Driver)
	}
}

func createQuoteQueue(cfg *config.Config) (quote.Queue, error) {
	switch cfg.Audit.Queue.Driver {
	case "", "memory":
		return quote.NewMemoryQueue(1024), nil
	case "redis":
		return quote.NewRedisQueue(quote.RedisQueueConfig{
			Address:   cfg.Audit.Queue.Redis.Address,
			Password:  cfg.Audit.Queue.Redis.Password,
			DB:        cfg.Audit.Queue.Redis.DB,
			Queue:     cfg.Audit.Queue.Redis.Queue,
			BlockWait: time.Duration(cfg.Audit.Queue.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return quote.NewRabbitMQQueue(quote.RabbitMQConfig{
			URL:        cfg.Audit.Queue.RabbitMQ.URL,
			Queue:      cfg.Audit.Queue.RabbitMQ.Queue,
			Prefetch:   cfg.Audit.Queue.RabbitMQ.Prefetch,
			Durable:    cfg.Audit.Queue.RabbitMQ.Durable,
			AutoDelete: cfg.Audit.Queue.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的审计队列驱动: %s", cfg.Audit.Queue.Driver)
	}
}
