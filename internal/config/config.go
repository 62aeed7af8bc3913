package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config 描述了 CryptoChat 在启动阶段需要加载的核心配置。
type Config struct {
	Server  ServerConfig  `json:"server"`
	LLM     LLMConfig     `json:"llm"`
	Chat    ChatConfig    `json:"chat"`
	Price   PriceConfig   `json:"price"`
	Audit   AuditConfig   `json:"audit"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig 控制 API 服务的监听地址与访问密钥。
type ServerConfig struct {
	Address string `json:"address"`
	// APIKey 为空时不启用访问鉴权。
	APIKey string `json:"api_key"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider string       `json:"provider"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// OpenAIConfig 描述 OpenAI 兼容接口所需的连接信息。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ChatConfig 控制对话编排器的行为。
type ChatConfig struct {
	HistoryCapacity   int    `json:"history_capacity"`
	LLMTimeoutSeconds int    `json:"llm_timeout_seconds"`
	KnowledgePath     string `json:"knowledge_path"`
}

// PriceConfig 控制行情解析器的行为。
type PriceConfig struct {
	// SourcesConfig 指向 YAML 格式的行情源定义文件，为空时使用内置默认值。
	SourcesConfig  string `json:"sources_config"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	AllowFallback  *bool  `json:"allow_fallback"`
}

// AuditConfig 描述行情审计流水线的存储与队列后端。
type AuditConfig struct {
	Store AuditStoreConfig `json:"store"`
	Queue AuditQueueConfig `json:"queue"`
}

// AuditStoreConfig 目前提供内存实现，也可以切换到 MySQL。
type AuditStoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// AuditQueueConfig 选择审计记录的投递队列。
type AuditQueueConfig struct {
	Driver   string              `json:"driver"`
	Redis    RedisQueueConfig    `json:"redis"`
	RabbitMQ RabbitMQQueueConfig `json:"rabbitmq"`
}

// RedisQueueConfig 描述 Redis 队列的连接参数。
type RedisQueueConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQQueueConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQQueueConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level       string           `json:"level"`
	Format      string           `json:"format"`
	OutputPaths []string         `json:"output_paths"`
	Transcript  TranscriptConfig `json:"transcript"`
}

// TranscriptConfig 控制对话全文日志的落盘。
type TranscriptConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o"
	}
	if c.LLM.OpenAI.APIKey == "" {
		c.LLM.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if c.Chat.HistoryCapacity <= 0 {
		c.Chat.HistoryCapacity = 20
	}

	if c.Price.TimeoutSeconds <= 0 {
		c.Price.TimeoutSeconds = 10
	}
	if c.Price.SourcesConfig != "" && !filepath.IsAbs(c.Price.SourcesConfig) {
		c.Price.SourcesConfig = filepath.Join(baseDir, c.Price.SourcesConfig)
	}

	if c.Chat.KnowledgePath != "" && !filepath.IsAbs(c.Chat.KnowledgePath) {
		c.Chat.KnowledgePath = filepath.Join(baseDir, c.Chat.KnowledgePath)
	}

	if c.Audit.Store.Driver == "" {
		c.Audit.Store.Driver = "memory"
	}
	if c.Audit.Queue.Driver == "" {
		c.Audit.Queue.Driver = "memory"
	}
}

// AllowFallback 返回是否允许行情源之间的自动回退，默认开启。
func (c *Config) AllowFallback() bool {
	if c == nil || c.Price.AllowFallback == nil {
		return true
	}
	return *c.Price.AllowFallback
}
