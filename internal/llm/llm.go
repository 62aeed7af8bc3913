package llm

import (
	"context"
	"encoding/json"
)

// StructuredRequest 描述一次要求模型输出指定 schema 的补全请求。
type StructuredRequest struct {
	// System 是任务指引与渲染后的对话历史拼接成的系统提示词。
	System string
	// User 是用户消息或编排器合成的 reason 文本。
	User string
	// SchemaName 标识本次请求期望的结果类型。
	SchemaName string
	// Schema 是结果必须满足的 JSON schema。
	Schema json.RawMessage
}

// TextRequest 描述一次自由文本补全请求。
// 回复生成不走 schema 约束，与结构化提取是两种独立的请求形态。
type TextRequest struct {
	System string
	User   string
}

// Client 定义了调用大模型的统一接口。
// 每个操作至多发起一次补全请求，失败直接向上返回。
type Client interface {
	CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
	CompleteText(ctx context.Context, req TextRequest) (string, error)
}
