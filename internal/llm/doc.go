// Package llm 定义了对话编排器消费的大模型补全接口。
// 结构化请求要求模型按声明的 JSON schema 输出；自由文本请求用于
// 生成最终回复。schema 不符或传输失败都以统一错误码向上抛出，
// 本层不做任何重试。
package llm
