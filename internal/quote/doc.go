// Package quote 实现行情解析结果的异步审计流水线。
// 每次价格解析（无论成功失败）都会生成一条审计记录，经由队列
// 投递后落入存储，供诊断与回放。对话历史本身不做持久化，
// 这里保存的只是价格解析的事实。
package quote
