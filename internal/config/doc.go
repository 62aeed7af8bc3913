// Package config 负责在进程启动阶段加载 CryptoChat 的核心配置。
// 核心组件不直接读取环境变量或全局状态，所有参数都通过显式的
// Config 值注入。
package config
