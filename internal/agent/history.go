package agent

import (
	"fmt"
	"strings"
)

// Role 表示一条对话记录的发言方。
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn 是会话中的一次发言，创建后不可变。
type Turn struct {
	Role Role
	Text string
}

// defaultHistoryCapacity 是对话历史的默认容量。
const defaultHistoryCapacity = 20

// History 是固定容量的对话日志，按先进先出淘汰最旧的记录。
// 一个 History 只在所属会话的串行回合处理中被修改。
type History struct {
	capacity int
	turns    []Turn
}

// NewHistory 创建指定容量的对话历史。
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &History{capacity: capacity, turns: make([]Turn, 0, capacity)}
}

// Append 在尾部追加一条记录，容量已满时先淘汰最旧的一条。永远成功。
func (h *History) Append(role Role, text string) {
	if len(h.turns) == h.capacity {
		copy(h.turns, h.turns[1:])
		h.turns = h.turns[:len(h.turns)-1]
	}
	h.turns = append(h.turns, Turn{Role: role, Text: text})
}

// Len 返回当前保留的记录条数。
func (h *History) Len() int {
	return len(h.turns)
}

// Turns 返回按时间顺序排列的记录副本。
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Render 将历史渲染为提示词片段。
// 空历史会输出明确的"还没有对话历史"标记，让模型能区分新会话
// 与没有可用信息两种情况。
func (h *History) Render() string {
	lines := []string{"生成的回复尽量简短，并且口语化", "---", "对话历史:"}
	if len(h.turns) == 0 {
		lines = append(lines, "目前还没有对话历史")
	} else {
		for _, turn := range h.turns {
			lines = append(lines, fmt.Sprintf("[%s]: %s", turn.Role, turn.Text))
		}
	}
	return strings.Join(lines, "\n")
}
