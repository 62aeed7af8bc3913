package agent

import (
	"fmt"
	"strings"
	"testing"
)

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(RoleUser, fmt.Sprintf("消息%d", i))
	}
	if h.Len() != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", h.Len())
	}
	turns := h.Turns()
	if turns[0].Text != "消息2" || turns[2].Text != "消息4" {
		t.Fatalf("expected oldest entries evicted, got %+v", turns)
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 25; i++ {
		h.Append(RoleAgent, "回复")
	}
	if h.Len() != defaultHistoryCapacity {
		t.Fatalf("expected default capacity %d, got %d", defaultHistoryCapacity, h.Len())
	}
}

func TestHistoryRenderEmpty(t *testing.T) {
	h := NewHistory(5)
	rendered := h.Render()
	if !strings.Contains(rendered, "目前还没有对话历史") {
		t.Fatalf("empty history must render the explicit marker, got %q", rendered)
	}
}

func TestHistoryRenderTurns(t *testing.T) {
	h := NewHistory(5)
	h.Append(RoleUser, "你好")
	h.Append(RoleAgent, "你好，有什么可以帮你")
	rendered := h.Render()
	if !strings.Contains(rendered, "[user]: 你好") {
		t.Fatalf("missing user line: %q", rendered)
	}
	if !strings.Contains(rendered, "[agent]: 你好，有什么可以帮你") {
		t.Fatalf("missing agent line: %q", rendered)
	}
	if strings.Contains(rendered, "目前还没有对话历史") {
		t.Fatalf("non-empty history must not render the empty marker: %q", rendered)
	}
}
