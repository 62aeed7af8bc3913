package knowledge

import "testing"

func TestStaticProviderQuery(t *testing.T) {
	items := []Snippet{
		{Title: "比特币简介", Content: "BTC 是最早的加密货币。", Keywords: []string{"btc", "比特币"}},
		{Title: "以太坊简介", Content: "ETH 支持智能合约。", Keywords: []string{"eth", "以太坊"}},
		{Title: "通用提示", Content: "行情有风险。"},
	}
	provider := NewStaticProvider(items, 2)

	got := provider.Query("最近比特币怎么样")
	if len(got) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(got))
	}
	if got[0].Title != "比特币简介" {
		t.Fatalf("expected keyword match first, got %s", got[0].Title)
	}
	if got[1].Title != "通用提示" {
		t.Fatalf("expected keyword-less snippet to always match, got %s", got[1].Title)
	}

	none := provider.Query("今天天气不错")
	if len(none) != 1 || none[0].Title != "通用提示" {
		t.Fatalf("unexpected result for unrelated message: %+v", none)
	}
}

func TestStaticProviderMaxResults(t *testing.T) {
	items := []Snippet{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}}
	provider := NewStaticProvider(items, 0)
	got := provider.Query("任意消息")
	if len(got) != 3 {
		t.Fatalf("expected default max of 3, got %d", len(got))
	}
}
