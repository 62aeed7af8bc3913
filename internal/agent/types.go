package agent

import (
	"encoding/json"

	"CryptoChat-Agent/internal/price"
)

// Intent 是用户单轮发言的意图分类，取值为规范化的机器码。
type Intent string

const (
	IntentPriceQuery Intent = "FIND_CRYPTO_PRICE"
	IntentOther      Intent = "OTHER"
)

// intentDisplay 维护意图的本地化展示名。
var intentDisplay = map[Intent]string{
	IntentPriceQuery: "查询虚拟币价格",
	IntentOther:      "其他",
}

// Display 返回意图的本地化展示名。
func (i Intent) Display() string {
	if label, ok := intentDisplay[i]; ok {
		return label
	}
	return string(i)
}

// Valid 判断意图是否落在封闭枚举内。
func (i Intent) Valid() bool {
	_, ok := intentDisplay[i]
	return ok
}

// ClassificationResult 是意图分类的结构化输出。
// explanation 必须先于意图给出，意图只有在解释存在时才可信。
type ClassificationResult struct {
	Explanation string `json:"explanation"`
	Intention   Intent `json:"intention"`
}

// ExtractionResult 是价格查询要素提取的结构化输出。
// Query 要么完整存在，要么为 nil；nil 表示信息不足，不允许猜测。
type ExtractionResult struct {
	Explanation string       `json:"explanation"`
	Query       *price.Query `json:"crypto_price_info"`
}

// classificationSchema 约束意图分类的输出：解释在前，意图为封闭枚举。
var classificationSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "explanation": {
      "type": "string",
      "description": "解释为何生成这个回答"
    },
    "intention": {
      "type": "string",
      "enum": ["FIND_CRYPTO_PRICE", "OTHER"]
    }
  },
  "required": ["explanation", "intention"]
}`)

// extractionSchema 约束价格查询要素的输出：三个字段全有或整体为 null。
var extractionSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "explanation": {
      "type": "string",
      "description": "解释为何生成这个回答"
    },
    "crypto_price_info": {
      "anyOf": [
        {"type": "null"},
        {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "crypto_type": {"type": "string", "enum": ["BTC", "ETH"]},
            "crypto_source": {"type": "string", "enum": ["coingecko", "coinbase", "binance", "chainlink"]},
            "currency": {"type": "string", "enum": ["USD", "EUR", "USDT"]}
          },
          "required": ["crypto_type", "crypto_source", "currency"]
        }
      ]
    }
  },
  "required": ["explanation", "crypto_price_info"]
}`)

// TurnResult 汇总一个回合处理完成后的产出。
type TurnResult struct {
	SessionID string       `json:"session_id"`
	Intent    Intent       `json:"intent"`
	Reply     string       `json:"reply"`
	Quote     *price.Quote `json:"-"`
}
