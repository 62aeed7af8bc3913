package price

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceDefinitions 对应 configs/providers.yaml 的结构。
type SourceDefinitions struct {
	Sources map[string]SourceDefinition `yaml:"sources"`
}

// SourceDefinition 描述单个行情源的接入方式。
type SourceDefinition struct {
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	// RPCURL 与 Feeds 仅对链上喂价源生效。
	RPCURL string            `yaml:"rpc_url"`
	Feeds  map[string]string `yaml:"feeds"`
}

func (d SourceDefinition) enabled(fallback bool) bool {
	if d.Enabled == nil {
		return fallback
	}
	return *d.Enabled
}

// LoadSourceDefinitions 解析 YAML 格式的行情源定义文件。
// 路径为空时返回空定义，由内置默认值接管。
func LoadSourceDefinitions(path string) (SourceDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return SourceDefinitions{Sources: map[string]SourceDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return SourceDefinitions{}, fmt.Errorf("读取行情源配置失败: %w", err)
	}

	var defs SourceDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return SourceDefinitions{}, fmt.Errorf("解析行情源配置失败: %w", err)
	}
	if defs.Sources == nil {
		defs.Sources = map[string]SourceDefinition{}
	}
	return defs, nil
}

// NewRegistry 根据行情源定义实例化解析器。
// 三个 HTTP 行情源默认启用；Chainlink 只有显式启用并提供 RPC 时才登记。
func NewRegistry(ctx context.Context, defs SourceDefinitions, opts ...ResolverOption) (*Resolver, error) {
	var quoters []Quoter

	if def := defs.Sources[string(SourceCoinGecko)]; def.enabled(true) {
		quoters = append(quoters, NewCoinGeckoQuoter(def.BaseURL))
	}
	if def := defs.Sources[string(SourceCoinbase)]; def.enabled(true) {
		quoters = append(quoters, NewCoinbaseQuoter(def.BaseURL))
	}
	if def := defs.Sources[string(SourceBinance)]; def.enabled(true) {
		quoters = append(quoters, NewBinanceQuoter(def.BaseURL))
	}

	if def, ok := defs.Sources[string(SourceChainlink)]; ok && def.enabled(false) {
		quoter, err := NewChainlinkQuoter(ctx, ChainlinkConfig{
			RPCURL: def.RPCURL,
			Feeds:  def.Feeds,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 Chainlink 行情源失败: %w", err)
		}
		quoters = append(quoters, quoter)
	}

	if len(quoters) == 0 {
		return nil, fmt.Errorf("没有任何启用的行情源")
	}
	return NewResolver(quoters, opts...), nil
}
