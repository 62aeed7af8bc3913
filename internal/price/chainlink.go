package price

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	xerrors "CryptoChat-Agent/internal/errors"
)

// aggregatorABIJSON 是 Chainlink AggregatorV3 喂价合约的只读接口。
const aggregatorABIJSON = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"latestRoundData","outputs":[
    {"internalType":"uint80","name":"roundId","type":"uint80"},
    {"internalType":"int256","name":"answer","type":"int256"},
    {"internalType":"uint256","name":"startedAt","type":"uint256"},
    {"internalType":"uint256","name":"updatedAt","type":"uint256"},
    {"internalType":"uint80","name":"answeredInRound","type":"uint80"}],
   "stateMutability":"view","type":"function"}
]`

var (
	aggregatorABIOnce sync.Once
	aggregatorABI     abi.ABI
	aggregatorABIErr  error
)

func loadAggregatorABI() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// contractCaller 是 Quote 所需的最小链上调用能力，便于测试替换。
type contractCaller interface {
	CallContract(ctx context.Context, msg gethcore.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainlinkConfig 描述链上喂价源的连接信息。
type ChainlinkConfig struct {
	RPCURL string
	// Feeds 将 BTC/USD 形式的交易对映射到喂价合约地址。
	Feeds map[string]string
}

// ChainlinkQuoter 通过 eth_call 读取 Chainlink 喂价合约的最新报价。
type ChainlinkQuoter struct {
	caller contractCaller
	eth    *ethclient.Client
	feeds  map[string]common.Address
	abi    abi.ABI
}

// NewChainlinkQuoter 连接以太坊节点并登记喂价合约地址。
func NewChainlinkQuoter(ctx context.Context, cfg ChainlinkConfig) (*ChainlinkQuoter, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 Chainlink 行情源的 RPC 地址")
	}
	if len(cfg.Feeds) == 0 {
		return nil, errors.New("未登记任何 Chainlink 喂价合约")
	}

	parsed, err := loadAggregatorABI()
	if err != nil {
		return nil, fmt.Errorf("解析喂价合约 ABI 失败: %w", err)
	}

	feeds := make(map[string]common.Address, len(cfg.Feeds))
	for pair, raw := range cfg.Feeds {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("喂价合约地址非法: %s=%s", pair, raw)
		}
		feeds[strings.ToUpper(strings.TrimSpace(pair))] = common.HexToAddress(raw)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	return &ChainlinkQuoter{caller: eth, eth: eth, feeds: feeds, abi: parsed}, nil
}

// newChainlinkQuoterWithCaller 供测试注入模拟的链上调用后端。
func newChainlinkQuoterWithCaller(caller contractCaller, feeds map[string]common.Address) (*ChainlinkQuoter, error) {
	parsed, err := loadAggregatorABI()
	if err != nil {
		return nil, err
	}
	return &ChainlinkQuoter{caller: caller, feeds: feeds, abi: parsed}, nil
}

// Close 释放底层的节点连接。
func (q *ChainlinkQuoter) Close() {
	if q != nil && q.eth != nil {
		q.eth.Close()
		q.eth = nil
	}
}

// Source 实现 Quoter 接口。
func (q *ChainlinkQuoter) Source() Source {
	return SourceChainlink
}

// Quote 读取喂价合约的最新答案并按合约精度换算成十进制文本。
func (q *ChainlinkQuoter) Quote(ctx context.Context, asset Asset, currency Currency) (string, error) {
	key := feedKey(asset, currency)
	addr, ok := q.feeds[key]
	if !ok {
		return "", xerrors.New(xerrors.CodePriceData,
			fmt.Sprintf("未登记 %s 的 Chainlink 喂价合约", key))
	}

	decimals, err := q.callDecimals(ctx, addr)
	if err != nil {
		return "", err
	}

	answer, err := q.callLatestAnswer(ctx, addr)
	if err != nil {
		return "", err
	}
	if answer.Sign() <= 0 {
		return "", xerrors.New(xerrors.CodePriceData,
			fmt.Sprintf("喂价合约 %s 返回了非正数答案", key))
	}

	return decimal.NewFromBigInt(answer, -int32(decimals)).String(), nil
}

func (q *ChainlinkQuoter) callDecimals(ctx context.Context, addr common.Address) (uint8, error) {
	input, err := q.abi.Pack("decimals")
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodePriceData, err, "编码 decimals 调用失败")
	}
	output, err := q.caller.CallContract(ctx, gethcore.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodePriceTransport, err, "读取喂价合约精度失败")
	}
	values, err := q.abi.Unpack("decimals", output)
	if err != nil || len(values) != 1 {
		return 0, xerrors.Wrap(xerrors.CodePriceData, err, "解码喂价合约精度失败")
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, xerrors.New(xerrors.CodePriceData, "喂价合约精度类型异常")
	}
	return decimals, nil
}

func (q *ChainlinkQuoter) callLatestAnswer(ctx context.Context, addr common.Address) (*big.Int, error) {
	input, err := q.abi.Pack("latestRoundData")
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePriceData, err, "编码 latestRoundData 调用失败")
	}
	output, err := q.caller.CallContract(ctx, gethcore.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePriceTransport, err, "读取喂价合约报价失败")
	}
	values, err := q.abi.Unpack("latestRoundData", output)
	if err != nil || len(values) != 5 {
		return nil, xerrors.Wrap(xerrors.CodePriceData, err, "解码喂价合约报价失败")
	}
	answer, ok := values[1].(*big.Int)
	if !ok || answer == nil {
		return nil, xerrors.New(xerrors.CodePriceData, "喂价合约答案类型异常")
	}
	return answer, nil
}
