package price

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	xerrors "CryptoChat-Agent/internal/errors"
)

type stubCaller struct {
	decimalsOut []byte
	roundOut    []byte
	err         error
}

func (s *stubCaller) CallContract(ctx context.Context, msg gethcore.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	parsed, err := loadAggregatorABI()
	if err != nil {
		return nil, err
	}
	decInput, err := parsed.Pack("decimals")
	if err != nil {
		return nil, err
	}
	if bytes.Equal(msg.Data, decInput) {
		return s.decimalsOut, nil
	}
	return s.roundOut, nil
}

func packAggregatorOutputs(t *testing.T, decimals uint8, answer *big.Int) (decOut, roundOut []byte) {
	t.Helper()
	parsed, err := loadAggregatorABI()
	if err != nil {
		t.Fatalf("load abi: %v", err)
	}
	decOut, err = parsed.Methods["decimals"].Outputs.Pack(decimals)
	if err != nil {
		t.Fatalf("pack decimals: %v", err)
	}
	roundOut, err = parsed.Methods["latestRoundData"].Outputs.Pack(
		big.NewInt(1), answer, big.NewInt(0), big.NewInt(0), big.NewInt(1))
	if err != nil {
		t.Fatalf("pack latestRoundData: %v", err)
	}
	return decOut, roundOut
}

func testFeeds() map[string]common.Address {
	return map[string]common.Address{
		"BTC/USD": common.HexToAddress("0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c"),
	}
}

func TestChainlinkQuote(t *testing.T) {
	decOut, roundOut := packAggregatorOutputs(t, 8, big.NewInt(6400050000000))
	quoter, err := newChainlinkQuoterWithCaller(&stubCaller{decimalsOut: decOut, roundOut: roundOut}, testFeeds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := quoter.Quote(context.Background(), AssetBTC, CurrencyUSD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "64000.5" {
		t.Fatalf("unexpected price text: %q", raw)
	}
}

func TestChainlinkMissingFeed(t *testing.T) {
	quoter, err := newChainlinkQuoterWithCaller(&stubCaller{}, testFeeds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = quoter.Quote(context.Background(), AssetETH, CurrencyEUR)
	if err == nil {
		t.Fatalf("expected error for missing feed")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceData) {
		t.Fatalf("expected data failure, got %v", err)
	}
}

func TestChainlinkCallFailureIsTransport(t *testing.T) {
	quoter, err := newChainlinkQuoterWithCaller(&stubCaller{err: errors.New("connection refused")}, testFeeds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = quoter.Quote(context.Background(), AssetBTC, CurrencyUSD)
	if err == nil {
		t.Fatalf("expected error on rpc failure")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestChainlinkNonPositiveAnswer(t *testing.T) {
	decOut, roundOut := packAggregatorOutputs(t, 8, big.NewInt(0))
	quoter, err := newChainlinkQuoterWithCaller(&stubCaller{decimalsOut: decOut, roundOut: roundOut}, testFeeds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = quoter.Quote(context.Background(), AssetBTC, CurrencyUSD)
	if err == nil {
		t.Fatalf("expected error for non-positive answer")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceData) {
		t.Fatalf("expected data failure, got %v", err)
	}
}
