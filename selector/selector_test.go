package selector_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sprintertech/intent-engine/balances"
	"github.com/sprintertech/intent-engine/selector"
	"github.com/stretchr/testify/suite"
)

var (
	usdcPolygon = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	usdcMainnet = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

type PrioritizeTestSuite struct {
	suite.Suite

	dest selector.Destination
}

func TestRunPrioritizeTestSuite(t *testing.T) {
	suite.Run(t, new(PrioritizeTestSuite))
}

func (s *PrioritizeTestSuite) SetupTest() {
	s.dest = selector.Destination{
		ChainID:      137,
		Symbol:       "USDC",
		TokenAddress: usdcPolygon,
		Decimals:     6,
	}
}

func balance(chainID uint64, symbol string, address common.Address, valueUSD int64, isNative bool) balances.SourceBalance {
	return balances.SourceBalance{
		ChainID:      chainID,
		Symbol:       symbol,
		TokenAddress: address,
		Amount:       big.NewInt(1),
		ValueUSD:     decimal.NewFromInt(valueUSD),
		IsNative:     isNative,
	}
}

func (s *PrioritizeTestSuite) Test_Prioritize_FullTierOrdering() {
	otherMainnet := balance(1, "WBTC", common.HexToAddress("0x11"), 100, false)
	nativeMainnet := balance(1, "ETH", common.HexToAddress("0x12"), 100, true)
	stableMainnet := balance(1, "DAI", common.HexToAddress("0x13"), 100, false)
	sameTokenMainnet := balance(1, "USDC", usdcMainnet, 100, false)
	otherForeign := balance(10, "WETH", common.HexToAddress("0x14"), 100, false)
	stableForeign := balance(10, "USDT", common.HexToAddress("0x15"), 100, false)
	sameTokenForeign := balance(10, "USDC", common.HexToAddress("0x16"), 100, false)
	otherDest := balance(137, "WETH", common.HexToAddress("0x17"), 100, false)
	nativeDest := balance(137, "POL", common.HexToAddress("0x18"), 100, true)
	stableDest := balance(137, "USDT", common.HexToAddress("0x19"), 100, false)
	sameTokenDest := balance(137, "USDC", usdcPolygon, 100, false)

	ranked := selector.Prioritize(s.dest, []balances.SourceBalance{
		otherMainnet,
		nativeMainnet,
		stableMainnet,
		sameTokenMainnet,
		otherForeign,
		stableForeign,
		sameTokenForeign,
		otherDest,
		nativeDest,
		stableDest,
		sameTokenDest,
	})

	s.Equal([]balances.SourceBalance{
		sameTokenDest,
		stableDest,
		nativeDest,
		otherDest,
		sameTokenForeign,
		stableForeign,
		otherForeign,
		sameTokenMainnet,
		stableMainnet,
		nativeMainnet,
		otherMainnet,
	}, ranked)
}

func (s *PrioritizeTestSuite) Test_Prioritize_TierDominatesValueAcrossTiers() {
	usdcDest := balance(137, "USDC", usdcPolygon, 190, false)
	usdtDest := balance(137, "USDT", common.HexToAddress("0x19"), 180, false)
	maticDest := balance(137, "MATIC", common.HexToAddress("0x18"), 170, true)
	linkDest := balance(137, "LINK", common.HexToAddress("0x17"), 160, false)
	usdcArbitrum := balance(42161, "USDC", common.HexToAddress("0x16"), 150, false)
	usdtOptimism := balance(10, "USDT", common.HexToAddress("0x15"), 180, false)
	linkOptimism := balance(10, "LINK", common.HexToAddress("0x14"), 150, false)
	usdcMain := balance(1, "USDC", usdcMainnet, 140, false)
	daiMain := balance(1, "DAI", common.HexToAddress("0x13"), 130, false)
	ethMain := balance(1, "ETH", common.HexToAddress("0x12"), 120, true)
	pepeMain := balance(1, "PEPE", common.HexToAddress("0x11"), 110, false)

	ranked := selector.Prioritize(s.dest, []balances.SourceBalance{
		pepeMain,
		usdtOptimism,
		ethMain,
		usdcArbitrum,
		daiMain,
		linkDest,
		usdcMain,
		maticDest,
		linkOptimism,
		usdtDest,
		usdcDest,
	})

	// a higher valued balance never jumps ahead of a better tier:
	// USDT on optimism carries more USD than USDC on arbitrum and still
	// ranks behind it
	s.Equal([]balances.SourceBalance{
		usdcDest,
		usdtDest,
		maticDest,
		linkDest,
		usdcArbitrum,
		usdtOptimism,
		linkOptimism,
		usdcMain,
		daiMain,
		ethMain,
		pepeMain,
	}, ranked)
}

func (s *PrioritizeTestSuite) Test_Prioritize_ValueBreaksTiesInsideTier() {
	small := balance(10, "USDT", common.HexToAddress("0x15"), 20, false)
	large := balance(42161, "USDT", common.HexToAddress("0x16"), 500, false)

	ranked := selector.Prioritize(s.dest, []balances.SourceBalance{small, large})

	s.Equal([]balances.SourceBalance{large, small}, ranked)
}

func (s *PrioritizeTestSuite) Test_Prioritize_DaiOnlyStableOnMainnet() {
	daiForeign := balance(10, "DAI", common.HexToAddress("0x15"), 100, false)
	wethForeign := balance(10, "WETH", common.HexToAddress("0x16"), 200, false)

	ranked := selector.Prioritize(s.dest, []balances.SourceBalance{daiForeign, wethForeign})

	// both fall into the same foreign tier, so value decides
	s.Equal([]balances.SourceBalance{wethForeign, daiForeign}, ranked)
}

func (s *PrioritizeTestSuite) Test_Prioritize_MainnetDestinationCollapsesForeignTiers() {
	dest := selector.Destination{
		ChainID:      1,
		Symbol:       "USDC",
		TokenAddress: usdcMainnet,
		Decimals:     6,
	}
	sameSymbolForeign := balance(10, "USDC", common.HexToAddress("0x15"), 50, false)
	otherForeign := balance(137, "WETH", common.HexToAddress("0x16"), 300, false)

	ranked := selector.Prioritize(dest, []balances.SourceBalance{sameSymbolForeign, otherForeign})

	s.Equal([]balances.SourceBalance{otherForeign, sameSymbolForeign}, ranked)
}

func (s *PrioritizeTestSuite) Test_Select_StopsOnceCovered() {
	first := balance(137, "USDC", usdcPolygon, 100, false)
	second := balance(10, "USDC", common.HexToAddress("0x16"), 100, false)
	third := balance(1, "USDC", usdcMainnet, 100, false)
	ranked := selector.Prioritize(s.dest, []balances.SourceBalance{first, second, third})

	// each balance is worth 100 USDC in destination units at price 1
	selected, insufficient := selector.Select(s.dest, big.NewInt(150_000000), ranked, decimal.NewFromInt(1), nil)

	s.False(insufficient)
	s.Len(selected, 2)
}

func (s *PrioritizeTestSuite) Test_Select_CostGrowsRequiredTotal() {
	first := balance(137, "USDC", usdcPolygon, 100, false)
	second := balance(10, "USDC", common.HexToAddress("0x16"), 100, false)
	third := balance(1, "USDC", usdcMainnet, 100, false)
	ranked := selector.Prioritize(s.dest, []balances.SourceBalance{first, second, third})

	// 190 USDC would fit into two sources, but every selected source
	// adds a 20 USDC fee on top of the required total
	selected, insufficient := selector.Select(
		s.dest,
		big.NewInt(190_000000),
		ranked,
		decimal.NewFromInt(1),
		func(b balances.SourceBalance) *big.Int {
			return big.NewInt(20_000000)
		})

	s.False(insufficient)
	s.Len(selected, 3)
}

func (s *PrioritizeTestSuite) Test_Select_ReportsInsufficiency() {
	ranked := []balances.SourceBalance{balance(137, "USDC", usdcPolygon, 100, false)}

	selected, insufficient := selector.Select(s.dest, big.NewInt(500_000000), ranked, decimal.NewFromInt(1), nil)

	s.True(insufficient)
	s.Len(selected, 1)
}

func (s *PrioritizeTestSuite) Test_DestinationEquivalent_ConvertsThroughUSD() {
	b := balance(10, "WETH", common.HexToAddress("0x15"), 300, false)

	// 300 USD at 1.50 USD per destination token, 6 decimals
	equivalent := selector.DestinationEquivalent(b, s.dest, decimal.NewFromFloat(1.5))

	s.Equal(big.NewInt(200_000000), equivalent)
}

func (s *PrioritizeTestSuite) Test_DestinationEquivalent_ZeroPriceIsZero() {
	b := balance(10, "WETH", common.HexToAddress("0x15"), 300, false)

	equivalent := selector.DestinationEquivalent(b, s.dest, decimal.Zero)

	s.Equal(int64(0), equivalent.Int64())
}
