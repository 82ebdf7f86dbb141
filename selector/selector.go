package selector

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sprintertech/intent-engine/balances"
	"github.com/sprintertech/intent-engine/config"
	"golang.org/x/exp/slices"
)

// Destination identifies the token the user wants to receive.
type Destination struct {
	ChainID      uint64
	Symbol       string
	TokenAddress common.Address
	Decimals     uint8
}

// The tier table below is a product decision and has to be reproduced
// exactly. Lower tier wins; USD value only breaks ties inside one tier.
const (
	tierSameTokenDestChain = iota + 1
	tierStableDestChain
	tierNativeDestChain
	tierOtherDestChain
	tierSameTokenForeignChain
	tierStableForeignChain
	tierOtherForeignChain
	tierSameTokenMainnet
	tierStableMainnet
	tierNativeMainnet
	tierOtherMainnet
)

var stableSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
}

// DAI only counts as a stable on Ethereum mainnet.
var mainnetStableSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
	"DAI":  {},
}

// Prioritize ranks candidate source balances best-first for greedy
// accumulation. Pure function of its inputs: a fixed destination and balance
// set always produce the same ordering.
func Prioritize(dest Destination, candidates []balances.SourceBalance) []balances.SourceBalance {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b balances.SourceBalance) int {
		ta, tb := tier(dest, a), tier(dest, b)
		if ta != tb {
			return ta - tb
		}

		return b.ValueUSD.Cmp(a.ValueUSD)
	})

	return ranked
}

func tier(dest Destination, b balances.SourceBalance) int {
	sameToken := b.ChainID == dest.ChainID &&
		strings.EqualFold(b.TokenAddress.Hex(), dest.TokenAddress.Hex())
	sameSymbol := strings.EqualFold(b.Symbol, dest.Symbol)
	destIsMainnet := dest.ChainID == config.EthereumMainnetChainID

	if b.ChainID == dest.ChainID {
		switch {
		case sameToken:
			return tierSameTokenDestChain
		case !destIsMainnet && isStable(b.Symbol, stableSymbols):
			return tierStableDestChain
		case b.IsNative:
			return tierNativeDestChain
		default:
			return tierOtherDestChain
		}
	}

	if b.ChainID == config.EthereumMainnetChainID {
		switch {
		case sameSymbol:
			return tierSameTokenMainnet
		case isStable(b.Symbol, mainnetStableSymbols):
			return tierStableMainnet
		case b.IsNative:
			return tierNativeMainnet
		default:
			return tierOtherMainnet
		}
	}

	// Mainnet destinations collapse all foreign chains into one tier
	// regardless of token.
	if destIsMainnet {
		return tierOtherForeignChain
	}

	switch {
	case sameSymbol:
		return tierSameTokenForeignChain
	case isStable(b.Symbol, stableSymbols):
		return tierStableForeignChain
	default:
		return tierOtherForeignChain
	}
}

func isStable(symbol string, set map[string]struct{}) bool {
	_, ok := set[strings.ToUpper(symbol)]
	return ok
}

// SourceCost reports the extra fees selecting a source adds to the required
// total.
type SourceCost func(b balances.SourceBalance) *big.Int

// Select walks the ranked list and accumulates balances until the required
// destination amount is covered. Each selected source grows the required
// total by its cost; a nil cost keeps it fixed. The second return reports
// whether the full list could not cover it.
func Select(
	dest Destination,
	required *big.Int,
	ranked []balances.SourceBalance,
	destTokenPriceUSD decimal.Decimal,
	cost SourceCost,
) ([]balances.SourceBalance, bool) {
	selected := make([]balances.SourceBalance, 0, len(ranked))
	covered := new(big.Int)
	remaining := new(big.Int).Set(required)

	for _, b := range ranked {
		if covered.Cmp(remaining) >= 0 {
			break
		}

		if cost != nil {
			remaining.Add(remaining, cost(b))
		}
		selected = append(selected, b)
		covered.Add(covered, DestinationEquivalent(b, dest, destTokenPriceUSD))
	}

	return selected, covered.Cmp(remaining) < 0
}

// DestinationEquivalent converts a source balance into destination token
// base units through its USD valuation.
func DestinationEquivalent(
	b balances.SourceBalance,
	dest Destination,
	destTokenPriceUSD decimal.Decimal,
) *big.Int {
	if destTokenPriceUSD.IsZero() {
		return new(big.Int)
	}

	equivalent := b.ValueUSD.Div(destTokenPriceUSD).Shift(int32(dest.Decimals))
	return equivalent.BigInt()
}
