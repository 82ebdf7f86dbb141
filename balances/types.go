package balances

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sprintertech/intent-engine/config"
)

// SourceBalance is a snapshot of spendable funds on one chain. It is created
// by a balance fetch and read-only afterwards.
type SourceBalance struct {
	ChainID      uint64
	Symbol       string
	TokenAddress common.Address
	Amount       *big.Int
	Decimals     uint8
	ValueUSD     decimal.Decimal
	Universe     config.Universe
	IsNative     bool
}
