package intent

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/config"
	"github.com/sprintertech/intent-engine/fees"
)

// Source is one chain the Intent spends from.
type Source struct {
	ChainID       uint64
	TokenContract common.Address
	Amount        *big.Int
	Universe      config.Universe
	Holder        common.Address
}

// Destination is the token and amount the user wants to receive.
type Destination struct {
	ChainID       uint64
	TokenContract common.Address
	Amount        *big.Int
	Decimals      uint8
	Gas           *big.Int
	Universe      config.Universe
}

// Intent is the computed plan for which sources fund which destination,
// inclusive of fees. Intents are built once per bridge request and
// recomputed, never mutated, when an input changes.
type Intent struct {
	Sources     []Source
	Destination Destination
	Fees        fees.Breakdown

	IsAvailableBalanceInsufficient bool
}

// TotalFees is the sum of all fee figures in destination token base units.
func (i *Intent) TotalFees() *big.Int {
	return i.Fees.Total()
}
