package fees

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	BPS_DENOMINATOR = big.NewInt(10000)
)

// ChainTokenFee is a flat fee published for one chain and token, denominated
// in destination token base units.
type ChainTokenFee struct {
	ChainID      uint64
	TokenAddress common.Address
	Amount       *big.Int
}

// SolverRoute is the bps rate a solver charges for one source/destination
// pair.
type SolverRoute struct {
	SourceChainID uint64
	SourceToken   common.Address
	DestChainID   uint64
	DestToken     common.Address
	Bps           int64
}

// FeeTable is a point-in-time snapshot of the published fees. It is never
// mutated after construction; a new table is fetched for every Intent build.
type FeeTable struct {
	CollectionFees []ChainTokenFee
	FulfilmentFees []ChainTokenFee
	ProtocolFeeBps int64
	SolverRoutes   []SolverRoute
}

// CollectionFee looks up the flat collection fee for a source chain and
// token. Routes without a published fee degrade to zero.
func (t *FeeTable) CollectionFee(chainID uint64, token common.Address) *big.Int {
	return lookupFee(t.CollectionFees, chainID, token)
}

// FulfilmentFee looks up the flat fulfilment fee for the destination chain
// and token. Zero when absent.
func (t *FeeTable) FulfilmentFee(chainID uint64, token common.Address) *big.Int {
	return lookupFee(t.FulfilmentFees, chainID, token)
}

// ProtocolFee charges the protocol bps rate on the borrowed amount.
func (t *FeeTable) ProtocolFee(borrowAmount *big.Int) *big.Int {
	return new(big.Int).Div(
		new(big.Int).Mul(borrowAmount, big.NewInt(t.ProtocolFeeBps)),
		BPS_DENOMINATOR,
	)
}

// SolverFee charges the route specific solver bps rate on the borrowed
// amount, rounded towards the solver. The result is never less than the
// exact bps computation.
func (t *FeeTable) SolverFee(
	sourceChainID uint64,
	sourceToken common.Address,
	destChainID uint64,
	destToken common.Address,
	borrowAmount *big.Int,
) *big.Int {
	var bps int64
	for _, r := range t.SolverRoutes {
		if r.SourceChainID != sourceChainID || r.DestChainID != destChainID {
			continue
		}
		if !strings.EqualFold(r.SourceToken.Hex(), sourceToken.Hex()) ||
			!strings.EqualFold(r.DestToken.Hex(), destToken.Hex()) {
			continue
		}

		bps = r.Bps
		break
	}
	if bps == 0 {
		return big.NewInt(0)
	}

	fee, rem := new(big.Int).DivMod(
		new(big.Int).Mul(borrowAmount, big.NewInt(bps)),
		BPS_DENOMINATOR,
		new(big.Int),
	)
	if rem.Sign() != 0 {
		fee.Add(fee, big.NewInt(1))
	}

	return fee
}

// Breakdown is the full fee figure attached to one Intent, all values in
// destination token base units.
type Breakdown struct {
	Collection  *big.Int
	Fulfilment  *big.Int
	Protocol    *big.Int
	Solver      *big.Int
	GasSupplied *big.Int
	CAGas       *big.Int
}

func (b *Breakdown) Total() *big.Int {
	total := new(big.Int)
	for _, f := range []*big.Int{b.Collection, b.Fulfilment, b.Protocol, b.Solver, b.GasSupplied, b.CAGas} {
		if f != nil {
			total.Add(total, f)
		}
	}

	return total
}

func lookupFee(entries []ChainTokenFee, chainID uint64, token common.Address) *big.Int {
	for _, e := range entries {
		if e.ChainID != chainID {
			continue
		}
		if !strings.EqualFold(e.TokenAddress.Hex(), token.Hex()) {
			continue
		}

		return new(big.Int).Set(e.Amount)
	}

	return big.NewInt(0)
}
