package intent

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/sprintertech/intent-engine/balances"
	"github.com/sprintertech/intent-engine/config"
	"github.com/sprintertech/intent-engine/fees"
	"github.com/sprintertech/intent-engine/selector"
)

type BalanceFetcher interface {
	Balances(ctx context.Context, address common.Address, universes []config.Universe) ([]balances.SourceBalance, error)
}

type FeeTableFetcher interface {
	FeeTable(ctx context.Context) (*fees.FeeTable, error)
}

type RateFetcher interface {
	Rate(symbol string) (decimal.Decimal, error)
}

// Request is the user's bridge request the Intent plans for.
type Request struct {
	Holder      common.Address
	DestChainID uint64
	DestSymbol  string
	Amount      *big.Int
	Gas         *big.Int
}

// Builder computes Intents. Balances and the fee table snapshot are fetched
// concurrently per build; nothing is cached between builds except exchange
// rates.
type Builder struct {
	store     *config.TokenStore
	balances  BalanceFetcher
	feeTables FeeTableFetcher
	rates     RateFetcher
	universes []config.Universe
}

func NewBuilder(
	store *config.TokenStore,
	balanceFetcher BalanceFetcher,
	feeTableFetcher FeeTableFetcher,
	rates RateFetcher,
	universes []config.Universe,
) *Builder {
	return &Builder{
		store:     store,
		balances:  balanceFetcher,
		feeTables: feeTableFetcher,
		rates:     rates,
		universes: universes,
	}
}

// Build fetches a fresh fee table and balance snapshot, ranks candidate
// sources and greedily accumulates them until the destination amount plus
// all fees is covered. Per-source fees grow the required total as sources
// are added.
func (b *Builder) Build(ctx context.Context, req Request) (*Intent, *fees.FeeTable, error) {
	destToken, err := b.store.ConfigBySymbol(req.DestChainID, req.DestSymbol)
	if err != nil {
		return nil, nil, err
	}
	destUniverse, err := b.store.Universe(req.DestChainID)
	if err != nil {
		return nil, nil, err
	}

	var available []balances.SourceBalance
	var table *fees.FeeTable

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		available, err = b.balances.Balances(ctx, req.Holder, b.universes)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		table, err = b.feeTables.FeeTable(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	destPrice, err := b.rates.Rate(req.DestSymbol)
	if err != nil {
		return nil, nil, err
	}

	gas := req.Gas
	if gas == nil {
		gas = new(big.Int)
	}

	dest := selector.Destination{
		ChainID:      req.DestChainID,
		Symbol:       req.DestSymbol,
		TokenAddress: destToken.Address,
		Decimals:     destToken.Decimals,
	}
	ranked := selector.Prioritize(dest, available)

	breakdown := fees.Breakdown{
		Collection:  new(big.Int),
		Fulfilment:  table.FulfilmentFee(req.DestChainID, destToken.Address),
		Protocol:    table.ProtocolFee(req.Amount),
		Solver:      new(big.Int),
		GasSupplied: gas,
		CAGas:       new(big.Int),
	}

	required := new(big.Int).Add(req.Amount, breakdown.Total())

	// adding a source adds its route specific fees to the total that has
	// to be covered
	selected, insufficient := selector.Select(dest, required, ranked, destPrice, func(candidate balances.SourceBalance) *big.Int {
		collection := table.CollectionFee(candidate.ChainID, candidate.TokenAddress)
		solver := table.SolverFee(
			candidate.ChainID,
			candidate.TokenAddress,
			req.DestChainID,
			destToken.Address,
			selector.DestinationEquivalent(candidate, dest, destPrice),
		)
		breakdown.Collection.Add(breakdown.Collection, collection)
		breakdown.Solver.Add(breakdown.Solver, solver)
		return new(big.Int).Add(collection, solver)
	})

	sources := make([]Source, 0, len(selected))
	for _, candidate := range selected {
		sources = append(sources, Source{
			ChainID:       candidate.ChainID,
			TokenContract: candidate.TokenAddress,
			Amount:        candidate.Amount,
			Universe:      candidate.Universe,
			Holder:        req.Holder,
		})
	}

	return &Intent{
		Sources: sources,
		Destination: Destination{
			ChainID:       req.DestChainID,
			TokenContract: destToken.Address,
			Amount:        req.Amount,
			Decimals:      destToken.Decimals,
			Gas:           gas,
			Universe:      destUniverse,
		},
		Fees:                           breakdown,
		IsAvailableBalanceInsufficient: insufficient,
	}, table, nil
}
