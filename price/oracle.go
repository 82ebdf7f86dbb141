package price

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sprintertech/intent-engine/coordinator"
)

type OracleDataFetcher interface {
	PriceOracleData(ctx context.Context) (*coordinator.PriceOracleResponse, error)
}

// OracleAPI resolves per-symbol USD prices from the coordination layer price
// oracle. Symbols are matched case-insensitively.
type OracleAPI struct {
	fetcher OracleDataFetcher
}

func NewOracleAPI(fetcher OracleDataFetcher) *OracleAPI {
	return &OracleAPI{
		fetcher: fetcher,
	}
}

func (o *OracleAPI) TokenPrice(symbol string) (decimal.Decimal, error) {
	data, err := o.fetcher.PriceOracleData(context.Background())
	if err != nil {
		return decimal.Decimal{}, err
	}

	for _, p := range data.Prices {
		if strings.EqualFold(p.Symbol, symbol) {
			return p.PriceUSD, nil
		}
	}

	return decimal.Decimal{}, fmt.Errorf("no oracle price for symbol %s", symbol)
}
