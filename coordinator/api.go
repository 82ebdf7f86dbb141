package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/sprintertech/intent-engine/fees"
)

type ProtocolFeesResponse struct {
	CollectionFees []ChainTokenFee `json:"collection_fees"`
	FulfilmentFees []ChainTokenFee `json:"fulfilment_fees"`
	ProtocolFeeBps int64           `json:"protocol_fee_bps"`
}

type ChainTokenFee struct {
	ChainID      uint64 `json:"chain_id"`
	TokenAddress string `json:"token_address"`
	Amount       string `json:"amount"`
}

type SolverDataResponse struct {
	Routes []SolverRoute `json:"routes"`
}

type SolverRoute struct {
	SourceChainID uint64 `json:"source_chain_id"`
	SourceToken   string `json:"source_token"`
	DestChainID   uint64 `json:"dest_chain_id"`
	DestToken     string `json:"dest_token"`
	Bps           int64  `json:"bps"`
}

type PriceOracleResponse struct {
	Prices []OraclePrice `json:"prices"`
}

type OraclePrice struct {
	Symbol   string          `json:"symbol"`
	PriceUSD decimal.Decimal `json:"price_usd"`
}

// API exposes the read-only queries of the coordination layer gateway.
type API struct {
	url    string
	Client *http.Client
}

func NewAPI(url string) *API {
	return &API{
		url: url,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ProtocolFees fetches the currently published collection, fulfilment and
// protocol fees.
func (a *API) ProtocolFees(ctx context.Context) (*ProtocolFeesResponse, error) {
	resp := new(ProtocolFeesResponse)
	if err := a.get(ctx, "/v1/protocol-fees", resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// SolverDataAll fetches the route specific solver rates.
func (a *API) SolverDataAll(ctx context.Context) (*SolverDataResponse, error) {
	resp := new(SolverDataResponse)
	if err := a.get(ctx, "/v1/solver-data", resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// PriceOracleData fetches the oracle USD prices for all supported symbols.
func (a *API) PriceOracleData(ctx context.Context) (*PriceOracleResponse, error) {
	resp := new(PriceOracleResponse)
	if err := a.get(ctx, "/v1/price-oracle", resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// FeeTable fetches the protocol fees and solver routes concurrently and
// assembles them into an immutable fee table snapshot.
func (a *API) FeeTable(ctx context.Context) (*fees.FeeTable, error) {
	var protocolFees *ProtocolFeesResponse
	var solverData *SolverDataResponse

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		protocolFees, err = a.ProtocolFees(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		solverData, err = a.SolverDataAll(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	table := &fees.FeeTable{
		ProtocolFeeBps: protocolFees.ProtocolFeeBps,
	}
	table.CollectionFees, table.FulfilmentFees = parseFees(protocolFees.CollectionFees), parseFees(protocolFees.FulfilmentFees)
	for _, r := range solverData.Routes {
		table.SolverRoutes = append(table.SolverRoutes, fees.SolverRoute{
			SourceChainID: r.SourceChainID,
			SourceToken:   common.HexToAddress(r.SourceToken),
			DestChainID:   r.DestChainID,
			DestToken:     common.HexToAddress(r.DestToken),
			Bps:           r.Bps,
		})
	}

	return table, nil
}

func (a *API) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url+path, nil)
	if err != nil {
		return err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, %s", resp.StatusCode, a.url+path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

func parseFees(entries []ChainTokenFee) []fees.ChainTokenFee {
	parsed := make([]fees.ChainTokenFee, 0, len(entries))
	for _, e := range entries {
		amount, ok := new(big.Int).SetString(e.Amount, 10)
		if !ok {
			continue
		}

		parsed = append(parsed, fees.ChainTokenFee{
			ChainID:      e.ChainID,
			TokenAddress: common.HexToAddress(e.TokenAddress),
			Amount:       amount,
		})
	}

	return parsed
}
