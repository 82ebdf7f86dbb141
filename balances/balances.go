package balances

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/sprintertech/intent-engine/config"
)

type BalanceResponse struct {
	Balances []ChainBalance `json:"balances"`
}

type ChainBalance struct {
	ChainID    uint64     `json:"chain_id"`
	Universe   string     `json:"universe"`
	Errored    bool       `json:"errored"`
	Currencies []Currency `json:"currencies"`
}

type Currency struct {
	TokenAddress string          `json:"token_address"`
	Balance      string          `json:"balance"`
	Value        decimal.Decimal `json:"value"`
	Errored      bool            `json:"errored"`
}

// API fetches spendable funds of one address across all chains of a
// universe.
type API struct {
	url    string
	store  *config.TokenStore
	Client *http.Client
}

func NewAPI(url string, store *config.TokenStore) *API {
	return &API{
		url:   url,
		store: store,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Balances fetches every universe concurrently and joins the snapshots.
// Errored chain entries are dropped client-side.
func (a *API) Balances(ctx context.Context, address common.Address, universes []config.Universe) ([]SourceBalance, error) {
	var mu sync.Mutex
	all := make([]SourceBalance, 0)

	p := pool.New().WithErrors().WithContext(ctx)
	for _, universe := range universes {
		universe := universe
		p.Go(func(ctx context.Context) error {
			snapshot, err := a.universeBalances(ctx, address, universe)
			if err != nil {
				return err
			}

			mu.Lock()
			all = append(all, snapshot...)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return all, nil
}

func (a *API) universeBalances(ctx context.Context, address common.Address, universe config.Universe) ([]SourceBalance, error) {
	url := fmt.Sprintf("%s/api/v1/get-balance/%s/%s", a.url, universe, address.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	r := new(BalanceResponse)
	if err := json.Unmarshal(body, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	snapshot := make([]SourceBalance, 0)
	for _, cb := range r.Balances {
		if cb.Errored {
			continue
		}

		for _, c := range cb.Currencies {
			if c.Errored {
				continue
			}

			symbol, tc, err := a.store.ConfigByAddress(cb.ChainID, common.HexToAddress(c.TokenAddress))
			if err != nil {
				log.Debug().Msgf("Skipping unknown token %s on chain %d", c.TokenAddress, cb.ChainID)
				continue
			}

			amount, ok := new(big.Int).SetString(c.Balance, 10)
			if !ok {
				continue
			}

			snapshot = append(snapshot, SourceBalance{
				ChainID:      cb.ChainID,
				Symbol:       symbol,
				TokenAddress: tc.Address,
				Amount:       amount,
				Decimals:     tc.Decimals,
				ValueUSD:     c.Value,
				Universe:     config.Universe(cb.Universe),
				IsNative:     tc.IsNative,
			})
		}
	}

	return snapshot, nil
}
