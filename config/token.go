package config

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/errs"
)

// Universe is a family of chains sharing one execution model.
type Universe string

const (
	UniverseEVM  Universe = "EVM"
	UniverseTron Universe = "TRON"
	UniverseFuel Universe = "FUEL"
)

// EthereumMainnetChainID is distinguished by the source prioritization
// rules and must never be inferred by convention.
const EthereumMainnetChainID uint64 = 1

// PermitVariant selects the off-chain approval dialect a token implements.
type PermitVariant string

const (
	PermitEIP2612     PermitVariant = "eip2612"
	PermitDai         PermitVariant = "dai"
	PermitPolygon2612 PermitVariant = "polygon2612"
	PermitPolygonEMT  PermitVariant = "polygonEMT"
	PermitUnsupported PermitVariant = "unsupported"
)

type TokenConfig struct {
	Address  common.Address
	Decimals uint8
	Variant  PermitVariant
	IsNative bool
}

// ChainAssets holds per-chain token metadata plus the escrow vault funds are
// collected into. Read-only after construction.
type ChainAssets struct {
	Universe Universe
	Vault    common.Address
	Tokens   map[string]TokenConfig
}

type TokenStore struct {
	Chains map[uint64]ChainAssets
}

func (s *TokenStore) ConfigByAddress(chainID uint64, address common.Address) (string, TokenConfig, error) {
	assets, ok := s.Chains[chainID]
	if !ok {
		return "", TokenConfig{}, errs.New(errs.CodeChainNotFound, "no tokens for chain %d", chainID)
	}

	for symbol, c := range assets.Tokens {
		if strings.EqualFold(c.Address.Hex(), address.Hex()) {
			return symbol, c, nil
		}
	}

	return "", TokenConfig{}, errs.New(errs.CodeTokenNotSupported, "no symbol for address %s on chain %d", address.Hex(), chainID)
}

func (s *TokenStore) ConfigBySymbol(chainID uint64, symbol string) (TokenConfig, error) {
	assets, ok := s.Chains[chainID]
	if !ok {
		return TokenConfig{}, errs.New(errs.CodeChainNotFound, "no tokens for chain %d", chainID)
	}

	c, ok := assets.Tokens[symbol]
	if !ok {
		return TokenConfig{}, errs.New(errs.CodeTokenNotSupported, "no config for token %s", symbol)
	}

	return c, nil
}

func (s *TokenStore) Vault(chainID uint64) (common.Address, error) {
	assets, ok := s.Chains[chainID]
	if !ok {
		return common.Address{}, errs.New(errs.CodeChainNotFound, "no vault for chain %d", chainID)
	}

	return assets.Vault, nil
}

func (s *TokenStore) Universe(chainID uint64) (Universe, error) {
	assets, ok := s.Chains[chainID]
	if !ok {
		return "", errs.New(errs.CodeChainNotFound, "no universe for chain %d", chainID)
	}

	return assets.Universe, nil
}
