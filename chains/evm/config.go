// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package evm

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"

	"github.com/sprintertech/intent-engine/config"
	"github.com/sprintertech/intent-engine/config/chain"
	solverConfig "github.com/sprintertech/solver-config/go/config"
)

type EVMConfig struct {
	GeneralChainConfig chain.GeneralChainConfig

	Vault  common.Address
	Tokens map[string]config.TokenConfig
}

type RawEVMConfig struct {
	chain.GeneralChainConfig `mapstructure:",squash"`

	Vault       string            `mapstructure:"vault"`
	NativeToken string            `mapstructure:"nativeToken"`
	Permits     map[string]string `mapstructure:"permits"`
}

func (c *RawEVMConfig) Validate() error {
	if err := c.GeneralChainConfig.Validate(); err != nil {
		return err
	}
	if c.Vault == "" {
		return fmt.Errorf("required field chain.Vault empty for chain %v", *c.Id)
	}
	return nil
}

// NewEVMConfig decodes and validates an instance of an EVMConfig from
// raw chain config. Token addresses and decimals come from the shared solver
// configuration, the permit dialect per token from the chain config itself.
func NewEVMConfig(chainConfig map[string]interface{}, solverConfig solverConfig.SolverConfig) (*EVMConfig, error) {
	var c RawEVMConfig
	err := mapstructure.Decode(chainConfig, &c)
	if err != nil {
		return nil, err
	}

	err = defaults.Set(&c)
	if err != nil {
		return nil, err
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("eip155:%d", *c.Id)
	sc, ok := solverConfig.Chains[id]
	if !ok {
		return nil, fmt.Errorf("no solver config for chain %d", *c.Id)
	}

	tokens := make(map[string]config.TokenConfig)
	for s, t := range sc.Tokens {
		variant := config.PermitUnsupported
		if v, ok := c.Permits[s]; ok {
			variant = config.PermitVariant(v)
		}

		tokens[s] = config.TokenConfig{
			Address:  common.HexToAddress(t.Address),
			Decimals: uint8(t.Decimals),
			Variant:  variant,
			IsNative: s == c.NativeToken,
		}
	}

	return &EVMConfig{
		GeneralChainConfig: c.GeneralChainConfig,
		Vault:              common.HexToAddress(c.Vault),
		Tokens:             tokens,
	}, nil
}
