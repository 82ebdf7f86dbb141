// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package evm_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/chains/evm"
	"github.com/sprintertech/intent-engine/config"
	solverConfig "github.com/sprintertech/solver-config/go/config"
	"github.com/stretchr/testify/suite"
)

type NewEVMConfigTestSuite struct {
	suite.Suite

	solverConfig solverConfig.SolverConfig
}

func TestRunNewEVMConfigTestSuite(t *testing.T) {
	suite.Run(t, new(NewEVMConfigTestSuite))
}

func (s *NewEVMConfigTestSuite) SetupTest() {
	tokens := make(map[string]solverConfig.Token)
	tokens["usdc"] = solverConfig.Token{
		Address:  "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		Decimals: 6,
	}
	tokens["pol"] = solverConfig.Token{
		Address:  "0x0000000000000000000000000000000000001010",
		Decimals: 18,
	}

	solverChains := make(map[string]solverConfig.Chain)
	solverChains["eip155:137"] = solverConfig.Chain{
		Tokens: tokens,
	}

	s.solverConfig = solverConfig.SolverConfig{
		Chains: solverChains,
	}
}

func (s *NewEVMConfigTestSuite) Test_FailedDecode() {
	_, err := evm.NewEVMConfig(map[string]interface{}{
		"id": "invalid",
	}, s.solverConfig)

	s.NotNil(err)
}

func (s *NewEVMConfigTestSuite) Test_FailedGeneralConfigValidation() {
	_, err := evm.NewEVMConfig(map[string]interface{}{}, s.solverConfig)

	s.NotNil(err)
}

func (s *NewEVMConfigTestSuite) Test_MissingVault() {
	_, err := evm.NewEVMConfig(map[string]interface{}{
		"id":       137,
		"endpoint": "ws://domain.com",
		"name":     "polygon",
	}, s.solverConfig)

	s.NotNil(err)
}

func (s *NewEVMConfigTestSuite) Test_NoSolverConfigForChain() {
	_, err := evm.NewEVMConfig(map[string]interface{}{
		"id":       42161,
		"endpoint": "ws://domain.com",
		"name":     "arbitrum",
		"vault":    "0x1e216a5820ae1E7f0Aa4d44b79CC1327172303e6",
	}, s.solverConfig)

	s.NotNil(err)
}

func (s *NewEVMConfigTestSuite) Test_ValidConfig() {
	actualConfig, err := evm.NewEVMConfig(map[string]interface{}{
		"id":          137,
		"endpoint":    "ws://domain.com",
		"name":        "polygon",
		"vault":       "0x1e216a5820ae1E7f0Aa4d44b79CC1327172303e6",
		"nativeToken": "pol",
		"permits": map[string]string{
			"usdc": "polygon2612",
		},
	}, s.solverConfig)

	s.Nil(err)
	s.Equal(common.HexToAddress("0x1e216a5820ae1E7f0Aa4d44b79CC1327172303e6"), actualConfig.Vault)
	s.Equal(config.TokenConfig{
		Address:  common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		Decimals: 6,
		Variant:  config.PermitPolygon2612,
		IsNative: false,
	}, actualConfig.Tokens["usdc"])
	s.Equal(config.TokenConfig{
		Address:  common.HexToAddress("0x0000000000000000000000000000000000001010"),
		Decimals: 18,
		Variant:  config.PermitUnsupported,
		IsNative: true,
	}, actualConfig.Tokens["pol"])
}
