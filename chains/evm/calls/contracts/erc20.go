// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/chains/evm/calls/consts"
	"github.com/sygmaprotocol/sygma-core/chains/evm/client"
	"github.com/sygmaprotocol/sygma-core/chains/evm/contracts"
)

type ERC20Contract struct {
	contracts.Contract
}

func NewERC20Contract(
	client client.Client,
	address common.Address,
) *ERC20Contract {
	return &ERC20Contract{
		Contract: contracts.NewContract(address, consts.ERC20PermitABI, nil, client, nil),
	}
}

func (c *ERC20Contract) Name() (string, error) {
	res, err := c.CallContract("name")
	if err != nil {
		return "", err
	}

	return *abi.ConvertType(res[0], new(string)).(*string), nil
}

// Nonces reads the EIP-2612 permit nonce counter of an owner.
func (c *ERC20Contract) Nonces(owner common.Address) (*big.Int, error) {
	res, err := c.CallContract("nonces", owner)
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(res[0], new(*big.Int)).(**big.Int), nil
}

// GetNonce reads the meta-transaction nonce used by the Polygon EMT dialect.
func (c *ERC20Contract) GetNonce(owner common.Address) (*big.Int, error) {
	res, err := c.CallContract("getNonce", owner)
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(res[0], new(*big.Int)).(**big.Int), nil
}

func (c *ERC20Contract) Allowance(owner common.Address, spender common.Address) (*big.Int, error) {
	res, err := c.CallContract("allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(res[0], new(*big.Int)).(**big.Int), nil
}

// PackApprove ABI-encodes an approve call for use as an EMT function
// signature.
func PackApprove(spender common.Address, value *big.Int) ([]byte, error) {
	return consts.ERC20PermitABI.Pack("approve", spender, value)
}
