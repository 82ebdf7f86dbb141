package permit

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sourcegraph/conc/pool"
	"github.com/sprintertech/intent-engine/chains/evm/calls/contracts"
	"github.com/sprintertech/intent-engine/chains/evm/signature"
	"github.com/sprintertech/intent-engine/config"
	"github.com/sprintertech/intent-engine/errs"
)

const (
	EIP712_VERSION  = "1"
	PERMIT_DEADLINE = time.Hour
)

// Authorization is a signed, time-bounded spend authorization. It is
// consumed exactly once by the relay and never reused for a different
// spender or value.
type Authorization struct {
	TokenAddress common.Address
	ChainID      uint64
	Value        *big.Int
	Deadline     *big.Int
	R            [32]byte
	S            [32]byte
	V            uint8
	Variant      config.PermitVariant
}

type TokenReader interface {
	Name() (string, error)
	Nonces(owner common.Address) (*big.Int, error)
	GetNonce(owner common.Address) (*big.Int, error)
	Allowance(owner common.Address, spender common.Address) (*big.Int, error)
}

type TokenReaderFactory func(chainID uint64, token common.Address) (TokenReader, error)

// Signer produces off-chain spend authorizations for every supported permit
// dialect without an on-chain transaction.
type Signer struct {
	signer  signature.TypedSigner
	readers TokenReaderFactory
}

func NewSigner(s signature.TypedSigner, readers TokenReaderFactory) *Signer {
	return &Signer{
		signer:  s,
		readers: readers,
	}
}

// NeedsApproval reports whether the current on-chain allowance of the vault
// is below the required value.
func (s *Signer) NeedsApproval(chainID uint64, token common.Address, spender common.Address, value *big.Int) (bool, error) {
	reader, err := s.readers(chainID, token)
	if err != nil {
		return false, err
	}

	allowance, err := reader.Allowance(s.signer.Address(), spender)
	if err != nil {
		return false, err
	}

	return allowance.Cmp(value) < 0, nil
}

// Permit signs a spend authorization for the given token in its permit
// dialect. The token nonce and name pre-fetches run concurrently before
// signing.
func (s *Signer) Permit(
	ctx context.Context,
	chainID uint64,
	token config.TokenConfig,
	spender common.Address,
	value *big.Int,
) (*Authorization, error) {
	reader, err := s.readers(chainID, token.Address)
	if err != nil {
		return nil, err
	}

	var name string
	var nonce *big.Int

	p := pool.New().WithErrors()
	p.Go(func() error {
		var err error
		name, err = reader.Name()
		return err
	})
	p.Go(func() error {
		var err error
		if token.Variant == config.PermitPolygonEMT {
			nonce, err = reader.GetNonce(s.signer.Address())
		} else {
			nonce, err = reader.Nonces(s.signer.Address())
		}
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	deadline := new(big.Int).SetInt64(time.Now().Add(PERMIT_DEADLINE).Unix())

	var data apitypes.TypedData
	switch token.Variant {
	case config.PermitEIP2612:
		data = eip2612TypedData(name, chainID, token.Address, s.signer.Address(), spender, value, nonce, deadline)
	case config.PermitDai:
		data = daiTypedData(name, chainID, token.Address, s.signer.Address(), spender, nonce, deadline)
	case config.PermitPolygon2612:
		data = polygon2612TypedData(name, chainID, token.Address, s.signer.Address(), spender, nonce, deadline)
	case config.PermitPolygonEMT:
		data, err = emtTypedData(name, chainID, token.Address, s.signer.Address(), spender, value, nonce)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errs.New(errs.CodePermitUnsupported, "token %s has no supported permit dialect", token.Address.Hex())
	}

	sig, err := s.signer.SignTypedData(ctx, data)
	if err != nil {
		if errs.IsCode(err, errs.CodeUserDeniedAllowance) {
			return nil, err
		}
		return nil, errs.Wrap(errs.CodePermitUnsupported, err, "failed to create permit for token %s", token.Address.Hex())
	}

	r, sv, v, err := signature.SplitRSV(sig)
	if err != nil {
		return nil, err
	}

	return &Authorization{
		TokenAddress: token.Address,
		ChainID:      chainID,
		Value:        value,
		Deadline:     deadline,
		R:            r,
		S:            sv,
		V:            v,
		Variant:      token.Variant,
	}, nil
}

func eip2612TypedData(
	name string,
	chainID uint64,
	token common.Address,
	owner common.Address,
	spender common.Address,
	value *big.Int,
	nonce *big.Int,
	deadline *big.Int,
) apitypes.TypedData {
	id := math.HexOrDecimal256(*new(big.Int).SetUint64(chainID))
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": []apitypes.Type{
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           EIP712_VERSION,
			ChainId:           &id,
			VerifyingContract: token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    value,
			"nonce":    nonce,
			"deadline": deadline,
		},
	}
}

// daiTypedData builds the DAI dialect permit with boolean infinite approval
// semantics and no explicit value field.
func daiTypedData(
	name string,
	chainID uint64,
	token common.Address,
	holder common.Address,
	spender common.Address,
	nonce *big.Int,
	expiry *big.Int,
) apitypes.TypedData {
	id := math.HexOrDecimal256(*new(big.Int).SetUint64(chainID))
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": []apitypes.Type{
				{Name: "holder", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "expiry", Type: "uint256"},
				{Name: "allowed", Type: "bool"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           EIP712_VERSION,
			ChainId:           &id,
			VerifyingContract: token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"holder":  holder.Hex(),
			"spender": spender.Hex(),
			"nonce":   nonce,
			"expiry":  expiry,
			"allowed": true,
		},
	}
}

// polygon2612TypedData keeps the DAI message shape but moves the chain id
// into the domain salt, padded to 32 bytes.
func polygon2612TypedData(
	name string,
	chainID uint64,
	token common.Address,
	holder common.Address,
	spender common.Address,
	nonce *big.Int,
	expiry *big.Int,
) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "verifyingContract", Type: "address"},
				{Name: "salt", Type: "bytes32"},
			},
			"Permit": []apitypes.Type{
				{Name: "holder", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "expiry", Type: "uint256"},
				{Name: "allowed", Type: "bool"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           EIP712_VERSION,
			VerifyingContract: token.Hex(),
			Salt:              chainIDSalt(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"holder":  holder.Hex(),
			"spender": spender.Hex(),
			"nonce":   nonce,
			"expiry":  expiry,
			"allowed": true,
		},
	}
}

// emtTypedData wraps an ABI-encoded approve call into the Polygon
// meta-transaction type. The relay replays this as a meta-transaction, not a
// permit.
func emtTypedData(
	name string,
	chainID uint64,
	token common.Address,
	from common.Address,
	spender common.Address,
	value *big.Int,
	nonce *big.Int,
) (apitypes.TypedData, error) {
	functionSignature, err := contracts.PackApprove(spender, value)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "verifyingContract", Type: "address"},
				{Name: "salt", Type: "bytes32"},
			},
			"MetaTransaction": []apitypes.Type{
				{Name: "nonce", Type: "uint256"},
				{Name: "from", Type: "address"},
				{Name: "functionSignature", Type: "bytes"},
			},
		},
		PrimaryType: "MetaTransaction",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           EIP712_VERSION,
			VerifyingContract: token.Hex(),
			Salt:              chainIDSalt(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"nonce":             nonce,
			"from":              from.Hex(),
			"functionSignature": functionSignature,
		},
	}, nil
}

func chainIDSalt(chainID uint64) string {
	return common.BigToHash(new(big.Int).SetUint64(chainID)).Hex()
}
